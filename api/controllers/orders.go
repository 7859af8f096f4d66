package controllers

import (
	"net/http"
	"strings"

	"github.com/makolahq/makola-backend/api/responses"
	"github.com/makolahq/makola-backend/api/validators"
	"github.com/makolahq/makola-backend/internal/orders"
	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/pagination"
)

type orderListResponse struct {
	Orders []models.Order  `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

type sellerOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderListResponse{Orders: list.Orders, Meta: list.Meta})
	}
}

func OrderDetail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func OrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), buyerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// SellerOrderStatusUpdate progresses the caller's slice of an order through
// fulfillment.
func SellerOrderStatusUpdate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sellerID, err := sellerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sellerOrderID, err := pathUUID(r, "sellerOrderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req sellerOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target := enums.SellerOrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
		if !target.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid seller order status").
				WithDetails(map[string]any{"status": req.Status}))
			return
		}
		updated, err := svc.UpdateSellerOrderStatus(r.Context(), sellerID, sellerOrderID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
