package controllers

import (
	"net/http"
	"strings"

	"github.com/makolahq/makola-backend/api/responses"
	"github.com/makolahq/makola-backend/api/validators"
	"github.com/makolahq/makola-backend/internal/checkout"
	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/types"
)

type checkoutRequest struct {
	ShippingAddress shippingAddressRequest `json:"shipping_address" validate:"required"`
	ContactEmail    string                 `json:"contact_email" validate:"required,email"`
	ContactPhone    string                 `json:"contact_phone" validate:"required"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`
	CouponCode      string                 `json:"coupon_code,omitempty"`
	DeliveryNotes   *string                `json:"delivery_notes,omitempty"`
}

type shippingAddressRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Region   string `json:"region" validate:"required"`
	City     string `json:"city" validate:"required"`
	Area     string `json:"area,omitempty"`
	Street   string `json:"street,omitempty"`
	GPSCode  string `json:"gps_code,omitempty"`
}

type checkoutResponse struct {
	Order   *models.Order           `json:"order"`
	Payment checkoutPaymentResponse `json:"payment"`
}

type checkoutPaymentResponse struct {
	Required         bool   `json:"required"`
	Initialized      bool   `json:"initialized"`
	AuthorizationURL string `json:"authorization_url,omitempty"`
	AccessCode       string `json:"access_code,omitempty"`
	Reference        string `json:"reference,omitempty"`
}

// Checkout converts the buyer's cart into an order.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		buyerID, err := buyerIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method := enums.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod)))
		if !method.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
				WithDetails(map[string]any{"payment_method": req.PaymentMethod}))
			return
		}

		result, err := svc.Checkout(r.Context(), checkout.Input{
			BuyerID: buyerID,
			ShippingAddress: types.ShippingAddress{
				FullName: req.ShippingAddress.FullName,
				Phone:    req.ShippingAddress.Phone,
				Region:   req.ShippingAddress.Region,
				City:     req.ShippingAddress.City,
				Area:     req.ShippingAddress.Area,
				Street:   req.ShippingAddress.Street,
				GPSCode:  req.ShippingAddress.GPSCode,
			},
			ContactEmail:  req.ContactEmail,
			ContactPhone:  req.ContactPhone,
			PaymentMethod: method,
			CouponCode:    req.CouponCode,
			DeliveryNotes: req.DeliveryNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := checkoutResponse{
			Order: result.Order,
			Payment: checkoutPaymentResponse{
				Required:    result.PaymentRequired,
				Initialized: result.PaymentInitialized,
			},
		}
		if result.Authorization != nil {
			payload.Payment.AuthorizationURL = result.Authorization.AuthorizationURL
			payload.Payment.AccessCode = result.Authorization.AccessCode
			payload.Payment.Reference = result.Authorization.Reference
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payload)
	}
}
