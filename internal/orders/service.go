package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/internal/inventory"
	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/logger"
	"github.com/makolahq/makola-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderList is one page of a buyer's order history.
type OrderList struct {
	Orders []models.Order
	Meta   pagination.Meta
}

// Service exposes post-checkout order operations: buyer history and detail,
// seller fulfillment, and cancellation.
type Service interface {
	Get(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error)
	UpdateSellerOrderStatus(ctx context.Context, sellerID, sellerOrderID uuid.UUID, target enums.SellerOrderStatus) (*models.SellerOrder, error)
	Cancel(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the orders service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwnedOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	params = params.Normalize()
	orders, total, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return &OrderList{
		Orders: orders,
		Meta:   pagination.NewMeta(params, total),
	}, nil
}

// UpdateSellerOrderStatus progresses one seller's slice of an order. Forward
// movement is gated on the parent order's payment being confirmed, so a
// seller can never ship an unpaid order; cancellation is always allowed from
// a non-terminal state.
func (s *service) UpdateSellerOrderStatus(ctx context.Context, sellerID, sellerOrderID uuid.UUID, target enums.SellerOrderStatus) (*models.SellerOrder, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid seller order status")
	}

	sellerOrder, err := s.repo.FindSellerOrder(ctx, sellerOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading seller order")
	}
	if sellerOrder.SellerID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller order belongs to another seller")
	}

	if !sellerOrder.Status.CanTransition(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "seller order transition disallowed").
			WithDetails(map[string]any{
				"from": string(sellerOrder.Status),
				"to":   string(target),
			})
	}

	if target != enums.SellerOrderStatusCancelled {
		parent, err := s.repo.FindByID(ctx, sellerOrder.OrderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading parent order")
		}
		if !parent.Status.PaymentConfirmed() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order payment not confirmed").
				WithDetails(map[string]any{"order_status": string(parent.Status)})
		}
	}

	if err := s.repo.UpdateSellerOrderStatus(ctx, sellerOrderID, target); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating seller order")
	}
	sellerOrder.Status = target

	ctx = s.logg.WithOrderID(ctx, sellerOrder.OrderID.String())
	s.logg.Info(s.logg.WithField(ctx, "seller_order_status", string(target)), "seller order status updated")
	return sellerOrder, nil
}

// Cancel aborts a non-terminal order: stock returns to the shelves, every
// seller slice is cancelled, and a pending payment is marked failed. Runs in
// one transaction.
func (s *service) Cancel(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOwnedOrder(ctx, buyerID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(enums.OrderStatusCancelled) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled").
			WithDetails(map[string]any{"status": string(order.Status)})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		for _, item := range order.Items {
			if err := inventory.RecordRestock(ctx, tx, item.ProductID, item.Quantity, &order.ID); err != nil {
				return err
			}
		}

		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusCancelled); err != nil {
			return err
		}
		for _, so := range order.SellerOrders {
			if so.Status.IsTerminal() {
				continue
			}
			if err := repo.UpdateSellerOrderStatus(ctx, so.ID, enums.SellerOrderStatusCancelled); err != nil {
				return err
			}
		}

		if order.Payment != nil && order.Payment.Status == enums.PaymentStatusPending {
			reason := "order cancelled"
			if err := repo.UpdatePayment(ctx, order.Payment.ID, map[string]any{
				"status":         enums.PaymentStatusFailed,
				"failure_reason": reason,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancelling order")
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order cancelled")
	return s.repo.FindByID(ctx, order.ID)
}

func (s *service) loadOwnedOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if order.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}
