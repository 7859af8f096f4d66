package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
)

type couponLoader interface {
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// Engine computes checkout totals from fresh product prices and an optional
// coupon code. All amounts are integer pesewas.
type Engine struct {
	coupons couponLoader
	now     func() time.Time
}

// NewEngine builds a pricing engine backed by the provided coupon store.
func NewEngine(coupons couponLoader) (*Engine, error) {
	if coupons == nil {
		return nil, fmt.Errorf("coupon loader required")
	}
	return &Engine{coupons: coupons, now: time.Now}, nil
}

// Quote is the priced view of a cart before the order transaction runs.
type Quote struct {
	SubtotalPesewas int
	DiscountPesewas int
	ShippingPesewas int
	TaxPesewas      int
	TotalPesewas    int
	Coupon          *models.Coupon
}

// LineItem is one cart line priced at its current catalog price, not the
// price captured when the item was added.
type LineItem struct {
	UnitPricePesewas int
	Quantity         int
}

// Price totals the cart and applies the optional coupon code. Shipping is
// computed by the caller (it depends on the seller partition) and folded in
// here so the quote carries the full breakdown.
func (e *Engine) Price(ctx context.Context, items []LineItem, shippingPesewas int, couponCode string) (*Quote, error) {
	subtotal := 0
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
		if item.UnitPricePesewas < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item price must be non-negative")
		}
		subtotal += item.UnitPricePesewas * item.Quantity
	}
	if shippingPesewas < 0 {
		shippingPesewas = 0
	}

	quote := &Quote{
		SubtotalPesewas: subtotal,
		ShippingPesewas: shippingPesewas,
	}

	if code := strings.TrimSpace(couponCode); code != "" {
		coupon, err := e.resolveCoupon(ctx, code, subtotal)
		if err != nil {
			return nil, err
		}
		quote.Coupon = coupon
		quote.DiscountPesewas = discountFor(coupon, subtotal)
	}

	quote.TotalPesewas = quote.SubtotalPesewas - quote.DiscountPesewas + quote.ShippingPesewas + quote.TaxPesewas
	return quote, nil
}

// resolveCoupon validates the code in priority order: existence, active flag
// and validity window, usage limit, then minimum order.
func (e *Engine) resolveCoupon(ctx context.Context, code string, subtotal int) (*models.Coupon, error) {
	coupon, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "coupon not found").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading coupon")
	}

	now := e.now()
	if !coupon.IsActive ||
		(coupon.StartsAt != nil && now.Before(*coupon.StartsAt)) ||
		(coupon.ExpiresAt != nil && now.After(*coupon.ExpiresAt)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon expired").
			WithDetails(map[string]any{"code": coupon.Code})
	}

	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon usage limit exceeded").
			WithDetails(map[string]any{"code": coupon.Code})
	}

	if coupon.MinOrderPesewas != nil && subtotal < *coupon.MinOrderPesewas {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon minimum order not met").
			WithDetails(map[string]any{
				"code":              coupon.Code,
				"min_order_pesewas": *coupon.MinOrderPesewas,
			})
	}

	return coupon, nil
}

// discountFor computes the coupon discount, clamped so the discount never
// exceeds the subtotal.
func discountFor(coupon *models.Coupon, subtotal int) int {
	var discount int
	switch coupon.Type {
	case enums.CouponTypePercentage:
		// Round half up in integer arithmetic.
		discount = (subtotal*coupon.Value + 50) / 100
		if coupon.MaxDiscountPesewas != nil && discount > *coupon.MaxDiscountPesewas {
			discount = *coupon.MaxDiscountPesewas
		}
	case enums.CouponTypeFixed:
		discount = coupon.Value
	default:
		return 0
	}

	if discount < 0 {
		return 0
	}
	if discount > subtotal {
		return subtotal
	}
	return discount
}
