package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/makolahq/makola-backend/internal/delivery"
	"github.com/makolahq/makola-backend/internal/sellers"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/db/models"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/types"
)

// GroupItem is one cart line inside a seller group, priced at the current
// catalog price.
type GroupItem struct {
	Product  *models.Product
	Quantity int
}

// SellerGroup is one seller's slice of the checkout: their items, subtotal,
// shipping fee, and commission split.
type SellerGroup struct {
	Seller            *models.Seller
	Items             []GroupItem
	SubtotalPesewas   int
	ShippingPesewas   int
	CommissionPesewas int
	PayoutPesewas     int
}

// Partitioner groups cart items by owning seller and computes each group's
// money split. Items with no seller are assigned to the configured platform
// storefront; when none is configured they are rejected.
type Partitioner struct {
	fees             delivery.Calculator
	defaultRate      decimal.Decimal
	platformSellerID *uuid.UUID
}

// NewPartitioner builds a partitioner from the checkout configuration.
func NewPartitioner(fees delivery.Calculator, cfg config.CheckoutConfig) (*Partitioner, error) {
	rate, err := decimal.NewFromString(cfg.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission rate %q: %w", cfg.CommissionRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate %s out of range [0,1]", rate)
	}
	platformID, err := cfg.PlatformSeller()
	if err != nil {
		return nil, err
	}
	return &Partitioner{
		fees:             fees,
		defaultRate:      rate,
		platformSellerID: platformID,
	}, nil
}

// PlatformSellerID returns the configured placeholder seller, if any.
func (p *Partitioner) PlatformSellerID() *uuid.UUID {
	return p.platformSellerID
}

// Partition groups the validated cart items by seller. platformSeller must
// be the loaded placeholder seller row when any item has no seller of its
// own; it may be nil otherwise. Returns the groups in first-seen item order
// plus the summed shipping across groups.
func (p *Partitioner) Partition(items []models.CartItem, platformSeller *models.Seller, ship types.ShippingAddress) ([]SellerGroup, int, error) {
	groupIndex := map[uuid.UUID]int{}
	groups := []SellerGroup{}

	for _, item := range items {
		if item.Product == nil {
			return nil, 0, pkgerrors.New(pkgerrors.CodeInternal, "cart item missing product")
		}

		seller, err := p.resolveSeller(item.Product, platformSeller)
		if err != nil {
			return nil, 0, err
		}

		idx, ok := groupIndex[seller.ID]
		if !ok {
			idx = len(groups)
			groupIndex[seller.ID] = idx
			groups = append(groups, SellerGroup{Seller: seller})
		}
		groups[idx].Items = append(groups[idx].Items, GroupItem{
			Product:  item.Product,
			Quantity: item.Quantity,
		})
		groups[idx].SubtotalPesewas += item.Product.PricePesewas * item.Quantity
	}

	totalShipping := 0
	for i := range groups {
		g := &groups[i]
		g.ShippingPesewas = p.fees.Fee(g.Seller.Region, g.Seller.City, ship.Region, ship.City)
		totalShipping += g.ShippingPesewas

		rate := sellers.CommissionRate(g.Seller, p.defaultRate)
		g.CommissionPesewas = int(decimal.NewFromInt(int64(g.SubtotalPesewas)).Mul(rate).Round(0).IntPart())
		g.PayoutPesewas = g.SubtotalPesewas - g.CommissionPesewas
	}

	return groups, totalShipping, nil
}

func (p *Partitioner) resolveSeller(product *models.Product, platformSeller *models.Seller) (*models.Seller, error) {
	if product.SellerID != nil {
		if product.Seller == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "product seller not loaded").
				WithDetails(map[string]any{"product_id": product.ID.String()})
		}
		return product.Seller, nil
	}

	if p.platformSellerID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product has no seller").
			WithDetails(map[string]any{
				"product_id":   product.ID.String(),
				"product_name": product.Name,
			})
	}
	if platformSeller == nil || platformSeller.ID != *p.platformSellerID {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "platform seller not loaded")
	}
	return platformSeller, nil
}
