package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/makolahq/makola-backend/internal/delivery"
	"github.com/makolahq/makola-backend/pkg/config"
	"github.com/makolahq/makola-backend/pkg/db/models"
	pkgerrors "github.com/makolahq/makola-backend/pkg/errors"
	"github.com/makolahq/makola-backend/pkg/types"
)

func testFeeCalculator() delivery.Calculator {
	return delivery.NewCalculator(config.DeliveryConfig{
		SameCityFee:   1500,
		SameRegionFee: 2500,
		DefaultFee:    4000,
		HomeRegion:    "greater accra",
	})
}

func newSeller(region, city string, rate *decimal.Decimal) *models.Seller {
	return &models.Seller{
		ID:             uuid.New(),
		Name:           "Seller " + city,
		Region:         region,
		City:           city,
		CommissionRate: rate,
		IsActive:       true,
	}
}

func newItem(seller *models.Seller, price, qty int) models.CartItem {
	var sellerID *uuid.UUID
	if seller != nil {
		id := seller.ID
		sellerID = &id
	}
	return models.CartItem{
		ID:       uuid.New(),
		Quantity: qty,
		Product: &models.Product{
			ID:           uuid.New(),
			Name:         "Item",
			SKU:          "SKU",
			PricePesewas: price,
			SellerID:     sellerID,
			Seller:       seller,
			IsActive:     true,
		},
	}
}

func TestPartitionGroupsBySeller(t *testing.T) {
	t.Parallel()

	p, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{CommissionRate: "0.10"})
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}

	accraSeller := newSeller("Greater Accra", "Accra", nil)
	kumasiSeller := newSeller("Ashanti", "Kumasi", nil)

	items := []models.CartItem{
		newItem(accraSeller, 100_000, 2),
		newItem(kumasiSeller, 50_000, 1),
		newItem(accraSeller, 30_000, 1),
	}
	ship := types.ShippingAddress{Region: "Greater Accra", City: "Accra"}

	groups, totalShipping, err := p.Partition(items, nil, ship)
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	accra := groups[0]
	if accra.Seller.ID != accraSeller.ID {
		t.Fatalf("expected first-seen seller first")
	}
	if accra.SubtotalPesewas != 230_000 {
		t.Fatalf("accra subtotal = %d, want 230000", accra.SubtotalPesewas)
	}
	if accra.ShippingPesewas != 1500 {
		t.Fatalf("accra shipping = %d, want same-city 1500", accra.ShippingPesewas)
	}
	if accra.CommissionPesewas != 23_000 || accra.PayoutPesewas != 207_000 {
		t.Fatalf("accra split = %d/%d, want 23000/207000", accra.CommissionPesewas, accra.PayoutPesewas)
	}

	kumasi := groups[1]
	if kumasi.ShippingPesewas != 4000 {
		t.Fatalf("kumasi shipping = %d, want default 4000", kumasi.ShippingPesewas)
	}
	if totalShipping != 5500 {
		t.Fatalf("total shipping = %d, want 5500", totalShipping)
	}

	subtotalSum := 0
	for _, g := range groups {
		subtotalSum += g.SubtotalPesewas
	}
	if subtotalSum != 280_000 {
		t.Fatalf("group subtotals sum to %d, want cart subtotal 280000", subtotalSum)
	}
}

func TestPartitionSellerRateOverride(t *testing.T) {
	t.Parallel()

	p, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{CommissionRate: "0.10"})
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}

	rate := decimal.RequireFromString("0.05")
	seller := newSeller("Greater Accra", "Tema", &rate)
	groups, _, err := p.Partition([]models.CartItem{newItem(seller, 200_000, 1)}, nil,
		types.ShippingAddress{Region: "Greater Accra", City: "Accra"})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if groups[0].CommissionPesewas != 10_000 {
		t.Fatalf("commission = %d, want 5%% override 10000", groups[0].CommissionPesewas)
	}
}

func TestPartitionCommissionRounding(t *testing.T) {
	t.Parallel()

	p, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{CommissionRate: "0.10"})
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}

	seller := newSeller("Greater Accra", "Accra", nil)
	// 10% of 15 pesewas is 1.5; expect round half away from zero to 2.
	groups, _, err := p.Partition([]models.CartItem{newItem(seller, 15, 1)}, nil,
		types.ShippingAddress{Region: "Greater Accra", City: "Accra"})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if groups[0].CommissionPesewas != 2 {
		t.Fatalf("commission = %d, want 2", groups[0].CommissionPesewas)
	}
	if groups[0].PayoutPesewas != 13 {
		t.Fatalf("payout = %d, want 13", groups[0].PayoutPesewas)
	}
}

func TestPartitionSellerlessItemRejectedWithoutPlatformSeller(t *testing.T) {
	t.Parallel()

	p, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{CommissionRate: "0.10"})
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}

	_, _, err = p.Partition([]models.CartItem{newItem(nil, 100, 1)}, nil,
		types.ShippingAddress{Region: "Greater Accra", City: "Accra"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPartitionSellerlessItemUsesPlatformSeller(t *testing.T) {
	t.Parallel()

	platform := newSeller("Greater Accra", "Accra", nil)
	p, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{
		CommissionRate:   "0.10",
		PlatformSellerID: platform.ID.String(),
	})
	if err != nil {
		t.Fatalf("new partitioner: %v", err)
	}

	groups, _, err := p.Partition([]models.CartItem{newItem(nil, 100_000, 1)}, platform,
		types.ShippingAddress{Region: "Greater Accra", City: "Accra"})
	if err != nil {
		t.Fatalf("partition: %v", err)
	}
	if len(groups) != 1 || groups[0].Seller.ID != platform.ID {
		t.Fatalf("expected single platform group, got %+v", groups)
	}
}

func TestNewPartitionerRejectsBadRate(t *testing.T) {
	t.Parallel()

	if _, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{CommissionRate: "abc"}); err == nil {
		t.Fatal("expected invalid rate to fail")
	}
	if _, err := NewPartitioner(testFeeCalculator(), config.CheckoutConfig{CommissionRate: "1.5"}); err == nil {
		t.Fatal("expected out-of-range rate to fail")
	}
}
