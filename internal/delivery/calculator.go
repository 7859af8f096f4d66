package delivery

import (
	"strings"

	"github.com/makolahq/makola-backend/pkg/config"
)

// Calculator computes the delivery fee between a seller's location and the
// buyer's shipping address. It is deterministic and never fails; unknown or
// blank locations fall through to the default tier.
type Calculator struct {
	sameCityFee   int
	sameRegionFee int
	defaultFee    int
	homeRegion    string
}

// NewCalculator builds a calculator from the configured fee table.
func NewCalculator(cfg config.DeliveryConfig) Calculator {
	return Calculator{
		sameCityFee:   nonNegative(cfg.SameCityFee),
		sameRegionFee: nonNegative(cfg.SameRegionFee),
		defaultFee:    nonNegative(cfg.DefaultFee),
		homeRegion:    normalize(cfg.HomeRegion),
	}
}

// Fee returns the delivery fee in pesewas for one seller shipment.
//
// The tier table only distinguishes cities inside the home region (Greater
// Accra); every cross-region pair maps to the default tier. Real deployments
// would swap this for a logistics rate table.
func (c Calculator) Fee(sellerRegion, sellerCity, buyerRegion, buyerCity string) int {
	sRegion := normalize(sellerRegion)
	bRegion := normalize(buyerRegion)

	if sRegion == "" || bRegion == "" || sRegion != bRegion || sRegion != c.homeRegion {
		return c.defaultFee
	}

	if normalize(sellerCity) == normalize(buyerCity) && normalize(sellerCity) != "" {
		return c.sameCityFee
	}
	return c.sameRegionFee
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func nonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
