package delivery

import (
	"testing"

	"github.com/makolahq/makola-backend/pkg/config"
)

func TestFeeTiers(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.DeliveryConfig{
		SameCityFee:   1500,
		SameRegionFee: 2500,
		DefaultFee:    4000,
		HomeRegion:    "Greater Accra",
	})

	cases := []struct {
		name         string
		sellerRegion string
		sellerCity   string
		buyerRegion  string
		buyerCity    string
		want         int
	}{
		{"same city", "Greater Accra", "Accra", "greater accra", "ACCRA", 1500},
		{"same region different city", "Greater Accra", "Accra", "Greater Accra", "Tema", 2500},
		{"cross region", "Ashanti", "Kumasi", "Greater Accra", "Accra", 4000},
		{"both outside home region", "Ashanti", "Kumasi", "Ashanti", "Kumasi", 4000},
		{"whitespace normalized", "  greater accra ", " accra ", "Greater Accra", "Accra", 1500},
		{"blank seller region", "", "Accra", "Greater Accra", "Accra", 4000},
		{"blank cities in home region", "Greater Accra", "", "Greater Accra", "", 2500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Fee(tc.sellerRegion, tc.sellerCity, tc.buyerRegion, tc.buyerCity)
			if got != tc.want {
				t.Fatalf("fee(%q,%q,%q,%q) = %d, want %d",
					tc.sellerRegion, tc.sellerCity, tc.buyerRegion, tc.buyerCity, got, tc.want)
			}
		})
	}
}

func TestFeeNeverNegative(t *testing.T) {
	t.Parallel()

	calc := NewCalculator(config.DeliveryConfig{
		SameCityFee:   -1,
		SameRegionFee: -1,
		DefaultFee:    -1,
		HomeRegion:    "greater accra",
	})

	if got := calc.Fee("greater accra", "accra", "greater accra", "accra"); got != 0 {
		t.Fatalf("expected negative config to clamp to 0, got %d", got)
	}
	if got := calc.Fee("ashanti", "kumasi", "volta", "ho"); got != 0 {
		t.Fatalf("expected negative default to clamp to 0, got %d", got)
	}
}
