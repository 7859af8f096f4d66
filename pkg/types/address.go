package types

import "strings"

// ShippingAddress is the delivery destination snapshot captured on an order.
// GPSCode holds the GhanaPostGPS digital address when the buyer provides one.
type ShippingAddress struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Region   string `json:"region"`
	City     string `json:"city"`
	Area     string `json:"area,omitempty"`
	Street   string `json:"street,omitempty"`
	GPSCode  string `json:"gps_code,omitempty"`
}

// Normalized returns the region and city lowercased and trimmed for
// comparisons; the stored snapshot keeps the buyer's original casing.
func (a ShippingAddress) Normalized() (region, city string) {
	return strings.ToLower(strings.TrimSpace(a.Region)), strings.ToLower(strings.TrimSpace(a.City))
}
