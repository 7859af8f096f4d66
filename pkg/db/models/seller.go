package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller is the storefront that owns products and fulfils its slice of each
// order. Commission configuration is read-only input to checkout: a nil
// CommissionRate falls back to the platform default.
type Seller struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name           string           `gorm:"column:name;not null"`
	Phone          string           `gorm:"column:phone;not null"`
	Region         string           `gorm:"column:region;not null"`
	City           string           `gorm:"column:city;not null"`
	CommissionRate *decimal.Decimal `gorm:"column:commission_rate;type:numeric(5,4)"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
