package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the canonical catalog listing. SellerID is nullable: items with
// no seller belong to the platform's placeholder storefront when one is
// configured.
type Product struct {
	ID             uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID       *uuid.UUID     `gorm:"column:seller_id;type:uuid"`
	Name           string         `gorm:"column:name;not null"`
	SKU            string         `gorm:"column:sku;not null"`
	Images         pq.StringArray `gorm:"column:images;type:text[]"`
	PricePesewas   int            `gorm:"column:price_pesewas;not null"`
	StockQuantity  int            `gorm:"column:stock_quantity;not null;default:0"`
	TrackInventory bool           `gorm:"column:track_inventory;not null;default:true"`
	AllowBackorder bool           `gorm:"column:allow_backorder;not null;default:false"`
	IsActive       bool           `gorm:"column:is_active;not null;default:true"`
	Seller         *Seller        `gorm:"foreignKey:SellerID"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// PrimaryImage returns the first catalog image, if any.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
