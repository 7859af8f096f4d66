package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is an immutable snapshot of a product at order-creation time.
// Name, SKU, image, and prices are captured here and never re-derived from
// the live product row, so later catalog edits cannot rewrite order history.
type OrderItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	SellerOrderID    uuid.UUID `gorm:"column:seller_order_id;type:uuid;not null;index"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	ProductName      string    `gorm:"column:product_name;not null"`
	SKU              string    `gorm:"column:sku;not null"`
	ImageURL         string    `gorm:"column:image_url"`
	Quantity         int       `gorm:"column:quantity;not null"`
	UnitPricePesewas int       `gorm:"column:unit_price_pesewas;not null"`
	LineTotalPesewas int       `gorm:"column:line_total_pesewas;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}
