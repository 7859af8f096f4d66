package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart holds a buyer's pending line items. One active cart per buyer,
// created lazily on first add and cleared (not deleted) when an order
// commits.
type Cart struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID  `gorm:"column:buyer_id;type:uuid;not null;uniqueIndex"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CartItem is one product line in a cart. PriceAtAddPesewas is informational
// only: the authoritative price is re-read from the product at checkout.
type CartItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID `gorm:"column:cart_id;type:uuid;not null;index"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Quantity          int       `gorm:"column:quantity;not null"`
	PriceAtAddPesewas int       `gorm:"column:price_at_add_pesewas;not null"`
	Product           *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
