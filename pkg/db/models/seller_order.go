package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/enums"
)

// SellerOrder is the portion of an order attributable to one seller,
// fulfilled independently of sibling seller orders.
type SellerOrder struct {
	ID       uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID  uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	SellerID uuid.UUID               `gorm:"column:seller_id;type:uuid;not null;index"`
	Status   enums.SellerOrderStatus `gorm:"column:status;not null;default:'pending'"`

	SubtotalPesewas   int `gorm:"column:subtotal_pesewas;not null"`
	ShippingPesewas   int `gorm:"column:shipping_pesewas;not null;default:0"`
	CommissionPesewas int `gorm:"column:commission_pesewas;not null;default:0"`
	PayoutPesewas     int `gorm:"column:payout_pesewas;not null;default:0"`

	Items []OrderItem `gorm:"foreignKey:SellerOrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
