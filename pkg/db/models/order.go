package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/enums"
)

// Order is the buyer-facing umbrella over one or more seller orders. All
// monetary fields are integer pesewas and are never recomputed after the
// creating transaction commits.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex:ux_orders_order_number"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null;index"`
	Status      enums.OrderStatus `gorm:"column:status;not null;default:'payment_pending'"`
	Currency    enums.Currency    `gorm:"column:currency;not null;default:'GHS'"`

	SubtotalPesewas int `gorm:"column:subtotal_pesewas;not null"`
	DiscountPesewas int `gorm:"column:discount_pesewas;not null;default:0"`
	ShippingPesewas int `gorm:"column:shipping_pesewas;not null;default:0"`
	TaxPesewas      int `gorm:"column:tax_pesewas;not null;default:0"`
	TotalPesewas    int `gorm:"column:total_pesewas;not null"`

	CouponID *uuid.UUID `gorm:"column:coupon_id;type:uuid"`

	// Shipping and contact snapshots captured at order time.
	ShipFullName string `gorm:"column:ship_full_name;not null"`
	ShipPhone    string `gorm:"column:ship_phone;not null"`
	ShipRegion   string `gorm:"column:ship_region;not null"`
	ShipCity     string `gorm:"column:ship_city;not null"`
	ShipArea     string `gorm:"column:ship_area"`
	ShipStreet   string `gorm:"column:ship_street"`
	ShipGPSCode  string `gorm:"column:ship_gps_code"`
	ContactEmail string `gorm:"column:contact_email;not null"`
	ContactPhone string `gorm:"column:contact_phone;not null"`

	DeliveryNotes *string `gorm:"column:delivery_notes"`

	Payment      *Payment      `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	SellerOrders []SellerOrder `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items        []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
