package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/enums"
)

// Payment tracks settlement for one order. Reference is the key the gateway
// echoes back in webhooks and doubles as the reconciliation idempotency key.
type Payment struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID           `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	Method        enums.PaymentMethod `gorm:"column:method;not null"`
	Status        enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	AmountPesewas int                 `gorm:"column:amount_pesewas;not null"`
	Reference     string              `gorm:"column:reference;not null;uniqueIndex:ux_payments_reference"`
	PaidAt        *time.Time          `gorm:"column:paid_at"`
	FailureReason *string             `gorm:"column:failure_reason"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
