package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/enums"
)

// InventoryLogEntry is the append-only audit trail of stock movements.
// Change is signed: sales are negative, restocks positive.
type InventoryLogEntry struct {
	ID               uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Change           int                       `gorm:"column:change;not null"`
	PreviousQuantity int                       `gorm:"column:previous_quantity;not null"`
	NewQuantity      int                       `gorm:"column:new_quantity;not null"`
	Type             enums.InventoryChangeType `gorm:"column:type;not null"`
	OrderID          *uuid.UUID                `gorm:"column:order_id;type:uuid"`
	CreatedAt        time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
