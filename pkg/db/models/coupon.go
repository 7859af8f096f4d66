package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/enums"
)

// Coupon is a promotional code. ValuePesewas holds a fixed discount in
// pesewas, or the whole-number percentage for percentage coupons.
type Coupon struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string           `gorm:"column:code;not null;uniqueIndex:ux_coupons_code"`
	Type               enums.CouponType `gorm:"column:type;not null"`
	Value              int              `gorm:"column:value;not null"`
	MinOrderPesewas    *int             `gorm:"column:min_order_pesewas"`
	MaxDiscountPesewas *int             `gorm:"column:max_discount_pesewas"`
	UsageLimit         *int             `gorm:"column:usage_limit"`
	UsageCount         int              `gorm:"column:usage_count;not null;default:0"`
	IsActive           bool             `gorm:"column:is_active;not null;default:true"`
	StartsAt           *time.Time       `gorm:"column:starts_at"`
	ExpiresAt          *time.Time       `gorm:"column:expires_at"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
