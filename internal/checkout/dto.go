package checkout

import (
	"github.com/google/uuid"

	"github.com/makolahq/makola-backend/pkg/db/models"
	"github.com/makolahq/makola-backend/pkg/enums"
	"github.com/makolahq/makola-backend/pkg/paystack"
	"github.com/makolahq/makola-backend/pkg/types"
)

// Input is the validated checkout request handed to the order transaction.
type Input struct {
	BuyerID         uuid.UUID
	ShippingAddress types.ShippingAddress
	ContactEmail    string
	ContactPhone    string
	PaymentMethod   enums.PaymentMethod
	CouponCode      string
	DeliveryNotes   *string
}

// Result is the committed order plus the gateway handle, when one applies.
// PaymentInitialized is false either because the method needs no gateway
// step (COD) or because initiation failed after the order committed; the
// PaymentRequired flag tells the two apart.
type Result struct {
	Order              *models.Order
	PaymentRequired    bool
	PaymentInitialized bool
	Authorization      *paystack.Authorization
}
