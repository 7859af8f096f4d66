package payloads

import "github.com/google/uuid"

// OrderCreatedEvent is emitted when the checkout transaction commits.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID   `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	BuyerID        uuid.UUID   `json:"buyer_id"`
	TotalPesewas   int         `json:"total_pesewas"`
	PaymentMethod  string      `json:"payment_method"`
	SellerOrderIDs []uuid.UUID `json:"seller_order_ids"`
}

// OrderPaidEvent is emitted when a gateway webhook confirms payment.
type OrderPaidEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	Reference     string    `json:"reference"`
	AmountPesewas int       `json:"amount_pesewas"`
}
