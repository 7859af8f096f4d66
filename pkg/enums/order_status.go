package enums

// OrderStatus tracks the buyer-facing lifecycle of an order.
type OrderStatus string

const (
	OrderStatusPaymentPending OrderStatus = "payment_pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
	OrderStatusFailed         OrderStatus = "failed"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPaymentPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusOutForDelivery, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

// forwardTransitions encodes the happy-path progression. Any non-terminal
// status may additionally move to cancelled, refunded, or failed.
var forwardTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPaymentPending: {OrderStatusConfirmed, OrderStatusProcessing},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusShipped},
	OrderStatusProcessing:     {OrderStatusShipped},
	OrderStatusShipped:        {OrderStatusOutForDelivery},
	OrderStatusOutForDelivery: {OrderStatusDelivered},
}

// CanTransition reports whether moving from s to target is allowed.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	if !s.IsValid() || !target.IsValid() || s == target {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	switch target {
	case OrderStatusCancelled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	for _, allowed := range forwardTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// PaymentConfirmed reports whether payment has been settled or is not needed.
func (s OrderStatus) PaymentConfirmed() bool {
	return s.IsValid() && s != OrderStatusPaymentPending && s != OrderStatusFailed
}
