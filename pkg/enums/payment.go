package enums

// PaymentMethod enumerates how a buyer settles an order.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodMobileMoney    PaymentMethod = "mobile_money"
	PaymentMethodCard           PaymentMethod = "card"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCashOnDelivery, PaymentMethodMobileMoney, PaymentMethodCard:
		return true
	}
	return false
}

// RequiresGateway reports whether the method needs a payment gateway round
// trip after the order commits.
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentMethodMobileMoney || m == PaymentMethodCard
}

// PaymentStatus tracks the settlement state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	}
	return false
}
