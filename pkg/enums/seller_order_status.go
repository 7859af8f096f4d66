package enums

// SellerOrderStatus tracks a single seller's slice of a parent order. Each
// seller progresses independently of their siblings.
type SellerOrderStatus string

const (
	SellerOrderStatusPending    SellerOrderStatus = "pending"
	SellerOrderStatusConfirmed  SellerOrderStatus = "confirmed"
	SellerOrderStatusProcessing SellerOrderStatus = "processing"
	SellerOrderStatusShipped    SellerOrderStatus = "shipped"
	SellerOrderStatusDelivered  SellerOrderStatus = "delivered"
	SellerOrderStatusCancelled  SellerOrderStatus = "cancelled"
)

func (s SellerOrderStatus) IsValid() bool {
	switch s {
	case SellerOrderStatusPending, SellerOrderStatusConfirmed, SellerOrderStatusProcessing,
		SellerOrderStatusShipped, SellerOrderStatusDelivered, SellerOrderStatusCancelled:
		return true
	}
	return false
}

func (s SellerOrderStatus) IsTerminal() bool {
	return s == SellerOrderStatusDelivered || s == SellerOrderStatusCancelled
}

var sellerOrderForward = map[SellerOrderStatus][]SellerOrderStatus{
	SellerOrderStatusPending:    {SellerOrderStatusConfirmed},
	SellerOrderStatusConfirmed:  {SellerOrderStatusProcessing, SellerOrderStatusShipped},
	SellerOrderStatusProcessing: {SellerOrderStatusShipped},
	SellerOrderStatusShipped:    {SellerOrderStatusDelivered},
}

func (s SellerOrderStatus) CanTransition(target SellerOrderStatus) bool {
	if !s.IsValid() || !target.IsValid() || s == target {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if target == SellerOrderStatusCancelled {
		return true
	}
	for _, allowed := range sellerOrderForward[s] {
		if allowed == target {
			return true
		}
	}
	return false
}
