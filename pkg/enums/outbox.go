package enums

// OutboxEventType names the domain events stored in the transactional outbox.
type OutboxEventType string

const (
	EventOrderCreated OutboxEventType = "order.created"
	EventOrderPaid    OutboxEventType = "order.paid"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)
