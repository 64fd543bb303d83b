package enums

// OutboxEventType identifies the domain event stored in an outbox row.
type OutboxEventType string

const (
	EventOrderCreated     OutboxEventType = "order.created"
	EventOrderAssigned    OutboxEventType = "order.assigned"
	EventOrderDelivered   OutboxEventType = "order.delivered"
	EventOrderCancelled   OutboxEventType = "order.cancelled"
	EventBatchCompleted   OutboxEventType = "batch.completed"
	EventPayoutsFinalized OutboxEventType = "payouts.finalized"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "delivery_order"
	AggregateBatchWindow OutboxAggregateType = "batch_window"
	AggregatePayoutRun   OutboxAggregateType = "payout_run"
)
