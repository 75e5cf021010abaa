package enums

// OutboxEventType identifies the domain event recorded in the outbox.
type OutboxEventType string

const (
	OutboxEventReconciliationSubmitted OutboxEventType = "reconciliation.submitted"
	OutboxEventReconciliationApproved  OutboxEventType = "reconciliation.approved"
	OutboxEventReconciliationRejected  OutboxEventType = "reconciliation.rejected"
)

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateReconciliation OutboxAggregateType = "stock_reconciliation"
)
