package model

import "time"

const (
	EventEscrowCreated     = "escrow.created"
	EventEscrowFunded      = "escrow.funded"
	EventEscrowReleased    = "escrow.released"
	EventEscrowCancelled   = "escrow.cancelled"
	EventMilestoneApproved = "milestone.approved"
	EventDisputeOpened     = "dispute.opened"
	EventDisputeResolved   = "dispute.resolved"
	EventTransferCompleted = "transfer.completed"
	EventTransferFailed    = "transfer.failed"
)

// DomainEvent is the payload shape consumed by reporting and
// notification subscribers. From/To carry the state-machine transition
// that produced the event.
type DomainEvent struct {
	Event       string      `json:"event"`
	AggregateID string      `json:"aggregate_id"`
	From        string      `json:"from"`
	To          string      `json:"to"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data,omitempty"`
}

func NewDomainEvent(event, aggregateID, from, to string, data interface{}) DomainEvent {
	return DomainEvent{
		Event:       event,
		AggregateID: aggregateID,
		From:        from,
		To:          to,
		OccurredAt:  time.Now(),
		Data:        data,
	}
}
