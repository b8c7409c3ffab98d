package escrow

import (
	"fmt"
	"strconv"

	"clearhold/core/types"
)

const (
	// EventTypeCreated marks the creation of a new escrow.
	EventTypeCreated = "escrow.created"
	// EventTypeStatusChanged marks an escrow-level status transition.
	EventTypeStatusChanged = "escrow.status_changed"
	// EventTypeMilestoneStatusChanged marks a milestone-level transition.
	EventTypeMilestoneStatusChanged = "escrow.milestone.status_changed"
	// EventTypeMilestoneReleased marks a successful fund release.
	EventTypeMilestoneReleased = "escrow.milestone.released"
	// EventTypeMilestoneDisputed marks a dispute being filed.
	EventTypeMilestoneDisputed = "escrow.milestone.disputed"
	// EventTypeCounterpartyNotified marks an off-chain notification request.
	EventTypeCounterpartyNotified = "escrow.notified"
)

func hexAddr(addr [20]byte) string { return fmt.Sprintf("%x", addr) }

// NewCreatedEvent describes a freshly persisted escrow.
func NewCreatedEvent(esc *Escrow) *types.Event {
	return &types.Event{
		Type: EventTypeCreated,
		Attributes: map[string]string{
			"escrowId":     esc.ID,
			"creator":      hexAddr(esc.Creator),
			"counterparty": hexAddr(esc.Counterparty),
			"totalAmount":  esc.TotalAmount,
			"status":       esc.Status.String(),
			"milestones":   strconv.Itoa(len(esc.Milestones)),
		},
	}
}

// NewStatusChangedEvent describes an escrow status transition.
func NewStatusChangedEvent(esc *Escrow, from, to EscrowStatus) *types.Event {
	return &types.Event{
		Type: EventTypeStatusChanged,
		Attributes: map[string]string{
			"escrowId":  esc.ID,
			"oldStatus": from.String(),
			"newStatus": to.String(),
		},
	}
}

// NewMilestoneStatusChangedEvent describes a milestone status transition.
func NewMilestoneStatusChangedEvent(escrowID, milestoneID string, from, to MilestoneStatus) *types.Event {
	return &types.Event{
		Type: EventTypeMilestoneStatusChanged,
		Attributes: map[string]string{
			"escrowId":    escrowID,
			"milestoneId": milestoneID,
			"oldStatus":   from.String(),
			"newStatus":   to.String(),
		},
	}
}

// NewMilestoneReleasedEvent describes a completed fund release.
func NewMilestoneReleasedEvent(esc *Escrow, milestoneID, amount, txHash string) *types.Event {
	return &types.Event{
		Type: EventTypeMilestoneReleased,
		Attributes: map[string]string{
			"escrowId":    esc.ID,
			"milestoneId": milestoneID,
			"receiver":    hexAddr(esc.Counterparty),
			"amount":      amount,
			"txHash":      txHash,
		},
	}
}

// NewMilestoneDisputedEvent describes a dispute filed against a milestone.
func NewMilestoneDisputedEvent(escrowID, milestoneID string, filedBy [20]byte, reason, disputeID string) *types.Event {
	return &types.Event{
		Type: EventTypeMilestoneDisputed,
		Attributes: map[string]string{
			"escrowId":    escrowID,
			"milestoneId": milestoneID,
			"disputeId":   disputeID,
			"filedBy":     hexAddr(filedBy),
			"reason":      reason,
		},
	}
}

// NewCounterpartyNotifiedEvent describes a notification request.
func NewCounterpartyNotifiedEvent(escrowID, notificationType string, sender, recipient [20]byte, notificationID string) *types.Event {
	return &types.Event{
		Type: EventTypeCounterpartyNotified,
		Attributes: map[string]string{
			"escrowId":       escrowID,
			"notificationId": notificationID,
			"type":           notificationType,
			"sender":         hexAddr(sender),
			"recipient":      hexAddr(recipient),
		},
	}
}
