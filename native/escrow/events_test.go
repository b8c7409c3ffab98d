package escrow

import "testing"

func TestCreatedEventAttributes(t *testing.T) {
	esc := &Escrow{
		ID:           "escrow_7",
		Creator:      newTestAddress(0x01),
		Counterparty: newTestAddress(0x02),
		TotalAmount:  "300",
		Status:       EscrowStatusPending,
		Milestones:   []*Milestone{{ID: "m1"}, {ID: "m2"}},
	}
	evt := NewCreatedEvent(esc)
	if evt.Type != EventTypeCreated {
		t.Fatalf("type = %q", evt.Type)
	}
	if evt.Attributes["escrowId"] != "escrow_7" {
		t.Fatalf("escrowId = %q", evt.Attributes["escrowId"])
	}
	if evt.Attributes["milestones"] != "2" {
		t.Fatalf("milestones = %q", evt.Attributes["milestones"])
	}
	if evt.Attributes["status"] != "Pending" {
		t.Fatalf("status = %q", evt.Attributes["status"])
	}
}

func TestStatusChangedEventCarriesBeforeAndAfter(t *testing.T) {
	esc := &Escrow{ID: "escrow_1", Status: EscrowStatusActive}
	evt := NewStatusChangedEvent(esc, EscrowStatusPending, EscrowStatusActive)
	if evt.Attributes["oldStatus"] != "Pending" || evt.Attributes["newStatus"] != "Active" {
		t.Fatalf("attributes %v", evt.Attributes)
	}
}

func TestMilestoneDisputedEvent(t *testing.T) {
	filer := newTestAddress(0x02)
	evt := NewMilestoneDisputedEvent("escrow_1", "m1", filer, "rejected", "dispute_escrow_1_m1")
	if evt.Type != EventTypeMilestoneDisputed {
		t.Fatalf("type = %q", evt.Type)
	}
	if evt.Attributes["disputeId"] != "dispute_escrow_1_m1" || evt.Attributes["reason"] != "rejected" {
		t.Fatalf("attributes %v", evt.Attributes)
	}
}
