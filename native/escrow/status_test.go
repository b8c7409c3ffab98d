package escrow

import (
	"errors"
	"testing"
)

func TestParseEscrowStatus(t *testing.T) {
	for _, name := range []string{"Pending", "Active", "Completed", "Disputed", "Cancelled", "Inactive", "Rejected"} {
		status, err := ParseEscrowStatus(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if status.String() != name {
			t.Fatalf("round trip %q -> %q", name, status.String())
		}
		if !status.Valid() {
			t.Fatalf("%q reported invalid", name)
		}
	}
	if _, err := ParseEscrowStatus("Unknown"); !errors.Is(err, ErrInvalidEscrowStatus) {
		t.Fatalf("expected ErrInvalidEscrowStatus, got %v", err)
	}
}

func TestParseMilestoneStatus(t *testing.T) {
	for _, name := range []string{"Pending", "InProgress", "Done", "Funded", "Completed", "Disputed", "Overdue"} {
		status, err := ParseMilestoneStatus(name)
		if err != nil {
			t.Fatalf("parse %q: %v", name, err)
		}
		if status.String() != name {
			t.Fatalf("round trip %q -> %q", name, status.String())
		}
	}
	if _, err := ParseMilestoneStatus("Paid"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
