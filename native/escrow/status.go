package escrow

import "fmt"

// EscrowStatus represents the lifecycle states of an escrow agreement.
type EscrowStatus uint8

const (
	EscrowStatusPending EscrowStatus = iota
	EscrowStatusActive
	EscrowStatusCompleted
	EscrowStatusDisputed
	EscrowStatusCancelled
	EscrowStatusInactive
	EscrowStatusRejected
)

// MilestoneStatus represents the lifecycle states of a single milestone.
// Overdue is declared for parity with the status vocabulary but no transition
// sets it automatically; it can only be applied through an explicit status
// update.
type MilestoneStatus uint8

const (
	MilestonePending MilestoneStatus = iota
	MilestoneInProgress
	MilestoneDone
	MilestoneFunded
	MilestoneCompleted
	MilestoneDisputed
	MilestoneOverdue
)

var escrowStatusNames = map[EscrowStatus]string{
	EscrowStatusPending:   "Pending",
	EscrowStatusActive:    "Active",
	EscrowStatusCompleted: "Completed",
	EscrowStatusDisputed:  "Disputed",
	EscrowStatusCancelled: "Cancelled",
	EscrowStatusInactive:  "Inactive",
	EscrowStatusRejected:  "Rejected",
}

var milestoneStatusNames = map[MilestoneStatus]string{
	MilestonePending:    "Pending",
	MilestoneInProgress: "InProgress",
	MilestoneDone:       "Done",
	MilestoneFunded:     "Funded",
	MilestoneCompleted:  "Completed",
	MilestoneDisputed:   "Disputed",
	MilestoneOverdue:    "Overdue",
}

// String returns the canonical status label.
func (s EscrowStatus) String() string {
	if name, ok := escrowStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("EscrowStatus(%d)", uint8(s))
}

// Valid reports whether the status value is within the supported range.
func (s EscrowStatus) Valid() bool {
	_, ok := escrowStatusNames[s]
	return ok
}

// String returns the canonical status label.
func (s MilestoneStatus) String() string {
	if name, ok := milestoneStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("MilestoneStatus(%d)", uint8(s))
}

// Valid reports whether the status value is within the supported range.
func (s MilestoneStatus) Valid() bool {
	_, ok := milestoneStatusNames[s]
	return ok
}

// ParseEscrowStatus maps a status label onto the escrow status enumeration.
// Unrecognised labels fail with ErrInvalidEscrowStatus.
func ParseEscrowStatus(status string) (EscrowStatus, error) {
	for value, name := range escrowStatusNames {
		if name == status {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidEscrowStatus, status)
}

// ParseMilestoneStatus maps a status label onto the milestone status
// enumeration. Unrecognised labels fail with ErrInvalidStatus.
func ParseMilestoneStatus(status string) (MilestoneStatus, error) {
	for value, name := range milestoneStatusNames {
		if name == status {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}
