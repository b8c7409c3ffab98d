package escrow

import (
	"fmt"
	"math/big"
	"strings"
)

// Storage limits bound escrow creation so a single caller cannot bloat state.
const (
	MaxMilestones   = 50
	MaxStringLength = 1000
	MaxEvidenceFile = 10
)

// Evidence is a named link to an off-chain deliverable attached to a
// milestone.
type Evidence struct {
	Name string
	URL  string
}

// Milestone is a sub-payment unit of an escrow with its own lifecycle. It is
// embedded in the escrow record and not independently addressable.
type Milestone struct {
	ID             string
	Description    string
	Amount         string
	Status         MilestoneStatus
	Deadline       int64
	CompletedAt    int64
	DisputeReason  string
	DisputeFiledBy [20]byte
	CompletionNote string
	Evidence       []Evidence
}

// Clone returns a deep copy of the milestone.
func (m *Milestone) Clone() *Milestone {
	if m == nil {
		return nil
	}
	clone := *m
	if len(m.Evidence) > 0 {
		clone.Evidence = make([]Evidence, len(m.Evidence))
		copy(clone.Evidence, m.Evidence)
	}
	return &clone
}

// Escrow is the custody agreement between a creator and counterparty. Records
// are archival: they are never deleted, only transitioned.
type Escrow struct {
	ID               string
	Creator          [20]byte
	Counterparty     [20]byte
	CounterpartyType string
	Title            string
	Description      string
	TotalAmount      string
	Status           EscrowStatus
	CreatedAt        int64
	Milestones       []*Milestone
	TransactionHash  string
}

// Clone returns a deep copy of the escrow so callers can safely mutate the
// copy without affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if len(e.Milestones) > 0 {
		clone.Milestones = make([]*Milestone, len(e.Milestones))
		for i, m := range e.Milestones {
			clone.Milestones[i] = m.Clone()
		}
	}
	return &clone
}

// FindMilestone returns the milestone with the supplied identifier, or nil.
func (e *Escrow) FindMilestone(id string) *Milestone {
	if e == nil {
		return nil
	}
	for _, m := range e.Milestones {
		if m != nil && m.ID == id {
			return m
		}
	}
	return nil
}

// IsParty reports whether the address is the escrow's creator or
// counterparty.
func (e *Escrow) IsParty(addr [20]byte) bool {
	if e == nil {
		return false
	}
	return addr == e.Creator || addr == e.Counterparty
}

// SanitizeEscrow validates the supplied escrow record and returns a clone
// with a consistent shape. It does not mutate the original value.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("nil escrow")
	}
	clone := e.Clone()
	if strings.TrimSpace(clone.ID) == "" {
		return nil, fmt.Errorf("escrow id required")
	}
	if !clone.Status.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidEscrowStatus, clone.Status)
	}
	for _, m := range clone.Milestones {
		if m == nil {
			return nil, fmt.Errorf("nil milestone on escrow %s", clone.ID)
		}
		if !m.Status.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, m.Status)
		}
	}
	return clone, nil
}

// MilestoneInput is the caller-supplied definition of a milestone at escrow
// creation time. Status arrives as a label and evidence as bare URLs.
type MilestoneInput struct {
	ID           string
	Description  string
	Amount       string
	Status       string
	Deadline     int64
	CompletedAt  int64
	EvidenceURLs []string
}

// CreateInput carries the caller-supplied fields for a new escrow.
type CreateInput struct {
	Counterparty     [20]byte
	CounterpartyType string
	Status           string
	Title            string
	Description      string
	TotalAmount      string
	Milestones       []MilestoneInput
	TransactionHash  string
}

// ReleaseReceipt reports the outcome of a successful milestone release.
type ReleaseReceipt struct {
	TransactionHash string
	Status          string
	Message         string
	Receiver        [20]byte
	Payer           [20]byte
	Amount          *big.Int
	Fee             *big.Int
}

// DisputeReceipt reports the outcome of filing a dispute.
type DisputeReceipt struct {
	DisputeID string `json:"disputeId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

// NotificationReceipt reports the outcome of a counterparty notification.
type NotificationReceipt struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"`
	Message        string `json:"message"`
}

// TransactionStatus is the stubbed answer of the transaction-status query.
// Real confirmation tracking belongs to chain explorers, not this ledger.
type TransactionStatus struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	Confirmations   uint64 `json:"confirmations"`
	BlockNumber     uint64 `json:"blockNumber"`
}
