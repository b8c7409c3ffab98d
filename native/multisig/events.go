package multisig

import (
	"fmt"
	"strconv"

	"clearhold/core/types"
)

const (
	// EventTypeProposalSubmitted marks a new governance proposal.
	EventTypeProposalSubmitted = "multisig.proposal.submitted"
	// EventTypeProposalApproved marks an additional signer approval.
	EventTypeProposalApproved = "multisig.proposal.approved"
	// EventTypeProposalExecuted marks a proposal whose action was applied.
	EventTypeProposalExecuted = "multisig.proposal.executed"
	// EventTypeSignerAdded marks an extension of the signer set.
	EventTypeSignerAdded = "multisig.signer.added"
	// EventTypeSignerRemoved marks a reduction of the signer set.
	EventTypeSignerRemoved = "multisig.signer.removed"
	// EventTypeThresholdChanged marks a quorum change.
	EventTypeThresholdChanged = "multisig.threshold.changed"
)

func hexAddr(addr [20]byte) string { return fmt.Sprintf("%x", addr) }

// NewProposalSubmittedEvent describes a freshly submitted proposal.
func NewProposalSubmittedEvent(p *AdminProposal) *types.Event {
	return &types.Event{
		Type: EventTypeProposalSubmitted,
		Attributes: map[string]string{
			"proposalId": strconv.FormatUint(p.ID, 10),
			"action":     p.Action.Kind(),
			"createdBy":  hexAddr(p.CreatedBy),
		},
	}
}

// NewProposalApprovedEvent describes a recorded approval.
func NewProposalApprovedEvent(p *AdminProposal, signer [20]byte) *types.Event {
	return &types.Event{
		Type: EventTypeProposalApproved,
		Attributes: map[string]string{
			"proposalId": strconv.FormatUint(p.ID, 10),
			"signer":     hexAddr(signer),
			"approvals":  strconv.Itoa(len(p.Approvals)),
		},
	}
}

// NewSignerAddedEvent describes a signer-set extension.
func NewSignerAddedEvent(signer [20]byte, total int) *types.Event {
	return &types.Event{
		Type: EventTypeSignerAdded,
		Attributes: map[string]string{
			"signer":  hexAddr(signer),
			"signers": strconv.Itoa(total),
		},
	}
}

// NewSignerRemovedEvent describes a signer-set reduction.
func NewSignerRemovedEvent(signer [20]byte, total int) *types.Event {
	return &types.Event{
		Type: EventTypeSignerRemoved,
		Attributes: map[string]string{
			"signer":  hexAddr(signer),
			"signers": strconv.Itoa(total),
		},
	}
}

// NewThresholdChangedEvent describes a quorum change.
func NewThresholdChangedEvent(from, to uint32) *types.Event {
	return &types.Event{
		Type: EventTypeThresholdChanged,
		Attributes: map[string]string{
			"oldThreshold": strconv.FormatUint(uint64(from), 10),
			"newThreshold": strconv.FormatUint(uint64(to), 10),
		},
	}
}

// NewProposalExecutedEvent describes an applied proposal.
func NewProposalExecutedEvent(p *AdminProposal) *types.Event {
	return &types.Event{
		Type: EventTypeProposalExecuted,
		Attributes: map[string]string{
			"proposalId": strconv.FormatUint(p.ID, 10),
			"action":     p.Action.Kind(),
			"executedAt": strconv.FormatInt(p.ExecutedAt, 10),
		},
	}
}
