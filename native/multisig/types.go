package multisig

// Action kinds, used for wire encoding and event attributes.
const (
	ActionKindSetFee            = "set_fee"
	ActionKindSetTokenAddress   = "set_token_address"
	ActionKindSetTokenDecimals  = "set_token_decimals"
	ActionKindAddSigner         = "add_signer"
	ActionKindRemoveSigner      = "remove_signer"
	ActionKindSetThreshold      = "set_threshold"
	ActionKindPause             = "pause"
	ActionKindUnpause           = "unpause"
	ActionKindEmergencyWithdraw = "emergency_withdraw"
)

// ProposalAction is the sealed set of governance actions a proposal can carry.
type ProposalAction interface {
	Kind() string
	isProposalAction()
}

// SetFee changes the platform fee in basis points.
type SetFee struct {
	FeeBps uint32
}

// SetTokenAddress changes the settlement token contract address.
type SetTokenAddress struct {
	Address [20]byte
}

// SetTokenDecimals changes the decimal precision used by the amount codec.
type SetTokenDecimals struct {
	Decimals uint8
}

// AddSigner extends the signer set.
type AddSigner struct {
	Signer [20]byte
}

// RemoveSigner shrinks the signer set.
type RemoveSigner struct {
	Signer [20]byte
}

// SetThreshold changes the approval quorum.
type SetThreshold struct {
	Threshold uint32
}

// Pause halts all escrow mutations.
type Pause struct{}

// Unpause resumes escrow mutations.
type Unpause struct{}

// EmergencyWithdraw moves custody funds to a recovery address. The amount is
// a decimal string interpreted with the configured token decimals.
type EmergencyWithdraw struct {
	Recipient [20]byte
	Amount    string
}

func (SetFee) Kind() string            { return ActionKindSetFee }
func (SetTokenAddress) Kind() string   { return ActionKindSetTokenAddress }
func (SetTokenDecimals) Kind() string  { return ActionKindSetTokenDecimals }
func (AddSigner) Kind() string         { return ActionKindAddSigner }
func (RemoveSigner) Kind() string      { return ActionKindRemoveSigner }
func (SetThreshold) Kind() string      { return ActionKindSetThreshold }
func (Pause) Kind() string             { return ActionKindPause }
func (Unpause) Kind() string           { return ActionKindUnpause }
func (EmergencyWithdraw) Kind() string { return ActionKindEmergencyWithdraw }

func (SetFee) isProposalAction()            {}
func (SetTokenAddress) isProposalAction()   {}
func (SetTokenDecimals) isProposalAction()  {}
func (AddSigner) isProposalAction()         {}
func (RemoveSigner) isProposalAction()      {}
func (SetThreshold) isProposalAction()      {}
func (Pause) isProposalAction()             {}
func (Unpause) isProposalAction()           {}
func (EmergencyWithdraw) isProposalAction() {}

// AdminProposal is a pending or executed governance action with its approval
// record.
type AdminProposal struct {
	ID         uint64
	Action     ProposalAction
	CreatedBy  [20]byte
	CreatedAt  int64
	Approvals  [][20]byte
	Executed   bool
	ExecutedAt int64
}

// Clone returns a deep copy of the proposal. Actions are value types, so a
// shallow copy of the interface suffices.
func (p *AdminProposal) Clone() *AdminProposal {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Approvals = make([][20]byte, len(p.Approvals))
	copy(clone.Approvals, p.Approvals)
	return &clone
}

// HasApproval reports whether the signer already approved the proposal.
func (p *AdminProposal) HasApproval(signer [20]byte) bool {
	if p == nil {
		return false
	}
	for _, existing := range p.Approvals {
		if existing == signer {
			return true
		}
	}
	return false
}

// Config is the governance-owned global configuration.
type Config struct {
	Owner         [20]byte
	FeeBps        uint32
	FeeAccount    [20]byte
	Token         [20]byte
	TokenDecimals uint8
	Paused        bool
	Signers       [][20]byte
	Threshold     uint32
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Signers = make([][20]byte, len(c.Signers))
	copy(clone.Signers, c.Signers)
	return &clone
}

// IsSigner reports whether the address belongs to the signer set.
func (c *Config) IsSigner(addr [20]byte) bool {
	if c == nil {
		return false
	}
	for _, signer := range c.Signers {
		if signer == addr {
			return true
		}
	}
	return false
}
