package multisig

import (
	"errors"
	"fmt"
	"time"

	"clearhold/core/events"
	"clearhold/core/types"
	"clearhold/native/escrow"
)

const (
	defaultFeeBps        = 100
	defaultTokenDecimals = 6
	maxFeeBps            = 10_000
)

var (
	errNilState     = errors.New("multisig engine: state not configured")
	errNilToken     = errors.New("multisig engine: token ledger not configured")
	errNotBootstrap = errors.New("multisig engine: configuration not initialised")
)

// engineState is the persistence surface required by the governance engine.
type engineState interface {
	MultisigConfigGet() (*Config, bool, error)
	MultisigConfigPut(*Config) error
	ProposalGet(id uint64) (*AdminProposal, bool, error)
	ProposalPut(*AdminProposal) error
	ProposalCounter() (uint64, error)
	SetProposalCounter(uint64) error
}

type multisigEvent struct {
	evt *types.Event
}

func (e multisigEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e multisigEvent) Event() *types.Event { return e.evt }

// Engine owns the global configuration and the k-of-n proposal lifecycle.
// Every configuration change flows through a proposal; there is no direct
// setter path.
type Engine struct {
	state   engineState
	token   escrow.TokenLedger
	emitter events.Emitter
	custody [20]byte
	nowFn   func() int64
}

// NewEngine creates a governance engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the custody-bound token collaborator used by
// emergency withdrawals.
func (e *Engine) SetTokenLedger(token escrow.TokenLedger) { e.token = token }

// SetCustodyAccount configures the address holding escrowed funds.
func (e *Engine) SetCustodyAccount(addr [20]byte) { e.custody = addr }

// SetNowFunc overrides the time source. Primarily for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets to no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(multisigEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// Bootstrap writes the initial configuration if none exists: the owner is the
// sole signer, the threshold is one, the fee is 100 basis points and the
// token uses six decimals. Existing configuration is left untouched so a
// restart never rolls back governance decisions.
func (e *Engine) Bootstrap(owner, feeAccount, token [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if _, ok, err := e.state.MultisigConfigGet(); err != nil {
		return err
	} else if ok {
		return nil
	}
	cfg := &Config{
		Owner:         owner,
		FeeBps:        defaultFeeBps,
		FeeAccount:    feeAccount,
		Token:         token,
		TokenDecimals: defaultTokenDecimals,
		Signers:       [][20]byte{owner},
		Threshold:     1,
	}
	return e.state.MultisigConfigPut(cfg)
}

func (e *Engine) loadConfig() (*Config, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	cfg, ok, err := e.state.MultisigConfigGet()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotBootstrap
	}
	return cfg, nil
}

// Config returns a copy of the current governance configuration.
func (e *Engine) Config() (*Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	return cfg.Clone(), nil
}

// EscrowConfig adapts the governance configuration for the escrow engine.
func (e *Engine) EscrowConfig() (escrow.Config, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return escrow.Config{}, err
	}
	return escrow.Config{
		FeeBps:        cfg.FeeBps,
		FeeAccount:    cfg.FeeAccount,
		TokenDecimals: cfg.TokenDecimals,
		Paused:        cfg.Paused,
	}, nil
}

// IsSigner reports whether the address belongs to the current signer set.
func (e *Engine) IsSigner(addr [20]byte) (bool, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return false, err
	}
	return cfg.IsSigner(addr), nil
}

// ProposalCount returns the last issued proposal sequence number.
func (e *Engine) ProposalCount() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.ProposalCounter()
}

// Proposal returns a copy of the proposal record.
func (e *Engine) Proposal(id uint64) (*AdminProposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	proposal, ok, err := e.state.ProposalGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	return proposal.Clone(), nil
}

// Submit creates a proposal with the creator's approval already counted and
// attempts execution immediately, so a one-signer configuration behaves like
// direct administration. An execution failure does not undo the submission:
// the proposal stays pending and can be retried once its precondition holds.
func (e *Engine) Submit(caller [20]byte, action ProposalAction) (*AdminProposal, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if action == nil {
		return nil, fmt.Errorf("%w: missing action", ErrInvalidStatus)
	}
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsSigner(caller) {
		return nil, ErrUnauthorized
	}
	counter, err := e.state.ProposalCounter()
	if err != nil {
		return nil, err
	}
	id := counter + 1
	if err := e.state.SetProposalCounter(id); err != nil {
		return nil, err
	}
	proposal := &AdminProposal{
		ID:        id,
		Action:    action,
		CreatedBy: caller,
		CreatedAt: e.now(),
		Approvals: [][20]byte{caller},
	}
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(NewProposalSubmittedEvent(proposal))

	if uint32(len(proposal.Approvals)) >= cfg.Threshold {
		// Best-effort auto-execution: the proposal survives a failure.
		_ = e.executeProposal(proposal, cfg)
	}
	return proposal.Clone(), nil
}

// Approve records a signer's approval and executes the proposal once the
// quorum is reached. Unlike Submit, a failing execution surfaces to the
// caller; the approval itself is already persisted, so a later Execute can
// retry without re-approving.
func (e *Engine) Approve(caller [20]byte, id uint64) (*AdminProposal, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.IsSigner(caller) {
		return nil, ErrUnauthorized
	}
	proposal, ok, err := e.state.ProposalGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	if proposal.Executed {
		return nil, fmt.Errorf("%w: proposal already executed", ErrInvalidStatus)
	}
	if proposal.HasApproval(caller) {
		return nil, fmt.Errorf("%w: duplicate approval", ErrInvalidStatus)
	}
	proposal.Approvals = append(proposal.Approvals, caller)
	if err := e.state.ProposalPut(proposal); err != nil {
		return nil, err
	}
	e.emit(NewProposalApprovedEvent(proposal, caller))

	if uint32(len(proposal.Approvals)) >= cfg.Threshold {
		if err := e.executeProposal(proposal, cfg); err != nil {
			return nil, err
		}
	}
	return proposal.Clone(), nil
}

// Execute runs a proposal whose quorum has been reached. Any caller may
// trigger it; authorization lives in the recorded approvals.
func (e *Engine) Execute(caller [20]byte, id uint64) (*AdminProposal, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	proposal, ok, err := e.state.ProposalGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	if proposal.Executed {
		return nil, fmt.Errorf("%w: proposal already executed", ErrInvalidStatus)
	}
	if uint32(len(proposal.Approvals)) < cfg.Threshold {
		return nil, fmt.Errorf("%w: quorum not reached", ErrUnauthorized)
	}
	if err := e.executeProposal(proposal, cfg); err != nil {
		return nil, err
	}
	return proposal.Clone(), nil
}

// executeProposal applies the action to the configuration, marks the
// proposal executed and persists both. The configuration write happens
// before the proposal flag so a crash between the two re-runs an idempotent
// action rather than losing one. An emergency withdrawal issues its token
// transfer only after the proposal is persisted as executed: a re-entrant
// token ledger sees an already-executed proposal and cannot drain the
// custody account twice. A transfer failing at that point is an operator
// reconciliation matter, not a retryable proposal.
func (e *Engine) executeProposal(proposal *AdminProposal, cfg *Config) error {
	updated := cfg.Clone()
	transfer, err := e.applyAction(proposal.Action, updated)
	if err != nil {
		return err
	}
	if err := e.state.MultisigConfigPut(updated); err != nil {
		return err
	}
	switch a := proposal.Action.(type) {
	case AddSigner:
		e.emit(NewSignerAddedEvent(a.Signer, len(updated.Signers)))
	case RemoveSigner:
		e.emit(NewSignerRemovedEvent(a.Signer, len(updated.Signers)))
	case SetThreshold:
		e.emit(NewThresholdChangedEvent(cfg.Threshold, a.Threshold))
	}
	proposal.Executed = true
	proposal.ExecutedAt = e.now()
	if err := e.state.ProposalPut(proposal); err != nil {
		return err
	}
	e.emit(NewProposalExecutedEvent(proposal))
	if transfer != nil {
		if err := transfer(); err != nil {
			return fmt.Errorf("%w: %v", ErrTokenTransferFailed, err)
		}
	}
	return nil
}

// applyAction mutates cfg in place. Actions that move tokens return the
// deferred transfer instead of issuing it; the caller runs it after all
// state writes have been committed.
func (e *Engine) applyAction(action ProposalAction, cfg *Config) (func() error, error) {
	switch a := action.(type) {
	case SetFee:
		if a.FeeBps > maxFeeBps {
			return nil, ErrFeeTooHigh
		}
		cfg.FeeBps = a.FeeBps
	case SetTokenAddress:
		cfg.Token = a.Address
	case SetTokenDecimals:
		cfg.TokenDecimals = a.Decimals
	case AddSigner:
		if !cfg.IsSigner(a.Signer) {
			cfg.Signers = append(cfg.Signers, a.Signer)
		}
	case RemoveSigner:
		return nil, removeSigner(cfg, a.Signer)
	case SetThreshold:
		if a.Threshold == 0 || a.Threshold > uint32(len(cfg.Signers)) {
			return nil, fmt.Errorf("%w: threshold %d outside 1..%d", ErrUnauthorized, a.Threshold, len(cfg.Signers))
		}
		cfg.Threshold = a.Threshold
	case Pause:
		cfg.Paused = true
	case Unpause:
		cfg.Paused = false
	case EmergencyWithdraw:
		return e.prepareWithdraw(cfg, a)
	default:
		return nil, fmt.Errorf("%w: unknown action %T", ErrInvalidStatus, action)
	}
	return nil, nil
}

// removeSigner validates the post-removal set before touching it: the result
// must still be able to meet the threshold.
func removeSigner(cfg *Config, signer [20]byte) error {
	idx := -1
	for i, existing := range cfg.Signers {
		if existing == signer {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: not a signer", ErrInvalidStatus)
	}
	if uint32(len(cfg.Signers)-1) < cfg.Threshold {
		return fmt.Errorf("%w: removal would drop signer set below threshold %d", ErrUnauthorized, cfg.Threshold)
	}
	cfg.Signers = append(cfg.Signers[:idx], cfg.Signers[idx+1:]...)
	return nil
}

// prepareWithdraw validates the withdrawal against the live custody balance
// and returns the transfer for the caller to run after commit.
func (e *Engine) prepareWithdraw(cfg *Config, action EmergencyWithdraw) (func() error, error) {
	if e.token == nil {
		return nil, errNilToken
	}
	amount, err := escrow.ParseAmount(action.Amount, cfg.TokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	balance, err := e.token.BalanceOf(e.custody)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	return func() error {
		return e.token.Transfer(action.Recipient, amount, []byte("emergency_withdraw"))
	}, nil
}
