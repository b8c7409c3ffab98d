package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"clearhold/core/events"
	"clearhold/core/types"
)

var (
	errNilState  = errors.New("escrow engine: state not configured")
	errNilConfig = errors.New("escrow engine: config source not configured")
	errNilToken  = errors.New("escrow engine: token ledger not configured")
)

// engineState is the persistence surface required by the engine. The escrow
// map, the per-party reverse index, the deposit ledger and the volume counter
// are separate stores updated together within one invocation.
type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(id string) (*Escrow, bool, error)
	EscrowNextID() (uint64, error)
	PartyEscrowsAppend(addr [20]byte, id string) error
	PartyEscrows(addr [20]byte) ([]string, error)
	DepositGet(id string) (*big.Int, error)
	DepositPut(id string, amount *big.Int) error
	TotalVolume() (*big.Int, error)
	SetTotalVolume(*big.Int) error
}

// TokenLedger is the external fungible-token collaborator. The ledger is
// bound to the custody account: Transfer moves funds out of custody. The
// release path only calls BalanceOf and Transfer; TransferFrom and Allowance
// exist for deposit-via-allowance variants.
type TokenLedger interface {
	BalanceOf(addr [20]byte) (*big.Int, error)
	Transfer(to [20]byte, amount *big.Int, memo []byte) error
	TransferFrom(from, to [20]byte, amount *big.Int, memo []byte) error
	Allowance(owner, spender [20]byte) (*big.Int, error)
}

// Config is the snapshot of global configuration the engine consults on each
// operation. It is owned by the governance engine and injected here.
type Config struct {
	FeeBps        uint32
	FeeAccount    [20]byte
	TokenDecimals uint8
	Paused        bool
}

// ConfigSource hands out the current global configuration.
type ConfigSource interface {
	EscrowConfig() (Config, error)
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine owns the escrow ledger, the per-escrow deposit accounting and the
// fund release protocol. All state mutation for a release commits before the
// external token transfer is attempted, so a malicious token implementation
// re-entering the engine mid-release observes fully settled state.
type Engine struct {
	state            engineState
	token            TokenLedger
	config           ConfigSource
	emitter          events.Emitter
	custody          [20]byte
	enforceFullSplit bool
	nowFn            func() int64
}

// NewEngine creates an escrow engine with a no-op emitter. Callers override
// the collaborators via the setters before use.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetTokenLedger configures the custody-bound token collaborator.
func (e *Engine) SetTokenLedger(token TokenLedger) { e.token = token }

// SetConfigSource wires the engine to the governance-owned configuration.
func (e *Engine) SetConfigSource(source ConfigSource) { e.config = source }

// SetCustodyAccount configures the address whose token balance backs all
// escrows. The custody balance is shared across escrows; the deposit ledger
// provides the per-escrow bound.
func (e *Engine) SetCustodyAccount(addr [20]byte) { e.custody = addr }

// SetEnforceFullSplit toggles the optional create-time invariant that
// milestone amounts must sum exactly to the escrow total.
func (e *Engine) SetEnforceFullSplit(enforce bool) { e.enforceFullSplit = enforce }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
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
	e.emitter.Emit(escrowEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) currentConfig() (Config, error) {
	if e == nil || e.config == nil {
		return Config{}, errNilConfig
	}
	return e.config.EscrowConfig()
}

func (e *Engine) ensureUnpaused() (Config, error) {
	cfg, err := e.currentConfig()
	if err != nil {
		return Config{}, err
	}
	if cfg.Paused {
		return Config{}, ErrPaused
	}
	return cfg, nil
}

func (e *Engine) loadEscrow(id string) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrEscrowNotFound
	}
	return esc, nil
}

func (e *Engine) storeEscrow(esc *Escrow) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	return e.state.EscrowPut(esc)
}

// Create validates and persists a new escrow, indexing it for both parties.
// All validation happens before the first state write so a rejected creation
// leaves no partial mutation behind.
func (e *Engine) Create(creator [20]byte, input CreateInput) (string, error) {
	if e == nil || e.state == nil {
		return "", errNilState
	}
	cfg, err := e.ensureUnpaused()
	if err != nil {
		return "", err
	}
	if len(input.Milestones) > MaxMilestones {
		return "", fmt.Errorf("%w: more than %d milestones", ErrStorageLimitExceeded, MaxMilestones)
	}
	if len(input.Title) > MaxStringLength || len(input.Description) > MaxStringLength {
		return "", fmt.Errorf("%w: string exceeds %d bytes", ErrStorageLimitExceeded, MaxStringLength)
	}
	status, err := ParseEscrowStatus(input.Status)
	if err != nil {
		return "", err
	}

	milestones := make([]*Milestone, 0, len(input.Milestones))
	for _, in := range input.Milestones {
		msStatus, err := ParseMilestoneStatus(in.Status)
		if err != nil {
			return "", err
		}
		if len(in.EvidenceURLs) > MaxEvidenceFile {
			return "", fmt.Errorf("%w: more than %d evidence files", ErrStorageLimitExceeded, MaxEvidenceFile)
		}
		var evidence []Evidence
		for _, url := range in.EvidenceURLs {
			evidence = append(evidence, Evidence{URL: url})
		}
		milestones = append(milestones, &Milestone{
			ID:          in.ID,
			Description: in.Description,
			Amount:      in.Amount,
			Status:      msStatus,
			Deadline:    in.Deadline,
			CompletedAt: in.CompletedAt,
			Evidence:    evidence,
		})
	}

	if e.enforceFullSplit {
		if err := e.checkFullSplit(input.TotalAmount, milestones, cfg.TokenDecimals); err != nil {
			return "", err
		}
	}

	seq, err := e.state.EscrowNextID()
	if err != nil {
		return "", err
	}
	id := fmt.Sprintf("escrow_%d", seq)

	esc := &Escrow{
		ID:               id,
		Creator:          creator,
		Counterparty:     input.Counterparty,
		CounterpartyType: input.CounterpartyType,
		Title:            input.Title,
		Description:      input.Description,
		TotalAmount:      input.TotalAmount,
		Status:           status,
		CreatedAt:        e.now(),
		Milestones:       milestones,
		TransactionHash:  input.TransactionHash,
	}
	if err := e.storeEscrow(esc); err != nil {
		return "", err
	}
	if err := e.state.PartyEscrowsAppend(creator, id); err != nil {
		return "", err
	}
	if err := e.state.PartyEscrowsAppend(input.Counterparty, id); err != nil {
		return "", err
	}

	e.emit(NewCreatedEvent(esc))
	return id, nil
}

func (e *Engine) checkFullSplit(total string, milestones []*Milestone, decimals uint8) error {
	want, err := ParseAmount(total, decimals)
	if err != nil {
		return err
	}
	sum := new(big.Int)
	for _, m := range milestones {
		amt, err := ParseAmount(m.Amount, decimals)
		if err != nil {
			return err
		}
		sum.Add(sum, amt)
	}
	if sum.Cmp(want) != 0 {
		return fmt.Errorf("%w: milestone amounts %s do not sum to total %s", ErrInvalidAmount, sum, want)
	}
	return nil
}

// Get returns a copy of the escrow record.
func (e *Engine) Get(id string) (*Escrow, error) {
	return e.loadEscrow(id)
}

// Milestone returns a copy of a single milestone.
func (e *Engine) Milestone(escrowID, milestoneID string) (*Milestone, error) {
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return nil, err
	}
	m := esc.FindMilestone(milestoneID)
	if m == nil {
		return nil, ErrMilestoneNotFound
	}
	return m.Clone(), nil
}

// ListByParty returns every escrow the caller participates in, as creator or
// counterparty, via the reverse index.
func (e *Engine) ListByParty(caller [20]byte) ([]*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, err := e.ensureUnpaused(); err != nil {
		return nil, err
	}
	ids, err := e.state.PartyEscrows(caller)
	if err != nil {
		return nil, err
	}
	out := make([]*Escrow, 0, len(ids))
	for _, id := range ids {
		esc, ok, err := e.state.EscrowGet(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, esc)
		}
	}
	return out, nil
}

// UpdateStatus sets the escrow status from a status label. Either party may
// call it; the optional reference hash is recorded when supplied.
func (e *Engine) UpdateStatus(caller [20]byte, escrowID, newStatus, transactionHash string) (*Escrow, error) {
	if _, err := e.ensureUnpaused(); err != nil {
		return nil, err
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return nil, err
	}
	if !esc.IsParty(caller) {
		return nil, ErrUnauthorized
	}
	parsed, err := ParseEscrowStatus(newStatus)
	if err != nil {
		return nil, err
	}
	oldStatus := esc.Status
	esc.Status = parsed
	if transactionHash != "" {
		esc.TransactionHash = transactionHash
	}
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	e.emit(NewStatusChangedEvent(esc, oldStatus, parsed))
	return esc, nil
}

// UpdateMilestoneStatus sets a milestone status from a status label. A
// transition into Completed stamps the completion timestamp.
func (e *Engine) UpdateMilestoneStatus(caller [20]byte, escrowID, milestoneID, newStatus string) (*Escrow, error) {
	if _, err := e.ensureUnpaused(); err != nil {
		return nil, err
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return nil, err
	}
	if !esc.IsParty(caller) {
		return nil, ErrUnauthorized
	}
	m := esc.FindMilestone(milestoneID)
	if m == nil {
		return nil, ErrMilestoneNotFound
	}
	parsed, err := ParseMilestoneStatus(newStatus)
	if err != nil {
		return nil, err
	}
	oldStatus := m.Status
	m.Status = parsed
	if parsed == MilestoneCompleted {
		m.CompletedAt = e.now()
	}
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	e.emit(NewMilestoneStatusChangedEvent(escrowID, milestoneID, oldStatus, parsed))
	return esc, nil
}

// NotifyDeposit records a confirmed deposit for the escrow after verifying
// the custody balance covers the new cumulative total. The check is a sanity
// bound, not proof of segregated custody: the custody balance is shared
// across all escrows.
func (e *Engine) NotifyDeposit(escrowID, amountStr string) (*big.Int, error) {
	cfg, err := e.ensureUnpaused()
	if err != nil {
		return nil, err
	}
	if e.token == nil {
		return nil, errNilToken
	}
	if _, err := e.loadEscrow(escrowID); err != nil {
		return nil, err
	}
	amount, err := ParseAmount(amountStr, cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}
	current, err := e.state.DepositGet(escrowID)
	if err != nil {
		return nil, err
	}
	newTotal := new(big.Int).Add(current, amount)
	custodyBalance, err := e.token.BalanceOf(e.custody)
	if err != nil {
		return nil, err
	}
	if custodyBalance.Cmp(newTotal) < 0 {
		return nil, ErrInsufficientBalance
	}
	if err := e.state.DepositPut(escrowID, newTotal); err != nil {
		return nil, err
	}
	return newTotal, nil
}

// DepositBalance returns the cumulative confirmed deposit for the escrow.
func (e *Engine) DepositBalance(escrowID string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if _, err := e.loadEscrow(escrowID); err != nil {
		return nil, err
	}
	return e.state.DepositGet(escrowID)
}

// ReleaseMilestone pays out a milestone to the counterparty, deducting the
// platform fee. Every internal write — milestone to Funded, volume counter,
// deposit ledger — commits before the external transfers are issued, so a
// transfer failure after that point requires operator reconciliation rather
// than exposing a re-entrancy window.
func (e *Engine) ReleaseMilestone(caller [20]byte, escrowID, milestoneID string) (*ReleaseReceipt, error) {
	cfg, err := e.ensureUnpaused()
	if err != nil {
		return nil, err
	}
	if e.token == nil {
		return nil, errNilToken
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return nil, err
	}
	if !esc.IsParty(caller) {
		return nil, ErrUnauthorized
	}
	m := esc.FindMilestone(milestoneID)
	if m == nil {
		return nil, ErrMilestoneNotFound
	}
	if m.Status == MilestoneFunded || m.Status == MilestoneCompleted {
		return nil, fmt.Errorf("%w: milestone already %s", ErrInvalidStatus, m.Status)
	}

	amount, err := ParseAmount(m.Amount, cfg.TokenDecimals)
	if err != nil {
		return nil, err
	}
	if cfg.FeeBps > 10_000 {
		return nil, ErrFeeTooHigh
	}
	fee, releaseAmount, err := splitFee(amount, cfg.FeeBps)
	if err != nil {
		return nil, err
	}

	deposited, err := e.state.DepositGet(escrowID)
	if err != nil {
		return nil, err
	}
	if deposited.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}
	custodyBalance, err := e.token.BalanceOf(e.custody)
	if err != nil {
		return nil, err
	}
	if custodyBalance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	volume, err := e.state.TotalVolume()
	if err != nil {
		return nil, err
	}
	newVolume := new(big.Int).Add(volume, amount)
	if newVolume.BitLen() > maxAmountBits {
		return nil, ErrArithmeticOverflow
	}

	// Effects before interactions: commit every internal write, then call out.
	m.Status = MilestoneFunded
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	if err := e.state.SetTotalVolume(newVolume); err != nil {
		return nil, err
	}
	if err := e.state.DepositPut(escrowID, new(big.Int).Sub(deposited, amount)); err != nil {
		return nil, err
	}

	if err := e.token.Transfer(esc.Counterparty, releaseAmount, []byte(escrowID)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenTransferFailed, err)
	}
	if fee.Sign() > 0 {
		if err := e.token.Transfer(cfg.FeeAccount, fee, []byte(escrowID)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTokenTransferFailed, err)
		}
	}

	txHash := fmt.Sprintf("tx_%d", e.now())
	e.emit(NewMilestoneReleasedEvent(esc, milestoneID, m.Amount, txHash))

	return &ReleaseReceipt{
		TransactionHash: txHash,
		Status:          "success",
		Message:         "Milestone funds released successfully",
		Receiver:        esc.Counterparty,
		Payer:           esc.Creator,
		Amount:          releaseAmount,
		Fee:             fee,
	}, nil
}

// splitFee computes fee = floor(amount*feeBps/10000) and the remaining
// release amount. The intermediate product is bounds-checked so an oversized
// amount surfaces ErrArithmeticOverflow instead of a wrong monetary value.
func splitFee(amount *big.Int, feeBps uint32) (fee, release *big.Int, err error) {
	product := new(big.Int).Mul(amount, new(big.Int).SetUint64(uint64(feeBps)))
	if product.BitLen() > maxAmountBits {
		return nil, nil, ErrArithmeticOverflow
	}
	fee = product.Div(product, big.NewInt(10_000))
	release = new(big.Int).Sub(amount, fee)
	if release.Sign() < 0 {
		return nil, nil, ErrArithmeticOverflow
	}
	return fee, release, nil
}

// CompleteMilestone finalises a Funded milestone and auto-promotes the escrow
// to Completed once every milestone is done.
func (e *Engine) CompleteMilestone(caller [20]byte, escrowID, milestoneID string) error {
	if _, err := e.ensureUnpaused(); err != nil {
		return err
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	if !esc.IsParty(caller) {
		return ErrUnauthorized
	}
	m := esc.FindMilestone(milestoneID)
	if m == nil {
		return ErrMilestoneNotFound
	}
	if m.Status != MilestoneFunded {
		return fmt.Errorf("%w: milestone is %s, want Funded", ErrInvalidStatus, m.Status)
	}
	oldStatus := m.Status
	m.Status = MilestoneCompleted
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	e.emit(NewMilestoneStatusChangedEvent(escrowID, milestoneID, oldStatus, MilestoneCompleted))

	return e.checkEscrowCompletion(esc)
}

// checkEscrowCompletion promotes the escrow to Completed when every milestone
// has reached Completed and the milestone list is non-empty.
func (e *Engine) checkEscrowCompletion(esc *Escrow) error {
	if esc.Status == EscrowStatusCompleted {
		return nil
	}
	if len(esc.Milestones) == 0 {
		return nil
	}
	for _, m := range esc.Milestones {
		if m.Status != MilestoneCompleted {
			return nil
		}
	}
	oldStatus := esc.Status
	esc.Status = EscrowStatusCompleted
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	e.emit(NewStatusChangedEvent(esc, oldStatus, EscrowStatusCompleted))
	return nil
}

// CompleteMilestoneTask records work submission by the counterparty: the
// milestone moves from InProgress to Done, awaiting the creator's release.
func (e *Engine) CompleteMilestoneTask(caller [20]byte, escrowID, milestoneID, completionNote string, evidence []Evidence) error {
	if _, err := e.ensureUnpaused(); err != nil {
		return err
	}
	if len(evidence) > MaxEvidenceFile {
		return fmt.Errorf("%w: more than %d evidence files", ErrStorageLimitExceeded, MaxEvidenceFile)
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return err
	}
	if caller != esc.Counterparty {
		return ErrUnauthorized
	}
	m := esc.FindMilestone(milestoneID)
	if m == nil {
		return ErrMilestoneNotFound
	}
	if m.Status != MilestoneInProgress {
		return fmt.Errorf("%w: milestone is %s, want InProgress", ErrInvalidStatus, m.Status)
	}
	m.Status = MilestoneDone
	m.CompletedAt = e.now()
	if completionNote != "" {
		m.CompletionNote = completionNote
	}
	if len(evidence) > 0 {
		m.Evidence = append([]Evidence(nil), evidence...)
	}
	if err := e.storeEscrow(esc); err != nil {
		return err
	}
	e.emit(NewMilestoneStatusChangedEvent(escrowID, milestoneID, MilestoneInProgress, MilestoneDone))
	return nil
}

// DisputeMilestone records a dispute against a milestone. Any non-terminal
// state may be disputed; the engine records the filer and reason and derives
// a deterministic dispute identifier. Arbitration is out of scope.
func (e *Engine) DisputeMilestone(caller [20]byte, escrowID, milestoneID, reason string) (*DisputeReceipt, error) {
	if _, err := e.ensureUnpaused(); err != nil {
		return nil, err
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return nil, err
	}
	if !esc.IsParty(caller) {
		return nil, ErrUnauthorized
	}
	m := esc.FindMilestone(milestoneID)
	if m == nil {
		return nil, ErrMilestoneNotFound
	}
	m.Status = MilestoneDisputed
	m.DisputeReason = reason
	m.DisputeFiledBy = caller
	if err := e.storeEscrow(esc); err != nil {
		return nil, err
	}
	disputeID := fmt.Sprintf("dispute_%s_%s", escrowID, milestoneID)
	e.emit(NewMilestoneDisputedEvent(escrowID, milestoneID, caller, reason, disputeID))
	return &DisputeReceipt{
		DisputeID: disputeID,
		Status:    "disputed",
		Message:   "Milestone has been disputed",
	}, nil
}

// NotifyCounterparty emits an off-chain-consumable notification event. It has
// no state effect beyond the event itself.
func (e *Engine) NotifyCounterparty(caller [20]byte, escrowID, notificationType string, recipient [20]byte) (*NotificationReceipt, error) {
	if _, err := e.ensureUnpaused(); err != nil {
		return nil, err
	}
	esc, err := e.loadEscrow(escrowID)
	if err != nil {
		return nil, err
	}
	if !esc.IsParty(caller) {
		return nil, ErrUnauthorized
	}
	notificationID := fmt.Sprintf("notif_%s_%d", escrowID, e.now())
	e.emit(NewCounterpartyNotifiedEvent(escrowID, notificationType, caller, recipient, notificationID))
	return &NotificationReceipt{
		NotificationID: notificationID,
		Status:         "sent",
		Message:        "Notification sent successfully",
	}, nil
}

// CheckTransactionStatus is a stub: the ledger does not track chain
// confirmations. It answers "confirmed" so UI flows depending on the query
// can proceed.
func (e *Engine) CheckTransactionStatus(transactionHash string) (*TransactionStatus, error) {
	return &TransactionStatus{
		TransactionHash: transactionHash,
		Status:          "confirmed",
		Confirmations:   12,
	}, nil
}

// TotalVolume reports the cumulative released amount in base units.
func (e *Engine) TotalVolume() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.TotalVolume()
}
