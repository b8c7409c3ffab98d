package escrow

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"clearhold/core/events"
)

type mockState struct {
	escrows     map[string]*Escrow
	partyIndex  map[[20]byte][]string
	deposits    map[string]*big.Int
	counter     uint64
	totalVolume *big.Int
}

func newMockState() *mockState {
	return &mockState{
		escrows:     make(map[string]*Escrow),
		partyIndex:  make(map[[20]byte][]string),
		deposits:    make(map[string]*big.Int),
		totalVolume: big.NewInt(0),
	}
}

func (m *mockState) EscrowPut(esc *Escrow) error {
	m.escrows[esc.ID] = esc.Clone()
	return nil
}

func (m *mockState) EscrowGet(id string) (*Escrow, bool, error) {
	esc, ok := m.escrows[id]
	if !ok {
		return nil, false, nil
	}
	return esc.Clone(), true, nil
}

func (m *mockState) EscrowNextID() (uint64, error) {
	m.counter++
	return m.counter, nil
}

func (m *mockState) PartyEscrowsAppend(addr [20]byte, id string) error {
	for _, existing := range m.partyIndex[addr] {
		if existing == id {
			return nil
		}
	}
	m.partyIndex[addr] = append(m.partyIndex[addr], id)
	return nil
}

func (m *mockState) PartyEscrows(addr [20]byte) ([]string, error) {
	return append([]string(nil), m.partyIndex[addr]...), nil
}

func (m *mockState) DepositGet(id string) (*big.Int, error) {
	if amount, ok := m.deposits[id]; ok {
		return new(big.Int).Set(amount), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) DepositPut(id string, amount *big.Int) error {
	m.deposits[id] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) TotalVolume() (*big.Int, error) {
	return new(big.Int).Set(m.totalVolume), nil
}

func (m *mockState) SetTotalVolume(v *big.Int) error {
	m.totalVolume = new(big.Int).Set(v)
	return nil
}

type mockToken struct {
	balances  map[[20]byte]*big.Int
	transfers []mockTransfer
	failNext  error
}

type mockTransfer struct {
	to     [20]byte
	amount *big.Int
}

func newMockToken() *mockToken {
	return &mockToken{balances: make(map[[20]byte]*big.Int)}
}

func (m *mockToken) setBalance(addr [20]byte, amount *big.Int) {
	m.balances[addr] = new(big.Int).Set(amount)
}

func (m *mockToken) BalanceOf(addr [20]byte) (*big.Int, error) {
	if bal, ok := m.balances[addr]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (m *mockToken) Transfer(to [20]byte, amount *big.Int, memo []byte) error {
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.transfers = append(m.transfers, mockTransfer{to: to, amount: new(big.Int).Set(amount)})
	return nil
}

func (m *mockToken) TransferFrom(from, to [20]byte, amount *big.Int, memo []byte) error {
	return m.Transfer(to, amount, memo)
}

func (m *mockToken) Allowance(owner, spender [20]byte) (*big.Int, error) {
	return big.NewInt(0), nil
}

type staticConfig struct {
	cfg Config
	err error
}

func (s staticConfig) EscrowConfig() (Config, error) { return s.cfg, s.err }

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func newTestEngine(t *testing.T) (*Engine, *mockState, *mockToken, *events.Recorder) {
	t.Helper()
	state := newMockState()
	token := newMockToken()
	recorder := events.NewRecorder()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetTokenLedger(token)
	engine.SetConfigSource(staticConfig{cfg: Config{
		FeeBps:        100,
		FeeAccount:    newTestAddress(0xFE),
		TokenDecimals: 6,
	}})
	engine.SetCustodyAccount(newTestAddress(0xCC))
	engine.SetEmitter(recorder)
	engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return engine, state, token, recorder
}

func basicCreateInput(counterparty [20]byte) CreateInput {
	return CreateInput{
		Counterparty:     counterparty,
		CounterpartyType: "contractor",
		Status:           "Pending",
		Title:            "Site build",
		Description:      "Three phase delivery",
		TotalAmount:      "300",
		Milestones: []MilestoneInput{
			{ID: "m1", Description: "Design", Amount: "100", Status: "InProgress"},
			{ID: "m2", Description: "Build", Amount: "100.50", Status: "Pending"},
			{ID: "m3", Description: "Launch", Amount: "99.50", Status: "Pending"},
		},
	}
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	engine, _, _, recorder := newTestEngine(t)
	creator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)

	first, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first != "escrow_1" || second != "escrow_2" {
		t.Fatalf("unexpected ids %q, %q", first, second)
	}

	esc, err := engine.Get(first)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if esc.Creator != creator || esc.Counterparty != counterparty {
		t.Fatalf("parties not persisted")
	}
	if esc.CreatedAt != 1_700_000_000 {
		t.Fatalf("createdAt = %d", esc.CreatedAt)
	}
	if len(recorder.Events()) == 0 || recorder.Events()[0].EventType() != EventTypeCreated {
		t.Fatalf("expected %s event", EventTypeCreated)
	}
}

func TestCreateIndexesBothParties(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	creator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)

	id, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, party := range [][20]byte{creator, counterparty} {
		list, err := engine.ListByParty(party)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(list) != 1 || list[0].ID != id {
			t.Fatalf("party %x missing escrow", party[:2])
		}
	}
	other, err := engine.ListByParty(newTestAddress(0x09))
	if err != nil {
		t.Fatalf("list stranger: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("stranger sees %d escrows", len(other))
	}
}

func TestCreateValidationLeavesNoState(t *testing.T) {
	engine, state, _, _ := newTestEngine(t)
	creator := newTestAddress(0x01)

	input := basicCreateInput(newTestAddress(0x02))
	input.Milestones = make([]MilestoneInput, MaxMilestones+1)
	for i := range input.Milestones {
		input.Milestones[i] = MilestoneInput{ID: fmt.Sprintf("m%d", i), Amount: "1", Status: "Pending"}
	}
	if _, err := engine.Create(creator, input); !errors.Is(err, ErrStorageLimitExceeded) {
		t.Fatalf("expected ErrStorageLimitExceeded, got %v", err)
	}

	input = basicCreateInput(newTestAddress(0x02))
	input.Status = "NotAStatus"
	if _, err := engine.Create(creator, input); !errors.Is(err, ErrInvalidEscrowStatus) {
		t.Fatalf("expected ErrInvalidEscrowStatus, got %v", err)
	}

	if len(state.escrows) != 0 || state.counter != 0 {
		t.Fatalf("rejected create mutated state")
	}
}

func TestCreateEnforcesFullSplit(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	engine.SetEnforceFullSplit(true)
	creator := newTestAddress(0x01)

	if _, err := engine.Create(creator, basicCreateInput(newTestAddress(0x02))); err != nil {
		t.Fatalf("exact split rejected: %v", err)
	}

	input := basicCreateInput(newTestAddress(0x02))
	input.Milestones[2].Amount = "99.49"
	if _, err := engine.Create(creator, input); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPausedBlocksMutations(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	engine.SetConfigSource(staticConfig{cfg: Config{Paused: true, TokenDecimals: 6}})

	creator := newTestAddress(0x01)
	if _, err := engine.Create(creator, basicCreateInput(newTestAddress(0x02))); !errors.Is(err, ErrPaused) {
		t.Fatalf("create: expected ErrPaused, got %v", err)
	}
	if _, err := engine.ListByParty(creator); !errors.Is(err, ErrPaused) {
		t.Fatalf("list: expected ErrPaused, got %v", err)
	}
	if _, err := engine.ReleaseMilestone(creator, "escrow_1", "m1"); !errors.Is(err, ErrPaused) {
		t.Fatalf("release: expected ErrPaused, got %v", err)
	}
}

func TestUpdateStatusRequiresParty(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	creator := newTestAddress(0x01)
	id, err := engine.Create(creator, basicCreateInput(newTestAddress(0x02)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := engine.UpdateStatus(newTestAddress(0x09), id, "Active", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	esc, err := engine.UpdateStatus(creator, id, "Active", "0xabc")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if esc.Status != EscrowStatusActive || esc.TransactionHash != "0xabc" {
		t.Fatalf("status %s hash %q", esc.Status, esc.TransactionHash)
	}
}

func TestUpdateMilestoneStatusStampsCompletion(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	creator := newTestAddress(0x01)
	id, err := engine.Create(creator, basicCreateInput(newTestAddress(0x02)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	esc, err := engine.UpdateMilestoneStatus(creator, id, "m1", "Completed")
	if err != nil {
		t.Fatalf("update milestone: %v", err)
	}
	m := esc.FindMilestone("m1")
	if m.Status != MilestoneCompleted || m.CompletedAt != 1_700_000_000 {
		t.Fatalf("milestone not stamped: %v %d", m.Status, m.CompletedAt)
	}
}

func TestNotifyDepositAccumulatesAgainstCustody(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	creator := newTestAddress(0x01)
	id, err := engine.Create(creator, basicCreateInput(newTestAddress(0x02)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token.setBalance(newTestAddress(0xCC), mustAmount(t, "150", 6))

	total, err := engine.NotifyDeposit(id, "100")
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	if total.Cmp(mustAmount(t, "100", 6)) != 0 {
		t.Fatalf("total = %s", total)
	}
	if _, err := engine.NotifyDeposit(id, "100"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	balance, err := engine.DepositBalance(id)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Cmp(mustAmount(t, "100", 6)) != 0 {
		t.Fatalf("ledger = %s after rejected deposit", balance)
	}
}

func mustAmount(t *testing.T, s string, decimals uint8) *big.Int {
	t.Helper()
	amount, err := ParseAmount(s, decimals)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return amount
}

func fundedEscrow(t *testing.T, engine *Engine, token *mockToken) (string, [20]byte, [20]byte) {
	t.Helper()
	creator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)
	id, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token.setBalance(newTestAddress(0xCC), mustAmount(t, "300", 6))
	if _, err := engine.NotifyDeposit(id, "300"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return id, creator, counterparty
}

func TestReleaseMilestoneSplitsFee(t *testing.T) {
	engine, state, token, recorder := newTestEngine(t)
	id, creator, counterparty := fundedEscrow(t, engine, token)

	receipt, err := engine.ReleaseMilestone(creator, id, "m2")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	// 100.50 at 6 decimals is 100500000 base units; 100 bps fee is 1005000.
	wantFee := big.NewInt(1_005_000)
	wantRelease := big.NewInt(99_495_000)
	if receipt.Fee.Cmp(wantFee) != 0 {
		t.Fatalf("fee = %s, want %s", receipt.Fee, wantFee)
	}
	if receipt.Amount.Cmp(wantRelease) != 0 {
		t.Fatalf("amount = %s, want %s", receipt.Amount, wantRelease)
	}
	if new(big.Int).Add(receipt.Fee, receipt.Amount).Cmp(big.NewInt(100_500_000)) != 0 {
		t.Fatalf("fee and release do not conserve the milestone amount")
	}
	if receipt.TransactionHash != "tx_1700000000" {
		t.Fatalf("txHash = %q", receipt.TransactionHash)
	}

	if len(token.transfers) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(token.transfers))
	}
	if token.transfers[0].to != counterparty || token.transfers[0].amount.Cmp(wantRelease) != 0 {
		t.Fatalf("counterparty transfer wrong")
	}
	if token.transfers[1].to != newTestAddress(0xFE) || token.transfers[1].amount.Cmp(wantFee) != 0 {
		t.Fatalf("fee transfer wrong")
	}

	esc, _ := engine.Get(id)
	if esc.FindMilestone("m2").Status != MilestoneFunded {
		t.Fatalf("milestone not marked Funded")
	}
	if state.totalVolume.Cmp(big.NewInt(100_500_000)) != 0 {
		t.Fatalf("volume = %s", state.totalVolume)
	}
	deposit, _ := engine.DepositBalance(id)
	if deposit.Cmp(mustAmount(t, "199.50", 6)) != 0 {
		t.Fatalf("deposit after release = %s", deposit)
	}

	found := false
	for _, evt := range recorder.Events() {
		if evt.EventType() == EventTypeMilestoneReleased {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s event", EventTypeMilestoneReleased)
	}
}

func TestReleaseMilestoneZeroFee(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	engine.SetConfigSource(staticConfig{cfg: Config{
		FeeBps:        0,
		FeeAccount:    newTestAddress(0xFE),
		TokenDecimals: 6,
	}})
	id, creator, _ := fundedEscrow(t, engine, token)

	receipt, err := engine.ReleaseMilestone(creator, id, "m1")
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if receipt.Fee.Sign() != 0 {
		t.Fatalf("fee = %s at 0 bps", receipt.Fee)
	}
	if len(token.transfers) != 1 {
		t.Fatalf("zero fee still issued a fee transfer")
	}
}

func TestReleaseMilestoneGating(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	id, creator, _ := fundedEscrow(t, engine, token)

	if _, err := engine.ReleaseMilestone(newTestAddress(0x09), id, "m1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger release: %v", err)
	}
	if _, err := engine.ReleaseMilestone(creator, id, "missing"); !errors.Is(err, ErrMilestoneNotFound) {
		t.Fatalf("missing milestone: %v", err)
	}
	if _, err := engine.ReleaseMilestone(creator, "escrow_99", "m1"); !errors.Is(err, ErrEscrowNotFound) {
		t.Fatalf("missing escrow: %v", err)
	}

	if _, err := engine.ReleaseMilestone(creator, id, "m1"); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if _, err := engine.ReleaseMilestone(creator, id, "m1"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("double release: %v", err)
	}
}

func TestReleaseMilestoneInsufficientDeposit(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	creator := newTestAddress(0x01)
	id, err := engine.Create(creator, basicCreateInput(newTestAddress(0x02)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	token.setBalance(newTestAddress(0xCC), mustAmount(t, "50", 6))
	if _, err := engine.NotifyDeposit(id, "50"); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if _, err := engine.ReleaseMilestone(creator, id, "m1"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestReleaseMilestoneFeeTooHigh(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	engine.SetConfigSource(staticConfig{cfg: Config{
		FeeBps:        10_001,
		FeeAccount:    newTestAddress(0xFE),
		TokenDecimals: 6,
	}})
	id, creator, _ := fundedEscrow(t, engine, token)
	if _, err := engine.ReleaseMilestone(creator, id, "m1"); !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
}

func TestReleaseMilestoneVolumeOverflowLeavesNoState(t *testing.T) {
	engine, state, token, _ := newTestEngine(t)
	id, creator, _ := fundedEscrow(t, engine, token)

	// A counter at the 128-bit cap makes any addition overflow.
	maxVolume := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	state.totalVolume = new(big.Int).Set(maxVolume)

	if _, err := engine.ReleaseMilestone(creator, id, "m1"); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow, got %v", err)
	}

	// The overflow is a validation failure: nothing may have committed.
	esc, _ := engine.Get(id)
	if esc.FindMilestone("m1").Status == MilestoneFunded {
		t.Fatalf("milestone committed as Funded despite overflow")
	}
	if state.totalVolume.Cmp(maxVolume) != 0 {
		t.Fatalf("volume = %s, want unchanged", state.totalVolume)
	}
	deposit, _ := engine.DepositBalance(id)
	if deposit.Cmp(mustAmount(t, "300", 6)) != 0 {
		t.Fatalf("deposit = %s after rejected release", deposit)
	}
	if len(token.transfers) != 0 {
		t.Fatalf("transfer issued despite overflow")
	}
}

func TestReleaseMilestoneEffectsBeforeInteractions(t *testing.T) {
	engine, state, token, _ := newTestEngine(t)
	id, creator, _ := fundedEscrow(t, engine, token)

	token.failNext = errors.New("token reverted")
	if _, err := engine.ReleaseMilestone(creator, id, "m1"); !errors.Is(err, ErrTokenTransferFailed) {
		t.Fatalf("expected ErrTokenTransferFailed, got %v", err)
	}

	// The internal effects committed before the failing transfer.
	esc, _ := engine.Get(id)
	if esc.FindMilestone("m1").Status != MilestoneFunded {
		t.Fatalf("milestone not Funded after transfer failure")
	}
	if state.totalVolume.Sign() == 0 {
		t.Fatalf("volume not updated before transfer")
	}
	deposit, _ := engine.DepositBalance(id)
	if deposit.Cmp(mustAmount(t, "200", 6)) != 0 {
		t.Fatalf("deposit = %s", deposit)
	}
}

func TestCompleteMilestoneTaskFlow(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	creator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)
	id, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := engine.CompleteMilestoneTask(creator, id, "m1", "done", nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("creator completed task: %v", err)
	}
	if err := engine.CompleteMilestoneTask(counterparty, id, "m2", "done", nil); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("pending milestone completed: %v", err)
	}

	evidence := []Evidence{{Name: "report", URL: "ipfs://report"}}
	if err := engine.CompleteMilestoneTask(counterparty, id, "m1", "phase one delivered", evidence); err != nil {
		t.Fatalf("complete task: %v", err)
	}
	m, err := engine.Milestone(id, "m1")
	if err != nil {
		t.Fatalf("milestone: %v", err)
	}
	if m.Status != MilestoneDone || m.CompletionNote != "phase one delivered" {
		t.Fatalf("task state %v %q", m.Status, m.CompletionNote)
	}
	if len(m.Evidence) != 1 || m.Evidence[0].URL != "ipfs://report" {
		t.Fatalf("evidence not recorded")
	}
}

func TestCompleteMilestonePromotesEscrow(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	id, creator, _ := fundedEscrow(t, engine, token)

	milestones := []string{"m1", "m2", "m3"}
	for i, mid := range milestones {
		if _, err := engine.ReleaseMilestone(creator, id, mid); err != nil {
			t.Fatalf("release %s: %v", mid, err)
		}
		if err := engine.CompleteMilestone(creator, id, mid); err != nil {
			t.Fatalf("complete %s: %v", mid, err)
		}
		esc, err := engine.Get(id)
		if err != nil {
			t.Fatalf("get after %s: %v", mid, err)
		}
		if i < len(milestones)-1 && esc.Status == EscrowStatusCompleted {
			t.Fatalf("escrow promoted after %s with incomplete milestones remaining", mid)
		}
	}
	esc, err := engine.Get(id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if esc.Status != EscrowStatusCompleted {
		t.Fatalf("escrow status = %s, want Completed", esc.Status)
	}
}

func TestCompleteMilestoneRequiresFunded(t *testing.T) {
	engine, _, token, _ := newTestEngine(t)
	id, creator, _ := fundedEscrow(t, engine, token)
	if err := engine.CompleteMilestone(creator, id, "m1"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestDisputeMilestone(t *testing.T) {
	engine, _, _, recorder := newTestEngine(t)
	creator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)
	id, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	receipt, err := engine.DisputeMilestone(counterparty, id, "m1", "deliverable rejected")
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if receipt.DisputeID != "dispute_"+id+"_m1" {
		t.Fatalf("dispute id = %q", receipt.DisputeID)
	}
	m, err := engine.Milestone(id, "m1")
	if err != nil {
		t.Fatalf("milestone: %v", err)
	}
	if m.Status != MilestoneDisputed || m.DisputeReason != "deliverable rejected" || m.DisputeFiledBy != counterparty {
		t.Fatalf("dispute not recorded: %+v", m)
	}

	found := false
	for _, evt := range recorder.Events() {
		if evt.EventType() == EventTypeMilestoneDisputed {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s event", EventTypeMilestoneDisputed)
	}
}

func TestNotifyCounterparty(t *testing.T) {
	engine, _, _, recorder := newTestEngine(t)
	creator := newTestAddress(0x01)
	counterparty := newTestAddress(0x02)
	id, err := engine.Create(creator, basicCreateInput(counterparty))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	receipt, err := engine.NotifyCounterparty(creator, id, "milestone_ready", counterparty)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if receipt.NotificationID != "notif_"+id+"_1700000000" {
		t.Fatalf("notification id = %q", receipt.NotificationID)
	}
	if _, err := engine.NotifyCounterparty(newTestAddress(0x09), id, "x", counterparty); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger notified: %v", err)
	}
	found := false
	for _, evt := range recorder.Events() {
		if evt.EventType() == EventTypeCounterpartyNotified {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing %s event", EventTypeCounterpartyNotified)
	}
}

func TestCheckTransactionStatusStub(t *testing.T) {
	engine, _, _, _ := newTestEngine(t)
	status, err := engine.CheckTransactionStatus("tx_123")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status.Status != "confirmed" || status.Confirmations != 12 {
		t.Fatalf("unexpected status %+v", status)
	}
}
