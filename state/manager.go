package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"clearhold/native/escrow"
	"clearhold/native/multisig"
	"clearhold/storage"
)

// Key prefixes. Keys are keccak-256 hashes of prefix plus payload so user
// supplied identifiers cannot collide with internal keys.
const (
	escrowPrefix         = "escrow:"
	escrowPartyPrefix    = "escrow-party:"
	escrowCounterKey     = "escrow-counter"
	escrowDepositPrefix  = "escrow-deposit:"
	escrowVolumeKey      = "escrow-volume"
	multisigConfigKey    = "multisig-config"
	proposalPrefix       = "multisig-proposal:"
	proposalCounterKey   = "multisig-proposal-counter"
	tokenBalancePrefix   = "token-balance:"
	tokenAllowancePrefix = "token-allowance:"
)

// Manager persists ledger state in a key-value store using RLP encoding. It
// backs all three engines: escrow, governance and the token ledger.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the given database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func hashKey(parts ...[]byte) []byte {
	return ethcrypto.Keccak256(parts...)
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, fmt.Errorf("state: decode %T: %w", out, err)
	}
	return true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	raw, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %T: %w", value, err)
	}
	return m.db.Put(key, raw)
}

func (m *Manager) getUint64(key []byte) (uint64, error) {
	var value uint64
	ok, err := m.get(key, &value)
	if err != nil || !ok {
		return 0, err
	}
	return value, nil
}

func (m *Manager) getBig(key []byte) (*big.Int, error) {
	raw, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func (m *Manager) putBig(key []byte, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("state: refusing to store negative or nil amount")
	}
	return m.db.Put(key, value.Bytes())
}

// --- escrow state ---

// storedEvidence is the RLP shadow of escrow.Evidence.
type storedEvidence struct {
	Name string
	URL  string
}

// storedMilestone is the RLP shadow of escrow.Milestone. RLP has no signed
// integers, so timestamps are stored as uint64.
type storedMilestone struct {
	ID             string
	Description    string
	Amount         string
	Status         uint8
	Deadline       uint64
	CompletedAt    uint64
	DisputeReason  string
	DisputeFiledBy [20]byte
	CompletionNote string
	Evidence       []storedEvidence
}

// storedEscrow is the RLP shadow of escrow.Escrow.
type storedEscrow struct {
	ID               string
	Creator          [20]byte
	Counterparty     [20]byte
	CounterpartyType string
	Title            string
	Description      string
	TotalAmount      string
	Status           uint8
	CreatedAt        uint64
	Milestones       []storedMilestone
	TransactionHash  string
}

func toStoredEscrow(esc *escrow.Escrow) storedEscrow {
	stored := storedEscrow{
		ID:               esc.ID,
		Creator:          esc.Creator,
		Counterparty:     esc.Counterparty,
		CounterpartyType: esc.CounterpartyType,
		Title:            esc.Title,
		Description:      esc.Description,
		TotalAmount:      esc.TotalAmount,
		Status:           uint8(esc.Status),
		CreatedAt:        uint64(esc.CreatedAt),
		TransactionHash:  esc.TransactionHash,
	}
	for _, m := range esc.Milestones {
		sm := storedMilestone{
			ID:             m.ID,
			Description:    m.Description,
			Amount:         m.Amount,
			Status:         uint8(m.Status),
			Deadline:       uint64(m.Deadline),
			CompletedAt:    uint64(m.CompletedAt),
			DisputeReason:  m.DisputeReason,
			DisputeFiledBy: m.DisputeFiledBy,
			CompletionNote: m.CompletionNote,
		}
		for _, ev := range m.Evidence {
			sm.Evidence = append(sm.Evidence, storedEvidence{Name: ev.Name, URL: ev.URL})
		}
		stored.Milestones = append(stored.Milestones, sm)
	}
	return stored
}

func fromStoredEscrow(stored storedEscrow) *escrow.Escrow {
	esc := &escrow.Escrow{
		ID:               stored.ID,
		Creator:          stored.Creator,
		Counterparty:     stored.Counterparty,
		CounterpartyType: stored.CounterpartyType,
		Title:            stored.Title,
		Description:      stored.Description,
		TotalAmount:      stored.TotalAmount,
		Status:           escrow.EscrowStatus(stored.Status),
		CreatedAt:        int64(stored.CreatedAt),
		TransactionHash:  stored.TransactionHash,
	}
	for _, sm := range stored.Milestones {
		m := &escrow.Milestone{
			ID:             sm.ID,
			Description:    sm.Description,
			Amount:         sm.Amount,
			Status:         escrow.MilestoneStatus(sm.Status),
			Deadline:       int64(sm.Deadline),
			CompletedAt:    int64(sm.CompletedAt),
			DisputeReason:  sm.DisputeReason,
			DisputeFiledBy: sm.DisputeFiledBy,
			CompletionNote: sm.CompletionNote,
		}
		for _, ev := range sm.Evidence {
			m.Evidence = append(m.Evidence, escrow.Evidence{Name: ev.Name, URL: ev.URL})
		}
		esc.Milestones = append(esc.Milestones, m)
	}
	return esc
}

// EscrowPut persists an escrow record after shape validation.
func (m *Manager) EscrowPut(esc *escrow.Escrow) error {
	clean, err := escrow.SanitizeEscrow(esc)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	key := hashKey([]byte(escrowPrefix), []byte(clean.ID))
	return m.put(key, toStoredEscrow(clean))
}

// EscrowGet loads an escrow record by identifier.
func (m *Manager) EscrowGet(id string) (*escrow.Escrow, bool, error) {
	key := hashKey([]byte(escrowPrefix), []byte(id))
	var stored storedEscrow
	ok, err := m.get(key, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return fromStoredEscrow(stored), true, nil
}

// EscrowNextID increments and returns the escrow sequence counter.
func (m *Manager) EscrowNextID() (uint64, error) {
	key := hashKey([]byte(escrowCounterKey))
	current, err := m.getUint64(key)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := m.put(key, next); err != nil {
		return 0, err
	}
	return next, nil
}

// PartyEscrowsAppend adds an escrow id to the party's reverse index,
// preserving insertion order and skipping duplicates.
func (m *Manager) PartyEscrowsAppend(addr [20]byte, id string) error {
	key := hashKey([]byte(escrowPartyPrefix), addr[:])
	var ids []string
	if _, err := m.get(key, &ids); err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return m.put(key, append(ids, id))
}

// PartyEscrows returns the escrow ids indexed for the address.
func (m *Manager) PartyEscrows(addr [20]byte) ([]string, error) {
	key := hashKey([]byte(escrowPartyPrefix), addr[:])
	var ids []string
	if _, err := m.get(key, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// DepositGet returns the cumulative confirmed deposit for an escrow.
func (m *Manager) DepositGet(id string) (*big.Int, error) {
	return m.getBig(hashKey([]byte(escrowDepositPrefix), []byte(id)))
}

// DepositPut stores the cumulative confirmed deposit for an escrow.
func (m *Manager) DepositPut(id string, amount *big.Int) error {
	return m.putBig(hashKey([]byte(escrowDepositPrefix), []byte(id)), amount)
}

// TotalVolume returns the cumulative released amount across all escrows.
func (m *Manager) TotalVolume() (*big.Int, error) {
	return m.getBig(hashKey([]byte(escrowVolumeKey)))
}

// SetTotalVolume stores the cumulative released amount.
func (m *Manager) SetTotalVolume(v *big.Int) error {
	return m.putBig(hashKey([]byte(escrowVolumeKey)), v)
}

// --- multisig state ---

// Action kind discriminants for the stored union.
const (
	storedActionSetFee uint8 = iota + 1
	storedActionSetTokenAddress
	storedActionSetTokenDecimals
	storedActionAddSigner
	storedActionRemoveSigner
	storedActionSetThreshold
	storedActionPause
	storedActionUnpause
	storedActionEmergencyWithdraw
)

// storedAction flattens the ProposalAction union into one struct with a kind
// discriminant; unused fields stay zero.
type storedAction struct {
	Kind    uint8
	Address [20]byte
	Amount  string
	Value   uint64
}

func toStoredAction(action multisig.ProposalAction) (storedAction, error) {
	switch a := action.(type) {
	case multisig.SetFee:
		return storedAction{Kind: storedActionSetFee, Value: uint64(a.FeeBps)}, nil
	case multisig.SetTokenAddress:
		return storedAction{Kind: storedActionSetTokenAddress, Address: a.Address}, nil
	case multisig.SetTokenDecimals:
		return storedAction{Kind: storedActionSetTokenDecimals, Value: uint64(a.Decimals)}, nil
	case multisig.AddSigner:
		return storedAction{Kind: storedActionAddSigner, Address: a.Signer}, nil
	case multisig.RemoveSigner:
		return storedAction{Kind: storedActionRemoveSigner, Address: a.Signer}, nil
	case multisig.SetThreshold:
		return storedAction{Kind: storedActionSetThreshold, Value: uint64(a.Threshold)}, nil
	case multisig.Pause:
		return storedAction{Kind: storedActionPause}, nil
	case multisig.Unpause:
		return storedAction{Kind: storedActionUnpause}, nil
	case multisig.EmergencyWithdraw:
		return storedAction{Kind: storedActionEmergencyWithdraw, Address: a.Recipient, Amount: a.Amount}, nil
	default:
		return storedAction{}, fmt.Errorf("state: unknown proposal action %T", action)
	}
}

func fromStoredAction(stored storedAction) (multisig.ProposalAction, error) {
	switch stored.Kind {
	case storedActionSetFee:
		return multisig.SetFee{FeeBps: uint32(stored.Value)}, nil
	case storedActionSetTokenAddress:
		return multisig.SetTokenAddress{Address: stored.Address}, nil
	case storedActionSetTokenDecimals:
		return multisig.SetTokenDecimals{Decimals: uint8(stored.Value)}, nil
	case storedActionAddSigner:
		return multisig.AddSigner{Signer: stored.Address}, nil
	case storedActionRemoveSigner:
		return multisig.RemoveSigner{Signer: stored.Address}, nil
	case storedActionSetThreshold:
		return multisig.SetThreshold{Threshold: uint32(stored.Value)}, nil
	case storedActionPause:
		return multisig.Pause{}, nil
	case storedActionUnpause:
		return multisig.Unpause{}, nil
	case storedActionEmergencyWithdraw:
		return multisig.EmergencyWithdraw{Recipient: stored.Address, Amount: stored.Amount}, nil
	default:
		return nil, fmt.Errorf("state: unknown stored action kind %d", stored.Kind)
	}
}

// storedProposal is the RLP shadow of multisig.AdminProposal.
type storedProposal struct {
	ID         uint64
	Action     storedAction
	CreatedBy  [20]byte
	CreatedAt  uint64
	Approvals  [][20]byte
	Executed   bool
	ExecutedAt uint64
}

// storedConfig is the RLP shadow of multisig.Config.
type storedConfig struct {
	Owner         [20]byte
	FeeBps        uint64
	FeeAccount    [20]byte
	Token         [20]byte
	TokenDecimals uint8
	Paused        bool
	Signers       [][20]byte
	Threshold     uint64
}

// MultisigConfigGet loads the governance configuration.
func (m *Manager) MultisigConfigGet() (*multisig.Config, bool, error) {
	key := hashKey([]byte(multisigConfigKey))
	var stored storedConfig
	ok, err := m.get(key, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &multisig.Config{
		Owner:         stored.Owner,
		FeeBps:        uint32(stored.FeeBps),
		FeeAccount:    stored.FeeAccount,
		Token:         stored.Token,
		TokenDecimals: stored.TokenDecimals,
		Paused:        stored.Paused,
		Signers:       stored.Signers,
		Threshold:     uint32(stored.Threshold),
	}, true, nil
}

// MultisigConfigPut persists the governance configuration.
func (m *Manager) MultisigConfigPut(cfg *multisig.Config) error {
	if cfg == nil {
		return fmt.Errorf("state: nil multisig config")
	}
	key := hashKey([]byte(multisigConfigKey))
	return m.put(key, storedConfig{
		Owner:         cfg.Owner,
		FeeBps:        uint64(cfg.FeeBps),
		FeeAccount:    cfg.FeeAccount,
		Token:         cfg.Token,
		TokenDecimals: cfg.TokenDecimals,
		Paused:        cfg.Paused,
		Signers:       cfg.Signers,
		Threshold:     uint64(cfg.Threshold),
	})
}

// ProposalGet loads a proposal by sequence number.
func (m *Manager) ProposalGet(id uint64) (*multisig.AdminProposal, bool, error) {
	key := hashKey([]byte(proposalPrefix), rlp.AppendUint64(nil, id))
	var stored storedProposal
	ok, err := m.get(key, &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	action, err := fromStoredAction(stored.Action)
	if err != nil {
		return nil, false, err
	}
	return &multisig.AdminProposal{
		ID:         stored.ID,
		Action:     action,
		CreatedBy:  stored.CreatedBy,
		CreatedAt:  int64(stored.CreatedAt),
		Approvals:  stored.Approvals,
		Executed:   stored.Executed,
		ExecutedAt: int64(stored.ExecutedAt),
	}, true, nil
}

// ProposalPut persists a proposal record.
func (m *Manager) ProposalPut(p *multisig.AdminProposal) error {
	if p == nil {
		return fmt.Errorf("state: nil proposal")
	}
	action, err := toStoredAction(p.Action)
	if err != nil {
		return err
	}
	key := hashKey([]byte(proposalPrefix), rlp.AppendUint64(nil, p.ID))
	return m.put(key, storedProposal{
		ID:         p.ID,
		Action:     action,
		CreatedBy:  p.CreatedBy,
		CreatedAt:  uint64(p.CreatedAt),
		Approvals:  p.Approvals,
		Executed:   p.Executed,
		ExecutedAt: uint64(p.ExecutedAt),
	})
}

// ProposalCounter returns the last issued proposal sequence number.
func (m *Manager) ProposalCounter() (uint64, error) {
	return m.getUint64(hashKey([]byte(proposalCounterKey)))
}

// SetProposalCounter stores the proposal sequence number.
func (m *Manager) SetProposalCounter(v uint64) error {
	return m.put(hashKey([]byte(proposalCounterKey)), v)
}

// --- token state ---

// TokenBalance returns the token balance for an address.
func (m *Manager) TokenBalance(addr [20]byte) (*big.Int, error) {
	return m.getBig(hashKey([]byte(tokenBalancePrefix), addr[:]))
}

// SetTokenBalance stores the token balance for an address.
func (m *Manager) SetTokenBalance(addr [20]byte, amount *big.Int) error {
	return m.putBig(hashKey([]byte(tokenBalancePrefix), addr[:]), amount)
}

// TokenAllowance returns the allowance between owner and spender.
func (m *Manager) TokenAllowance(owner, spender [20]byte) (*big.Int, error) {
	return m.getBig(hashKey([]byte(tokenAllowancePrefix), owner[:], spender[:]))
}

// SetTokenAllowance stores the allowance between owner and spender.
func (m *Manager) SetTokenAllowance(owner, spender [20]byte, amount *big.Int) error {
	return m.putBig(hashKey([]byte(tokenAllowancePrefix), owner[:], spender[:]), amount)
}
