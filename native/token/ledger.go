package token

import (
	"errors"
	"math/big"
)

var (
	// ErrInsufficientBalance marks a debit above the account balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance marks a delegated debit above the approved
	// allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrInvalidAmount marks a nil or negative amount.
	ErrInvalidAmount = errors.New("token: invalid amount")

	errNilState = errors.New("token ledger: state not configured")
)

// ledgerState is the persistence surface for balances and allowances.
type ledgerState interface {
	TokenBalance(addr [20]byte) (*big.Int, error)
	SetTokenBalance(addr [20]byte, amount *big.Int) error
	TokenAllowance(owner, spender [20]byte) (*big.Int, error)
	SetTokenAllowance(owner, spender [20]byte, amount *big.Int) error
}

// Ledger is a minimal fungible-token ledger backing the escrow custody
// account. It mirrors the ERC-20 balance and allowance model without the
// contract surface.
type Ledger struct {
	state ledgerState
}

// NewLedger creates a ledger over the given state backend.
func NewLedger(state ledgerState) *Ledger {
	return &Ledger{state: state}
}

// SetState replaces the state backend.
func (l *Ledger) SetState(state ledgerState) { l.state = state }

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// BalanceOf returns the balance for the address.
func (l *Ledger) BalanceOf(addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.TokenBalance(addr)
}

// Mint credits newly issued units to the address. Used at genesis and by
// deposit bridging.
func (l *Ledger) Mint(addr [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	balance, err := l.state.TokenBalance(addr)
	if err != nil {
		return err
	}
	return l.state.SetTokenBalance(addr, new(big.Int).Add(balance, amount))
}

// Transfer moves units between accounts.
func (l *Ledger) Transfer(from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	fromBalance, err := l.state.TokenBalance(from)
	if err != nil {
		return err
	}
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBalance, err := l.state.TokenBalance(to)
	if err != nil {
		return err
	}
	if err := l.state.SetTokenBalance(from, new(big.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.state.SetTokenBalance(to, new(big.Int).Add(toBalance, amount))
}

// Approve sets the allowance a spender may move on the owner's behalf.
func (l *Ledger) Approve(owner, spender [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.state.SetTokenAllowance(owner, spender, amount)
}

// Allowance returns the remaining delegated amount.
func (l *Ledger) Allowance(owner, spender [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	return l.state.TokenAllowance(owner, spender)
}

// TransferFrom moves units using a previously approved allowance.
func (l *Ledger) TransferFrom(spender, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if err := checkAmount(amount); err != nil {
		return err
	}
	allowance, err := l.state.TokenAllowance(from, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(from, to, amount); err != nil {
		return err
	}
	return l.state.SetTokenAllowance(from, spender, new(big.Int).Sub(allowance, amount))
}
