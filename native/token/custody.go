package token

import "math/big"

// CustodyAccount binds the ledger to a single holding address so escrow and
// governance engines can spend from custody without naming it on every call.
type CustodyAccount struct {
	ledger  *Ledger
	custody [20]byte
}

// NewCustodyAccount creates a custody-bound view of the ledger.
func NewCustodyAccount(ledger *Ledger, custody [20]byte) *CustodyAccount {
	return &CustodyAccount{ledger: ledger, custody: custody}
}

// Address returns the custody address.
func (c *CustodyAccount) Address() [20]byte { return c.custody }

// BalanceOf reports the balance of an arbitrary address.
func (c *CustodyAccount) BalanceOf(addr [20]byte) (*big.Int, error) {
	return c.ledger.BalanceOf(addr)
}

// Transfer moves funds out of custody. The memo is accepted for interface
// compatibility; the ledger does not record it.
func (c *CustodyAccount) Transfer(to [20]byte, amount *big.Int, memo []byte) error {
	return c.ledger.Transfer(c.custody, to, amount)
}

// TransferFrom moves funds into custody using the depositor's allowance.
func (c *CustodyAccount) TransferFrom(from, to [20]byte, amount *big.Int, memo []byte) error {
	return c.ledger.TransferFrom(c.custody, from, to, amount)
}

// Allowance reports the delegated amount between two addresses.
func (c *CustodyAccount) Allowance(owner, spender [20]byte) (*big.Int, error) {
	return c.ledger.Allowance(owner, spender)
}
