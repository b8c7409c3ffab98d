package escrow

import "errors"

// The error taxonomy is closed: every operation fails with one of these
// sentinels (possibly wrapped with detail) so callers can map failures onto
// stable codes.
var (
	ErrUnauthorized         = errors.New("escrow: unauthorized")
	ErrEscrowNotFound       = errors.New("escrow: escrow not found")
	ErrMilestoneNotFound    = errors.New("escrow: milestone not found")
	ErrInvalidStatus        = errors.New("escrow: invalid milestone status")
	ErrInvalidEscrowStatus  = errors.New("escrow: invalid escrow status")
	ErrPaused               = errors.New("escrow: contract paused")
	ErrInsufficientBalance  = errors.New("escrow: insufficient balance")
	ErrTokenTransferFailed  = errors.New("escrow: token transfer failed")
	ErrInvalidAmount        = errors.New("escrow: invalid amount")
	ErrFeeTooHigh           = errors.New("escrow: fee too high")
	ErrArithmeticOverflow   = errors.New("escrow: arithmetic overflow")
	ErrStorageLimitExceeded = errors.New("escrow: storage limit exceeded")
)
