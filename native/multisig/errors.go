package multisig

import "errors"

var (
	// ErrUnauthorized marks a caller lacking signer rights or a quorum that
	// has not been reached.
	ErrUnauthorized = errors.New("multisig: unauthorized")
	// ErrProposalNotFound marks an unknown proposal identifier.
	ErrProposalNotFound = errors.New("multisig: proposal not found")
	// ErrInvalidStatus marks duplicate approvals, re-execution attempts and
	// action parameters the current configuration cannot accept.
	ErrInvalidStatus = errors.New("multisig: invalid status")
	// ErrFeeTooHigh marks a fee proposal above 10000 basis points.
	ErrFeeTooHigh = errors.New("multisig: fee exceeds 10000 basis points")
	// ErrInsufficientBalance marks an emergency withdrawal above the custody
	// balance.
	ErrInsufficientBalance = errors.New("multisig: insufficient custody balance")
	// ErrInvalidAmount marks an unparseable withdrawal amount.
	ErrInvalidAmount = errors.New("multisig: invalid amount")
	// ErrTokenTransferFailed marks a withdrawal whose token transfer failed
	// after the proposal was committed as executed. The custody move needs
	// operator reconciliation; the proposal is not retryable.
	ErrTokenTransferFailed = errors.New("multisig: token transfer failed")
)
