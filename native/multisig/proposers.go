package multisig

// Convenience proposers. Each wraps Submit with the matching action so
// callers do not build the union by hand.

// ProposeSetFee submits a fee change in basis points.
func (e *Engine) ProposeSetFee(caller [20]byte, feeBps uint32) (*AdminProposal, error) {
	return e.Submit(caller, SetFee{FeeBps: feeBps})
}

// ProposeSetTokenAddress submits a settlement-token change.
func (e *Engine) ProposeSetTokenAddress(caller, address [20]byte) (*AdminProposal, error) {
	return e.Submit(caller, SetTokenAddress{Address: address})
}

// ProposeSetTokenDecimals submits a token-precision change.
func (e *Engine) ProposeSetTokenDecimals(caller [20]byte, decimals uint8) (*AdminProposal, error) {
	return e.Submit(caller, SetTokenDecimals{Decimals: decimals})
}

// ProposeAddSigner submits a signer-set extension.
func (e *Engine) ProposeAddSigner(caller, signer [20]byte) (*AdminProposal, error) {
	return e.Submit(caller, AddSigner{Signer: signer})
}

// ProposeRemoveSigner submits a signer-set reduction.
func (e *Engine) ProposeRemoveSigner(caller, signer [20]byte) (*AdminProposal, error) {
	return e.Submit(caller, RemoveSigner{Signer: signer})
}

// ProposeSetThreshold submits a quorum change.
func (e *Engine) ProposeSetThreshold(caller [20]byte, threshold uint32) (*AdminProposal, error) {
	return e.Submit(caller, SetThreshold{Threshold: threshold})
}

// ProposePause submits a global pause.
func (e *Engine) ProposePause(caller [20]byte) (*AdminProposal, error) {
	return e.Submit(caller, Pause{})
}

// ProposeUnpause submits a global unpause.
func (e *Engine) ProposeUnpause(caller [20]byte) (*AdminProposal, error) {
	return e.Submit(caller, Unpause{})
}

// ProposeEmergencyWithdraw submits a custody recovery transfer.
func (e *Engine) ProposeEmergencyWithdraw(caller, recipient [20]byte, amount string) (*AdminProposal, error) {
	return e.Submit(caller, EmergencyWithdraw{Recipient: recipient, Amount: amount})
}
