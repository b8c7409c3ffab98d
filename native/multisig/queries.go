package multisig

// ContractInfo is the operator-facing configuration summary.
type ContractInfo struct {
	Owner      [20]byte
	FeeBps     uint32
	FeeAccount [20]byte
	Paused     bool
}

// TokenConfig is the settlement-token summary.
type TokenConfig struct {
	Token    [20]byte
	Decimals uint8
	FeeBps   uint32
}

// Signers returns a copy of the current signer set.
func (e *Engine) Signers() ([][20]byte, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return nil, err
	}
	out := make([][20]byte, len(cfg.Signers))
	copy(out, cfg.Signers)
	return out, nil
}

// Threshold returns the current approval quorum.
func (e *Engine) Threshold() (uint32, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return 0, err
	}
	return cfg.Threshold, nil
}

// Paused reports whether escrow mutations are halted.
func (e *Engine) Paused() (bool, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return false, err
	}
	return cfg.Paused, nil
}

// ContractInfo returns the fee and ownership summary.
func (e *Engine) ContractInfo() (ContractInfo, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return ContractInfo{}, err
	}
	return ContractInfo{
		Owner:      cfg.Owner,
		FeeBps:     cfg.FeeBps,
		FeeAccount: cfg.FeeAccount,
		Paused:     cfg.Paused,
	}, nil
}

// TokenConfig returns the settlement-token summary.
func (e *Engine) TokenConfig() (TokenConfig, error) {
	cfg, err := e.loadConfig()
	if err != nil {
		return TokenConfig{}, err
	}
	return TokenConfig{
		Token:    cfg.Token,
		Decimals: cfg.TokenDecimals,
		FeeBps:   cfg.FeeBps,
	}, nil
}
