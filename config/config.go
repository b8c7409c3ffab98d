package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"clearhold/crypto"
)

// Config is the node configuration, decoded from a TOML file.
type Config struct {
	RPCAddress  string `toml:"RPCAddress"`
	DataDir     string `toml:"DataDir"`
	NetworkName string `toml:"NetworkName"`
	Environment string `toml:"Environment"`
	LogLevel    string `toml:"LogLevel"`

	// Governance bootstrap. Applied only on first start; afterwards the
	// persisted on-disk state is authoritative.
	Owner              string   `toml:"Owner"`
	FeeAccount         string   `toml:"FeeAccount"`
	TokenAddress       string   `toml:"TokenAddress"`
	CustodyAccount     string   `toml:"CustodyAccount"`
	GenesisSigners     []string `toml:"GenesisSigners"`
	SignatureThreshold uint32   `toml:"SignatureThreshold"`

	// Optional escrow policy knobs.
	EnforceMilestoneSplit bool `toml:"EnforceMilestoneSplit"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./clearhold-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "clearhold-local"
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if cfg.GenesisSigners == nil {
		cfg.GenesisSigners = []string{}
	}
	if cfg.SignatureThreshold == 0 {
		cfg.SignatureThreshold = 1
	}
}

func validate(cfg *Config) error {
	for field, value := range map[string]string{
		"Owner":          cfg.Owner,
		"FeeAccount":     cfg.FeeAccount,
		"TokenAddress":   cfg.TokenAddress,
		"CustodyAccount": cfg.CustodyAccount,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if _, err := crypto.DecodeAddress(value); err != nil {
			return fmt.Errorf("%s: %w", field, err)
		}
	}
	for _, signer := range cfg.GenesisSigners {
		if _, err := crypto.DecodeAddress(signer); err != nil {
			return fmt.Errorf("GenesisSigners: %w", err)
		}
	}
	if int(cfg.SignatureThreshold) > len(cfg.GenesisSigners) && len(cfg.GenesisSigners) > 0 {
		return fmt.Errorf("SignatureThreshold %d exceeds %d genesis signers", cfg.SignatureThreshold, len(cfg.GenesisSigners))
	}
	return nil
}

// DecodedAddress parses a bech32 address field, returning the zero address
// for an empty value.
func DecodedAddress(value string) ([20]byte, error) {
	var out [20]byte
	if strings.TrimSpace(value) == "" {
		return out, nil
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
