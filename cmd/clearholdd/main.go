package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"clearhold/config"
	"clearhold/core/events"
	"clearhold/crypto"
	"clearhold/native/escrow"
	"clearhold/native/multisig"
	"clearhold/native/token"
	"clearhold/observability"
	"clearhold/observability/logging"
	"clearhold/rpc"
	"clearhold/state"
	"clearhold/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("CLEARHOLD_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("clearholdd", env, logging.ParseLevel(cfg.LogLevel))

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)

	owner, err := resolveAddress(cfg.Owner, "Owner", logger)
	if err != nil {
		os.Exit(1)
	}
	feeAccount, err := resolveAddress(cfg.FeeAccount, "FeeAccount", logger)
	if err != nil {
		os.Exit(1)
	}
	tokenAddr, err := resolveAddress(cfg.TokenAddress, "TokenAddress", logger)
	if err != nil {
		os.Exit(1)
	}
	custody, err := resolveAddress(cfg.CustodyAccount, "CustodyAccount", logger)
	if err != nil {
		os.Exit(1)
	}

	ledger := token.NewLedger(manager)
	custodyAccount := token.NewCustodyAccount(ledger, custody)

	gov := multisig.NewEngine()
	gov.SetState(manager)
	gov.SetTokenLedger(custodyAccount)
	gov.SetCustodyAccount(custody)
	if err := gov.Bootstrap(owner, feeAccount, tokenAddr); err != nil {
		logger.Error("Failed to bootstrap governance", slog.Any("error", err))
		os.Exit(1)
	}
	if err := applyGenesisSigners(gov, owner, cfg, logger); err != nil {
		os.Exit(1)
	}

	recorder := events.NewRecorder()
	emitter := observability.NewEmitterHook(recorder, observability.LedgerMetricsRegistry())
	gov.SetEmitter(emitter)

	engine := escrow.NewEngine()
	engine.SetState(manager)
	engine.SetTokenLedger(custodyAccount)
	engine.SetConfigSource(gov)
	engine.SetCustodyAccount(custody)
	engine.SetEnforceFullSplit(cfg.EnforceMilestoneSplit)
	engine.SetEmitter(emitter)

	logger.Info("ledger initialised",
		"network", cfg.NetworkName,
		"dataDir", cfg.DataDir,
		"custody", crypto.EncodeAddress(custody),
	)

	server := rpc.NewServer(engine, gov, ledger, logger)
	if err := server.Start(cfg.RPCAddress); err != nil {
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func resolveAddress(value, field string, logger *slog.Logger) ([20]byte, error) {
	addr, err := config.DecodedAddress(value)
	if err != nil {
		logger.Error("Invalid address in config", "field", field, slog.Any("error", err))
		return addr, err
	}
	return addr, nil
}

// applyGenesisSigners extends the bootstrap signer set through governance
// proposals so the recorded history matches any later change. Runs only when
// the owner is still the sole signer.
func applyGenesisSigners(gov *multisig.Engine, owner [20]byte, cfg *config.Config, logger *slog.Logger) error {
	current, err := gov.Config()
	if err != nil {
		logger.Error("Failed to read governance config", slog.Any("error", err))
		return err
	}
	if len(current.Signers) != 1 || len(cfg.GenesisSigners) == 0 {
		return nil
	}
	for _, encoded := range cfg.GenesisSigners {
		signer, err := config.DecodedAddress(encoded)
		if err != nil {
			logger.Error("Invalid genesis signer", "signer", encoded, slog.Any("error", err))
			return err
		}
		if signer == owner {
			continue
		}
		if _, err := gov.Submit(owner, multisig.AddSigner{Signer: signer}); err != nil {
			logger.Error("Failed to add genesis signer", "signer", encoded, slog.Any("error", err))
			return err
		}
	}
	if cfg.SignatureThreshold > 1 {
		if _, err := gov.Submit(owner, multisig.SetThreshold{Threshold: cfg.SignatureThreshold}); err != nil {
			logger.Error("Failed to set signature threshold", slog.Any("error", err))
			return err
		}
	}
	return nil
}
