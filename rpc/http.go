package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clearhold/native/escrow"
	"clearhold/native/multisig"
	"clearhold/native/token"
	"clearhold/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeNotFound       = -32022
	codeForbidden      = -32023
	codeConflict       = -32024
	codePaused         = -32026
	codeInsufficient   = -32027
)

// Server exposes the escrow ledger, the token ledger and governance over
// JSON-RPC.
type Server struct {
	escrow   *escrow.Engine
	multisig *multisig.Engine
	ledger   *token.Ledger
	logger   *slog.Logger
	metrics  *observability.LedgerMetrics
}

// NewServer wires the engines into an RPC server.
func NewServer(escrowEngine *escrow.Engine, multisigEngine *multisig.Engine, ledger *token.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		escrow:   escrowEngine,
		multisig: multisigEngine,
		ledger:   ledger,
		logger:   logger,
		metrics:  observability.LedgerMetricsRegistry(),
	}
}

// Start serves JSON-RPC on addr until the listener fails. The Prometheus
// scrape endpoint shares the listener under /metrics.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps engine sentinel errors onto RPC status and error
// codes so clients get stable codes regardless of which engine produced the
// failure.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, escrow.ErrEscrowNotFound),
		errors.Is(err, escrow.ErrMilestoneNotFound),
		errors.Is(err, multisig.ErrProposalNotFound):
		writeError(w, http.StatusNotFound, id, codeNotFound, err.Error(), nil)
	case errors.Is(err, escrow.ErrUnauthorized),
		errors.Is(err, multisig.ErrUnauthorized):
		writeError(w, http.StatusForbidden, id, codeForbidden, err.Error(), nil)
	case errors.Is(err, escrow.ErrPaused):
		writeError(w, http.StatusConflict, id, codePaused, err.Error(), nil)
	case errors.Is(err, escrow.ErrInvalidStatus),
		errors.Is(err, escrow.ErrInvalidEscrowStatus),
		errors.Is(err, multisig.ErrInvalidStatus):
		writeError(w, http.StatusConflict, id, codeConflict, err.Error(), nil)
	case errors.Is(err, escrow.ErrInsufficientBalance),
		errors.Is(err, multisig.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		writeError(w, http.StatusConflict, id, codeInsufficient, err.Error(), nil)
	case errors.Is(err, escrow.ErrInvalidAmount),
		errors.Is(err, escrow.ErrFeeTooHigh),
		errors.Is(err, escrow.ErrStorageLimitExceeded),
		errors.Is(err, multisig.ErrInvalidAmount),
		errors.Is(err, multisig.ErrFeeTooHigh),
		errors.Is(err, token.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
	}
}

type handlerFunc func(w http.ResponseWriter, req *RPCRequest)

// handle is the main request handler that routes to method handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	handler, ok := s.routes()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method), nil)
		return
	}

	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	handler(rec, req)
	outcome := "ok"
	if rec.status >= http.StatusBadRequest {
		outcome = "error"
	}
	s.metrics.ObserveRPC(req.Method, outcome, time.Since(start).Seconds())
	s.logger.Debug("rpc call", "method", req.Method, "status", rec.status, "durationMs", time.Since(start).Milliseconds())
}

func (s *Server) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		"escrow_create":                 s.handleEscrowCreate,
		"escrow_get":                    s.handleEscrowGet,
		"escrow_getMilestone":           s.handleEscrowGetMilestone,
		"escrow_list":                   s.handleEscrowList,
		"escrow_updateStatus":           s.handleEscrowUpdateStatus,
		"escrow_updateMilestoneStatus":  s.handleEscrowUpdateMilestoneStatus,
		"escrow_notifyDeposit":          s.handleEscrowNotifyDeposit,
		"escrow_depositBalance":         s.handleEscrowDepositBalance,
		"escrow_releaseMilestone":       s.handleEscrowReleaseMilestone,
		"escrow_completeMilestone":      s.handleEscrowCompleteMilestone,
		"escrow_completeMilestoneTask":  s.handleEscrowCompleteMilestoneTask,
		"escrow_disputeMilestone":       s.handleEscrowDisputeMilestone,
		"escrow_notifyCounterparty":     s.handleEscrowNotifyCounterparty,
		"escrow_checkTransactionStatus": s.handleEscrowCheckTransactionStatus,
		"escrow_totalVolume":            s.handleEscrowTotalVolume,
		"token_balanceOf":               s.handleTokenBalanceOf,
		"multisig_submitProposal":       s.handleMultisigSubmit,
		"multisig_approveProposal":      s.handleMultisigApprove,
		"multisig_executeProposal":      s.handleMultisigExecute,
		"multisig_getProposal":          s.handleMultisigGetProposal,
		"multisig_getConfig":            s.handleMultisigGetConfig,
		"multisig_isSigner":             s.handleMultisigIsSigner,
		"multisig_proposalCount":        s.handleMultisigProposalCount,
		"multisig_contractInfo":         s.handleMultisigContractInfo,
		"multisig_tokenConfig":          s.handleMultisigTokenConfig,
		"admin_setFee":                  s.handleLegacyAdmin,
		"admin_setTokenAddress":         s.handleLegacyAdmin,
		"admin_setTokenDecimals":        s.handleLegacyAdmin,
		"admin_pause":                   s.handleLegacyAdmin,
		"admin_unpause":                 s.handleLegacyAdmin,
	}
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func singleParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object, got %d", len(req.Params))
	}
	return json.Unmarshal(req.Params[0], out)
}
