package rpc

import (
	"fmt"
	"math/big"
	"net/http"

	"clearhold/crypto"
	"clearhold/native/escrow"
)

type escrowCreateParams struct {
	Caller           string                 `json:"caller"`
	Counterparty     string                 `json:"counterparty"`
	CounterpartyType string                 `json:"counterpartyType"`
	Status           string                 `json:"status"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	TotalAmount      string                 `json:"totalAmount"`
	Milestones       []milestoneInputParams `json:"milestones"`
	TransactionHash  string                 `json:"transactionHash,omitempty"`
}

type milestoneInputParams struct {
	ID           string   `json:"id"`
	Description  string   `json:"description"`
	Amount       string   `json:"amount"`
	Status       string   `json:"status"`
	Deadline     int64    `json:"deadline,omitempty"`
	CompletedAt  int64    `json:"completedAt,omitempty"`
	EvidenceURLs []string `json:"evidenceUrls,omitempty"`
}

type escrowIDParams struct {
	ID string `json:"id"`
}

type escrowCallerParams struct {
	Caller string `json:"caller"`
}

type escrowMilestoneParams struct {
	Caller      string `json:"caller"`
	ID          string `json:"id"`
	MilestoneID string `json:"milestoneId"`
}

type escrowStatusParams struct {
	Caller          string `json:"caller"`
	ID              string `json:"id"`
	Status          string `json:"status"`
	TransactionHash string `json:"transactionHash,omitempty"`
}

type escrowMilestoneStatusParams struct {
	Caller      string `json:"caller"`
	ID          string `json:"id"`
	MilestoneID string `json:"milestoneId"`
	Status      string `json:"status"`
}

type escrowDepositParams struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

type escrowTaskParams struct {
	Caller         string         `json:"caller"`
	ID             string         `json:"id"`
	MilestoneID    string         `json:"milestoneId"`
	CompletionNote string         `json:"completionNote,omitempty"`
	Evidence       []evidenceJSON `json:"evidence,omitempty"`
}

type escrowDisputeParams struct {
	Caller      string `json:"caller"`
	ID          string `json:"id"`
	MilestoneID string `json:"milestoneId"`
	Reason      string `json:"reason"`
}

type escrowNotifyParams struct {
	Caller    string `json:"caller"`
	ID        string `json:"id"`
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
}

type escrowTxStatusParams struct {
	TransactionHash string `json:"transactionHash"`
}

type evidenceJSON struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

type milestoneJSON struct {
	ID             string         `json:"id"`
	Description    string         `json:"description"`
	Amount         string         `json:"amount"`
	Status         string         `json:"status"`
	Deadline       int64          `json:"deadline,omitempty"`
	CompletedAt    int64          `json:"completedAt,omitempty"`
	DisputeReason  string         `json:"disputeReason,omitempty"`
	DisputeFiledBy string         `json:"disputeFiledBy,omitempty"`
	CompletionNote string         `json:"completionNote,omitempty"`
	Evidence       []evidenceJSON `json:"evidence,omitempty"`
}

type escrowJSON struct {
	ID               string          `json:"id"`
	Creator          string          `json:"creator"`
	Counterparty     string          `json:"counterparty"`
	CounterpartyType string          `json:"counterpartyType"`
	Title            string          `json:"title"`
	Description      string          `json:"description"`
	TotalAmount      string          `json:"totalAmount"`
	Status           string          `json:"status"`
	CreatedAt        int64           `json:"createdAt"`
	Milestones       []milestoneJSON `json:"milestones"`
	TransactionHash  string          `json:"transactionHash,omitempty"`
}

type releaseReceiptJSON struct {
	TransactionHash string `json:"transactionHash"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	Receiver        string `json:"receiver"`
	Payer           string `json:"payer"`
	Amount          string `json:"amount"`
	Fee             string `json:"fee"`
}

var zeroAddress [20]byte

func decodeCaller(value string) ([20]byte, error) {
	var out [20]byte
	if value == "" {
		return out, fmt.Errorf("caller address required")
	}
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func milestoneToJSON(m *escrow.Milestone) milestoneJSON {
	out := milestoneJSON{
		ID:             m.ID,
		Description:    m.Description,
		Amount:         m.Amount,
		Status:         m.Status.String(),
		Deadline:       m.Deadline,
		CompletedAt:    m.CompletedAt,
		DisputeReason:  m.DisputeReason,
		CompletionNote: m.CompletionNote,
	}
	if m.DisputeFiledBy != zeroAddress {
		out.DisputeFiledBy = crypto.EncodeAddress(m.DisputeFiledBy)
	}
	for _, ev := range m.Evidence {
		out.Evidence = append(out.Evidence, evidenceJSON{Name: ev.Name, URL: ev.URL})
	}
	return out
}

func escrowToJSON(esc *escrow.Escrow) escrowJSON {
	out := escrowJSON{
		ID:               esc.ID,
		Creator:          crypto.EncodeAddress(esc.Creator),
		Counterparty:     crypto.EncodeAddress(esc.Counterparty),
		CounterpartyType: esc.CounterpartyType,
		Title:            esc.Title,
		Description:      esc.Description,
		TotalAmount:      esc.TotalAmount,
		Status:           esc.Status.String(),
		CreatedAt:        esc.CreatedAt,
		Milestones:       make([]milestoneJSON, 0, len(esc.Milestones)),
		TransactionHash:  esc.TransactionHash,
	}
	for _, m := range esc.Milestones {
		out.Milestones = append(out.Milestones, milestoneToJSON(m))
	}
	return out
}

func (s *Server) handleEscrowCreate(w http.ResponseWriter, req *RPCRequest) {
	var params escrowCreateParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	counterparty, err := decodeCaller(params.Counterparty)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	input := escrow.CreateInput{
		Counterparty:     counterparty,
		CounterpartyType: params.CounterpartyType,
		Status:           params.Status,
		Title:            params.Title,
		Description:      params.Description,
		TotalAmount:      params.TotalAmount,
		TransactionHash:  params.TransactionHash,
	}
	for _, m := range params.Milestones {
		input.Milestones = append(input.Milestones, escrow.MilestoneInput{
			ID:           m.ID,
			Description:  m.Description,
			Amount:       m.Amount,
			Status:       m.Status,
			Deadline:     m.Deadline,
			CompletedAt:  m.CompletedAt,
			EvidenceURLs: m.EvidenceURLs,
		})
	}
	id, err := s.escrow.Create(caller, input)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.logger.Info("escrow created", "escrowId", id, "creator", params.Caller)
	writeResult(w, req.ID, map[string]string{"id": id})
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, req *RPCRequest) {
	var params escrowIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	esc, err := s.escrow.Get(params.ID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowGetMilestone(w http.ResponseWriter, req *RPCRequest) {
	var params escrowMilestoneParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	m, err := s.escrow.Milestone(params.ID, params.MilestoneID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, milestoneToJSON(m))
}

func (s *Server) handleEscrowList(w http.ResponseWriter, req *RPCRequest) {
	var params escrowCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	escrows, err := s.escrow.ListByParty(caller)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	out := make([]escrowJSON, 0, len(escrows))
	for _, esc := range escrows {
		out = append(out, escrowToJSON(esc))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleEscrowUpdateStatus(w http.ResponseWriter, req *RPCRequest) {
	var params escrowStatusParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	esc, err := s.escrow.UpdateStatus(caller, params.ID, params.Status, params.TransactionHash)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowUpdateMilestoneStatus(w http.ResponseWriter, req *RPCRequest) {
	var params escrowMilestoneStatusParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	esc, err := s.escrow.UpdateMilestoneStatus(caller, params.ID, params.MilestoneID, params.Status)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, escrowToJSON(esc))
}

func (s *Server) handleEscrowNotifyDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params escrowDepositParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	total, err := s.escrow.NotifyDeposit(params.ID, params.Amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"id": params.ID, "depositBalance": total.String()})
}

func (s *Server) handleEscrowDepositBalance(w http.ResponseWriter, req *RPCRequest) {
	var params escrowIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	total, err := s.escrow.DepositBalance(params.ID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"id": params.ID, "depositBalance": total.String()})
}

func (s *Server) handleEscrowReleaseMilestone(w http.ResponseWriter, req *RPCRequest) {
	var params escrowMilestoneParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.escrow.ReleaseMilestone(caller, params.ID, params.MilestoneID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	released, _ := new(big.Float).SetInt(new(big.Int).Add(receipt.Amount, receipt.Fee)).Float64()
	s.metrics.AddReleaseVolume(released)
	s.logger.Info("milestone released",
		"escrowId", params.ID,
		"milestoneId", params.MilestoneID,
		"amount", receipt.Amount.String(),
		"fee", receipt.Fee.String(),
	)
	writeResult(w, req.ID, releaseReceiptJSON{
		TransactionHash: receipt.TransactionHash,
		Status:          receipt.Status,
		Message:         receipt.Message,
		Receiver:        crypto.EncodeAddress(receipt.Receiver),
		Payer:           crypto.EncodeAddress(receipt.Payer),
		Amount:          receipt.Amount.String(),
		Fee:             receipt.Fee.String(),
	})
}

func (s *Server) handleEscrowCompleteMilestone(w http.ResponseWriter, req *RPCRequest) {
	var params escrowMilestoneParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.escrow.CompleteMilestone(caller, params.ID, params.MilestoneID); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"id": params.ID, "milestoneId": params.MilestoneID, "status": "Completed"})
}

func (s *Server) handleEscrowCompleteMilestoneTask(w http.ResponseWriter, req *RPCRequest) {
	var params escrowTaskParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	evidence := make([]escrow.Evidence, 0, len(params.Evidence))
	for _, ev := range params.Evidence {
		evidence = append(evidence, escrow.Evidence{Name: ev.Name, URL: ev.URL})
	}
	if err := s.escrow.CompleteMilestoneTask(caller, params.ID, params.MilestoneID, params.CompletionNote, evidence); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"id": params.ID, "milestoneId": params.MilestoneID, "status": "Done"})
}

func (s *Server) handleEscrowDisputeMilestone(w http.ResponseWriter, req *RPCRequest) {
	var params escrowDisputeParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.escrow.DisputeMilestone(caller, params.ID, params.MilestoneID, params.Reason)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.logger.Warn("milestone disputed", "escrowId", params.ID, "milestoneId", params.MilestoneID, "disputeId", receipt.DisputeID)
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleEscrowNotifyCounterparty(w http.ResponseWriter, req *RPCRequest) {
	var params escrowNotifyParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	recipient, err := decodeCaller(params.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := s.escrow.NotifyCounterparty(caller, params.ID, params.Type, recipient)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, receipt)
}

func (s *Server) handleEscrowCheckTransactionStatus(w http.ResponseWriter, req *RPCRequest) {
	var params escrowTxStatusParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	status, err := s.escrow.CheckTransactionStatus(params.TransactionHash)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, status)
}

func (s *Server) handleEscrowTotalVolume(w http.ResponseWriter, req *RPCRequest) {
	volume, err := s.escrow.TotalVolume()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"totalVolume": volume.String()})
}

func (s *Server) handleTokenBalanceOf(w http.ResponseWriter, req *RPCRequest) {
	var params escrowCallerParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	addr, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	balance, err := s.ledger.BalanceOf(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"address": params.Caller, "balance": balance.String()})
}
