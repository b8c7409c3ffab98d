package rpc

import (
	"fmt"
	"net/http"

	"clearhold/crypto"
	"clearhold/native/multisig"
)

type proposalSubmitParams struct {
	Caller string         `json:"caller"`
	Action proposalAction `json:"action"`
}

// proposalAction is the wire form of the governance action union. Kind picks
// the variant; the other fields apply per kind.
type proposalAction struct {
	Kind      string `json:"kind"`
	FeeBps    uint32 `json:"feeBps,omitempty"`
	Address   string `json:"address,omitempty"`
	Decimals  uint8  `json:"decimals,omitempty"`
	Threshold uint32 `json:"threshold,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

type proposalIDParams struct {
	Caller     string `json:"caller"`
	ProposalID uint64 `json:"proposalId"`
}

type proposalJSON struct {
	ID         uint64   `json:"id"`
	Action     string   `json:"action"`
	CreatedBy  string   `json:"createdBy"`
	CreatedAt  int64    `json:"createdAt"`
	Approvals  []string `json:"approvals"`
	Executed   bool     `json:"executed"`
	ExecutedAt int64    `json:"executedAt,omitempty"`
}

type multisigConfigJSON struct {
	Owner         string   `json:"owner"`
	FeeBps        uint32   `json:"feeBps"`
	FeeAccount    string   `json:"feeAccount"`
	Token         string   `json:"token"`
	TokenDecimals uint8    `json:"tokenDecimals"`
	Paused        bool     `json:"paused"`
	Signers       []string `json:"signers"`
	Threshold     uint32   `json:"threshold"`
}

func decodeProposalAction(wire proposalAction) (multisig.ProposalAction, error) {
	decodeAddr := func() ([20]byte, error) {
		return decodeCaller(wire.Address)
	}
	switch wire.Kind {
	case multisig.ActionKindSetFee:
		return multisig.SetFee{FeeBps: wire.FeeBps}, nil
	case multisig.ActionKindSetTokenAddress:
		addr, err := decodeAddr()
		if err != nil {
			return nil, err
		}
		return multisig.SetTokenAddress{Address: addr}, nil
	case multisig.ActionKindSetTokenDecimals:
		return multisig.SetTokenDecimals{Decimals: wire.Decimals}, nil
	case multisig.ActionKindAddSigner:
		addr, err := decodeAddr()
		if err != nil {
			return nil, err
		}
		return multisig.AddSigner{Signer: addr}, nil
	case multisig.ActionKindRemoveSigner:
		addr, err := decodeAddr()
		if err != nil {
			return nil, err
		}
		return multisig.RemoveSigner{Signer: addr}, nil
	case multisig.ActionKindSetThreshold:
		return multisig.SetThreshold{Threshold: wire.Threshold}, nil
	case multisig.ActionKindPause:
		return multisig.Pause{}, nil
	case multisig.ActionKindUnpause:
		return multisig.Unpause{}, nil
	case multisig.ActionKindEmergencyWithdraw:
		addr, err := decodeAddr()
		if err != nil {
			return nil, err
		}
		return multisig.EmergencyWithdraw{Recipient: addr, Amount: wire.Amount}, nil
	default:
		return nil, fmt.Errorf("unknown action kind %q", wire.Kind)
	}
}

func proposalToJSON(p *multisig.AdminProposal) proposalJSON {
	out := proposalJSON{
		ID:         p.ID,
		Action:     p.Action.Kind(),
		CreatedBy:  crypto.EncodeAddress(p.CreatedBy),
		CreatedAt:  p.CreatedAt,
		Approvals:  make([]string, 0, len(p.Approvals)),
		Executed:   p.Executed,
		ExecutedAt: p.ExecutedAt,
	}
	for _, signer := range p.Approvals {
		out.Approvals = append(out.Approvals, crypto.EncodeAddress(signer))
	}
	return out
}

func (s *Server) handleMultisigSubmit(w http.ResponseWriter, req *RPCRequest) {
	var params proposalSubmitParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	action, err := decodeProposalAction(params.Action)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.multisig.Submit(caller, action)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.logger.Info("proposal submitted", "proposalId", proposal.ID, "action", proposal.Action.Kind(), "executed", proposal.Executed)
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleMultisigApprove(w http.ResponseWriter, req *RPCRequest) {
	var params proposalIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.multisig.Approve(caller, params.ProposalID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleMultisigExecute(w http.ResponseWriter, req *RPCRequest) {
	var params proposalIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeCaller(params.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.multisig.Execute(caller, params.ProposalID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleMultisigGetProposal(w http.ResponseWriter, req *RPCRequest) {
	var params proposalIDParams
	if err := singleParam(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proposal, err := s.multisig.Proposal(params.ProposalID)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, proposalToJSON(proposal))
}

func (s *Server) handleMultisigGetConfig(w http.ResponseWriter, req *RPCRequest) {
	cfg, err := s.multisig.Config()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	out := multisigConfigJSON{
		Owner:         crypto.EncodeAddress(cfg.Owner),
		FeeBps:        cfg.FeeBps,
		FeeAccount:    crypto.EncodeAddress(cfg.FeeAccount),
		Token:         crypto.EncodeAddress(cfg.Token),
		TokenDecimals: cfg.TokenDecimals,
		Paused:        cfg.Paused,
		Signers:       make([]string, 0, len(cfg.Signers)),
		Threshold:     cfg.Threshold,
	}
	for _, signer := range cfg.Signers {
		out.Signers = append(out.Signers, crypto.EncodeAddress(signer))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleMultisigContractInfo(w http.ResponseWriter, req *RPCRequest) {
	info, err := s.multisig.ContractInfo()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"owner":      crypto.EncodeAddress(info.Owner),
		"feeBps":     info.FeeBps,
		"feeAccount": crypto.EncodeAddress(info.FeeAccount),
		"paused":     info.Paused,
	})
}

func (s *Server) handleMultisigTokenConfig(w http.ResponseWriter, req *RPCRequest) {
	info, err := s.multisig.TokenConfig()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"token":    crypto.EncodeAddress(info.Token),
		"decimals": info.Decimals,
		"feeBps":   info.FeeBps,
	})
}

func (s *Server) handleMultisigProposalCount(w http.ResponseWriter, req *RPCRequest) {
	count, err := s.multisig.ProposalCount()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]uint64{"proposalCount": count})
}

func (s *Server) handleMultisigIsSigner(w http.ResponseWriter, req *RPCRequest) {
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
	ok, err := s.multisig.IsSigner(addr)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]bool{"isSigner": ok})
}

// handleLegacyAdmin rejects the retired direct-setter surface. Configuration
// changes go through multisig proposals only.
func (s *Server) handleLegacyAdmin(w http.ResponseWriter, req *RPCRequest) {
	writeError(w, http.StatusForbidden, req.ID, codeForbidden,
		fmt.Sprintf("%s is retired: submit a multisig proposal instead", req.Method), nil)
}
