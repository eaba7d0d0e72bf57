package rpc

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"swapvault/core/types"
)

func (s *Server) handleSendTransaction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if len(req.Params) == 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "transaction parameter required", nil)
		return
	}

	var tx types.Transaction
	if err := json.Unmarshal(req.Params[0], &tx); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid transaction format", err.Error())
		return
	}

	source := clientSource(r)
	if !s.allowSource(source) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "transaction rate limit exceeded", source)
		return
	}

	hashBytes, err := tx.Hash()
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to hash transaction", err.Error())
		return
	}

	result, err := s.node.ApplyTransaction(&tx)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "transaction rejected", err.Error())
		return
	}

	writeResult(w, req.ID, SendTransactionResult{
		TxHash: hex.EncodeToString(hashBytes),
		Escrow: escrowResult(result.Escrow),
		Events: result.Events,
	})
}

func (s *Server) handleEscrowGet(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	raw, err := hex.DecodeString(params.ID)
	if err != nil || len(raw) != 32 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "id must be 32 hex-encoded bytes", params.ID)
		return
	}
	var id [32]byte
	copy(id[:], raw)

	esc, err := s.node.EscrowGet(id)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "escrow lookup failed", err.Error())
		return
	}
	writeResult(w, req.ID, escrowResult(esc))
}
