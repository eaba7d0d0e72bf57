package rpc

import (
	"encoding/json"
	"math/big"
	"net/http"

	"swapvault/core/types"
	"swapvault/crypto"
	"swapvault/ledger"
)

func decodeAddrParam(value string) ([20]byte, bool) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, false
	}
	copy(out[:], addr.Bytes())
	return out, true
}

func (s *Server) handleTokenBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		Owner string `json:"owner"`
		Asset string `json:"asset"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	owner, ok := decodeAddrParam(params.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode owner address", params.Owner)
		return
	}
	normalized, err := ledger.NormalizeAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid asset symbol", err.Error())
		return
	}

	balance, err := s.node.Balance(owner, normalized)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "balance lookup failed", err.Error())
		return
	}
	writeResult(w, req.ID, BalanceResult{
		Owner:   params.Owner,
		Asset:   normalized,
		Account: encodeAddr(ledger.TokenAccountAddress(owner, normalized)),
		Balance: encodeAmount(balance),
	})
}

func (s *Server) handleTokenAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, ok := decodeAddrParam(params.Address)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode account address", params.Address)
		return
	}

	account, err := s.node.TokenAccount(addr)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "account lookup failed", err.Error())
		return
	}
	writeResult(w, req.ID, tokenAccountResult(account))
}

func (s *Server) handleTokenAsset(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}

	asset, err := s.node.Asset(params.Symbol)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "asset lookup failed", err.Error())
		return
	}
	writeResult(w, req.ID, asset)
}

func (s *Server) handleTokenNonce(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, ok := decodeAddrParam(params.Address)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode address", params.Address)
		return
	}

	nonce, err := s.node.Nonce(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "nonce lookup failed", err.Error())
		return
	}
	writeResult(w, req.ID, NonceResult{Address: params.Address, Nonce: nonce})
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var asset types.Asset
	if err := json.Unmarshal(req.Params[0], &asset); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid asset definition", err.Error())
		return
	}

	registered, err := s.node.RegisterAsset(asset)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "asset registration failed", err.Error())
		return
	}
	writeResult(w, req.ID, registered)
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		Owner string `json:"owner"`
		Asset string `json:"asset"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	owner, ok := decodeAddrParam(params.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode owner address", params.Owner)
		return
	}

	account, err := s.node.CreateTokenAccount(owner, params.Asset)
	if err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "account creation failed", err.Error())
		return
	}
	writeResult(w, req.ID, tokenAccountResult(account))
}

func (s *Server) handleMint(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 1 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "parameter object required", nil)
		return
	}
	var params struct {
		Account string `json:"account"`
		Asset   string `json:"asset"`
		Amount  string `json:"amount"`
	}
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return
	}
	addr, ok := decodeAddrParam(params.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "failed to decode account address", params.Account)
		return
	}
	amount, ok := new(big.Int).SetString(params.Amount, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "amount must be a decimal integer", params.Amount)
		return
	}

	if err := s.node.Mint(addr, params.Asset, amount); err != nil {
		status, code := txErrorCode(err)
		writeError(w, status, req.ID, code, "mint failed", err.Error())
		return
	}
	account, err := s.node.TokenAccount(addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to reload account", err.Error())
		return
	}
	writeResult(w, req.ID, tokenAccountResult(account))
}

func (s *Server) handleSetPaused(w http.ResponseWriter, _ *http.Request, req *RPCRequest, paused bool) {
	module := "swapescrow"
	if len(req.Params) == 1 {
		var params struct {
			Module string `json:"module"`
		}
		if err := json.Unmarshal(req.Params[0], &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
			return
		}
		if params.Module != "" {
			module = params.Module
		}
	}

	s.node.SetPaused(module, paused)
	writeResult(w, req.ID, PauseResult{Module: module, Paused: paused})
}
