package rpc

import (
	"encoding/hex"
	"math/big"

	"swapvault/core/types"
	"swapvault/crypto"
	"swapvault/native/swapescrow"
)

// Wire representations. Addresses travel as bech32 strings, escrow IDs as
// hex and amounts as decimal strings, matching the transaction payloads.

type EscrowResult struct {
	ID            string `json:"id"`
	Maker         string `json:"maker"`
	MakerSource   string `json:"makerSource"`
	OfferedAsset  string `json:"offeredAsset"`
	WantedAsset   string `json:"wantedAsset"`
	OfferedAmount string `json:"offeredAmount"`
	WantedAmount  string `json:"wantedAmount"`
	Vault         string `json:"vault"`
	VaultBump     uint8  `json:"vaultBump"`
	CreatedAt     int64  `json:"createdAt"`
}

type TokenAccountResult struct {
	Address string `json:"address"`
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

type BalanceResult struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type NonceResult struct {
	Address string `json:"address"`
	Nonce   uint64 `json:"nonce"`
}

type SendTransactionResult struct {
	TxHash string         `json:"txHash"`
	Escrow *EscrowResult  `json:"escrow,omitempty"`
	Events []*types.Event `json:"events,omitempty"`
}

type PauseResult struct {
	Module string `json:"module"`
	Paused bool   `json:"paused"`
}

func encodeAddr(b [20]byte) string {
	return crypto.NewAddress(crypto.SVTPrefix, b[:]).String()
}

func encodeAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func escrowResult(esc *swapescrow.Escrow) *EscrowResult {
	if esc == nil {
		return nil
	}
	return &EscrowResult{
		ID:            hex.EncodeToString(esc.ID[:]),
		Maker:         encodeAddr(esc.Maker),
		MakerSource:   encodeAddr(esc.MakerSource),
		OfferedAsset:  esc.OfferedAsset,
		WantedAsset:   esc.WantedAsset,
		OfferedAmount: encodeAmount(esc.OfferedAmount),
		WantedAmount:  encodeAmount(esc.WantedAmount),
		Vault:         encodeAddr(esc.Vault),
		VaultBump:     esc.VaultBump,
		CreatedAt:     esc.CreatedAt,
	}
}

func tokenAccountResult(account *types.TokenAccount) *TokenAccountResult {
	if account == nil {
		return nil
	}
	return &TokenAccountResult{
		Address: encodeAddr(account.Address),
		Owner:   encodeAddr(account.Owner),
		Asset:   account.Asset,
		Balance: encodeAmount(account.Balance),
	}
}
