package core

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"swapvault/crypto"
)

// Transaction payloads. Addresses travel as bech32 strings and amounts as
// decimal strings so envelopes stay readable and large values survive JSON.

type InitializeParams struct {
	Seed          uint64 `json:"seed"`
	Source        string `json:"source"`
	OfferedAsset  string `json:"offeredAsset"`
	WantedAsset   string `json:"wantedAsset"`
	OfferedAmount string `json:"offeredAmount"`
	WantedAmount  string `json:"wantedAmount"`
}

type ExchangeParams struct {
	Escrow      string `json:"escrow"`
	TakerSource string `json:"takerSource"`
	TakerDest   string `json:"takerDest"`
	MakerDest   string `json:"makerDest"`
	WantedAsset string `json:"wantedAsset"`
}

type CancelParams struct {
	Escrow string `json:"escrow"`
	Refund string `json:"refund"`
}

func decodeAddr(field, value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(value)
	if err != nil {
		return out, fmt.Errorf("core: %s: %w", field, err)
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func decodeEscrowID(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(value)
	if err != nil {
		return out, fmt.Errorf("core: escrow id: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("core: escrow id must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func decodeAmount(field, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("core: %s %q is not a decimal integer", field, value)
	}
	return amount, nil
}
