package types

import "math/big"

// Asset describes one transferable asset type registered on the ledger.
// The symbol is the asset's identity; every token account and escrow refers
// to assets by symbol.
type Asset struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals uint8  `json:"decimals"`
}

// Identity carries the replay-protection nonce for a signing address. It is
// created lazily on the first transaction from that address.
type Identity struct {
	Nonce uint64 `json:"nonce"`
}

// TokenAccount is a single-asset holding. Regular accounts live at an
// address derived from (owner, asset) so ownership is verifiable from the
// address alone; vault accounts are their own owner, which makes them
// controllable only by the module that derived them.
type TokenAccount struct {
	Address [20]byte `json:"address"`
	Owner   [20]byte `json:"owner"`
	Asset   string   `json:"asset"`
	Balance *big.Int `json:"balance"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting stored state.
func (a *TokenAccount) Clone() *TokenAccount {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	} else {
		clone.Balance = big.NewInt(0)
	}
	return &clone
}
