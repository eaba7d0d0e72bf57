package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"swapvault/core/types"
	"swapvault/crypto"
)

var genesisMarkerKey = []byte("meta/genesis")

// GenesisAccount declares one pre-funded token account. Balances are decimal
// strings so large values survive JSON tooling intact.
type GenesisAccount struct {
	Owner   string `json:"owner"`
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// Genesis bootstraps the asset registry and initial balances on first start.
type Genesis struct {
	ChainName string           `json:"chainName"`
	Assets    []types.Asset    `json:"assets"`
	Accounts  []GenesisAccount `json:"accounts"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var gen Genesis
	if err := json.Unmarshal(raw, &gen); err != nil {
		return nil, fmt.Errorf("ledger: invalid genesis file %s: %w", path, err)
	}
	if len(gen.Assets) == 0 {
		return nil, fmt.Errorf("ledger: genesis declares no assets")
	}
	return &gen, nil
}

// Applied reports whether genesis was already applied to this store.
func (m *Manager) Applied() (bool, error) {
	return m.kv.Has(genesisMarkerKey)
}

// ApplyGenesis registers the declared assets, provisions and funds the
// declared accounts, and records the genesis marker. It fails if genesis was
// applied before.
func (m *Manager) ApplyGenesis(gen *Genesis) error {
	if gen == nil {
		return fmt.Errorf("ledger: nil genesis")
	}
	applied, err := m.Applied()
	if err != nil {
		return err
	}
	if applied {
		return fmt.Errorf("ledger: genesis already applied")
	}
	for _, asset := range gen.Assets {
		if _, err := m.RegisterAsset(asset); err != nil {
			return err
		}
	}
	for _, ga := range gen.Accounts {
		owner, err := crypto.DecodeAddress(ga.Owner)
		if err != nil {
			return fmt.Errorf("ledger: genesis account owner: %w", err)
		}
		var addr [20]byte
		copy(addr[:], owner.Bytes())
		acct, err := m.CreateTokenAccount(addr, ga.Asset)
		if err != nil {
			return err
		}
		balance, ok := new(big.Int).SetString(ga.Balance, 10)
		if !ok {
			return fmt.Errorf("ledger: genesis balance %q is not a decimal integer", ga.Balance)
		}
		if balance.Sign() > 0 {
			if err := m.Mint(acct.Address, acct.Asset, balance); err != nil {
				return err
			}
		}
	}
	return m.kv.Put(genesisMarkerKey, []byte(gen.ChainName))
}
