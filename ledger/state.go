package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"swapvault/core/types"
	"swapvault/native/swapescrow"
	"swapvault/storage"
)

// KV is the slice of the storage interface the state manager needs. Both a
// storage.Database and an Overlay satisfy it, which is how one Manager runs
// either directly against disk or inside an uncommitted operation.
type KV interface {
	Get(key []byte) ([]byte, error)
	Put(key []byte, value []byte) error
	Has(key []byte) (bool, error)
	Delete(key []byte) error
}

// Manager exposes typed accessors over the raw key-value state: the asset
// registry, identity nonces, token accounts and escrow records.
type Manager struct {
	kv KV
}

func NewManager(kv KV) *Manager {
	return &Manager{kv: kv}
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.kv.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("ledger: corrupt record at %q: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.kv.Put(key, raw)
}

// --- Asset registry ---

// RegisterAsset adds a new asset type to the registry. Symbols are
// canonicalised before storage and must be unique.
func (m *Manager) RegisterAsset(asset types.Asset) (*types.Asset, error) {
	symbol, err := NormalizeAsset(asset.Symbol)
	if err != nil {
		return nil, err
	}
	key := assetKey(symbol)
	exists, err := m.kv.Has(key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrAssetExists, symbol)
	}
	asset.Symbol = symbol
	if err := m.putJSON(key, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// Asset returns the registered definition for the given symbol.
func (m *Manager) Asset(symbol string) (*types.Asset, error) {
	normalized, err := NormalizeAsset(symbol)
	if err != nil {
		return nil, err
	}
	var asset types.Asset
	ok, err := m.getJSON(assetKey(normalized), &asset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetUnknown, normalized)
	}
	return &asset, nil
}

// AssetExists reports whether the symbol is registered.
func (m *Manager) AssetExists(symbol string) bool {
	_, err := m.Asset(symbol)
	return err == nil
}

// --- Identities ---

// Identity loads the signing identity for an address, defaulting to a zero
// nonce for addresses never seen before.
func (m *Manager) Identity(addr [20]byte) (*types.Identity, error) {
	var idn types.Identity
	if _, err := m.getJSON(identityKey(addr), &idn); err != nil {
		return nil, err
	}
	return &idn, nil
}

func (m *Manager) PutIdentity(addr [20]byte, idn *types.Identity) error {
	if idn == nil {
		return fmt.Errorf("ledger: nil identity")
	}
	return m.putJSON(identityKey(addr), idn)
}

// --- Token accounts ---

// CreateTokenAccount provisions the canonical account holding `asset` for
// `owner` at its derived address with a zero balance.
func (m *Manager) CreateTokenAccount(owner [20]byte, asset string) (*types.TokenAccount, error) {
	def, err := m.Asset(asset)
	if err != nil {
		return nil, err
	}
	addr := TokenAccountAddress(owner, def.Symbol)
	exists, err := m.TokenAccountExists(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %x", ErrAccountExists, addr)
	}
	acct := &types.TokenAccount{
		Address: addr,
		Owner:   owner,
		Asset:   def.Symbol,
		Balance: big.NewInt(0),
	}
	if err := m.putTokenAccount(acct); err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

// CreateVaultAccount provisions a token account at an externally derived
// address. The account is its own owner: no private key maps to a derived
// address, so only module code that re-derives the address can authorize
// moves out of it.
func (m *Manager) CreateVaultAccount(addr [20]byte, asset string) error {
	def, err := m.Asset(asset)
	if err != nil {
		return err
	}
	exists, err := m.TokenAccountExists(addr)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %x", ErrAccountExists, addr)
	}
	return m.putTokenAccount(&types.TokenAccount{
		Address: addr,
		Owner:   addr,
		Asset:   def.Symbol,
		Balance: big.NewInt(0),
	})
}

// TokenAccount loads the account stored at addr.
func (m *Manager) TokenAccount(addr [20]byte) (*types.TokenAccount, error) {
	var acct types.TokenAccount
	ok, err := m.getJSON(tokenKey(addr), &acct)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrAccountNotFound, addr)
	}
	if acct.Balance == nil {
		acct.Balance = big.NewInt(0)
	}
	return &acct, nil
}

// TokenAccountExists reports whether any account occupies addr.
func (m *Manager) TokenAccountExists(addr [20]byte) (bool, error) {
	return m.kv.Has(tokenKey(addr))
}

// Balance reports the balance of the account at addr.
func (m *Manager) Balance(addr [20]byte) (*big.Int, error) {
	acct, err := m.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acct.Balance), nil
}

// Mint credits freshly issued units to an existing token account. Issuance
// is an administrative operation used by genesis bootstrap and the faucet
// surface; it is never reachable from a signed transaction.
func (m *Manager) Mint(addr [20]byte, asset string, amount *big.Int) error {
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acct, err := m.TokenAccount(addr)
	if err != nil {
		return err
	}
	if acct.Asset != normalized {
		return fmt.Errorf("%w: account holds %s", ErrAssetMismatch, acct.Asset)
	}
	acct.Balance = new(big.Int).Add(acct.Balance, amount)
	return m.putTokenAccount(acct)
}

func (m *Manager) putTokenAccount(acct *types.TokenAccount) error {
	if acct == nil {
		return fmt.Errorf("ledger: nil token account")
	}
	return m.putJSON(tokenKey(acct.Address), acct)
}

// --- Escrow records ---

// EscrowPut persists the escrow record keyed by its identity.
func (m *Manager) EscrowPut(esc *swapescrow.Escrow) error {
	if esc == nil {
		return fmt.Errorf("ledger: nil escrow")
	}
	return m.putJSON(escrowKey(esc.ID), esc)
}

// EscrowGet loads an escrow record. A missing record reports ok=false: a
// terminated escrow is deleted, not flagged, so absence is the terminal
// state. A record that exists but cannot be decoded is store corruption and
// reports an error, never ok=false.
func (m *Manager) EscrowGet(id [32]byte) (*swapescrow.Escrow, bool, error) {
	var esc swapescrow.Escrow
	ok, err := m.getJSON(escrowKey(id), &esc)
	if err != nil {
		return nil, false, fmt.Errorf("ledger: escrow record %x: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &esc, true, nil
}

// EscrowDelete reclaims the record's storage.
func (m *Manager) EscrowDelete(id [32]byte) error {
	return m.kv.Delete(escrowKey(id))
}
