package swapescrow

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const recordDomain = "swapvault/escrow"

// Escrow describes one pending swap offer. The record carries no status
// field: it exists exactly while the offer is active, and whichever terminal
// operation runs first deletes it together with its vault.
type Escrow struct {
	ID            [32]byte `json:"id"`
	Maker         [20]byte `json:"maker"`
	MakerSource   [20]byte `json:"makerSource"`
	OfferedAsset  string   `json:"offeredAsset"`
	WantedAsset   string   `json:"wantedAsset"`
	OfferedAmount *big.Int `json:"offeredAmount"`
	WantedAmount  *big.Int `json:"wantedAmount"`
	Vault         [20]byte `json:"vault"`
	// VaultBump is the validity nonce found at derivation time. Storing it
	// lets every later operation re-derive and prove the vault's authority
	// instead of re-searching.
	VaultBump uint8 `json:"vaultBump"`
	CreatedAt int64 `json:"createdAt"`
}

// Clone returns a deep copy so callers can mutate the result without
// affecting the stored instance.
func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	clone := *e
	if e.OfferedAmount != nil {
		clone.OfferedAmount = new(big.Int).Set(e.OfferedAmount)
	} else {
		clone.OfferedAmount = big.NewInt(0)
	}
	if e.WantedAmount != nil {
		clone.WantedAmount = new(big.Int).Set(e.WantedAmount)
	} else {
		clone.WantedAmount = big.NewInt(0)
	}
	return &clone
}

// SanitizeEscrow validates the record shape, returning a cloned instance
// with non-nil amounts. The original value is not mutated.
func SanitizeEscrow(e *Escrow) (*Escrow, error) {
	if e == nil {
		return nil, fmt.Errorf("swapescrow: nil escrow")
	}
	clone := e.Clone()
	if clone.OfferedAsset == "" || clone.WantedAsset == "" {
		return nil, fmt.Errorf("swapescrow: escrow asset symbols are required")
	}
	if clone.OfferedAmount.Sign() <= 0 {
		return nil, fmt.Errorf("swapescrow: offered amount must be positive")
	}
	if clone.WantedAmount.Sign() <= 0 {
		return nil, fmt.Errorf("swapescrow: wanted amount must be positive")
	}
	return clone, nil
}

// RecordID derives the identity of an escrow record from the maker and a
// caller-supplied seed. The derivation is pure, so the maker can compute the
// record address before submitting and a duplicate seed is caught as a
// collision rather than silently overwriting.
func RecordID(maker [20]byte, seed uint64) [32]byte {
	var seedBytes [8]byte
	binary.BigEndian.PutUint64(seedBytes[:], seed)
	return ethcrypto.Keccak256Hash([]byte(recordDomain), maker[:], seedBytes[:])
}
