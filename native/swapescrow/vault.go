package swapescrow

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const vaultDomain = "swapvault/vault"

// VaultAddress derives the vault address for an escrow record identity and a
// bump nonce. The address is a pure function of (record, bump) over a keccak
// domain separator, so no private key corresponds to it; the module proves
// authority by re-deriving, never by signing.
func VaultAddress(id [32]byte, bump uint8) [20]byte {
	h := ethcrypto.Keccak256([]byte(vaultDomain), id[:], []byte{bump})
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}

// DeriveVault searches bump nonces from 255 downward and returns the first
// unoccupied vault address together with the bump that produced it. If every
// candidate is occupied the derivation fails; callers report that as an
// address collision.
func DeriveVault(id [32]byte, occupied func([20]byte) (bool, error)) ([20]byte, uint8, error) {
	for bump := 255; bump >= 0; bump-- {
		addr := VaultAddress(id, uint8(bump))
		taken, err := occupied(addr)
		if err != nil {
			return [20]byte{}, 0, err
		}
		if !taken {
			return addr, uint8(bump), nil
		}
	}
	return [20]byte{}, 0, fmt.Errorf("%w: no free vault address for record %x", ErrAddressCollision, id)
}
