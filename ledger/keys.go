package ledger

import (
	"fmt"
	"strings"
	"unicode"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Key namespaces inside the backing key-value store. Keeping them in one
// place makes the stored layout auditable.
var (
	prefixAsset    = []byte("asset/")
	prefixIdentity = []byte("idn/")
	prefixToken    = []byte("tok/")
	prefixEscrow   = []byte("esc/")
)

const tokenAccountDomain = "swapvault/token"

func assetKey(symbol string) []byte {
	return append(append([]byte(nil), prefixAsset...), symbol...)
}

func identityKey(addr [20]byte) []byte {
	return append(append([]byte(nil), prefixIdentity...), addr[:]...)
}

func tokenKey(addr [20]byte) []byte {
	return append(append([]byte(nil), prefixToken...), addr[:]...)
}

func escrowKey(id [32]byte) []byte {
	return append(append([]byte(nil), prefixEscrow...), id[:]...)
}

// NormalizeAsset canonicalises an asset symbol: trimmed, uppercase, 1-12
// ASCII letters or digits starting with a letter.
func NormalizeAsset(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if len(trimmed) == 0 || len(trimmed) > 12 {
		return "", fmt.Errorf("ledger: asset symbol length out of range: %q", symbol)
	}
	for i, r := range trimmed {
		if r > unicode.MaxASCII {
			return "", fmt.Errorf("ledger: asset symbol must be ASCII: %q", symbol)
		}
		if i == 0 && !unicode.IsUpper(r) {
			return "", fmt.Errorf("ledger: asset symbol must start with a letter: %q", symbol)
		}
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return "", fmt.Errorf("ledger: invalid character in asset symbol: %q", symbol)
		}
	}
	return trimmed, nil
}

// TokenAccountAddress derives the canonical address of the account holding
// `asset` on behalf of `owner`. One (owner, asset) pair maps to exactly one
// address, so account ownership is provable from the address itself rather
// than asserted by the caller.
func TokenAccountAddress(owner [20]byte, asset string) [20]byte {
	h := ethcrypto.Keccak256([]byte(tokenAccountDomain), owner[:], []byte(asset))
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}
