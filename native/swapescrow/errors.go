package swapescrow

import "errors"

// Every precondition violation aborts the whole operation with one of these
// kinds (or with a ledger sentinel propagated from the transfer primitive,
// e.g. insufficient balance). The node maps them to distinct RPC error codes.
var (
	// ErrInvalidSigner is returned when the required authority did not sign
	// the request or does not match the stored maker.
	ErrInvalidSigner = errors.New("swapescrow: required signer mismatch")
	// ErrEscrowNotFound is returned when an operation targets a record that
	// does not exist or was already resolved. Terminal transitions delete
	// the record, so both cases are the same observation.
	ErrEscrowNotFound = errors.New("swapescrow: escrow record not found")
	// ErrAssetMismatch is returned when the wanted-asset identity supplied
	// with an exchange differs from the one recorded at initialization.
	ErrAssetMismatch = errors.New("swapescrow: wanted asset mismatch")
	// ErrAccountOwnership is returned when a supplied account is not the
	// expected party's own account for the expected asset.
	ErrAccountOwnership = errors.New("swapescrow: account ownership mismatch")
	// ErrAddressCollision is returned when the record identity or the
	// vault's derived address is already occupied at initialization.
	ErrAddressCollision = errors.New("swapescrow: derived address already in use")
	// ErrAllocation is returned when storage for the record or the vault
	// could not be created.
	ErrAllocation = errors.New("swapescrow: allocation failed")
)
