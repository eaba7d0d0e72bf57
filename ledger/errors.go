package ledger

import "errors"

var (
	// ErrAssetUnknown is returned when an operation names an asset symbol
	// that was never registered.
	ErrAssetUnknown = errors.New("ledger: asset not registered")
	// ErrAssetExists is returned when registering an already known symbol.
	ErrAssetExists = errors.New("ledger: asset already registered")
	// ErrAccountNotFound is returned when an operation targets a token
	// account address with no stored account. Closed accounts are
	// physically deleted, so a terminated escrow's vault reports this.
	ErrAccountNotFound = errors.New("ledger: token account not found")
	// ErrAccountExists is returned when a creation targets an address that
	// is already occupied.
	ErrAccountExists = errors.New("ledger: token account address occupied")
	// ErrAssetMismatch is returned when a transfer leg names an asset that
	// differs from the account's asset.
	ErrAssetMismatch = errors.New("ledger: account holds a different asset")
	// ErrInvalidAuthority is returned when the supplied authority is not
	// the account's owner.
	ErrInvalidAuthority = errors.New("ledger: authority is not the account owner")
	// ErrInsufficientBalance is returned when the source account cannot
	// cover the requested amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	// ErrInvalidAmount is returned for nil, zero or negative amounts.
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)
