package rpc

import (
	"errors"
	"net/http"

	"swapvault/core"
	"swapvault/ledger"
	nativecommon "swapvault/native/common"
	"swapvault/native/swapescrow"
)

// txErrorCode maps an ApplyTransaction failure to an HTTP status and a
// JSON-RPC error code. Unrecognised errors fall through to the generic
// server-error code so internal details stay out of client responses.
func txErrorCode(err error) (int, int) {
	switch {
	case errors.Is(err, core.ErrInvalidSignature):
		return http.StatusBadRequest, codeInvalidSignature
	case errors.Is(err, core.ErrNonceMismatch):
		return http.StatusBadRequest, codeNonceMismatch
	case errors.Is(err, core.ErrUnknownTxType):
		return http.StatusBadRequest, codeInvalidParams
	case errors.Is(err, nativecommon.ErrModulePaused):
		return http.StatusServiceUnavailable, codeModulePaused
	case errors.Is(err, swapescrow.ErrEscrowNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrAssetUnknown):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, swapescrow.ErrAssetMismatch),
		errors.Is(err, ledger.ErrAssetMismatch):
		return http.StatusBadRequest, codeAssetMismatch
	case errors.Is(err, swapescrow.ErrAccountOwnership),
		errors.Is(err, ledger.ErrInvalidAuthority):
		return http.StatusForbidden, codeOwnership
	case errors.Is(err, swapescrow.ErrInvalidSigner):
		return http.StatusForbidden, codeInvalidSigner
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest, codeInsufficient
	case errors.Is(err, swapescrow.ErrAddressCollision),
		errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, ledger.ErrAssetExists):
		return http.StatusConflict, codeCollision
	case errors.Is(err, swapescrow.ErrAllocation):
		return http.StatusInternalServerError, codeAllocation
	default:
		return http.StatusInternalServerError, codeServerError
	}
}
