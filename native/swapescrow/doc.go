// Package swapescrow implements a trustless two-party asset swap. A maker
// locks an offered amount into a vault controlled only by this module and
// names the asset and amount wanted in return; any taker supplying exactly
// that amount completes the swap atomically, or the maker cancels and
// reclaims the vault. Initialize precedes Exchange or Cancel; the two
// terminal operations are mutually exclusive and destroy the record and the
// vault together.
package swapescrow
