package ledger

import (
	"fmt"
	"math/big"
)

// Transfer moves amount units of asset between two token accounts. It is the
// single asset-movement primitive on the ledger: it fails if the authority is
// not the source account's owner, if either account holds a different asset,
// or if the source balance cannot cover the amount. No partial effect is ever
// written on failure.
func (m *Manager) Transfer(from, to [20]byte, asset string, amount *big.Int, authority [20]byte) error {
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return fmt.Errorf("ledger: transfer source and destination are the same account")
	}
	src, err := m.TokenAccount(from)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return fmt.Errorf("%w: %x", ErrInvalidAuthority, authority)
	}
	if src.Asset != normalized {
		return fmt.Errorf("%w: source holds %s, leg wants %s", ErrAssetMismatch, src.Asset, normalized)
	}
	dst, err := m.TokenAccount(to)
	if err != nil {
		return err
	}
	if dst.Asset != normalized {
		return fmt.Errorf("%w: destination holds %s, leg wants %s", ErrAssetMismatch, dst.Asset, normalized)
	}
	if src.Balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, src.Balance, amount)
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	dst.Balance = new(big.Int).Add(dst.Balance, amount)
	if err := m.putTokenAccount(src); err != nil {
		return err
	}
	return m.putTokenAccount(dst)
}

// CloseAccount tears down a token account, paying any residual balance to
// the beneficiary, and physically deletes the account key. Teardown must be
// the last effect touching the account within an operation; a closed address
// subsequently reports ErrAccountNotFound.
func (m *Manager) CloseAccount(addr, beneficiary [20]byte, authority [20]byte) error {
	acct, err := m.TokenAccount(addr)
	if err != nil {
		return err
	}
	if acct.Owner != authority {
		return fmt.Errorf("%w: %x", ErrInvalidAuthority, authority)
	}
	if acct.Balance.Sign() > 0 {
		if err := m.Transfer(addr, beneficiary, acct.Asset, acct.Balance, authority); err != nil {
			return err
		}
	}
	return m.kv.Delete(tokenKey(addr))
}
