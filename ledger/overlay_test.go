package ledger

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"swapvault/core/types"
	"swapvault/storage"
)

func TestOverlayDiscardTouchesNothing(t *testing.T) {
	db := storage.NewMemDB()
	base := NewManager(db)
	_, err := base.RegisterAsset(types.Asset{Symbol: "X"})
	require.NoError(t, err)
	owner := newTestAddress(0x01)
	acct, err := base.CreateTokenAccount(owner, "X")
	require.NoError(t, err)
	require.NoError(t, base.Mint(acct.Address, "X", big.NewInt(100)))

	overlay := NewOverlay(db)
	m := NewManager(overlay)
	other := newTestAddress(0x02)
	otherAcct, err := m.CreateTokenAccount(other, "X")
	require.NoError(t, err)
	require.NoError(t, m.Transfer(acct.Address, otherAcct.Address, "X", big.NewInt(40), owner))
	require.True(t, overlay.Dirty())

	// Nothing reached the backing store yet.
	balance, err := base.Balance(acct.Address)
	require.NoError(t, err)
	require.Equal(t, int64(100), balance.Int64())
	_, err = base.TokenAccount(otherAcct.Address)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestOverlayCommitFlushesAtomically(t *testing.T) {
	db := storage.NewMemDB()
	base := NewManager(db)
	_, err := base.RegisterAsset(types.Asset{Symbol: "X"})
	require.NoError(t, err)
	owner := newTestAddress(0x01)
	acct, err := base.CreateTokenAccount(owner, "X")
	require.NoError(t, err)
	require.NoError(t, base.Mint(acct.Address, "X", big.NewInt(100)))

	overlay := NewOverlay(db)
	m := NewManager(overlay)
	other := newTestAddress(0x02)
	otherAcct, err := m.CreateTokenAccount(other, "X")
	require.NoError(t, err)
	require.NoError(t, m.Transfer(acct.Address, otherAcct.Address, "X", big.NewInt(40), owner))
	require.NoError(t, overlay.Commit())
	require.False(t, overlay.Dirty())

	balance, err := base.Balance(acct.Address)
	require.NoError(t, err)
	require.Equal(t, int64(60), balance.Int64())
	otherBalance, err := base.Balance(otherAcct.Address)
	require.NoError(t, err)
	require.Equal(t, int64(40), otherBalance.Int64())
}

func TestOverlayDeleteShadowsBase(t *testing.T) {
	db := storage.NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	overlay := NewOverlay(db)
	require.NoError(t, overlay.Delete([]byte("k")))

	_, err := overlay.Get([]byte("k"))
	require.ErrorIs(t, err, storage.ErrNotFound)
	ok, err := overlay.Has([]byte("k"))
	require.NoError(t, err)
	require.False(t, ok)

	// Re-put after delete resurrects the key in the overlay.
	require.NoError(t, overlay.Put([]byte("k"), []byte("v2")))
	got, err := overlay.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)

	require.NoError(t, overlay.Commit())
	got, err = db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), got)
}
