package swapescrow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVaultAddressDeterministic(t *testing.T) {
	id := RecordID(newTestAddress(0x01), 42)
	a := VaultAddress(id, 255)
	b := VaultAddress(id, 255)
	require.Equal(t, a, b)
	require.NotEqual(t, a, VaultAddress(id, 254))

	other := RecordID(newTestAddress(0x01), 43)
	require.NotEqual(t, a, VaultAddress(other, 255))
}

func TestDeriveVaultSkipsOccupiedAddresses(t *testing.T) {
	id := RecordID(newTestAddress(0x02), 1)
	taken := map[[20]byte]bool{
		VaultAddress(id, 255): true,
		VaultAddress(id, 254): true,
	}
	addr, bump, err := DeriveVault(id, func(a [20]byte) (bool, error) {
		return taken[a], nil
	})
	require.NoError(t, err)
	require.Equal(t, uint8(253), bump)
	require.Equal(t, VaultAddress(id, 253), addr)
}

func TestDeriveVaultExhaustionIsCollision(t *testing.T) {
	id := RecordID(newTestAddress(0x03), 1)
	_, _, err := DeriveVault(id, func([20]byte) (bool, error) {
		return true, nil
	})
	require.ErrorIs(t, err, ErrAddressCollision)
}
