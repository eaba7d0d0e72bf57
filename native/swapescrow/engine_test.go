package swapescrow

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"swapvault/core/events"
	"swapvault/core/types"
)

var (
	errMockNotFound     = errors.New("mock: token account not found")
	errMockExists       = errors.New("mock: token account address occupied")
	errMockAuthority    = errors.New("mock: authority is not the account owner")
	errMockAssetHolding = errors.New("mock: account holds a different asset")
	errMockInsufficient = errors.New("mock: insufficient balance")
)

// mockState mirrors the ledger manager's contracts over plain maps.
type mockState struct {
	escrows  map[[32]byte]*Escrow
	accounts map[[20]byte]*types.TokenAccount
	assets   map[string]bool
}

func newMockState() *mockState {
	return &mockState{
		escrows:  make(map[[32]byte]*Escrow),
		accounts: make(map[[20]byte]*types.TokenAccount),
		assets:   map[string]bool{"X": true, "Y": true, "Z": true},
	}
}

func newTestAddress(fill byte) [20]byte {
	var addr [20]byte
	copy(addr[:], bytes.Repeat([]byte{fill}, 20))
	return addr
}

func (m *mockState) addAccount(addr, owner [20]byte, asset string, balance int64) {
	m.accounts[addr] = &types.TokenAccount{
		Address: addr,
		Owner:   owner,
		Asset:   asset,
		Balance: big.NewInt(balance),
	}
}

func (m *mockState) balance(addr [20]byte) int64 {
	acct, ok := m.accounts[addr]
	if !ok {
		return -1
	}
	return acct.Balance.Int64()
}

func (m *mockState) EscrowPut(esc *Escrow) error {
	sane, err := SanitizeEscrow(esc)
	if err != nil {
		return err
	}
	m.escrows[sane.ID] = sane
	return nil
}

func (m *mockState) EscrowGet(id [32]byte) (*Escrow, bool, error) {
	esc, ok := m.escrows[id]
	if !ok {
		return nil, false, nil
	}
	return esc.Clone(), true, nil
}

func (m *mockState) EscrowDelete(id [32]byte) error {
	delete(m.escrows, id)
	return nil
}

func (m *mockState) AssetExists(symbol string) bool { return m.assets[symbol] }

func (m *mockState) TokenAccount(addr [20]byte) (*types.TokenAccount, error) {
	acct, ok := m.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %x", errMockNotFound, addr)
	}
	return acct.Clone(), nil
}

func (m *mockState) TokenAccountExists(addr [20]byte) (bool, error) {
	_, ok := m.accounts[addr]
	return ok, nil
}

func (m *mockState) CreateVaultAccount(addr [20]byte, asset string) error {
	if _, ok := m.accounts[addr]; ok {
		return errMockExists
	}
	m.accounts[addr] = &types.TokenAccount{Address: addr, Owner: addr, Asset: asset, Balance: big.NewInt(0)}
	return nil
}

func (m *mockState) Transfer(from, to [20]byte, asset string, amount *big.Int, authority [20]byte) error {
	src, ok := m.accounts[from]
	if !ok {
		return errMockNotFound
	}
	if src.Owner != authority {
		return errMockAuthority
	}
	if src.Asset != asset {
		return errMockAssetHolding
	}
	dst, ok := m.accounts[to]
	if !ok {
		return errMockNotFound
	}
	if dst.Asset != asset {
		return errMockAssetHolding
	}
	if src.Balance.Cmp(amount) < 0 {
		return errMockInsufficient
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	dst.Balance = new(big.Int).Add(dst.Balance, amount)
	return nil
}

func (m *mockState) CloseAccount(addr, beneficiary [20]byte, authority [20]byte) error {
	acct, ok := m.accounts[addr]
	if !ok {
		return errMockNotFound
	}
	if acct.Owner != authority {
		return errMockAuthority
	}
	if acct.Balance.Sign() > 0 {
		if err := m.Transfer(addr, beneficiary, acct.Asset, acct.Balance, authority); err != nil {
			return err
		}
	}
	delete(m.accounts, addr)
	return nil
}

// fixture wires an engine plus the usual two-party setup: maker holds 100 X,
// taker holds 200 Y, and every party has accounts on both assets.
type fixture struct {
	engine      *Engine
	state       *mockState
	recorder    *events.Recorder
	maker       [20]byte
	taker       [20]byte
	makerX      [20]byte // maker's offered-asset source
	makerY      [20]byte // maker's wanted-asset destination
	takerY      [20]byte // taker's wanted-asset source
	takerX      [20]byte // taker's offered-asset destination
	makerXStart int64
	takerYStart int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		state:       newMockState(),
		recorder:    &events.Recorder{},
		maker:       newTestAddress(0x01),
		taker:       newTestAddress(0x02),
		makerX:      newTestAddress(0x11),
		makerY:      newTestAddress(0x12),
		takerY:      newTestAddress(0x21),
		takerX:      newTestAddress(0x22),
		makerXStart: 100,
		takerYStart: 200,
	}
	f.state.addAccount(f.makerX, f.maker, "X", f.makerXStart)
	f.state.addAccount(f.makerY, f.maker, "Y", 0)
	f.state.addAccount(f.takerY, f.taker, "Y", f.takerYStart)
	f.state.addAccount(f.takerX, f.taker, "X", 0)

	f.engine = NewEngine()
	f.engine.SetState(f.state)
	f.engine.SetEmitter(f.recorder)
	f.engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	return f
}

func (f *fixture) initialize(t *testing.T) *Escrow {
	t.Helper()
	esc, err := f.engine.Initialize(f.maker, 1, f.makerX, "X", "Y", big.NewInt(100), big.NewInt(200))
	require.NoError(t, err)
	return esc
}

func TestInitializeLocksOfferedAmount(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	require.Equal(t, int64(0), f.state.balance(f.makerX))
	require.Equal(t, int64(100), f.state.balance(esc.Vault))
	require.Equal(t, f.maker, esc.Maker)
	require.Equal(t, f.makerX, esc.MakerSource)
	require.Equal(t, "X", esc.OfferedAsset)
	require.Equal(t, "Y", esc.WantedAsset)
	require.Equal(t, int64(1_700_000_000), esc.CreatedAt)

	// The stored bump re-derives the vault address.
	require.Equal(t, esc.Vault, VaultAddress(esc.ID, esc.VaultBump))

	stored, ok, err := f.state.EscrowGet(esc.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, esc.Vault, stored.Vault)

	evts := f.recorder.Events()
	require.Len(t, evts, 1)
	require.Equal(t, EventTypeInitialized, evts[0].Type)
	require.Equal(t, "100", evts[0].Attributes["offeredAmount"])
}

func TestInitializeRejectsNonPositiveAmounts(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Initialize(f.maker, 1, f.makerX, "X", "Y", big.NewInt(0), big.NewInt(200))
	require.Error(t, err)
	_, err = f.engine.Initialize(f.maker, 1, f.makerX, "X", "Y", big.NewInt(100), nil)
	require.Error(t, err)
	require.Equal(t, f.makerXStart, f.state.balance(f.makerX))
	require.Empty(t, f.state.escrows)
}

func TestInitializeRejectsUnknownAsset(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Initialize(f.maker, 1, f.makerX, "X", "W", big.NewInt(100), big.NewInt(200))
	require.Error(t, err)
	require.Empty(t, f.state.escrows)
}

func TestInitializeRejectsForeignSource(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Initialize(f.maker, 1, f.takerY, "Y", "X", big.NewInt(10), big.NewInt(10))
	require.ErrorIs(t, err, ErrAccountOwnership)

	// Wrong asset on an owned account is an ownership mismatch too.
	_, err = f.engine.Initialize(f.maker, 1, f.makerY, "X", "Y", big.NewInt(10), big.NewInt(10))
	require.ErrorIs(t, err, ErrAccountOwnership)
}

func TestInitializeInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Initialize(f.maker, 1, f.makerX, "X", "Y", big.NewInt(101), big.NewInt(200))
	require.ErrorIs(t, err, errMockInsufficient)

	// The record is written only after the vault is funded, so a failed
	// funding transfer leaves no escrow behind.
	require.Empty(t, f.state.escrows)
}

func TestInitializeDuplicateSeedCollides(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	_, err := f.engine.Initialize(f.maker, 1, f.makerX, "X", "Y", big.NewInt(1), big.NewInt(1))
	require.ErrorIs(t, err, ErrAddressCollision)
}

func TestExchangeSettlesAtomically(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)
	f.recorder.Reset()

	settled, err := f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerY, "Y")
	require.NoError(t, err)
	require.Equal(t, esc.ID, settled.ID)

	require.Equal(t, int64(100), f.state.balance(f.takerX))
	require.Equal(t, int64(200), f.state.balance(f.makerY))
	require.Equal(t, int64(0), f.state.balance(f.takerY))

	// Vault and record are destroyed together.
	require.Equal(t, int64(-1), f.state.balance(esc.Vault))
	_, ok, err := f.state.EscrowGet(esc.ID)
	require.NoError(t, err)
	require.False(t, ok)

	evts := f.recorder.Events()
	require.Len(t, evts, 1)
	require.Equal(t, EventTypeExchanged, evts[0].Type)

	// A second resolution attempt of either kind observes absence.
	_, err = f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerY, "Y")
	require.ErrorIs(t, err, ErrEscrowNotFound)
	_, err = f.engine.Cancel(esc.ID, f.maker, f.makerX)
	require.ErrorIs(t, err, ErrEscrowNotFound)
}

func TestExchangeAssetMismatchLeavesStateIntact(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	_, err := f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerY, "Z")
	require.ErrorIs(t, err, ErrAssetMismatch)

	require.Equal(t, int64(100), f.state.balance(esc.Vault))
	require.Equal(t, f.takerYStart, f.state.balance(f.takerY))
	require.Equal(t, int64(0), f.state.balance(f.makerY))
	_, ok, err := f.state.EscrowGet(esc.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestExchangeRejectsForeignMakerDestination(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	// Redirecting proceeds to a taker-owned account must fail.
	_, err := f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.takerY, "Y")
	require.ErrorIs(t, err, ErrAccountOwnership)

	// A maker-owned account for the wrong asset fails the same way.
	_, err = f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerX, "Y")
	require.ErrorIs(t, err, ErrAccountOwnership)
}

func TestExchangeInsufficientTakerBalance(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)
	f.state.accounts[f.takerY].Balance = big.NewInt(199)

	_, err := f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerY, "Y")
	require.ErrorIs(t, err, errMockInsufficient)
}

func TestExchangeUnauthorizedTakerSource(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	// The taker cannot spend the maker's wanted-asset account.
	_, err := f.engine.Exchange(esc.ID, f.taker, f.makerY, f.takerX, f.makerY, "Y")
	require.ErrorIs(t, err, errMockAuthority)
}

func TestCancelRefundsMaker(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)
	f.recorder.Reset()

	_, err := f.engine.Cancel(esc.ID, f.maker, f.makerX)
	require.NoError(t, err)

	// Round-trip: initialize then cancel is a no-op on net balances.
	require.Equal(t, f.makerXStart, f.state.balance(f.makerX))
	require.Equal(t, int64(-1), f.state.balance(esc.Vault))
	_, ok, err := f.state.EscrowGet(esc.ID)
	require.NoError(t, err)
	require.False(t, ok)

	evts := f.recorder.Events()
	require.Len(t, evts, 1)
	require.Equal(t, EventTypeCancelled, evts[0].Type)

	_, err = f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerY, "Y")
	require.ErrorIs(t, err, ErrEscrowNotFound)
}

func TestCancelRejectsNonMaker(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	_, err := f.engine.Cancel(esc.ID, f.taker, f.makerX)
	require.ErrorIs(t, err, ErrInvalidSigner)

	require.Equal(t, int64(100), f.state.balance(esc.Vault))
	_, ok, err := f.state.EscrowGet(esc.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCancelRejectsForeignRefundAccount(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	_, err := f.engine.Cancel(esc.ID, f.maker, f.takerX)
	require.ErrorIs(t, err, ErrAccountOwnership)
	_, err = f.engine.Cancel(esc.ID, f.maker, f.makerY)
	require.ErrorIs(t, err, ErrAccountOwnership)
}

func TestPausedModuleRejectsEveryOperation(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	pauses := pausedView{}
	f.engine.SetPauses(pauses)

	_, err := f.engine.Initialize(f.maker, 2, f.makerX, "X", "Y", big.NewInt(1), big.NewInt(1))
	require.Error(t, err)
	_, err = f.engine.Exchange(esc.ID, f.taker, f.takerY, f.takerX, f.makerY, "Y")
	require.Error(t, err)
	_, err = f.engine.Cancel(esc.ID, f.maker, f.makerX)
	require.Error(t, err)
}

type pausedView struct{}

func (pausedView) IsPaused(string) bool { return true }

func TestGetReportsActiveRecordOnly(t *testing.T) {
	f := newFixture(t)
	esc := f.initialize(t)

	got, err := f.engine.Get(esc.ID)
	require.NoError(t, err)
	require.Equal(t, esc.ID, got.ID)

	_, err = f.engine.Cancel(esc.ID, f.maker, f.makerX)
	require.NoError(t, err)
	_, err = f.engine.Get(esc.ID)
	require.ErrorIs(t, err, ErrEscrowNotFound)
}
