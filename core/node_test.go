package core

import (
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"swapvault/core/types"
	"swapvault/crypto"
	"swapvault/ledger"
	"swapvault/native/swapescrow"
	"swapvault/storage"
)

type testParty struct {
	key  *crypto.PrivateKey
	addr [20]byte
}

func newParty(t *testing.T) *testParty {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	var addr [20]byte
	copy(addr[:], key.PubKey().Address().Bytes())
	return &testParty{key: key, addr: addr}
}

func (p *testParty) account(asset string) string {
	addr := ledger.TokenAccountAddress(p.addr, asset)
	return crypto.NewAddress(crypto.SVTPrefix, addr[:]).String()
}

func (p *testParty) send(t *testing.T, n *Node, txType types.TxType, nonce uint64, params interface{}) (*ApplyResult, error) {
	t.Helper()
	data, err := json.Marshal(params)
	require.NoError(t, err)
	tx := &types.Transaction{Type: txType, Nonce: nonce, Data: data}
	require.NoError(t, tx.Sign(p.key.PrivateKey))
	return n.ApplyTransaction(tx)
}

type testEnv struct {
	node  *Node
	db    *storage.MemDB
	maker *testParty
	taker *testParty
}

// newTestEnv provisions the standard two-party world: maker holds 100 X,
// taker holds 200 Y, and both parties have accounts on both assets.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	node := NewNode(db)
	env := &testEnv{node: node, db: db, maker: newParty(t), taker: newParty(t)}

	for _, symbol := range []string{"X", "Y"} {
		_, err := node.RegisterAsset(types.Asset{Symbol: symbol, Decimals: 6})
		require.NoError(t, err)
		for _, p := range []*testParty{env.maker, env.taker} {
			_, err := node.CreateTokenAccount(p.addr, symbol)
			require.NoError(t, err)
		}
	}
	require.NoError(t, node.Mint(ledger.TokenAccountAddress(env.maker.addr, "X"), "X", big.NewInt(100)))
	require.NoError(t, node.Mint(ledger.TokenAccountAddress(env.taker.addr, "Y"), "Y", big.NewInt(200)))
	return env
}

func (env *testEnv) initialize(t *testing.T) *swapescrow.Escrow {
	t.Helper()
	res, err := env.maker.send(t, env.node, types.TxTypeInitialize, 0, InitializeParams{
		Seed:          1,
		Source:        env.maker.account("X"),
		OfferedAsset:  "X",
		WantedAsset:   "Y",
		OfferedAmount: "100",
		WantedAmount:  "200",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Escrow)
	return res.Escrow
}

func (env *testEnv) balance(t *testing.T, p *testParty, asset string) int64 {
	t.Helper()
	balance, err := env.node.Balance(p.addr, asset)
	require.NoError(t, err)
	return balance.Int64()
}

func TestNodeInitializeExchange(t *testing.T) {
	env := newTestEnv(t)
	esc := env.initialize(t)

	require.Equal(t, int64(0), env.balance(t, env.maker, "X"))
	vaultBalance, err := env.node.TokenAccount(esc.Vault)
	require.NoError(t, err)
	require.Equal(t, int64(100), vaultBalance.Balance.Int64())

	res, err := env.taker.send(t, env.node, types.TxTypeExchange, 0, ExchangeParams{
		Escrow:      hex.EncodeToString(esc.ID[:]),
		TakerSource: env.taker.account("Y"),
		TakerDest:   env.taker.account("X"),
		MakerDest:   env.maker.account("Y"),
		WantedAsset: "Y",
	})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	require.Equal(t, swapescrow.EventTypeExchanged, res.Events[0].Type)

	require.Equal(t, int64(100), env.balance(t, env.taker, "X"))
	require.Equal(t, int64(200), env.balance(t, env.maker, "Y"))
	require.Equal(t, int64(0), env.balance(t, env.taker, "Y"))

	_, err = env.node.EscrowGet(esc.ID)
	require.ErrorIs(t, err, swapescrow.ErrEscrowNotFound)
	_, err = env.node.TokenAccount(esc.Vault)
	require.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestNodeCancelRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	esc := env.initialize(t)

	_, err := env.maker.send(t, env.node, types.TxTypeCancel, 1, CancelParams{
		Escrow: hex.EncodeToString(esc.ID[:]),
		Refund: env.maker.account("X"),
	})
	require.NoError(t, err)

	require.Equal(t, int64(100), env.balance(t, env.maker, "X"))
	_, err = env.node.EscrowGet(esc.ID)
	require.ErrorIs(t, err, swapescrow.ErrEscrowNotFound)

	// A later exchange against the dead record fails cleanly.
	_, err = env.taker.send(t, env.node, types.TxTypeExchange, 0, ExchangeParams{
		Escrow:      hex.EncodeToString(esc.ID[:]),
		TakerSource: env.taker.account("Y"),
		TakerDest:   env.taker.account("X"),
		MakerDest:   env.maker.account("Y"),
		WantedAsset: "Y",
	})
	require.ErrorIs(t, err, swapescrow.ErrEscrowNotFound)
}

func TestNodeFailedExchangeTouchesNothing(t *testing.T) {
	env := newTestEnv(t)
	esc := env.initialize(t)
	keysBefore := env.db.Len()

	_, err := env.taker.send(t, env.node, types.TxTypeExchange, 0, ExchangeParams{
		Escrow:      hex.EncodeToString(esc.ID[:]),
		TakerSource: env.taker.account("Y"),
		TakerDest:   env.taker.account("X"),
		MakerDest:   env.maker.account("Y"),
		WantedAsset: "X",
	})
	require.ErrorIs(t, err, swapescrow.ErrAssetMismatch)

	// The failed operation consumed no nonce and wrote no key.
	require.Equal(t, keysBefore, env.db.Len())
	nonce, err := env.node.Nonce(env.taker.addr)
	require.NoError(t, err)
	require.Equal(t, uint64(0), nonce)
	require.Equal(t, int64(200), env.balance(t, env.taker, "Y"))

	active, err := env.node.EscrowGet(esc.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), active.OfferedAmount.Int64())
}

func TestNodeNonceReplayRejected(t *testing.T) {
	env := newTestEnv(t)
	env.initialize(t)

	// Same nonce again.
	_, err := env.maker.send(t, env.node, types.TxTypeInitialize, 0, InitializeParams{
		Seed:          2,
		Source:        env.maker.account("X"),
		OfferedAsset:  "X",
		WantedAsset:   "Y",
		OfferedAmount: "1",
		WantedAmount:  "1",
	})
	require.ErrorIs(t, err, ErrNonceMismatch)
}

func TestNodeRejectsUnknownTxType(t *testing.T) {
	env := newTestEnv(t)
	tx := &types.Transaction{Type: types.TxType(0x55), Nonce: 0, Data: []byte(`{}`)}
	require.NoError(t, tx.Sign(env.maker.key.PrivateKey))
	_, err := env.node.ApplyTransaction(tx)
	require.ErrorIs(t, err, ErrUnknownTxType)
}

func TestNodeRejectsUnsignedTransaction(t *testing.T) {
	env := newTestEnv(t)
	tx := &types.Transaction{Type: types.TxTypeInitialize, Nonce: 0, Data: []byte(`{}`)}
	_, err := env.node.ApplyTransaction(tx)
	require.Error(t, err)
}

func TestNodePauseBlocksOperations(t *testing.T) {
	env := newTestEnv(t)
	env.node.SetPaused("swapescrow", true)

	_, err := env.maker.send(t, env.node, types.TxTypeInitialize, 0, InitializeParams{
		Seed:          1,
		Source:        env.maker.account("X"),
		OfferedAsset:  "X",
		WantedAsset:   "Y",
		OfferedAmount: "100",
		WantedAmount:  "200",
	})
	require.Error(t, err)

	env.node.SetPaused("swapescrow", false)
	env.initialize(t)
}

func TestNodeEventSinkReceivesCommittedEvents(t *testing.T) {
	var seen []*types.Event
	db := storage.NewMemDB()
	node := NewNode(db, WithEventSink(func(evts []*types.Event) {
		seen = append(seen, evts...)
	}))
	env := &testEnv{node: node, db: db, maker: newParty(t), taker: newParty(t)}
	for _, symbol := range []string{"X", "Y"} {
		_, err := node.RegisterAsset(types.Asset{Symbol: symbol})
		require.NoError(t, err)
		_, err = node.CreateTokenAccount(env.maker.addr, symbol)
		require.NoError(t, err)
	}
	require.NoError(t, node.Mint(ledger.TokenAccountAddress(env.maker.addr, "X"), "X", big.NewInt(100)))
	require.Len(t, seen, 1)
	require.Equal(t, EventTypeTokenMinted, seen[0].Type)
	require.Equal(t, "100", seen[0].Attributes["amount"])

	env.initialize(t)
	require.Len(t, seen, 2)
	require.Equal(t, swapescrow.EventTypeInitialized, seen[1].Type)
}

type recordedOp struct {
	op  string
	err error
}

type metricsRecorder struct {
	observed []recordedOp
	timed    []string
	stopped  int
}

func (m *metricsRecorder) ObserveOp(op string, err error) {
	m.observed = append(m.observed, recordedOp{op: op, err: err})
}

func (m *metricsRecorder) Timer(op string) func() {
	m.timed = append(m.timed, op)
	return func() { m.stopped++ }
}

func TestNodeRecordsOperationMetrics(t *testing.T) {
	rec := &metricsRecorder{}
	db := storage.NewMemDB()
	node := NewNode(db, WithMetrics(rec))
	env := &testEnv{node: node, db: db, maker: newParty(t), taker: newParty(t)}
	for _, symbol := range []string{"X", "Y"} {
		_, err := node.RegisterAsset(types.Asset{Symbol: symbol})
		require.NoError(t, err)
		_, err = node.CreateTokenAccount(env.maker.addr, symbol)
		require.NoError(t, err)
	}
	require.NoError(t, node.Mint(ledger.TokenAccountAddress(env.maker.addr, "X"), "X", big.NewInt(100)))

	env.initialize(t)
	require.Equal(t, []string{"initialize"}, rec.timed)
	require.Equal(t, 1, rec.stopped)
	require.Len(t, rec.observed, 1)
	require.Equal(t, "initialize", rec.observed[0].op)
	require.NoError(t, rec.observed[0].err)

	// A rejected operation still records a latency sample and its outcome.
	_, err := env.maker.send(t, node, types.TxTypeCancel, 1, CancelParams{
		Escrow: hex.EncodeToString(make([]byte, 32)),
		Refund: env.maker.account("X"),
	})
	require.ErrorIs(t, err, swapescrow.ErrEscrowNotFound)
	require.Equal(t, []string{"initialize", "cancel"}, rec.timed)
	require.Equal(t, 2, rec.stopped)
	require.Len(t, rec.observed, 2)
	require.ErrorIs(t, rec.observed[1].err, swapescrow.ErrEscrowNotFound)
}
