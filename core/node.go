package core

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"swapvault/core/events"
	"swapvault/core/types"
	"swapvault/ledger"
	nativecommon "swapvault/native/common"
	"swapvault/native/swapescrow"
	"swapvault/storage"
)

var (
	// ErrInvalidSignature is returned when the envelope signature cannot be
	// recovered.
	ErrInvalidSignature = errors.New("core: invalid transaction signature")
	// ErrNonceMismatch is returned when the envelope nonce does not match
	// the sender's identity nonce.
	ErrNonceMismatch = errors.New("core: transaction nonce mismatch")
	// ErrUnknownTxType is returned for transaction kinds the node does not
	// route.
	ErrUnknownTxType = errors.New("core: unknown transaction type")
)

// OpMetrics observes operation outcomes. The observability package provides
// the Prometheus implementation; a nil sink disables recording.
type OpMetrics interface {
	ObserveOp(op string, err error)
	// Timer returns a stop function that records the operation latency.
	Timer(op string) func()
}

// EventSink receives the events of a committed operation, in order.
type EventSink func([]*types.Event)

// Node owns the database and serializes every state-changing operation.
// Each operation runs against a fresh write overlay and commits all of its
// effects in one batch or none of them: the overlay is the "single ledger
// instruction" of the design, and the mutex is its scheduler.
type Node struct {
	mu     sync.Mutex
	db     storage.Database
	engine *swapescrow.Engine
	pauses *nativecommon.Pauses

	metrics OpMetrics
	sink    EventSink
}

// NodeOption customises node construction.
type NodeOption func(*Node)

// WithMetrics wires an operation-metrics sink.
func WithMetrics(m OpMetrics) NodeOption {
	return func(n *Node) { n.metrics = m }
}

// WithEventSink wires a post-commit event receiver.
func WithEventSink(sink EventSink) NodeOption {
	return func(n *Node) { n.sink = sink }
}

func NewNode(db storage.Database, opts ...NodeOption) *Node {
	n := &Node{
		db:     db,
		engine: swapescrow.NewEngine(),
		pauses: nativecommon.NewPauses(),
	}
	n.engine.SetPauses(n.pauses)
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// InitGenesis applies the genesis document unless the store already carries
// one. The whole bootstrap commits atomically.
func (n *Node) InitGenesis(gen *ledger.Genesis) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	overlay := ledger.NewOverlay(n.db)
	manager := ledger.NewManager(overlay)
	applied, err := manager.Applied()
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	if err := manager.ApplyGenesis(gen); err != nil {
		return err
	}
	return overlay.Commit()
}

// ApplyResult reports the outcome of a committed transaction.
type ApplyResult struct {
	Escrow *swapescrow.Escrow
	Events []*types.Event
}

// ApplyTransaction verifies the envelope, routes it to the escrow engine and
// commits the overlay. On any error nothing is written and the sender's
// nonce is not consumed.
func (n *Node) ApplyTransaction(tx *types.Transaction) (*ApplyResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("core: nil transaction")
	}
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownTxType, byte(tx.Type))
	}
	fromBytes, err := tx.From()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	var sender [20]byte
	copy(sender[:], fromBytes)

	n.mu.Lock()
	defer n.mu.Unlock()

	overlay := ledger.NewOverlay(n.db)
	manager := ledger.NewManager(overlay)

	idn, err := manager.Identity(sender)
	if err != nil {
		return nil, err
	}
	if tx.Nonce != idn.Nonce {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrNonceMismatch, tx.Nonce, idn.Nonce)
	}
	idn.Nonce++
	if err := manager.PutIdentity(sender, idn); err != nil {
		return nil, err
	}

	recorder := &events.Recorder{}
	n.engine.SetState(manager)
	n.engine.SetEmitter(recorder)

	op := opName(tx.Type)
	var stopTimer func()
	if n.metrics != nil {
		stopTimer = n.metrics.Timer(op)
	}

	var esc *swapescrow.Escrow
	switch tx.Type {
	case types.TxTypeInitialize:
		esc, err = n.applyInitialize(sender, tx.Data)
	case types.TxTypeExchange:
		esc, err = n.applyExchange(sender, tx.Data)
	case types.TxTypeCancel:
		esc, err = n.applyCancel(sender, tx.Data)
	}
	if stopTimer != nil {
		stopTimer()
	}
	if n.metrics != nil {
		n.metrics.ObserveOp(op, err)
	}
	if err != nil {
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	evts := recorder.Events()
	if n.sink != nil {
		n.sink(evts)
	}
	return &ApplyResult{Escrow: esc, Events: evts}, nil
}

func (n *Node) applyInitialize(sender [20]byte, data []byte) (*swapescrow.Escrow, error) {
	var params InitializeParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("core: initialize params: %w", err)
	}
	source, err := decodeAddr("source", params.Source)
	if err != nil {
		return nil, err
	}
	offeredAsset, err := ledger.NormalizeAsset(params.OfferedAsset)
	if err != nil {
		return nil, err
	}
	wantedAsset, err := ledger.NormalizeAsset(params.WantedAsset)
	if err != nil {
		return nil, err
	}
	offeredAmount, err := decodeAmount("offered amount", params.OfferedAmount)
	if err != nil {
		return nil, err
	}
	wantedAmount, err := decodeAmount("wanted amount", params.WantedAmount)
	if err != nil {
		return nil, err
	}
	return n.engine.Initialize(sender, params.Seed, source, offeredAsset, wantedAsset, offeredAmount, wantedAmount)
}

func (n *Node) applyExchange(sender [20]byte, data []byte) (*swapescrow.Escrow, error) {
	var params ExchangeParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("core: exchange params: %w", err)
	}
	id, err := decodeEscrowID(params.Escrow)
	if err != nil {
		return nil, err
	}
	takerSource, err := decodeAddr("taker source", params.TakerSource)
	if err != nil {
		return nil, err
	}
	takerDest, err := decodeAddr("taker destination", params.TakerDest)
	if err != nil {
		return nil, err
	}
	makerDest, err := decodeAddr("maker destination", params.MakerDest)
	if err != nil {
		return nil, err
	}
	wantedAsset, err := ledger.NormalizeAsset(params.WantedAsset)
	if err != nil {
		return nil, err
	}
	return n.engine.Exchange(id, sender, takerSource, takerDest, makerDest, wantedAsset)
}

func (n *Node) applyCancel(sender [20]byte, data []byte) (*swapescrow.Escrow, error) {
	var params CancelParams
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("core: cancel params: %w", err)
	}
	id, err := decodeEscrowID(params.Escrow)
	if err != nil {
		return nil, err
	}
	refund, err := decodeAddr("refund", params.Refund)
	if err != nil {
		return nil, err
	}
	return n.engine.Cancel(id, sender, refund)
}

func opName(txType types.TxType) string {
	switch txType {
	case types.TxTypeInitialize:
		return "initialize"
	case types.TxTypeExchange:
		return "exchange"
	case types.TxTypeCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// --- Administrative surface ---

// RegisterAsset adds an asset type to the registry.
func (n *Node) RegisterAsset(asset types.Asset) (*types.Asset, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	overlay := ledger.NewOverlay(n.db)
	manager := ledger.NewManager(overlay)
	created, err := manager.RegisterAsset(asset)
	if err != nil {
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

// CreateTokenAccount provisions the canonical (owner, asset) account.
func (n *Node) CreateTokenAccount(owner [20]byte, asset string) (*types.TokenAccount, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	overlay := ledger.NewOverlay(n.db)
	manager := ledger.NewManager(overlay)
	acct, err := manager.CreateTokenAccount(owner, asset)
	if err != nil {
		return nil, err
	}
	if err := overlay.Commit(); err != nil {
		return nil, err
	}
	return acct, nil
}

// EventTypeTokenMinted is emitted for every administrative issuance.
const EventTypeTokenMinted = "token.minted"

// Mint issues new units to an existing token account.
func (n *Node) Mint(addr [20]byte, asset string, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	overlay := ledger.NewOverlay(n.db)
	manager := ledger.NewManager(overlay)
	if err := manager.Mint(addr, asset, amount); err != nil {
		return err
	}
	if err := overlay.Commit(); err != nil {
		return err
	}
	if n.sink != nil {
		n.sink([]*types.Event{{Type: EventTypeTokenMinted, Attributes: map[string]string{
			"account": hex.EncodeToString(addr[:]),
			"asset":   asset,
			"amount":  amount.String(),
		}}})
	}
	return nil
}

// SetPaused toggles the administrative pause for a module.
func (n *Node) SetPaused(module string, paused bool) {
	n.pauses.SetPaused(module, paused)
}

// --- Query surface ---

func (n *Node) queryManager() *ledger.Manager {
	return ledger.NewManager(ledger.NewOverlay(n.db))
}

// EscrowGet returns the active escrow with the given identity.
func (n *Node) EscrowGet(id [32]byte) (*swapescrow.Escrow, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	esc, ok, err := n.queryManager().EscrowGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", swapescrow.ErrEscrowNotFound, id)
	}
	return esc, nil
}

// TokenAccount returns the account stored at addr.
func (n *Node) TokenAccount(addr [20]byte) (*types.TokenAccount, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queryManager().TokenAccount(addr)
}

// Balance reports the balance of the canonical (owner, asset) account.
func (n *Node) Balance(owner [20]byte, asset string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	normalized, err := ledger.NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	return n.queryManager().Balance(ledger.TokenAccountAddress(owner, normalized))
}

// Asset returns the registered asset definition.
func (n *Node) Asset(symbol string) (*types.Asset, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.queryManager().Asset(symbol)
}

// Nonce reports the next expected transaction nonce for an address.
func (n *Node) Nonce(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	idn, err := n.queryManager().Identity(addr)
	if err != nil {
		return 0, err
	}
	return idn.Nonce, nil
}
