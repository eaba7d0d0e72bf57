package swapescrow

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"swapvault/core/events"
	"swapvault/core/types"
	nativecommon "swapvault/native/common"
)

var errNilState = errors.New("swapescrow: state not configured")

const moduleName = "swapescrow"

// engineState is the slice of ledger state the engine consumes: record
// storage, the asset registry, token account lookup, vault provisioning and
// the transfer/close primitives. The ledger manager implements it; tests
// plug in an in-memory double.
type engineState interface {
	EscrowPut(*Escrow) error
	EscrowGet(id [32]byte) (*Escrow, bool, error)
	EscrowDelete(id [32]byte) error
	AssetExists(symbol string) bool
	TokenAccount(addr [20]byte) (*types.TokenAccount, error)
	TokenAccountExists(addr [20]byte) (bool, error)
	CreateVaultAccount(addr [20]byte, asset string) error
	Transfer(from, to [20]byte, asset string, amount *big.Int, authority [20]byte) error
	CloseAccount(addr, beneficiary [20]byte, authority [20]byte) error
}

// Engine wires the swap-escrow state machine to external state and event
// emitters. It performs no locking and keeps no caches: the surrounding node
// guarantees each operation runs alone against a consistent snapshot and
// commits all of its effects or none.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
	nowFn   func() int64
}

// NewEngine creates an engine with a no-op emitter. Callers can override the
// emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetPauses configures the administrative pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source. Primarily intended for tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt events.Typed) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// Initialize creates the escrow record and its vault and locks the offered
// amount. The maker must own the source account for the offered asset; the
// record identity and the vault address are derived, and any occupied
// derived address rejects the whole operation.
func (e *Engine) Initialize(maker [20]byte, seed uint64, source [20]byte, offeredAsset, wantedAsset string, offeredAmount, wantedAmount *big.Int) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	offered := cloneBigInt(offeredAmount)
	if offered.Sign() <= 0 {
		return nil, fmt.Errorf("swapescrow: offered amount must be positive")
	}
	wanted := cloneBigInt(wantedAmount)
	if wanted.Sign() <= 0 {
		return nil, fmt.Errorf("swapescrow: wanted amount must be positive")
	}
	if !e.state.AssetExists(offeredAsset) {
		return nil, fmt.Errorf("swapescrow: unknown offered asset %s", offeredAsset)
	}
	if !e.state.AssetExists(wantedAsset) {
		return nil, fmt.Errorf("swapescrow: unknown wanted asset %s", wantedAsset)
	}
	src, err := e.state.TokenAccount(source)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: source account: %w", err)
	}
	if src.Owner != maker || src.Asset != offeredAsset {
		return nil, fmt.Errorf("%w: source is not the maker's %s account", ErrAccountOwnership, offeredAsset)
	}

	id := RecordID(maker, seed)
	_, exists, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: record lookup: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: record %x", ErrAddressCollision, id)
	}
	vault, bump, err := DeriveVault(id, e.state.TokenAccountExists)
	if err != nil {
		return nil, err
	}
	if err := e.state.CreateVaultAccount(vault, offeredAsset); err != nil {
		return nil, fmt.Errorf("%w: create vault: %w", ErrAllocation, err)
	}
	esc := &Escrow{
		ID:            id,
		Maker:         maker,
		MakerSource:   source,
		OfferedAsset:  offeredAsset,
		WantedAsset:   wantedAsset,
		OfferedAmount: offered,
		WantedAmount:  wanted,
		Vault:         vault,
		VaultBump:     bump,
		CreatedAt:     e.now(),
	}
	// Fund the vault before the record exists so the store never holds an
	// unfunded escrow.
	if err := e.state.Transfer(source, vault, offeredAsset, offered, maker); err != nil {
		return nil, fmt.Errorf("swapescrow: fund vault: %w", err)
	}
	if err := e.state.EscrowPut(esc); err != nil {
		return nil, fmt.Errorf("%w: store record: %w", ErrAllocation, err)
	}
	e.emit(initialized{esc: esc})
	return esc.Clone(), nil
}

// Exchange atomically settles an active escrow: the taker's counter-transfer
// pays the maker, the vault pays the taker, and the vault and record are
// destroyed. The wanted-asset identity is re-supplied and must match the
// record; the maker's destination must provably be the maker's own account
// for that asset.
func (e *Engine) Exchange(id [32]byte, taker [20]byte, takerSource, takerDest, makerDest [20]byte, wantedAsset string) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: record lookup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrEscrowNotFound, id)
	}
	if wantedAsset != esc.WantedAsset {
		return nil, fmt.Errorf("%w: escrow wants %s, got %s", ErrAssetMismatch, esc.WantedAsset, wantedAsset)
	}
	makerAcct, err := e.state.TokenAccount(makerDest)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: maker destination: %w", err)
	}
	if makerAcct.Owner != esc.Maker || makerAcct.Asset != esc.WantedAsset {
		return nil, fmt.Errorf("%w: destination is not the maker's %s account", ErrAccountOwnership, esc.WantedAsset)
	}
	takerAcct, err := e.state.TokenAccount(takerDest)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: taker destination: %w", err)
	}
	if takerAcct.Asset != esc.OfferedAsset {
		return nil, fmt.Errorf("%w: taker destination holds %s, escrow offers %s", ErrAccountOwnership, takerAcct.Asset, esc.OfferedAsset)
	}
	vault, err := e.vaultAuthority(esc)
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(takerSource, makerDest, esc.WantedAsset, esc.WantedAmount, taker); err != nil {
		return nil, fmt.Errorf("swapescrow: taker payment: %w", err)
	}
	if err := e.state.Transfer(vault, takerDest, esc.OfferedAsset, esc.OfferedAmount, vault); err != nil {
		return nil, fmt.Errorf("swapescrow: vault release: %w", err)
	}
	if err := e.teardown(esc, takerDest, vault); err != nil {
		return nil, err
	}
	e.emit(exchanged{esc: esc, taker: taker})
	return esc.Clone(), nil
}

// Cancel returns the vault's contents to the maker and destroys the record
// and vault. Only the stored maker may cancel, and the refund account must
// be the maker's own account for the offered asset.
func (e *Engine) Cancel(id [32]byte, caller [20]byte, refund [20]byte) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: record lookup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrEscrowNotFound, id)
	}
	if caller != esc.Maker {
		return nil, fmt.Errorf("%w: only the maker may cancel", ErrInvalidSigner)
	}
	refundAcct, err := e.state.TokenAccount(refund)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: refund account: %w", err)
	}
	if refundAcct.Owner != esc.Maker || refundAcct.Asset != esc.OfferedAsset {
		return nil, fmt.Errorf("%w: refund is not the maker's %s account", ErrAccountOwnership, esc.OfferedAsset)
	}
	vault, err := e.vaultAuthority(esc)
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(vault, refund, esc.OfferedAsset, esc.OfferedAmount, vault); err != nil {
		return nil, fmt.Errorf("swapescrow: vault refund: %w", err)
	}
	if err := e.teardown(esc, refund, vault); err != nil {
		return nil, err
	}
	e.emit(cancelled{esc: esc})
	return esc.Clone(), nil
}

// Get returns the active escrow record with the given identity.
func (e *Engine) Get(id [32]byte) (*Escrow, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	esc, ok, err := e.state.EscrowGet(id)
	if err != nil {
		return nil, fmt.Errorf("swapescrow: record lookup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %x", ErrEscrowNotFound, id)
	}
	return esc.Clone(), nil
}

// vaultAuthority re-derives the vault address from the record identity and
// the stored bump and checks it against the record. The derived address is
// the authority for every vault movement.
func (e *Engine) vaultAuthority(esc *Escrow) ([20]byte, error) {
	vault := VaultAddress(esc.ID, esc.VaultBump)
	if vault != esc.Vault {
		return [20]byte{}, fmt.Errorf("swapescrow: stored vault %x does not match derivation %x", esc.Vault, vault)
	}
	return vault, nil
}

// teardown destroys the vault and the record in that order. It runs exactly
// once per terminal transition, after the vault has been fully disbursed.
func (e *Engine) teardown(esc *Escrow, beneficiary [20]byte, vault [20]byte) error {
	if err := e.state.CloseAccount(vault, beneficiary, vault); err != nil {
		return fmt.Errorf("swapescrow: close vault: %w", err)
	}
	if err := e.state.EscrowDelete(esc.ID); err != nil {
		return fmt.Errorf("swapescrow: delete record: %w", err)
	}
	return nil
}
