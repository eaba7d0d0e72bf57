package swapescrow

import (
	"encoding/hex"
	"strconv"

	"swapvault/core/types"
)

const (
	EventTypeInitialized = "swapescrow.initialized"
	EventTypeExchanged   = "swapescrow.exchanged"
	EventTypeCancelled   = "swapescrow.cancelled"
)

type initialized struct {
	esc *Escrow
}

func (initialized) EventType() string { return EventTypeInitialized }

func (e initialized) Event() *types.Event {
	return escrowEvent(EventTypeInitialized, e.esc, nil)
}

type exchanged struct {
	esc   *Escrow
	taker [20]byte
}

func (exchanged) EventType() string { return EventTypeExchanged }

func (e exchanged) Event() *types.Event {
	extra := map[string]string{"taker": hex.EncodeToString(e.taker[:])}
	return escrowEvent(EventTypeExchanged, e.esc, extra)
}

type cancelled struct {
	esc *Escrow
}

func (cancelled) EventType() string { return EventTypeCancelled }

func (e cancelled) Event() *types.Event {
	return escrowEvent(EventTypeCancelled, e.esc, nil)
}

func escrowEvent(eventType string, esc *Escrow, extra map[string]string) *types.Event {
	attrs := make(map[string]string)
	if esc != nil {
		sane, err := SanitizeEscrow(esc)
		if err == nil {
			attrs["id"] = hex.EncodeToString(sane.ID[:])
			attrs["maker"] = hex.EncodeToString(sane.Maker[:])
			attrs["offeredAsset"] = sane.OfferedAsset
			attrs["offeredAmount"] = sane.OfferedAmount.String()
			attrs["wantedAsset"] = sane.WantedAsset
			attrs["wantedAmount"] = sane.WantedAmount.String()
			attrs["vault"] = hex.EncodeToString(sane.Vault[:])
			attrs["vaultBump"] = strconv.FormatUint(uint64(sane.VaultBump), 10)
			attrs["createdAt"] = strconv.FormatInt(sane.CreatedAt, 10)
		}
	}
	for k, v := range extra {
		attrs[k] = v
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
