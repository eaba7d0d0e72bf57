package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"swapvault/core/types"
)

const (
	subscriberBuffer = 64
	writeTimeout     = 5 * time.Second
)

// EventHub fans committed ledger events out to WebSocket subscribers. A
// subscriber that cannot keep up has events dropped rather than stalling
// transaction processing.
type EventHub struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan []byte]struct{})}
}

func (h *EventHub) subscribe() chan []byte {
	ch := make(chan []byte, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) unsubscribe(ch chan []byte) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish serialises each event once and delivers it to every subscriber.
func (h *EventHub) Publish(evts []*types.Event) {
	if len(evts) == 0 {
		return
	}
	payloads := make([][]byte, 0, len(evts))
	for _, evt := range evts {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		payloads = append(payloads, payload)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		for _, payload := range payloads {
			select {
			case ch <- payload:
			default:
			}
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "event stream closed")

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case payload, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
