package rpc

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"swapvault/core"
	"swapvault/core/types"
	"swapvault/native/swapescrow"
)

func TestEventStreamDeliversCommittedEvents(t *testing.T) {
	rig := newTestRig(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(rig.http.URL, "http", "ws", 1) + "/ws/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	_, resp := rig.sendTx(t, rig.maker, types.TxTypeInitialize, 0, core.InitializeParams{
		Seed:          3,
		Source:        accountOf(rig.maker, "X"),
		OfferedAsset:  "X",
		WantedAsset:   "Y",
		OfferedAmount: "50",
		WantedAmount:  "75",
	})
	require.Nil(t, resp.Error)

	_, payload, err := conn.Read(ctx)
	require.NoError(t, err)

	var evt types.Event
	require.NoError(t, json.Unmarshal(payload, &evt))
	require.Equal(t, swapescrow.EventTypeInitialized, evt.Type)
	require.Equal(t, "50", evt.Attributes["offeredAmount"])
}

func TestEventHubDropsSlowSubscribers(t *testing.T) {
	hub := NewEventHub()
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	evt := &types.Event{Type: "swapescrow.initialized"}
	for i := 0; i < subscriberBuffer+10; i++ {
		hub.Publish([]*types.Event{evt})
	}

	// The buffer absorbs exactly subscriberBuffer events; the rest are
	// dropped instead of blocking the publisher.
	require.Len(t, ch, subscriberBuffer)
}
