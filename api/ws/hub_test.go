package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hems/core/events"
	"github.com/kilianp07/hems/core/model"
	"github.com/kilianp07/hems/core/state"
	"github.com/kilianp07/hems/internal/eventbus"
)

func dial(t *testing.T, h *Handler) (*websocket.Conn, func()) {
	t.Helper()
	server := httptest.NewServer(h)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func TestHandler_SendsSnapshotThenEvents(t *testing.T) {
	store := state.NewMemoryStore(state.DefaultSeed().State())
	hub := NewHub(nil)
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx, bus)
	require.Eventually(t, func() bool { return bus.Subscribers() == 1 }, time.Second, time.Millisecond)

	conn, closeFn := dial(t, NewHandler(hub, store, nil))
	defer closeFn()

	env := readEnvelope(t, conn)
	assert.Equal(t, TypeState, env.Type)
	var st model.State
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Len(t, st.Devices, 5)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)
	bus.Publish(events.OverrideEvent{Enabled: true})
	bus.Publish("ignored")
	bus.Publish(events.TickEvent{Mode: "auto", SolarForecastWh: 500})

	env = readEnvelope(t, conn)
	assert.Equal(t, TypeOverride, env.Type)
	env = readEnvelope(t, conn)
	assert.Equal(t, TypeTick, env.Type)
	var tick events.TickEvent
	require.NoError(t, json.Unmarshal(env.Data, &tick))
	assert.Equal(t, 500.0, tick.SolarForecastWh)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := NewHub(nil)
	conn, closeFn := dial(t, NewHandler(hub, nil, nil))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, time.Millisecond)
	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	closeFn()
}
