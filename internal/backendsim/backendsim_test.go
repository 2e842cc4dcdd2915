package backendsim_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfrund/tradedesk/internal/backendsim"
	"github.com/nfrund/tradedesk/internal/bridge"
	"github.com/nfrund/tradedesk/internal/events"
	"github.com/nfrund/tradedesk/internal/transport"
)

func startSimulator(t *testing.T) (*backendsim.Simulator, *httptest.Server) {
	t.Helper()
	sim := backendsim.New()
	server := httptest.NewServer(sim)
	t.Cleanup(func() {
		sim.Close()
		server.Close()
	})
	return sim, server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err, "Failed to connect to simulator websocket")
	t.Cleanup(func() {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	})
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read frame from simulator")

	var env map[string]any
	require.NoError(t, json.Unmarshal(p, &env))
	return env
}

func postPush(t *testing.T, server *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(server.URL+"/push", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestSimulator_GreetsAndPushes(t *testing.T) {
	sim, server := startSimulator(t)
	conn := dial(t, server)

	greeting := readEnvelope(t, conn)
	assert.Equal(t, "backend_status", greeting["event"])
	assert.Equal(t, true, greeting["data"].(map[string]any)["connected"])
	require.Equal(t, 1, sim.Clients().Count())

	n, err := sim.Push("order_update", events.Order{OrderID: "7", Status: "NEW"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	env := readEnvelope(t, conn)
	assert.Equal(t, "order_update", env["event"])
	assert.Equal(t, "7", env["data"].(map[string]any)["orderId"])
}

func TestSimulator_PushWithoutData(t *testing.T) {
	sim, server := startSimulator(t)
	conn := dial(t, server)
	readEnvelope(t, conn)

	_, err := sim.Push("backend_status", nil)
	require.NoError(t, err)

	env := readEnvelope(t, conn)
	assert.Equal(t, "backend_status", env["event"])
	assert.NotContains(t, env, "data")
}

func TestSimulator_PushRejectsBadNames(t *testing.T) {
	sim := backendsim.New()

	_, err := sim.Push("", nil)
	assert.Error(t, err)
	_, err = sim.Push("Order Update", nil)
	assert.Error(t, err)

	n, err := sim.Push("quote", map[string]any{"symbol": "AAPL"})
	require.NoError(t, err)
	assert.Zero(t, n, "no clients connected")
}

func TestSimulator_PushEndpoint(t *testing.T) {
	sim, server := startSimulator(t)
	conn := dial(t, server)
	readEnvelope(t, conn)
	require.Eventually(t, func() bool { return sim.Clients().Count() == 1 }, time.Second, 10*time.Millisecond)

	resp := postPush(t, server, `{"event":"notification","data":{"level":"info","message":"hi"}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body backendsim.PushResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, backendsim.PushResponse{Event: "notification", Clients: 1}, body)

	env := readEnvelope(t, conn)
	assert.Equal(t, "notification", env["event"])
	assert.Equal(t, map[string]any{"level": "info", "message": "hi"}, env["data"])

	t.Run("invalid requests", func(t *testing.T) {
		for _, body := range []string{
			`{"data":{}}`,
			`{"event":""}`,
			`{"event":"Not Valid"}`,
			`{"event":`,
		} {
			resp := postPush(t, server, body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
		}
	})
}

func TestSimulator_Received(t *testing.T) {
	sim, server := startSimulator(t)
	conn := dial(t, server)
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"place_order"}`)))

	select {
	case frame := <-sim.Received():
		assert.JSONEq(t, `{"event":"place_order"}`, string(frame.Payload))
		assert.NotEmpty(t, frame.ClientID)
		_, ok := sim.Clients().Get(frame.ClientID)
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not receive the client frame")
	}
}

func TestSimulator_ClientDisconnect(t *testing.T) {
	sim, server := startSimulator(t)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return sim.Clients().Count() == 1 }, time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool { return sim.Clients().Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSimulator_Health(t *testing.T) {
	_, server := startSimulator(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["clients"])
}

// TestSimulator_BridgeEndToEnd drives the bridge through the real websocket transport.
func TestSimulator_BridgeEndToEnd(t *testing.T) {
	sim, server := startSimulator(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ws, err := transport.Dial(ctx, wsURL(server))
	require.NoError(t, err)
	defer ws.Close()

	b := bridge.New()
	orders := make(chan events.Order, 1)
	settings := make(chan events.Settings, 1)
	statuses := make(chan events.BackendStatus, 1)
	events.OrderUpdate.On(b, func(o events.Order) { orders <- o })
	events.SettingsUpdate.On(b, func(_ string, s events.Settings) { settings <- s })
	events.Status.On(b, func(s events.BackendStatus) {
		select {
		case statuses <- s:
		default:
		}
	})
	require.NoError(t, b.Start(ctx, ws))

	require.Eventually(t, func() bool { return sim.Clients().Count() == 1 }, time.Second, 10*time.Millisecond)

	_, err = sim.Push("order_update", events.Order{OrderID: "99", Status: "FILLED"})
	require.NoError(t, err)
	resp := postPush(t, server, `{"event":"update_data","data":{"type":"settings","operation":"SET","data":{"theme":"light"}}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case o := <-orders:
		assert.Equal(t, "99", o.OrderID)
	case <-ctx.Done():
		t.Fatal("order_update never reached the bridge")
	}
	select {
	case s := <-settings:
		assert.Equal(t, "light", s.Theme)
	case <-ctx.Done():
		t.Fatal("update_data:settings never reached the bridge")
	}

	t.Run("client frames reach the simulator", func(t *testing.T) {
		require.NoError(t, ws.Publish(ctx, transport.Message{Payload: []byte(`{"event":"ack"}`)}))
		select {
		case frame := <-sim.Received():
			assert.JSONEq(t, `{"event":"ack"}`, string(frame.Payload))
		case <-ctx.Done():
			t.Fatal("simulator did not receive the frame")
		}
	})
}

func TestSimulator_RunDemo(t *testing.T) {
	sim, server := startSimulator(t)
	conn := dial(t, server)
	readEnvelope(t, conn)
	require.Eventually(t, func() bool { return sim.Clients().Count() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sim.RunDemo(ctx, backendsim.NewDemo(1, "AAPL"), 10*time.Millisecond)

	env := readEnvelope(t, conn)
	assert.Equal(t, "quote", env["event"])
	assert.Equal(t, "AAPL", env["data"].(map[string]any)["symbol"])
}

func TestSimulator_Run(t *testing.T) {
	sim := backendsim.New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- sim.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSimulator_RunFailsOnBadAddr(t *testing.T) {
	sim := backendsim.New()
	err := sim.Run(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
