// Package backendsim is a stand-in for the native trading backend.
//
// It serves the same push channel the real backend does: UI processes connect to /ws and
// receive {"event", "data"} text frames. Frames are produced by POST /push, by Push from
// Go code, or by the demo feed. Whatever clients write back is exposed on Received.
package backendsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/nfrund/tradedesk/internal/topicmgr"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Send pings to peer with this period.
	pingPeriod = 30 * time.Second
	// Maximum frame size accepted from a client.
	maxMessageSize = 64 << 10

	sendBuffer     = 256
	receivedBuffer = 64
	shutdownWait   = 10 * time.Second
)

// Frame is a message a client sent to the simulator.
type Frame struct {
	ClientID   string
	Payload    []byte
	ReceivedAt time.Time
}

// Simulator serves the backend push channel.
type Simulator struct {
	E         *echo.Echo
	clients   *ClientManager
	upgrader  websocket.Upgrader
	validator *topicmgr.Validator
	received  chan Frame
	logger    *slog.Logger
	version   string
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
	}
}

// WithVersion sets the version announced in backend_status on connect.
func WithVersion(version string) Option {
	return func(s *Simulator) {
		s.version = version
	}
}

// WithReceivedBuffer sets how many client frames are kept for Received before new ones
// are dropped.
func WithReceivedBuffer(n int) Option {
	return func(s *Simulator) {
		s.received = make(chan Frame, n)
	}
}

// New creates a simulator with its routes installed.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		E:         echo.New(),
		clients:   NewClientManager(),
		validator: topicmgr.NewValidator(),
		received:  make(chan Frame, receivedBuffer),
		logger:    slog.Default(),
		version:   "sim",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The simulator only ever runs on a developer machine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.E.HideBanner = true
	s.E.HidePort = true
	s.E.Validator = NewValidator()
	s.E.Use(middleware.Recover())
	s.routes()
	return s
}

func (s *Simulator) routes() {
	s.E.GET("/ws", s.handleWebSocket)
	s.E.POST("/push", s.handlePush)
	s.E.GET("/healthz", s.handleHealth)
}

// ServeHTTP lets the simulator be mounted on any http.Server or httptest.Server.
func (s *Simulator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.E.ServeHTTP(w, r)
}

// Clients returns the client manager.
func (s *Simulator) Clients() *ClientManager {
	return s.clients
}

// Received returns the frames clients sent.
func (s *Simulator) Received() <-chan Frame {
	return s.received
}

// Push sends one envelope to every connected client and returns how many got it.
func (s *Simulator) Push(event string, data any) (int, error) {
	if err := s.validator.ValidateName(event); err != nil {
		return 0, fmt.Errorf("push %q: %w", event, err)
	}
	frame, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return 0, fmt.Errorf("encode %s envelope: %w", event, err)
	}
	n := s.clients.Broadcast(frame)
	s.logger.Debug("Pushed event", "event", event, "clients", n)
	return n, nil
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Simulator) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.E.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("Backend simulator listening", "addr", addr)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("start simulator: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()

	s.Close()
	if err := s.E.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown simulator: %w", err)
	}
	return nil
}

// Close disconnects every client.
func (s *Simulator) Close() {
	for _, client := range s.clients.GetAll() {
		s.clients.Remove(client.ID)
	}
}

func (s *Simulator) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.clients.Count(),
		"version": s.version,
	})
}

func (s *Simulator) handlePush(c echo.Context) error {
	var req PushRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var data any
	if len(req.Data) > 0 {
		data = req.Data
	}
	n, err := s.Push(req.Event, data)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusAccepted, PushResponse{Event: req.Event, Clients: n})
}

func (s *Simulator) handleWebSocket(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied to the client.
		s.logger.Error("Failed to upgrade connection to WebSocket", "error", err)
		return nil
	}

	client := &Client{ID: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	s.clients.Add(client)
	s.logger.Info("Client connected", "clientID", client.ID)

	go s.writePump(client)
	go s.readPump(client)

	if frame, err := json.Marshal(envelope{
		Event: "backend_status",
		Data:  map[string]any{"connected": true, "version": s.version},
	}); err == nil {
		client.SendMessage(frame)
	}
	return nil
}

// readPump forwards client frames to Received until the connection fails.
func (s *Simulator) readPump(client *Client) {
	defer func() {
		s.clients.Remove(client.ID)
		s.logger.Info("Client disconnected", "clientID", client.ID)
	}()

	client.conn.SetReadLimit(maxMessageSize)
	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("WebSocket read error", "clientID", client.ID, "error", err)
			}
			return
		}

		select {
		case s.received <- Frame{ClientID: client.ID, Payload: message, ReceivedAt: time.Now()}:
		default:
			s.logger.Debug("Received buffer full, dropping client frame", "clientID", client.ID)
		}
	}
}

// writePump drains the client's send channel onto the connection.
func (s *Simulator) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	client.mu.RLock()
	send := client.send
	client.mu.RUnlock()

	for {
		select {
		case message, ok := <-send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Error("WebSocket write error", "clientID", client.ID, "error", err)
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
