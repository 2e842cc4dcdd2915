package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	defaultSendBuffer = 256
	defaultReadLimit  = 1 << 20
	writeTimeout      = 10 * time.Second
)

// WebSocket is a client connection to the backend process. Every frame the backend pushes
// is delivered on ChannelMessage; Publish writes frames back.
type WebSocket struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[*subscription]struct{}

	done      chan struct{}
	closeOnce sync.Once
	cancel    context.CancelFunc
}

type subscription struct {
	ctx     context.Context
	handler Handler
}

// WebSocketOption configures Dial.
type WebSocketOption func(*webSocketConfig)

type webSocketConfig struct {
	logger     *slog.Logger
	header     http.Header
	readLimit  int64
	sendBuffer int
}

// WithWebSocketLogger sets the logger for connection events.
func WithWebSocketLogger(logger *slog.Logger) WebSocketOption {
	return func(c *webSocketConfig) {
		c.logger = logger
	}
}

// WithHeader adds HTTP headers to the upgrade request.
func WithHeader(header http.Header) WebSocketOption {
	return func(c *webSocketConfig) {
		c.header = header
	}
}

// WithReadLimit caps the size of a single inbound frame.
func WithReadLimit(n int64) WebSocketOption {
	return func(c *webSocketConfig) {
		c.readLimit = n
	}
}

// WithSendBuffer sets how many outbound frames may be queued.
func WithSendBuffer(n int) WebSocketOption {
	return func(c *webSocketConfig) {
		c.sendBuffer = n
	}
}

// Dial connects to the backend at url and starts the read and write pumps.
func Dial(ctx context.Context, url string, opts ...WebSocketOption) (*WebSocket, error) {
	cfg := webSocketConfig{
		logger:     slog.Default(),
		readLimit:  defaultReadLimit,
		sendBuffer: defaultSendBuffer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: cfg.header})
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(cfg.readLimit)

	pumpCtx, cancel := context.WithCancel(context.Background())
	ws := &WebSocket{
		id:       uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, cfg.sendBuffer),
		logger:   cfg.logger,
		handlers: make(map[*subscription]struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
	}
	ws.logger.Info("Connected to backend", "url", url, "connID", ws.id)

	go ws.writePump(pumpCtx)
	go ws.readPump(pumpCtx)

	return ws, nil
}

// ID returns the connection ID attached to every received message.
func (ws *WebSocket) ID() string {
	return ws.id
}

// Done is closed once the connection has ended.
func (ws *WebSocket) Done() <-chan struct{} {
	return ws.done
}

// Subscribe implements Subscriber. Frames that arrive while nobody is subscribed are lost.
func (ws *WebSocket) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if channel != ChannelMessage {
		return ErrUnknownChannel
	}
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}

	sub := &subscription{ctx: ctx, handler: handler}
	ws.mu.Lock()
	ws.handlers[sub] = struct{}{}
	ws.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-ws.done:
		}
		ws.mu.Lock()
		delete(ws.handlers, sub)
		ws.mu.Unlock()
	}()
	return nil
}

// Publish implements Publisher by queueing msg.Payload for the write pump.
func (ws *WebSocket) Publish(ctx context.Context, msg Message) error {
	select {
	case <-ws.done:
		return ErrClosed
	default:
	}

	select {
	case ws.send <- msg.Payload:
		return nil
	case <-ws.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the connection. It is safe to call more than once. A failed close handshake
// is logged, not returned.
func (ws *WebSocket) Close() error {
	ws.closeOnce.Do(func() {
		close(ws.done)
		if err := ws.conn.Close(websocket.StatusNormalClosure, "client closing"); !isNormalClose(err) {
			ws.logger.Debug("WebSocket close handshake failed", "connID", ws.id, "error", err)
		}
		ws.cancel()
		ws.logger.Info("Disconnected from backend", "connID", ws.id)
	})
	return nil
}

func (ws *WebSocket) readPump(ctx context.Context) {
	defer ws.Close()

	for {
		_, frame, err := ws.conn.Read(ctx)
		if err != nil {
			select {
			case <-ws.done:
			default:
				if isNormalClose(err) || errors.Is(err, io.EOF) {
					ws.logger.Info("Backend closed the connection", "connID", ws.id)
				} else {
					ws.logger.Error("WebSocket read error", "connID", ws.id, "error", err)
				}
			}
			return
		}
		ws.dispatch(frame)
	}
}

func (ws *WebSocket) dispatch(frame []byte) {
	ws.mu.RLock()
	subs := make([]*subscription, 0, len(ws.handlers))
	for sub := range ws.handlers {
		subs = append(subs, sub)
	}
	ws.mu.RUnlock()

	for _, sub := range subs {
		msg := Message{
			Channel:  ChannelMessage,
			Payload:  frame,
			Metadata: map[string]string{"conn_id": ws.id},
		}
		if err := sub.handler(sub.ctx, msg); err != nil {
			ws.logger.Error("Failed to handle backend frame", "connID", ws.id, "error", err)
		}
	}
}

func (ws *WebSocket) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-ws.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := ws.conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				ws.logger.Error("WebSocket write error", "connID", ws.id, "error", err)
				ws.Close()
				return
			}
		}
	}
}

func isNormalClose(err error) bool {
	status := websocket.CloseStatus(err)
	return err == nil || status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
