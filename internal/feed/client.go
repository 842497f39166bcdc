package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrAlreadyClosed is returned by Connect after Close.
	ErrAlreadyClosed = errors.New("transport already closed")
)

// Message wraps raw event bytes with a receive timestamp.
type Message struct {
	Data       []byte
	ReceivedAt time.Time
}

// Transport is a single read-only connection to the event relay.
// A transport is single-use; after a read error or Close it is discarded
// and the consumer dials a fresh one.
type Transport interface {
	Connect(ctx context.Context) error
	Close() error
	Messages() <-chan Message
	Errors() <-chan error
}

// TransportConfig configures a websocket transport.
type TransportConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	BufferSize       int
}

// DefaultTransportConfig returns sensible defaults.
func DefaultTransportConfig(url string) TransportConfig {
	return TransportConfig{
		URL:              url,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       4096,
	}
}

type wsTransport struct {
	cfg    TransportConfig
	logger *slog.Logger

	conn     *websocket.Conn
	messages chan Message
	errors   chan error
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewTransport creates a websocket Transport.
func NewTransport(cfg TransportConfig, logger *slog.Logger) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultTransportConfig(cfg.URL).BufferSize
	}
	return &wsTransport{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan Message, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect dials the relay and starts the read loop.
func (t *wsTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrAlreadyClosed
	}
	t.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: t.cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, t.cfg.URL, nil)
	if err != nil {
		return err
	}

	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()

	go t.readLoop()

	t.logger.Debug("relay connected", "url", t.cfg.URL)
	return nil
}

// Close shuts the connection down. Safe to call more than once.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	close(t.done)

	if conn != nil {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return conn.Close()
	}
	return nil
}

// Messages returns the raw event channel.
func (t *wsTransport) Messages() <-chan Message {
	return t.messages
}

// Errors returns the transport error channel.
func (t *wsTransport) Errors() <-chan error {
	return t.errors
}

func (t *wsTransport) readLoop() {
	for {
		select {
		case <-t.done:
			return
		default:
		}

		_, data, err := t.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Errors after Close are expected, swallow them.
			select {
			case <-t.done:
				return
			default:
			}
			select {
			case t.errors <- err:
			default:
			}
			return
		}

		select {
		case t.messages <- Message{Data: data, ReceivedAt: receivedAt}:
		case <-t.done:
			return
		default:
			t.logger.Warn("relay buffer full, dropping event")
		}
	}
}
