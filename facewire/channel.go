package facewire

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/gorilla/websocket"

	"github.com/goliatone/go-authflow/correlate"
)

// Logger is the minimal logging surface the channel needs.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Channel frames envelopes onto one websocket connection and fans incoming
// envelopes into a correlated bus keyed by envelope id. Writes are serialized
// with a mutex; gorilla/websocket allows at most one concurrent writer.
type Channel struct {
	conn *websocket.Conn
	bus  *correlate.Bus[string, Envelope]

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
	logger  Logger
}

// ChannelOption customizes channel construction.
type ChannelOption func(*Channel)

// WithChannelLogger sets the channel logger.
func WithChannelLogger(logger Logger) ChannelOption {
	return func(c *Channel) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChannel wraps an established websocket connection.
func NewChannel(conn *websocket.Conn, bus *correlate.Bus[string, Envelope], opts ...ChannelOption) *Channel {
	c := &Channel{
		conn:   conn,
		bus:    bus,
		logger: nopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Send frames one envelope onto the wire.
func (c *Channel) Send(env Envelope) error {
	if err := env.ValidateKind(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteJSON(env); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to write envelope")
	}
	return nil
}

// ReadPump reads envelopes until the connection drops or ctx is done,
// publishing each into the bus under its correlation id. Run it in its own
// goroutine for the life of the connection.
func (c *Channel) ReadPump(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to read envelope")
		}

		if err := env.ValidateKind(); err != nil {
			c.logger.Warn("dropping malformed envelope: %v", err)
			continue
		}

		c.bus.Publish(env.ID, env)
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Channel) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return c.conn.Close()
}
