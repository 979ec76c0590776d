package modpoll

import (
	"github.com/mbtools/modpoll/internal/app"
	"github.com/mbtools/modpoll/internal/ports"
)

// Option customizes a Client at construction time.
type Option func(*Client)

// Logger is the structured logging interface the client reports through.
type Logger = ports.Logger

// Transport carries raw frames to and from one device.
type Transport = ports.Transport

// WithLogger routes the client's logging through l.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTransport substitutes the transport, overriding the one implied by
// the connection mode. Useful for tests and custom media.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithHistoryCapacity bounds the transaction history ring.
func WithHistoryCapacity(n int) Option {
	return func(c *Client) { c.history = app.NewHistoryLog(n) }
}
