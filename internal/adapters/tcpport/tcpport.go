// Package tcpport implements ports.Transport over Modbus TCP.
package tcpport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/mbtools/modpoll/internal/codec"
	"github.com/mbtools/modpoll/internal/domain"
	"github.com/mbtools/modpoll/internal/ports"
)

// DefaultPort is the registered Modbus TCP port.
const DefaultPort = 502

// dialTimeout bounds connection establishment.
const dialTimeout = 5 * time.Second

// readSlice is how long each blocking read waits before the loop rechecks
// the context and the overall deadline.
const readSlice = 20 * time.Millisecond

// Transport carries MBAP-framed transactions over one TCP connection.
type Transport struct {
	mu   sync.Mutex
	conn net.Conn
}

// New creates a closed TCP transport. Open must be called before use.
func New() *Transport {
	return &Transport{}
}

// Open dials the target described by cfg.
func (t *Transport) Open(ctx context.Context, cfg ports.ConnectionConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return domain.ErrAlreadyConnected
	}

	port := cfg.TCPPort
	if port == 0 {
		port = DefaultPort
	}
	addr := net.JoinHostPort(cfg.Address, fmt.Sprintf("%d", port))

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &domain.TransportError{Op: "open", Err: err}
	}
	t.conn = conn
	return nil
}

// Write transmits one complete request frame.
func (t *Transport) Write(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := conn.Write(frame); err != nil {
		return &domain.TransportError{Op: "write", Err: err}
	}
	return nil
}

// ReadFrame reads the MBAP header, then exactly the number of bytes it
// announces. Returns domain.ErrTimeout when the deadline elapses, or
// ctx.Err() when the wait is canceled.
func (t *Transport) ReadFrame(ctx context.Context, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil, domain.ErrNotConnected
	}

	deadline := time.Now().Add(timeout)
	buf := make([]byte, 0, 260)
	chunk := make([]byte, 256)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, domain.ErrTimeout
		}

		// Short per-read deadlines keep cancellation prompt without tearing
		// down the connection.
		if err := conn.SetReadDeadline(time.Now().Add(readSlice)); err != nil {
			return nil, &domain.TransportError{Op: "read", Err: err}
		}
		n, err := conn.Read(chunk)
		if err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				continue
			}
			if err == io.EOF {
				return nil, &domain.TransportError{Op: "read", Err: io.ErrUnexpectedEOF}
			}
			return nil, &domain.TransportError{Op: "read", Err: err}
		}
		buf = append(buf, chunk[:n]...)

		if want, ok := codec.TCPFrameSize(buf); ok && len(buf) >= want {
			return buf[:want], nil
		}
	}
}

// Drain discards any buffered input with a zero-wait read sweep.
func (t *Transport) Drain() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}

	if err := conn.SetReadDeadline(time.Now()); err != nil {
		return err
	}
	junk := make([]byte, 256)
	for {
		if _, err := conn.Read(junk); err != nil {
			var nerr net.Error
			if errors.As(err, &nerr) && nerr.Timeout() {
				return nil
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// Connected reports whether the connection is open.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

// Close closes the connection. Safe to call when not open.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
