// Package serialport implements ports.Transport over an RS-232/RS-485
// serial line using go.bug.st/serial.
package serialport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/mbtools/modpoll/internal/codec"
	"github.com/mbtools/modpoll/internal/domain"
	"github.com/mbtools/modpoll/internal/ports"
)

// readSlice is how long each blocking read waits before the loop rechecks
// the context and the overall deadline.
const readSlice = 20 * time.Millisecond

// Transport carries RTU frames over one serial port.
type Transport struct {
	mu   sync.Mutex
	port serial.Port
}

// New creates a closed serial transport. Open must be called before use.
func New() *Transport {
	return &Transport{}
}

// Open opens the serial port described by cfg.
func (t *Transport) Open(ctx context.Context, cfg ports.ConnectionConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return domain.ErrAlreadyConnected
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   parityOf(cfg.Parity),
		StopBits: stopBitsOf(cfg.StopBits),
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return &domain.TransportError{Op: "open", Err: fmt.Errorf("open %s: %w", cfg.Port, err)}
	}
	if err := port.SetReadTimeout(readSlice); err != nil {
		port.Close()
		return &domain.TransportError{Op: "open", Err: fmt.Errorf("set read timeout: %w", err)}
	}
	t.port = port
	return nil
}

// Write transmits one complete request frame.
func (t *Transport) Write(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return domain.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := port.Write(frame); err != nil {
		return &domain.TransportError{Op: "write", Err: err}
	}
	return nil
}

// ReadFrame accumulates bytes until one complete RTU frame has arrived. It
// returns domain.ErrTimeout when the deadline elapses, or ctx.Err() when the
// wait is canceled.
func (t *Transport) ReadFrame(ctx context.Context, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
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

		// Reads return after readSlice at the latest, so cancellation and
		// the deadline are observed promptly.
		n, err := port.Read(chunk)
		if err != nil {
			return nil, &domain.TransportError{Op: "read", Err: err}
		}
		if n == 0 {
			continue
		}
		buf = append(buf, chunk[:n]...)

		if want, ok := codec.RTUFrameSize(buf); ok && len(buf) >= want {
			return buf[:want], nil
		}
	}
}

// Drain discards any buffered input.
func (t *Transport) Drain() error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()
	if port == nil {
		return nil
	}
	return port.ResetInputBuffer()
}

// Connected reports whether the port is open.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Close closes the port. Safe to call when not open.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

func parityOf(p ports.Parity) serial.Parity {
	switch p {
	case ports.ParityEven:
		return serial.EvenParity
	case ports.ParityOdd:
		return serial.OddParity
	default:
		return serial.NoParity
	}
}

func stopBitsOf(s ports.StopBits) serial.StopBits {
	switch s {
	case ports.StopBitsOnePointFive:
		return serial.OnePointFiveStopBits
	case ports.StopBitsTwo:
		return serial.TwoStopBits
	default:
		return serial.OneStopBit
	}
}
