package ports

import (
	"context"
	"time"
)

// Mode selects the Modbus framing and physical medium.
type Mode string

const (
	ModeSerial Mode = "serial"
	ModeTCP    Mode = "tcp"
)

// Parity is the serial parity setting.
type Parity string

const (
	ParityNone Parity = "N"
	ParityEven Parity = "E"
	ParityOdd  Parity = "O"
)

// StopBits is the serial stop bit setting.
type StopBits string

const (
	StopBitsOne          StopBits = "1"
	StopBitsOnePointFive StopBits = "1.5"
	StopBitsTwo          StopBits = "2"
)

// ConnectionConfig enumerates everything needed to open a transport to one
// target device.
type ConnectionConfig struct {
	Mode Mode

	// Serial parameters.
	Port     string
	BaudRate int
	Parity   Parity
	StopBits StopBits
	DataBits int

	// TCP parameters.
	Address string
	TCPPort int

	// Timeout is the default per-transaction response deadline.
	Timeout time.Duration
}

// Transport carries raw Modbus frames to and from one device. Implementations
// are not safe for concurrent use; the TransactionExecutor serializes access.
type Transport interface {
	// Open establishes the connection described by cfg.
	Open(ctx context.Context, cfg ConnectionConfig) error

	// Write transmits one complete request frame.
	Write(ctx context.Context, frame []byte) error

	// ReadFrame blocks until exactly one complete response frame has
	// arrived, the timeout elapses (domain.ErrTimeout), or ctx is canceled.
	ReadFrame(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Drain discards any buffered input. Called before each transaction so
	// stray bytes from an abandoned exchange are never misattributed.
	Drain() error

	// Connected reports whether the transport is open.
	Connected() bool

	// Close tears the connection down. Safe to call when not open.
	Close() error
}
