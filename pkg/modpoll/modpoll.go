// Package modpoll provides a Modbus master for polling RTU and TCP devices.
//
// Example usage:
//
//	cfg := modpoll.ConnectionConfig{
//	    Mode:     modpoll.ModeSerial,
//	    Port:     "/dev/ttyUSB0",
//	    BaudRate: 9600,
//	    Parity:   modpoll.ParityNone,
//	    StopBits: modpoll.StopBitsOne,
//	    DataBits: 8,
//	}
//	client := modpoll.New(cfg)
//	if err := client.Connect(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.SetRequests(requests)
//	if err := client.StartPolling([]string{"temp"}, time.Second, 0); err != nil {
//	    log.Fatal(err)
//	}
package modpoll

import (
	"context"
	"io"
	"time"

	"github.com/mbtools/modpoll/internal/adapters/fs"
	"github.com/mbtools/modpoll/internal/adapters/log"
	"github.com/mbtools/modpoll/internal/adapters/serialport"
	"github.com/mbtools/modpoll/internal/adapters/tcpport"
	"github.com/mbtools/modpoll/internal/app"
	"github.com/mbtools/modpoll/internal/codec"
	"github.com/mbtools/modpoll/internal/domain"
	"github.com/mbtools/modpoll/internal/ports"
)

// Client is a Modbus master over one connection: it encodes and sends
// transactions, schedules polling sessions and records history.
type Client struct {
	cfg       ports.ConnectionConfig
	transport ports.Transport
	logger    ports.Logger
	history   *app.HistoryLog
	exec      *app.Executor
	sched     *app.Scheduler
}

// New creates a client for the given connection. The transport is chosen by
// cfg.Mode unless WithTransport overrides it; nothing is opened until
// Connect.
func New(cfg ConnectionConfig, opts ...Option) *Client {
	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.NewNoopLogger()
	}
	if c.history == nil {
		c.history = app.NewHistoryLog(app.DefaultHistoryCapacity)
	}
	if c.transport == nil {
		if cfg.Mode == ModeTCP {
			c.transport = tcpport.New()
		} else {
			c.transport = serialport.New()
		}
	}
	c.exec = app.NewExecutor(c.transport, cfg.Mode, cfg.Timeout, c.logger)
	c.sched = app.NewScheduler(c.exec, c.history, c.logger)
	return c
}

// Connect opens the underlying transport.
func (c *Client) Connect(ctx context.Context) error {
	return c.transport.Open(ctx, c.cfg)
}

// Close stops any running polling session and closes the transport.
func (c *Client) Close() error {
	if err := c.sched.Stop(); err != nil {
		return err
	}
	return c.transport.Close()
}

// SetRequests replaces the known request templates. A running polling
// session keeps the templates it was started with.
func (c *Client) SetRequests(specs []RequestSpec) {
	c.sched.SetRequests(specs)
}

// SendOnce executes one transaction outside any polling session and records
// it in the history. A send issued while polling runs queues behind the
// in-flight transaction.
func (c *Client) SendOnce(ctx context.Context, spec RequestSpec) TransactionResult {
	res := c.exec.Execute(ctx, spec)
	c.history.Append(res)
	return res
}

// StartPolling begins a polling session over the selected request ids.
func (c *Client) StartPolling(selection []string, interval time.Duration, globalCycles int) error {
	return c.sched.Start(selection, interval, globalCycles)
}

// StopPolling requests a graceful stop and waits for the session to end.
func (c *Client) StopPolling() error {
	return c.sched.Stop()
}

// StopCurrentTimeout aborts only the currently pending wait-for-response,
// forcing a timeout outcome for that one transaction.
func (c *Client) StopCurrentTimeout() {
	c.sched.AbortCurrentWait()
}

// State returns the polling session state.
func (c *Client) State() PollingState {
	return c.sched.State()
}

// PollingDone returns a channel closed when the current polling session's
// loop has exited, or nil if none was ever started.
func (c *Client) PollingDone() <-chan struct{} {
	return c.sched.Done()
}

// PollingErr returns the error that terminated the last session, if any.
func (c *Client) PollingErr() error {
	return c.sched.Err()
}

// Statistics returns a snapshot of the current session counters.
func (c *Client) Statistics() Statistics {
	return c.sched.Statistics()
}

// History returns the recorded transactions within [from, to], newest
// first. Zero bounds are open.
func (c *Client) History(from, to time.Time) []TransactionResult {
	return c.history.Query(from, to)
}

// ExportHistoryCSV writes the recorded transactions within [from, to] as
// CSV rows.
func (c *Client) ExportHistoryCSV(w io.Writer, from, to time.Time) error {
	return c.history.ExportCSV(w, from, to)
}

// LoadRequests reads request templates from a TOML file and installs them.
func (c *Client) LoadRequests(path string) ([]RequestSpec, error) {
	specs, err := fs.NewRequestFile(path).LoadRequests()
	if err != nil {
		return nil, err
	}
	c.sched.SetRequests(specs)
	return specs, nil
}

// WatchRequests watches a TOML request file and reinstalls the templates
// after each edit. Blocks until ctx is canceled.
func (c *Client) WatchRequests(ctx context.Context, path string) error {
	store := fs.NewRequestFile(path)
	reload := func() {
		specs, err := store.LoadRequests()
		if err != nil {
			c.logger.Warn("request reload failed", ports.String("path", path), ports.Err(err))
			return
		}
		c.sched.SetRequests(specs)
		c.logger.Info("requests reloaded", ports.Int("count", len(specs)))
	}
	return fs.NewWatcher(path, reload, c.logger).Run(ctx)
}

// LoadSettings reads persisted connection settings from a TOML file.
func LoadSettings(path string) (ConnectionConfig, error) {
	return fs.NewSettingsFile(path).LoadSettings()
}

// SaveSettings persists connection settings to a TOML file.
func SaveSettings(path string, cfg ConnectionConfig) error {
	return fs.NewSettingsFile(path).SaveSettings(cfg)
}

// Format renders decoded values in decimal, hex and binary.
func Format(values DecodedValues) Rendering {
	return codec.Format(values)
}

// ListSerialPorts returns the serial ports present on the system.
func ListSerialPorts() ([]SerialPortInfo, error) {
	return serialport.ListPorts()
}

// Re-exported domain types. The aliases keep one set of types across the
// facade and the internal packages.
type (
	ConnectionConfig  = ports.ConnectionConfig
	Mode              = ports.Mode
	Parity            = ports.Parity
	StopBits          = ports.StopBits
	RequestSpec       = domain.RequestSpec
	FunctionCode      = domain.FunctionCode
	TransactionResult = domain.TransactionResult
	DecodedValues     = domain.DecodedValues
	ErrorKind         = domain.ErrorKind
	Statistics        = domain.Statistics
	RequestStats      = domain.RequestStats
	Rendering         = codec.Rendering
	PollingState      = app.State
	SerialPortInfo    = serialport.PortInfo
)

// Connection modes.
const (
	ModeSerial = ports.ModeSerial
	ModeTCP    = ports.ModeTCP
)

// Serial line settings.
const (
	ParityNone = ports.ParityNone
	ParityEven = ports.ParityEven
	ParityOdd  = ports.ParityOdd

	StopBitsOne          = ports.StopBitsOne
	StopBitsOnePointFive = ports.StopBitsOnePointFive
	StopBitsTwo          = ports.StopBitsTwo
)

// Function codes.
const (
	FuncReadCoils              = domain.FuncReadCoils
	FuncReadDiscreteInputs     = domain.FuncReadDiscreteInputs
	FuncReadHoldingRegisters   = domain.FuncReadHoldingRegisters
	FuncReadInputRegisters     = domain.FuncReadInputRegisters
	FuncWriteSingleCoil        = domain.FuncWriteSingleCoil
	FuncWriteSingleRegister    = domain.FuncWriteSingleRegister
	FuncWriteMultipleCoils     = domain.FuncWriteMultipleCoils
	FuncWriteMultipleRegisters = domain.FuncWriteMultipleRegisters
)

// Polling states.
const (
	StateIdle     = app.StateIdle
	StateRunning  = app.StateRunning
	StateStopping = app.StateStopping
)

// Sentinel errors. Check with errors.Is.
var (
	ErrInvalidSelection = domain.ErrInvalidSelection
	ErrNotConnected     = domain.ErrNotConnected
	ErrAlreadyConnected = domain.ErrAlreadyConnected
	ErrTimeout          = domain.ErrTimeout
)
