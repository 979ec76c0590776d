package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mbtools/modpoll/internal/codec"
	"github.com/mbtools/modpoll/internal/domain"
	"github.com/mbtools/modpoll/internal/ports"
)

// DefaultTimeout is the per-transaction response deadline when none is
// configured.
const DefaultTimeout = time.Second

// Executor issues one encoded frame over the transport and waits for a
// decoded response or a timeout. It enforces at-most-one outstanding
// transaction per connection: callers from the scheduler loop and manual
// sends serialize through the same mutex, so a manual send issued while a
// polling pass is in flight queues behind the current transaction and never
// interleaves mid-frame.
type Executor struct {
	transport ports.Transport
	mode      ports.Mode
	timeout   time.Duration
	logger    ports.Logger

	// mu is held for the full write/read exchange.
	mu sync.Mutex

	// pendingMu guards the cancel func of the currently pending
	// wait-for-response. The func is per-call, so aborting cancels exactly
	// the wait that was pending at the time, never a later one.
	pendingMu sync.Mutex
	pending   context.CancelFunc

	txnID uint16 // TCP transaction id, incremented per transaction
}

// NewExecutor creates an executor over the given transport. A non-positive
// timeout falls back to DefaultTimeout.
func NewExecutor(transport ports.Transport, mode ports.Mode, timeout time.Duration, logger ports.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		transport: transport,
		mode:      mode,
		timeout:   timeout,
		logger:    logger,
	}
}

// Execute encodes spec, transmits it and waits for the response. The result
// always carries the request identity and frame hex, whatever the outcome.
func (e *Executor) Execute(ctx context.Context, spec domain.RequestSpec) domain.TransactionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := domain.TransactionResult{
		RequestID:   spec.ID,
		RequestName: spec.Name,
		Timestamp:   time.Now(),
	}

	var (
		frame domain.Frame
		txn   uint16
		err   error
	)
	if e.mode == ports.ModeTCP {
		e.txnID++
		txn = e.txnID
		frame, err = codec.EncodeTCP(spec, txn)
	} else {
		frame, err = codec.Encode(spec)
	}
	if err != nil {
		return e.fail(res, err)
	}
	res.RequestHex = frame.Hex()

	if e.transport == nil || !e.transport.Connected() {
		return e.fail(res, domain.ErrNotConnected)
	}

	// Stray bytes from an abandoned exchange must never be attributed to
	// this transaction.
	if err := e.transport.Drain(); err != nil {
		return e.fail(res, &domain.TransportError{Op: "drain", Err: err})
	}

	start := time.Now()
	if err := e.transport.Write(ctx, frame); err != nil {
		return e.fail(res, &domain.TransportError{Op: "write", Err: err})
	}

	if spec.SlaveID == domain.BroadcastID {
		// Broadcast: no response expected.
		res.Elapsed = time.Since(start)
		e.logger.Debug("broadcast sent",
			ports.String("request", spec.ID),
			ports.String("frame", res.RequestHex),
		)
		return res
	}

	waitCtx, cancel := context.WithCancel(ctx)
	e.setPending(cancel)
	raw, err := e.transport.ReadFrame(waitCtx, e.timeout)
	e.clearPending()
	cancel()

	res.Elapsed = time.Since(start)

	if err != nil {
		if errors.Is(err, domain.ErrTimeout) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return e.fail(res, domain.ErrTimeout)
		}
		return e.fail(res, &domain.TransportError{Op: "read", Err: err})
	}
	res.ResponseHex = domain.Frame(raw).Hex()

	var values domain.DecodedValues
	if e.mode == ports.ModeTCP {
		values, err = codec.DecodeTCP(spec, txn, raw)
	} else {
		values, err = codec.Decode(spec, raw)
	}
	if err != nil {
		return e.fail(res, err)
	}
	res.Values = values

	e.logger.Debug("transaction complete",
		ports.String("request", spec.ID),
		ports.String("frame", res.RequestHex),
		ports.String("response", res.ResponseHex),
		ports.Duration("elapsed", res.Elapsed),
	)
	return res
}

// AbortPending cancels only the currently pending wait-for-response, forcing
// an immediate timeout outcome for that one transaction. A no-op when
// nothing is pending.
func (e *Executor) AbortPending() {
	e.pendingMu.Lock()
	cancel := e.pending
	e.pendingMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Executor) setPending(cancel context.CancelFunc) {
	e.pendingMu.Lock()
	e.pending = cancel
	e.pendingMu.Unlock()
}

func (e *Executor) clearPending() {
	e.pendingMu.Lock()
	e.pending = nil
	e.pendingMu.Unlock()
}

func (e *Executor) fail(res domain.TransactionResult, err error) domain.TransactionResult {
	res.Err = err
	res.Kind = domain.KindOf(err)
	if res.Elapsed == 0 {
		res.Elapsed = time.Since(res.Timestamp)
	}
	e.logger.Warn("transaction failed",
		ports.String("request", res.RequestID),
		ports.String("kind", res.Kind.String()),
		ports.Err(err),
	)
	return res
}
