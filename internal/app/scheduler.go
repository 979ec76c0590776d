package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mbtools/modpoll/internal/domain"
	"github.com/mbtools/modpoll/internal/ports"
)

// State is the polling scheduler's lifecycle state.
type State int

const (
	// StateIdle means no polling session exists.
	StateIdle State = iota

	// StateRunning means a session is iterating over its selection.
	StateRunning

	// StateStopping means a stop was requested and the in-flight
	// transaction is being allowed to finish.
	StateStopping
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	default:
		return "Unknown"
	}
}

// Scheduler owns an ordered, selectable queue of request templates, a
// running/stopped state machine and a statistics aggregate. It drives
// repeated Executor calls according to the session interval, per-request
// delay-after and cycle limits.
//
// The scheduler loop is the sole mutator of the statistics; Statistics()
// hands out deep copies so readers always observe a consistent snapshot.
type Scheduler struct {
	exec    *Executor
	history *HistoryLog
	logger  ports.Logger

	mu       sync.Mutex
	state    State
	requests map[string]domain.RequestSpec
	stats    domain.Statistics
	lastErr  error
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewScheduler creates an idle scheduler bound to one executor and one
// history log.
func NewScheduler(exec *Executor, history *HistoryLog, logger ports.Logger) *Scheduler {
	return &Scheduler{
		exec:     exec,
		history:  history,
		logger:   logger,
		state:    StateIdle,
		requests: make(map[string]domain.RequestSpec),
		stats:    domain.Statistics{PerRequest: make(map[string]domain.RequestStats)},
	}
}

// SetRequests replaces the known request templates. Safe while Idle; a
// running session keeps the specs it was started with.
func (s *Scheduler) SetRequests(specs []domain.RequestSpec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = make(map[string]domain.RequestSpec, len(specs))
	for _, spec := range specs {
		s.requests[spec.ID] = spec
	}
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Statistics returns a consistent snapshot of the session counters.
func (s *Scheduler) Statistics() domain.Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats.Clone()
}

// Err returns the error that terminated the last session, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Done returns a channel closed when the current session's loop has exited.
// Returns nil when no session was ever started.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doneCh
}

// Start begins a polling session over the selected request ids. Requests are
// visited in ascending order. Calling Start while a session is active is an
// idempotent no-op. An empty selection, a duplicate id or an unknown id
// fails with ErrInvalidSelection.
func (s *Scheduler) Start(selection []string, interval time.Duration, globalCycles int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return nil
	}

	if len(selection) == 0 {
		return fmt.Errorf("%w: empty selection", domain.ErrInvalidSelection)
	}
	seen := make(map[string]bool, len(selection))
	specs := make([]domain.RequestSpec, 0, len(selection))
	for _, id := range selection {
		if seen[id] {
			return fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidSelection, id)
		}
		seen[id] = true
		spec, ok := s.requests[id]
		if !ok {
			return fmt.Errorf("%w: unknown id %q", domain.ErrInvalidSelection, id)
		}
		specs = append(specs, spec)
	}
	specs = domain.SortByOrder(specs)

	// Cycle limits are scoped to this session; both the per-request limit
	// and the session-level pass limit bound a request's attempts, and the
	// tighter one wins.
	limits := make(map[string]int, len(specs))
	s.stats = domain.Statistics{PerRequest: make(map[string]domain.RequestStats, len(specs))}
	s.lastErr = nil
	for _, spec := range specs {
		limit := effectiveLimit(spec.CyclesLimit, globalCycles)
		limits[spec.ID] = limit
		rs := domain.RequestStats{}
		if limit > 0 {
			rs.Total = limit
			rs.Remaining = limit
		}
		s.stats.PerRequest[spec.ID] = rs
		s.stats.Aggregate.Add(rs)
	}

	s.state = StateRunning
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	s.logger.Info("polling started",
		ports.Int("requests", len(specs)),
		ports.Duration("interval", interval),
		ports.Int("cycles", globalCycles),
	)

	go s.run(specs, limits, interval, globalCycles)
	return nil
}

// Stop requests a graceful stop and waits for the loop to exit. The
// in-flight transaction is allowed to finish; no new one is started.
// Calling Stop while Idle is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	if s.state == StateRunning {
		s.state = StateStopping
		close(s.stopCh)
		s.logger.Info("polling stopping")
	}
	done := s.doneCh
	s.mu.Unlock()

	<-done
	return nil
}

// AbortCurrentWait cancels only the currently pending wait-for-response,
// forcing a timeout outcome for that one transaction without stopping the
// session. Used to recover from a hung device.
func (s *Scheduler) AbortCurrentWait() {
	s.exec.AbortPending()
}

// run is the session loop: one full iteration over the active selection per
// pass, then interval pacing until the next pass.
func (s *Scheduler) run(specs []domain.RequestSpec, limits map[string]int, interval time.Duration, globalCycles int) {
	defer func() {
		s.mu.Lock()
		s.state = StateIdle
		done := s.doneCh
		s.mu.Unlock()
		s.logger.Info("polling idle")
		close(done)
	}()

	attempts := make(map[string]int, len(specs))
	pass := 0

	for {
		passStart := time.Now()
		dispatched := false

		for _, spec := range specs {
			if s.stopRequested() {
				return
			}
			if limit := limits[spec.ID]; limit > 0 && attempts[spec.ID] >= limit {
				// Cycle limit exhausted; excluded from this and future passes.
				continue
			}
			dispatched = true

			s.noteStarted(spec.ID)
			res := s.exec.Execute(context.Background(), spec)
			s.history.Append(res)
			attempts[spec.ID]++
			s.noteFinished(spec.ID, res.Kind, limits[spec.ID] > 0)

			if res.Kind == domain.KindTransport {
				// The connection is likely unusable; surface the fault
				// instead of silently retrying forever.
				s.mu.Lock()
				s.lastErr = res.Err
				s.mu.Unlock()
				s.logger.Error("polling aborted on transport failure",
					ports.String("request", spec.ID),
					ports.Err(res.Err),
				)
				return
			}

			if spec.DelayAfter > 0 && !s.sleep(spec.DelayAfter) {
				return
			}
		}

		if !dispatched {
			// Every selected request has exhausted its cycle limit.
			return
		}

		pass++
		s.mu.Lock()
		s.stats.Passes = pass
		s.mu.Unlock()

		if globalCycles > 0 && pass >= globalCycles {
			return
		}

		if wait := interval - time.Since(passStart); wait > 0 {
			if !s.sleep(wait) {
				return
			}
		}
	}
}

// effectiveLimit combines a per-request cycle limit with the session pass
// limit. Zero means unbounded.
func effectiveLimit(perRequest, global int) int {
	switch {
	case perRequest > 0 && global > 0:
		if perRequest < global {
			return perRequest
		}
		return global
	case perRequest > 0:
		return perRequest
	case global > 0:
		return global
	default:
		return 0
	}
}

func (s *Scheduler) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// sleep waits for d or until a stop is requested. Returns false on stop.
func (s *Scheduler) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.stopCh:
		return false
	case <-t.C:
		return true
	}
}

func (s *Scheduler) noteStarted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := s.stats.PerRequest[id]
	rs.Started++
	s.stats.PerRequest[id] = rs
	s.stats.Aggregate.Started++
}

// noteFinished updates the counters for one finished attempt. A bounded
// request consumes one unit of Remaining whatever the outcome; an unbounded
// request grows Total instead, so the accounting invariant holds at every
// observation point.
func (s *Scheduler) noteFinished(id string, kind domain.ErrorKind, bounded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rs := s.stats.PerRequest[id]
	switch kind {
	case domain.KindNone:
		rs.Completed++
		s.stats.Aggregate.Completed++
	case domain.KindTimeout:
		rs.Timeouts++
		s.stats.Aggregate.Timeouts++
	default:
		rs.Errors++
		s.stats.Aggregate.Errors++
	}
	if bounded {
		rs.Remaining--
		s.stats.Aggregate.Remaining--
	} else {
		rs.Total++
		s.stats.Aggregate.Total++
	}
	s.stats.PerRequest[id] = rs
}
