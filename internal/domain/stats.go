package domain

// RequestStats holds the polling counters for one request, or the aggregate
// across a session. Invariant after the first dispatch:
//
//	Total == Completed + Timeouts + Errors + Remaining
//
// For a bounded request Total is fixed up front and Remaining counts down as
// attempts are consumed. For an unbounded request Total grows with each
// finished attempt and Remaining stays zero, so the invariant holds at every
// observation point either way.
type RequestStats struct {
	Total     int
	Started   int
	Completed int
	Timeouts  int
	Errors    int
	Remaining int
}

// Add accumulates o into s.
func (s *RequestStats) Add(o RequestStats) {
	s.Total += o.Total
	s.Started += o.Started
	s.Completed += o.Completed
	s.Timeouts += o.Timeouts
	s.Errors += o.Errors
	s.Remaining += o.Remaining
}

// Statistics is a consistent snapshot of a polling session's counters.
// Snapshots are produced copy-on-read by the scheduler, which is the sole
// mutator of the underlying counters.
type Statistics struct {
	// Aggregate sums the counters across all selected requests.
	Aggregate RequestStats

	// PerRequest maps request id to its own counters.
	PerRequest map[string]RequestStats

	// Passes is the number of completed iterations over the selection.
	Passes int
}

// Clone returns an independent deep copy of the statistics.
func (s Statistics) Clone() Statistics {
	out := s
	out.PerRequest = make(map[string]RequestStats, len(s.PerRequest))
	for id, rs := range s.PerRequest {
		out.PerRequest[id] = rs
	}
	return out
}
