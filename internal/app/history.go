package app

import (
	"encoding/csv"
	"io"
	"sync"
	"time"

	"github.com/mbtools/modpoll/internal/domain"
)

// DefaultHistoryCapacity bounds the history ring when none is configured.
const DefaultHistoryCapacity = 1000

// HistoryLog is a bounded, append-only ring of past transaction results,
// stored newest-first. Once capacity is exceeded the oldest entry is
// evicted. Append is the only mutation; queries return snapshots.
type HistoryLog struct {
	mu   sync.RWMutex
	buf  []domain.TransactionResult
	head int // next write position
	size int
}

// NewHistoryLog creates a history ring. A non-positive capacity falls back
// to DefaultHistoryCapacity.
func NewHistoryLog(capacity int) *HistoryLog {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryLog{buf: make([]domain.TransactionResult, capacity)}
}

// Append records one transaction result, evicting the oldest entry when the
// ring is full.
func (h *HistoryLog) Append(res domain.TransactionResult) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.head] = res
	h.head = (h.head + 1) % len(h.buf)
	if h.size < len(h.buf) {
		h.size++
	}
}

// Len returns the number of stored entries.
func (h *HistoryLog) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Capacity returns the ring capacity.
func (h *HistoryLog) Capacity() int {
	return len(h.buf)
}

// Query returns a snapshot of the entries whose timestamp falls within
// [from, to], newest-first. A zero from or to leaves that bound open. The
// snapshot is immutable; callers can iterate it any number of times.
func (h *HistoryLog) Query(from, to time.Time) []domain.TransactionResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.TransactionResult, 0, h.size)
	for i := 0; i < h.size; i++ {
		idx := (h.head - 1 - i + 2*len(h.buf)) % len(h.buf)
		res := h.buf[idx]
		if !from.IsZero() && res.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && res.Timestamp.After(to) {
			continue
		}
		out = append(out, res)
	}
	return out
}

// ExportCSV writes the entries within [from, to] as CSV rows, newest-first:
// timestamp, request name, request hex, response hex, decoded values, error.
func (h *HistoryLog) ExportCSV(w io.Writer, from, to time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Timestamp", "Request Name", "Request HEX", "Response HEX", "Values", "Error"}); err != nil {
		return err
	}

	for _, res := range h.Query(from, to) {
		errStr := ""
		if res.Err != nil {
			errStr = res.Err.Error()
		}
		row := []string{
			res.Timestamp.Format(time.RFC3339Nano),
			res.RequestName,
			res.RequestHex,
			res.ResponseHex,
			res.Values.String(),
			errStr,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
