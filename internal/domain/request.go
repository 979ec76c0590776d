package domain

import (
	"fmt"
	"sort"
	"time"
)

// BroadcastID is the slave id for broadcast requests. Broadcast writes are
// transmitted without expecting a response; broadcast reads are invalid.
const BroadcastID uint8 = 0

// MaxSlaveID is the highest valid unit address on a Modbus bus.
const MaxSlaveID uint8 = 247

// DefaultDelayAfter is the pause inserted after a request completes before
// the next one in a polling pass is issued.
const DefaultDelayAfter = 100 * time.Millisecond

// Per-transaction quantity maxima from the Modbus application protocol.
// They keep the PDU byte-count field within one byte.
const (
	MaxReadBits   uint16 = 2000
	MaxReadWords  uint16 = 125
	MaxWriteBits  uint16 = 0x07B0
	MaxWriteWords uint16 = 0x007B
)

// RequestSpec is an immutable logical Modbus request. The id is unique and
// stable across edits; Order positions the request within a polling pass.
type RequestSpec struct {
	// ID uniquely identifies the request template.
	ID string

	// Name is the human-readable label shown in logs and history.
	Name string

	// Function selects the Modbus operation.
	Function FunctionCode

	// StartAddress is the first coil or register address (0..65535).
	StartAddress uint16

	// Count is the number of items to read or write. Fixed at 1 for the
	// single-write functions.
	Count uint16

	// SlaveID addresses the target device (0 = broadcast, writes only).
	SlaveID uint8

	// Values is the write payload. For coil writes a zero value means off
	// and any non-zero value means on. Must be empty for read functions.
	Values []uint16

	// Order is the position of the request in a polling pass.
	Order int

	// CyclesLimit bounds how many attempts a polling session may make for
	// this request. Zero means unbounded.
	CyclesLimit int

	// DelayAfter is the pause inserted after this request completes.
	DelayAfter time.Duration
}

// Validate checks the RequestSpec invariants. A violation is reported as an
// *EncodingError: the request can never succeed until the caller fixes it.
func (s RequestSpec) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return &EncodingError{RequestID: s.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if !s.Function.Valid() {
		return fail("unsupported function code %d", uint8(s.Function))
	}
	if s.SlaveID > MaxSlaveID {
		return fail("slave id %d out of range 0..%d", s.SlaveID, MaxSlaveID)
	}
	if s.Count < 1 {
		return fail("count must be >= 1")
	}

	switch {
	case s.Function.IsRead():
		if s.SlaveID == BroadcastID {
			return fail("broadcast reads cannot be answered")
		}
		if len(s.Values) != 0 {
			return fail("read request carries a write payload")
		}
		if max := readLimit(s.Function); s.Count > max {
			return fail("%s count %d exceeds maximum %d", s.Function, s.Count, max)
		}
	case s.Function.IsSingleWrite():
		if s.Count != 1 {
			return fail("%s requires count == 1", s.Function)
		}
		if len(s.Values) != 1 {
			return fail("%s requires exactly one value", s.Function)
		}
	case s.Function.IsMultiWrite():
		if len(s.Values) != int(s.Count) {
			return fail("%s requires %d values, got %d", s.Function, s.Count, len(s.Values))
		}
		if max := writeLimit(s.Function); s.Count > max {
			return fail("%s count %d exceeds maximum %d", s.Function, s.Count, max)
		}
	}

	return nil
}

func readLimit(fc FunctionCode) uint16 {
	if fc.IsBitOriented() {
		return MaxReadBits
	}
	return MaxReadWords
}

func writeLimit(fc FunctionCode) uint16 {
	if fc.IsBitOriented() {
		return MaxWriteBits
	}
	return MaxWriteWords
}

// SortByOrder returns a copy of specs sorted by ascending Order, ties broken
// by ID so that a pass visits requests deterministically.
func SortByOrder(specs []RequestSpec) []RequestSpec {
	out := make([]RequestSpec, len(specs))
	copy(out, specs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}
