package domain

import (
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the shape of decoded response data.
type ValueKind int

const (
	// ValueNone means the transaction produced no data (failure, or a
	// broadcast write that expects no response).
	ValueNone ValueKind = iota

	// ValueBits means boolean coil or discrete input states.
	ValueBits

	// ValueWords means 16-bit register values or write echoes.
	ValueWords
)

// DecodedValues is the typed result of decoding a response payload. The
// variant is resolved once at decode time, keyed on the function code.
type DecodedValues struct {
	Kind  ValueKind
	Bits  []bool
	Words []uint16
}

// Len returns the number of decoded items.
func (v DecodedValues) Len() int {
	switch v.Kind {
	case ValueBits:
		return len(v.Bits)
	case ValueWords:
		return len(v.Words)
	default:
		return 0
	}
}

// String renders the values as a bracketed decimal list, e.g. "[1 0 1]" for
// bits or "[156 42]" for words.
func (v DecodedValues) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	switch v.Kind {
	case ValueBits:
		for i, b := range v.Bits {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if b {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	case ValueWords:
		for i, w := range v.Words {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.FormatUint(uint64(w), 10))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// TransactionResult is the outcome of one request/response exchange. Err is
// nil on success; Kind classifies the failure otherwise. The request frame
// hex is always present so every outcome stays attributable to its request,
// even when no response arrived.
type TransactionResult struct {
	RequestID   string
	RequestName string
	Timestamp   time.Time
	RequestHex  string
	ResponseHex string
	Values      DecodedValues
	Err         error
	Kind        ErrorKind
	Elapsed     time.Duration
}

// OK reports whether the transaction succeeded.
func (r TransactionResult) OK() bool {
	return r.Err == nil
}
