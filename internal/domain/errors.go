package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the public API. Check with errors.Is.
var (
	// ErrInvalidSelection is returned when a polling selection is empty,
	// contains duplicates, or references unknown request ids.
	ErrInvalidSelection = errors.New("modpoll: invalid request selection")

	// ErrNotConnected is returned when a transaction is attempted without
	// an open transport.
	ErrNotConnected = errors.New("modpoll: not connected")

	// ErrAlreadyConnected is returned when Open is called on a transport
	// that is already open.
	ErrAlreadyConnected = errors.New("modpoll: already connected")

	// ErrTimeout is returned when no complete response arrived within the
	// transaction deadline, or when the pending wait was aborted.
	ErrTimeout = errors.New("modpoll: transaction timeout")
)

// ErrorKind classifies transaction failures for statistics and history.
type ErrorKind int

const (
	// KindNone marks a successful transaction.
	KindNone ErrorKind = iota

	// KindEncoding marks a RequestSpec invariant violation. Never retried;
	// the caller must fix the request.
	KindEncoding

	// KindDecoding marks malformed or mismatched response framing.
	KindDecoding

	// KindException marks an explicit device-reported Modbus exception.
	KindException

	// KindTimeout marks the absence of a complete response in time.
	KindTimeout

	// KindTransport marks an underlying connection failure.
	KindTransport
)

// String returns a short label for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindEncoding:
		return "encoding"
	case KindDecoding:
		return "decoding"
	case KindException:
		return "exception"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// EncodingError reports a RequestSpec that violates its invariants.
type EncodingError struct {
	RequestID string
	Reason    string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("modpoll: encode request %q: %s", e.RequestID, e.Reason)
}

// DecodingError reports a response that could not be parsed against its
// request.
type DecodingError struct {
	RequestID string
	Reason    string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("modpoll: decode response for %q: %s", e.RequestID, e.Reason)
}

// ExceptionError reports a Modbus exception response. The device answered,
// so this is not a transport failure; the code identifies the refusal.
type ExceptionError struct {
	RequestID string
	Function  FunctionCode
	Code      ExceptionCode
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modpoll: device exception for %q: %s: %s", e.RequestID, e.Function, e.Code)
}

// TransportError wraps an underlying connection failure. It usually means
// the whole session is unusable.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("modpoll: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// KindOf classifies err into an ErrorKind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var (
		encErr *EncodingError
		decErr *DecodingError
		excErr *ExceptionError
		trErr  *TransportError
	)
	switch {
	case errors.As(err, &encErr):
		return KindEncoding
	case errors.As(err, &decErr):
		return KindDecoding
	case errors.As(err, &excErr):
		return KindException
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.As(err, &trErr), errors.Is(err, ErrNotConnected):
		return KindTransport
	default:
		return KindTransport
	}
}
