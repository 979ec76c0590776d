package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/mbtools/modpoll/internal/domain"
)

// minRTUFrame is the shortest well-formed RTU frame: an exception response
// [slave, fc|0x80, code, crcLo, crcHi].
const minRTUFrame = 5

// Decode parses an RTU response frame against the request that produced it.
// The checksum is validated before anything else; a mismatch, a wrong slave
// id, or a wrong function code is a DecodingError. A device-reported
// exception (response function code = request code | 0x80) is surfaced as an
// ExceptionError, never decoded as data.
func Decode(spec domain.RequestSpec, raw []byte) (domain.DecodedValues, error) {
	var none domain.DecodedValues

	if len(raw) < minRTUFrame {
		return none, decErr(spec, "response too short (%d bytes)", len(raw))
	}

	received := binary.LittleEndian.Uint16(raw[len(raw)-2:])
	if computed := CRC16(raw[:len(raw)-2]); computed != received {
		return none, decErr(spec, "crc mismatch: computed %04x, received %04x", computed, received)
	}

	if raw[0] != spec.SlaveID {
		return none, decErr(spec, "slave id mismatch: got %d, want %d", raw[0], spec.SlaveID)
	}

	return decodePDU(spec, raw[1:len(raw)-2])
}

// DecodeTCP parses a TCP response frame. The MBAP transaction id must match
// the one the request was encoded with; a stale id means the frame belongs
// to an earlier, abandoned transaction and must not be attributed here.
func DecodeTCP(spec domain.RequestSpec, txnID uint16, raw []byte) (domain.DecodedValues, error) {
	var none domain.DecodedValues

	if len(raw) < MBAPHeaderSize+2 {
		return none, decErr(spec, "response too short (%d bytes)", len(raw))
	}

	if got := binary.BigEndian.Uint16(raw[0:2]); got != txnID {
		return none, decErr(spec, "transaction id mismatch: got %d, want %d", got, txnID)
	}
	if proto := binary.BigEndian.Uint16(raw[2:4]); proto != 0 {
		return none, decErr(spec, "protocol id mismatch: got %d, want 0", proto)
	}
	if length := int(binary.BigEndian.Uint16(raw[4:6])); length != len(raw)-6 {
		return none, decErr(spec, "mbap length %d inconsistent with frame size %d", length, len(raw))
	}
	if raw[6] != spec.SlaveID {
		return none, decErr(spec, "unit id mismatch: got %d, want %d", raw[6], spec.SlaveID)
	}

	return decodePDU(spec, raw[MBAPHeaderSize:])
}

// decodePDU dispatches on the function code once framing checks passed.
func decodePDU(spec domain.RequestSpec, pdu []byte) (domain.DecodedValues, error) {
	var none domain.DecodedValues

	fc := pdu[0]
	if fc&domain.ExceptionFlag != 0 {
		if fc & ^domain.ExceptionFlag != byte(spec.Function) {
			return none, decErr(spec, "exception for function %02x, expected %02x", fc & ^domain.ExceptionFlag, byte(spec.Function))
		}
		if len(pdu) < 2 {
			return none, decErr(spec, "truncated exception response")
		}
		return none, &domain.ExceptionError{
			RequestID: spec.ID,
			Function:  spec.Function,
			Code:      domain.ExceptionCode(pdu[1]),
		}
	}
	if fc != byte(spec.Function) {
		return none, decErr(spec, "function code mismatch: got %02x, want %02x", fc, byte(spec.Function))
	}

	switch spec.Function {
	case domain.FuncReadCoils, domain.FuncReadDiscreteInputs:
		return decodeBits(spec, pdu)
	case domain.FuncReadHoldingRegisters, domain.FuncReadInputRegisters:
		return decodeWords(spec, pdu)
	case domain.FuncWriteSingleCoil, domain.FuncWriteSingleRegister:
		return decodeSingleWriteEcho(spec, pdu)
	default:
		return decodeMultiWriteEcho(spec, pdu)
	}
}

// decodeBits unpacks a read-coils/discrete-inputs payload. Bits are LSB
// first within each byte, truncated to the requested count.
func decodeBits(spec domain.RequestSpec, pdu []byte) (domain.DecodedValues, error) {
	var none domain.DecodedValues

	if len(pdu) < 2 {
		return none, decErr(spec, "truncated bit response")
	}
	byteCount := int(pdu[1])
	if len(pdu)-2 != byteCount {
		return none, decErr(spec, "byte count %d inconsistent with payload length %d", byteCount, len(pdu)-2)
	}
	if byteCount < (int(spec.Count)+7)/8 {
		return none, decErr(spec, "byte count %d too small for %d bits", byteCount, spec.Count)
	}

	bits := make([]bool, spec.Count)
	for i := range bits {
		bits[i] = pdu[2+i/8]&(1<<(i%8)) != 0
	}
	return domain.DecodedValues{Kind: domain.ValueBits, Bits: bits}, nil
}

// decodeWords unpacks a read-registers payload as big-endian 16-bit words.
func decodeWords(spec domain.RequestSpec, pdu []byte) (domain.DecodedValues, error) {
	var none domain.DecodedValues

	if len(pdu) < 2 {
		return none, decErr(spec, "truncated register response")
	}
	byteCount := int(pdu[1])
	if byteCount%2 != 0 {
		return none, decErr(spec, "odd register byte count %d", byteCount)
	}
	if len(pdu)-2 != byteCount {
		return none, decErr(spec, "byte count %d inconsistent with payload length %d", byteCount, len(pdu)-2)
	}
	if byteCount != 2*int(spec.Count) {
		return none, decErr(spec, "byte count %d does not cover %d registers", byteCount, spec.Count)
	}

	words := make([]uint16, spec.Count)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(pdu[2+2*i:])
	}
	return domain.DecodedValues{Kind: domain.ValueWords, Words: words}, nil
}

// decodeSingleWriteEcho handles write-single acknowledgements, which echo
// the address and value. The 0xFF00 coil convention is normalized back to 1
// so the echo matches the value the caller asked to write.
func decodeSingleWriteEcho(spec domain.RequestSpec, pdu []byte) (domain.DecodedValues, error) {
	if len(pdu) != 5 {
		return domain.DecodedValues{}, decErr(spec, "write echo length %d, want 5", len(pdu))
	}

	value := binary.BigEndian.Uint16(pdu[3:5])
	if spec.Function == domain.FuncWriteSingleCoil {
		if value == 0xFF00 {
			value = 1
		} else {
			value = 0
		}
	}
	return domain.DecodedValues{Kind: domain.ValueWords, Words: []uint16{value}}, nil
}

// decodeMultiWriteEcho handles write-multiple acknowledgements. A standard
// acknowledgement echoes the address and quantity. A request-shaped frame
// (as produced by loopback or echo test rigs) additionally carries the byte
// count and payload, which is decoded back into the written values.
func decodeMultiWriteEcho(spec domain.RequestSpec, pdu []byte) (domain.DecodedValues, error) {
	var none domain.DecodedValues

	if len(pdu) < 5 {
		return none, decErr(spec, "write echo length %d, want >= 5", len(pdu))
	}

	quantity := binary.BigEndian.Uint16(pdu[3:5])
	if quantity != spec.Count {
		return none, decErr(spec, "write echo quantity %d, want %d", quantity, spec.Count)
	}

	if len(pdu) == 5 {
		// Standard acknowledgement: echo the written quantity.
		return domain.DecodedValues{Kind: domain.ValueWords, Words: []uint16{quantity}}, nil
	}

	byteCount := int(pdu[5])
	if len(pdu)-6 != byteCount {
		return none, decErr(spec, "byte count %d inconsistent with payload length %d", byteCount, len(pdu)-6)
	}

	words := make([]uint16, spec.Count)
	if spec.Function == domain.FuncWriteMultipleCoils {
		if byteCount < (int(spec.Count)+7)/8 {
			return none, decErr(spec, "byte count %d too small for %d coils", byteCount, spec.Count)
		}
		for i := range words {
			if pdu[6+i/8]&(1<<(i%8)) != 0 {
				words[i] = 1
			}
		}
	} else {
		if byteCount != 2*int(spec.Count) {
			return none, decErr(spec, "byte count %d does not cover %d registers", byteCount, spec.Count)
		}
		for i := range words {
			words[i] = binary.BigEndian.Uint16(pdu[6+2*i:])
		}
	}
	return domain.DecodedValues{Kind: domain.ValueWords, Words: words}, nil
}

func decErr(spec domain.RequestSpec, format string, args ...interface{}) error {
	return &domain.DecodingError{RequestID: spec.ID, Reason: fmt.Sprintf(format, args...)}
}
