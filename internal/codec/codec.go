// Package codec implements the Modbus frame codec: deterministic encoding of
// a RequestSpec into the exact wire bytes, CRC16 computation, and decoding of
// device responses into typed values. The codec is pure; it performs no I/O
// and retains no state between calls.
package codec

import (
	"encoding/binary"

	"github.com/mbtools/modpoll/internal/domain"
)

// MBAPHeaderSize is the length of the Modbus TCP header that replaces the
// RTU checksum suffix.
const MBAPHeaderSize = 7

// rtuOverhead is slave id plus the two CRC bytes.
const rtuOverhead = 3

// CRC16 computes the standard Modbus CRC: accumulator initialized to 0xFFFF,
// each byte XORed into the low byte, then eight shift/XOR rounds against the
// 0xA001 polynomial. The result is appended to RTU frames low byte first.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc >>= 1
				crc ^= 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// Encode builds the RTU frame for spec:
// [slaveId, function, payload..., crcLo, crcHi].
func Encode(spec domain.RequestSpec) (domain.Frame, error) {
	pdu, err := buildPDU(spec)
	if err != nil {
		return nil, err
	}

	frame := make(domain.Frame, 0, 1+len(pdu)+2)
	frame = append(frame, spec.SlaveID)
	frame = append(frame, pdu...)

	crc := CRC16(frame)
	frame = append(frame, byte(crc), byte(crc>>8))
	return frame, nil
}

// EncodeTCP builds the TCP frame for spec: a 7-byte MBAP header
// [txnHi, txnLo, 0, 0, lenHi, lenLo, unitId] followed by the PDU. No
// checksum; TCP provides integrity.
func EncodeTCP(spec domain.RequestSpec, txnID uint16) (domain.Frame, error) {
	pdu, err := buildPDU(spec)
	if err != nil {
		return nil, err
	}

	frame := make(domain.Frame, MBAPHeaderSize, MBAPHeaderSize+len(pdu))
	binary.BigEndian.PutUint16(frame[0:2], txnID)
	binary.BigEndian.PutUint16(frame[2:4], 0) // protocol id
	binary.BigEndian.PutUint16(frame[4:6], uint16(len(pdu)+1))
	frame[6] = spec.SlaveID
	frame = append(frame, pdu...)
	return frame, nil
}

// buildPDU assembles the function-specific protocol data unit.
func buildPDU(spec domain.RequestSpec) ([]byte, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	pdu := make([]byte, 0, 5)
	pdu = append(pdu, byte(spec.Function))
	pdu = appendUint16(pdu, spec.StartAddress)

	switch {
	case spec.Function.IsRead():
		pdu = appendUint16(pdu, spec.Count)

	case spec.Function == domain.FuncWriteSingleCoil:
		value := uint16(0x0000)
		if spec.Values[0] != 0 {
			value = 0xFF00
		}
		pdu = appendUint16(pdu, value)

	case spec.Function == domain.FuncWriteSingleRegister:
		pdu = appendUint16(pdu, spec.Values[0])

	case spec.Function == domain.FuncWriteMultipleCoils:
		pdu = appendUint16(pdu, spec.Count)
		data := packBits(spec.Values)
		pdu = append(pdu, byte(len(data)))
		pdu = append(pdu, data...)

	case spec.Function == domain.FuncWriteMultipleRegisters:
		pdu = appendUint16(pdu, spec.Count)
		pdu = append(pdu, byte(len(spec.Values)*2))
		for _, w := range spec.Values {
			pdu = appendUint16(pdu, w)
		}
	}

	return pdu, nil
}

func appendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

// packBits packs coil values into bytes, LSB first within each byte. A zero
// value is off, any non-zero value is on.
func packBits(values []uint16) []byte {
	data := make([]byte, (len(values)+7)/8)
	for i, v := range values {
		if v != 0 {
			data[i/8] |= 1 << (i % 8)
		}
	}
	return data
}
