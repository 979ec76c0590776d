package codec

import (
	"encoding/binary"

	"github.com/mbtools/modpoll/internal/domain"
)

// RTUFrameSize reports the total length of the RTU response frame that buf
// is a prefix of, once enough bytes have accumulated to tell. Transports use
// it to deliver exactly one complete frame per read. The second return is
// false while the length is still undetermined.
func RTUFrameSize(buf []byte) (int, bool) {
	if len(buf) < 2 {
		return 0, false
	}

	fc := buf[1]
	if fc&domain.ExceptionFlag != 0 {
		// [slave, fc|0x80, exception code, crcLo, crcHi]
		return minRTUFrame, true
	}

	switch domain.FunctionCode(fc) {
	case domain.FuncReadCoils, domain.FuncReadDiscreteInputs,
		domain.FuncReadHoldingRegisters, domain.FuncReadInputRegisters:
		// [slave, fc, byteCount, data..., crcLo, crcHi]
		if len(buf) < 3 {
			return 0, false
		}
		return rtuOverhead + 2 + int(buf[2]), true

	case domain.FuncWriteSingleCoil, domain.FuncWriteSingleRegister,
		domain.FuncWriteMultipleCoils, domain.FuncWriteMultipleRegisters:
		// [slave, fc, addrHi, addrLo, valHi/qtyHi, valLo/qtyLo, crcLo, crcHi]
		return 8, true
	}

	// Unknown function code: no framing rule. Claim the bytes seen so far
	// complete a frame and let Decode reject it with a precise error.
	return len(buf), true
}

// TCPFrameSize reports the total length of the TCP frame that buf is a
// prefix of: the MBAP length field plus the six header bytes before it.
func TCPFrameSize(buf []byte) (int, bool) {
	if len(buf) < 6 {
		return 0, false
	}
	return 6 + int(binary.BigEndian.Uint16(buf[4:6])), true
}
