package domain

import "encoding/hex"

// Frame is the exact byte sequence transmitted or received on the wire for
// one Modbus transaction. RTU frames are
// [slaveId, function, payload..., crcLo, crcHi]; TCP frames carry a 7-byte
// MBAP header instead of the checksum suffix. Frames are value objects,
// constructed fresh per transaction.
type Frame []byte

// Hex returns the lowercase hex rendering of the frame, the form stored in
// transaction results and history exports.
func (f Frame) Hex() string {
	return hex.EncodeToString(f)
}

// Clone returns an independent copy of the frame bytes.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	copy(out, f)
	return out
}
