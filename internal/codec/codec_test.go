package codec

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/mbtools/modpoll/internal/domain"
)

func mustEncode(t *testing.T, spec domain.RequestSpec) domain.Frame {
	t.Helper()
	frame, err := Encode(spec)
	if err != nil {
		t.Fatalf("Encode(%+v): %v", spec, err)
	}
	return frame
}

func TestCRC16_KnownVectors(t *testing.T) {
	tests := []struct {
		frame string
		want  uint16
	}{
		// Canonical vectors from the Modbus serial line specification.
		{"010400000001", 0xCA31},
		{"010300000001", 0x0A84},
		{"0f03009c0001", 0x0A45},
	}

	for _, tt := range tests {
		data, err := hex.DecodeString(tt.frame)
		if err != nil {
			t.Fatalf("bad test vector %q: %v", tt.frame, err)
		}
		if got := CRC16(data); got != tt.want {
			t.Errorf("CRC16(%s) = %04x, want %04x", tt.frame, got, tt.want)
		}
	}
}

func TestCRC16_SingleBitFlipChangesChecksum(t *testing.T) {
	base := []byte{0x0F, 0x03, 0x00, 0x9C, 0x00, 0x01}
	want := CRC16(base)

	for i := range base {
		for bit := 0; bit < 8; bit++ {
			flipped := make([]byte, len(base))
			copy(flipped, base)
			flipped[i] ^= 1 << bit
			if CRC16(flipped) == want {
				t.Errorf("flipping byte %d bit %d left checksum unchanged", i, bit)
			}
		}
	}
}

func TestEncode_ReadHoldingRegisters(t *testing.T) {
	spec := domain.RequestSpec{
		ID:           "r1",
		Function:     domain.FuncReadHoldingRegisters,
		StartAddress: 0x009C,
		Count:        1,
		SlaveID:      15,
	}

	frame := mustEncode(t, spec)

	want := []byte{0x0F, 0x03, 0x00, 0x9C, 0x00, 0x01, 0x45, 0x0A}
	if !bytes.Equal(frame, want) {
		t.Fatalf("Encode() = % X, want % X", []byte(frame), want)
	}
}

func TestEncode_WriteSingleCoil(t *testing.T) {
	tests := []struct {
		name  string
		value uint16
		field []byte
	}{
		{"on", 1, []byte{0xFF, 0x00}},
		{"on non-canonical", 7, []byte{0xFF, 0x00}},
		{"off", 0, []byte{0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := mustEncode(t, domain.RequestSpec{
				ID:           "c1",
				Function:     domain.FuncWriteSingleCoil,
				StartAddress: 0x0010,
				Count:        1,
				SlaveID:      1,
				Values:       []uint16{tt.value},
			})
			if !bytes.Equal(frame[4:6], tt.field) {
				t.Errorf("value field = % X, want % X", []byte(frame[4:6]), tt.field)
			}
		})
	}
}

func TestEncode_WriteMultipleCoils_BitPacking(t *testing.T) {
	frame := mustEncode(t, domain.RequestSpec{
		ID:           "mc",
		Function:     domain.FuncWriteMultipleCoils,
		StartAddress: 0,
		Count:        10,
		SlaveID:      1,
		Values:       []uint16{1, 0, 1, 1, 0, 0, 1, 1, 1, 0},
	})

	// [slave fc addr2 qty2 byteCount data... crc2]
	if frame[6] != 2 {
		t.Fatalf("byte count = %d, want 2", frame[6])
	}
	// LSB first: bits 0..7 -> 0b11001101, bits 8..9 -> 0b00000001
	if frame[7] != 0xCD || frame[8] != 0x01 {
		t.Errorf("packed coils = %02X %02X, want CD 01", frame[7], frame[8])
	}
}

func TestEncode_QuantityBounds(t *testing.T) {
	multi := func(fc domain.FunctionCode, count uint16) domain.RequestSpec {
		return domain.RequestSpec{
			ID:       "q",
			Function: fc,
			Count:    count,
			SlaveID:  1,
			Values:   make([]uint16, count),
		}
	}

	t.Run("largest register write round-trips", func(t *testing.T) {
		spec := multi(domain.FuncWriteMultipleRegisters, domain.MaxWriteWords)
		frame := mustEncode(t, spec)

		// [slave fc addr2 qty2 byteCount data... crc2]
		if want := byte(domain.MaxWriteWords * 2); frame[6] != want {
			t.Fatalf("byte count field = %d, want %d", frame[6], want)
		}
		values, err := Decode(spec, frame)
		if err != nil {
			t.Fatalf("Decode(Encode()): %v", err)
		}
		if len(values.Words) != int(domain.MaxWriteWords) {
			t.Errorf("decoded %d words, want %d", len(values.Words), domain.MaxWriteWords)
		}
	})

	t.Run("largest coil write round-trips", func(t *testing.T) {
		spec := multi(domain.FuncWriteMultipleCoils, domain.MaxWriteBits)
		frame := mustEncode(t, spec)

		if want := byte((domain.MaxWriteBits + 7) / 8); frame[6] != want {
			t.Fatalf("byte count field = %d, want %d", frame[6], want)
		}
		if _, err := Decode(spec, frame); err != nil {
			t.Fatalf("Decode(Encode()): %v", err)
		}
	})

	// One past each limit would overflow the one-byte count field and must
	// be refused before any bytes are produced.
	overs := []domain.RequestSpec{
		multi(domain.FuncWriteMultipleRegisters, domain.MaxWriteWords+1),
		multi(domain.FuncWriteMultipleRegisters, 200),
		multi(domain.FuncWriteMultipleCoils, domain.MaxWriteBits+1),
		{ID: "q", Function: domain.FuncReadHoldingRegisters, Count: domain.MaxReadWords + 1, SlaveID: 1},
		{ID: "q", Function: domain.FuncReadCoils, Count: domain.MaxReadBits + 1, SlaveID: 1},
	}
	for _, spec := range overs {
		_, err := Encode(spec)
		var encErr *domain.EncodingError
		if !errors.As(err, &encErr) {
			t.Errorf("Encode(%s count=%d) error = %v, want *EncodingError", spec.Function, spec.Count, err)
		}
	}
}

func TestEncode_InvalidSpec(t *testing.T) {
	_, err := Encode(domain.RequestSpec{
		ID:       "bad",
		Function: domain.FuncWriteMultipleRegisters,
		Count:    3,
		SlaveID:  1,
		Values:   []uint16{1},
	})

	var encErr *domain.EncodingError
	if !errors.As(err, &encErr) {
		t.Fatalf("Encode() error = %v, want *EncodingError", err)
	}
}

func TestEncodeTCP_MBAPHeader(t *testing.T) {
	spec := domain.RequestSpec{
		ID:           "t1",
		Function:     domain.FuncReadInputRegisters,
		StartAddress: 0x0020,
		Count:        4,
		SlaveID:      9,
	}

	frame, err := EncodeTCP(spec, 0x1234)
	if err != nil {
		t.Fatalf("EncodeTCP: %v", err)
	}

	want := []byte{
		0x12, 0x34, // transaction id
		0x00, 0x00, // protocol id
		0x00, 0x06, // length: unit id + 5-byte PDU
		0x09, // unit id
		0x04, 0x00, 0x20, 0x00, 0x04,
	}
	if !bytes.Equal(frame, want) {
		t.Fatalf("EncodeTCP() = % X, want % X", []byte(frame), want)
	}
}

// respond fabricates a well-formed RTU response frame for a request.
func respond(slave uint8, pdu []byte) []byte {
	frame := append([]byte{slave}, pdu...)
	crc := CRC16(frame)
	return append(frame, byte(crc), byte(crc>>8))
}

func TestDecode_ReadRegisters(t *testing.T) {
	spec := domain.RequestSpec{ID: "r", Function: domain.FuncReadHoldingRegisters, StartAddress: 0, Count: 2, SlaveID: 3}
	raw := respond(3, []byte{0x03, 0x04, 0x12, 0x34, 0xAB, 0xCD})

	values, err := Decode(spec, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if values.Kind != domain.ValueWords {
		t.Fatalf("Kind = %v, want ValueWords", values.Kind)
	}
	if values.Words[0] != 0x1234 || values.Words[1] != 0xABCD {
		t.Errorf("Words = %v, want [0x1234 0xABCD]", values.Words)
	}
}

func TestDecode_ReadBits_TruncatedToCount(t *testing.T) {
	spec := domain.RequestSpec{ID: "b", Function: domain.FuncReadCoils, Count: 3, SlaveID: 1}
	raw := respond(1, []byte{0x01, 0x01, 0x05}) // 0b00000101

	values, err := Decode(spec, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []bool{true, false, true}
	if len(values.Bits) != len(want) {
		t.Fatalf("got %d bits, want %d", len(values.Bits), len(want))
	}
	for i := range want {
		if values.Bits[i] != want[i] {
			t.Errorf("Bits[%d] = %v, want %v", i, values.Bits[i], want[i])
		}
	}
}

func TestDecode_CRCMismatch(t *testing.T) {
	spec := domain.RequestSpec{ID: "r", Function: domain.FuncReadHoldingRegisters, Count: 1, SlaveID: 3}
	raw := respond(3, []byte{0x03, 0x02, 0x00, 0x2A})
	raw[3] ^= 0x01 // corrupt one data bit

	_, err := Decode(spec, raw)
	var decErr *domain.DecodingError
	if !errors.As(err, &decErr) {
		t.Fatalf("Decode() error = %v, want *DecodingError", err)
	}
}

func TestDecode_RoundTripNeverFailsCRC(t *testing.T) {
	// Any frame whose checksum was produced by CRC16 must pass Decode's own
	// checksum validation regardless of payload shape.
	spec := domain.RequestSpec{ID: "r", Function: domain.FuncReadHoldingRegisters, Count: 1, SlaveID: 7}
	payloads := [][]byte{
		{0x03, 0x02, 0x00, 0x00},
		{0x03, 0x02, 0xFF, 0xFF},
		{0x03, 0x02, 0x55, 0xAA},
	}
	for _, pdu := range payloads {
		raw := respond(7, pdu)
		if _, err := Decode(spec, raw); err != nil {
			var decErr *domain.DecodingError
			if errors.As(err, &decErr) && strings.HasPrefix(decErr.Reason, "crc") {
				t.Errorf("round-trip frame % X reported crc failure: %v", raw, err)
			}
		}
	}
}

func TestDecode_ExceptionResponse(t *testing.T) {
	spec := domain.RequestSpec{ID: "r", Function: domain.FuncReadHoldingRegisters, Count: 1, SlaveID: 15}
	raw := respond(15, []byte{0x83, 0x02})

	_, err := Decode(spec, raw)
	var excErr *domain.ExceptionError
	if !errors.As(err, &excErr) {
		t.Fatalf("Decode() error = %v, want *ExceptionError", err)
	}
	if excErr.Code != domain.ExcIllegalDataAddress {
		t.Errorf("exception code = %v, want ExcIllegalDataAddress", excErr.Code)
	}
	if domain.KindOf(err) != domain.KindException {
		t.Errorf("KindOf = %v, want KindException", domain.KindOf(err))
	}
}

func TestDecode_SlaveAndFunctionMismatch(t *testing.T) {
	spec := domain.RequestSpec{ID: "r", Function: domain.FuncReadHoldingRegisters, Count: 1, SlaveID: 3}

	tests := []struct {
		name string
		raw  []byte
	}{
		{"wrong slave", respond(4, []byte{0x03, 0x02, 0x00, 0x01})},
		{"wrong function", respond(3, []byte{0x04, 0x02, 0x00, 0x01})},
		{"byte count short", respond(3, []byte{0x03, 0x04, 0x00, 0x01})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(spec, tt.raw)
			var decErr *domain.DecodingError
			if !errors.As(err, &decErr) {
				t.Fatalf("Decode() error = %v, want *DecodingError", err)
			}
		})
	}
}

func TestDecode_WriteEchoInverse(t *testing.T) {
	// Decoding the encoded request recovers the written values for every
	// write function (coils normalized to 0/1).
	tests := []struct {
		name string
		spec domain.RequestSpec
		want []uint16
	}{
		{
			name: "write single coil",
			spec: domain.RequestSpec{ID: "w5", Function: domain.FuncWriteSingleCoil, Count: 1, SlaveID: 1, Values: []uint16{1}},
			want: []uint16{1},
		},
		{
			name: "write single register",
			spec: domain.RequestSpec{ID: "w6", Function: domain.FuncWriteSingleRegister, Count: 1, SlaveID: 1, Values: []uint16{0xBEEF}},
			want: []uint16{0xBEEF},
		},
		{
			name: "write multiple coils",
			spec: domain.RequestSpec{ID: "w15", Function: domain.FuncWriteMultipleCoils, Count: 5, SlaveID: 1, Values: []uint16{1, 0, 1, 0, 1}},
			want: []uint16{1, 0, 1, 0, 1},
		},
		{
			name: "write multiple registers",
			spec: domain.RequestSpec{ID: "w16", Function: domain.FuncWriteMultipleRegisters, Count: 3, SlaveID: 1, Values: []uint16{10, 20, 30}},
			want: []uint16{10, 20, 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := mustEncode(t, tt.spec)
			values, err := Decode(tt.spec, frame)
			if err != nil {
				t.Fatalf("Decode(Encode()): %v", err)
			}
			if len(values.Words) != len(tt.want) {
				t.Fatalf("got %d words, want %d", len(values.Words), len(tt.want))
			}
			for i := range tt.want {
				if values.Words[i] != tt.want[i] {
					t.Errorf("Words[%d] = %d, want %d", i, values.Words[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecode_MultiWriteAck(t *testing.T) {
	spec := domain.RequestSpec{ID: "w16", Function: domain.FuncWriteMultipleRegisters, StartAddress: 0x10, Count: 3, SlaveID: 2, Values: []uint16{1, 2, 3}}
	raw := respond(2, []byte{0x10, 0x00, 0x10, 0x00, 0x03})

	values, err := Decode(spec, raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(values.Words) != 1 || values.Words[0] != 3 {
		t.Errorf("ack echo = %v, want [3]", values.Words)
	}
}

func TestDecodeTCP(t *testing.T) {
	spec := domain.RequestSpec{ID: "t", Function: domain.FuncReadHoldingRegisters, Count: 1, SlaveID: 9}

	frame := []byte{
		0x00, 0x07, 0x00, 0x00, 0x00, 0x05, 0x09,
		0x03, 0x02, 0x00, 0x2A,
	}

	values, err := DecodeTCP(spec, 0x0007, frame)
	if err != nil {
		t.Fatalf("DecodeTCP: %v", err)
	}
	if values.Words[0] != 42 {
		t.Errorf("Words[0] = %d, want 42", values.Words[0])
	}

	// Stale transaction id must be rejected, not decoded.
	if _, err := DecodeTCP(spec, 0x0008, frame); err == nil {
		t.Fatal("DecodeTCP accepted a stale transaction id")
	}
}

func TestRTUFrameSize(t *testing.T) {
	tests := []struct {
		name     string
		buf      []byte
		want     int
		complete bool
	}{
		{"too short", []byte{0x01}, 0, false},
		{"exception", []byte{0x01, 0x83}, 5, true},
		{"read needs byte count", []byte{0x01, 0x03}, 0, false},
		{"read registers", []byte{0x01, 0x03, 0x04}, 9, true},
		{"read coils", []byte{0x01, 0x01, 0x02}, 7, true},
		{"write single", []byte{0x01, 0x06}, 8, true},
		{"write multiple ack", []byte{0x01, 0x10}, 8, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RTUFrameSize(tt.buf)
			if ok != tt.complete || (ok && got != tt.want) {
				t.Errorf("RTUFrameSize(% X) = (%d, %v), want (%d, %v)", tt.buf, got, ok, tt.want, tt.complete)
			}
		})
	}
}

func TestTCPFrameSize(t *testing.T) {
	if _, ok := TCPFrameSize([]byte{0, 1, 0, 0, 0}); ok {
		t.Error("TCPFrameSize reported completion with a partial header")
	}
	got, ok := TCPFrameSize([]byte{0, 1, 0, 0, 0, 0x05, 0x09})
	if !ok || got != 11 {
		t.Errorf("TCPFrameSize = (%d, %v), want (11, true)", got, ok)
	}
}

func TestFormat(t *testing.T) {
	words := domain.DecodedValues{Kind: domain.ValueWords, Words: []uint16{156, 0xABCD}}
	r := Format(words)
	if r.Decimal[0] != "156" || r.Hex[1] != "0xABCD" {
		t.Errorf("word rendering = %+v", r)
	}
	if r.Binary[0] != "0b0000000010011100" {
		t.Errorf("Binary[0] = %s", r.Binary[0])
	}

	bits := domain.DecodedValues{Kind: domain.ValueBits, Bits: []bool{true, false}}
	r = Format(bits)
	if r.Decimal[0] != "1" || r.Decimal[1] != "0" || r.Hex[0] != "0x1" || r.Binary[1] != "0b0" {
		t.Errorf("bit rendering = %+v", r)
	}
}
