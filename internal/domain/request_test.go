package domain

import (
	"errors"
	"testing"
)

func TestRequestSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		spec    RequestSpec
		wantErr bool
	}{
		{
			name: "read holding registers",
			spec: RequestSpec{ID: "r1", Function: FuncReadHoldingRegisters, StartAddress: 0x9C, Count: 2, SlaveID: 15},
		},
		{
			name: "write single coil",
			spec: RequestSpec{ID: "w1", Function: FuncWriteSingleCoil, Count: 1, SlaveID: 1, Values: []uint16{1}},
		},
		{
			name: "write multiple registers",
			spec: RequestSpec{ID: "w2", Function: FuncWriteMultipleRegisters, Count: 3, SlaveID: 1, Values: []uint16{1, 2, 3}},
		},
		{
			name: "broadcast write",
			spec: RequestSpec{ID: "b1", Function: FuncWriteSingleRegister, Count: 1, SlaveID: BroadcastID, Values: []uint16{7}},
		},
		{
			name:    "unsupported function",
			spec:    RequestSpec{ID: "x1", Function: 0x2B, Count: 1, SlaveID: 1},
			wantErr: true,
		},
		{
			name:    "zero count",
			spec:    RequestSpec{ID: "x2", Function: FuncReadCoils, Count: 0, SlaveID: 1},
			wantErr: true,
		},
		{
			name:    "slave id out of range",
			spec:    RequestSpec{ID: "x3", Function: FuncReadCoils, Count: 1, SlaveID: 248},
			wantErr: true,
		},
		{
			name:    "broadcast read",
			spec:    RequestSpec{ID: "x4", Function: FuncReadCoils, Count: 1, SlaveID: BroadcastID},
			wantErr: true,
		},
		{
			name:    "read with payload",
			spec:    RequestSpec{ID: "x5", Function: FuncReadInputRegisters, Count: 1, SlaveID: 1, Values: []uint16{1}},
			wantErr: true,
		},
		{
			name:    "single write wrong count",
			spec:    RequestSpec{ID: "x6", Function: FuncWriteSingleRegister, Count: 2, SlaveID: 1, Values: []uint16{1, 2}},
			wantErr: true,
		},
		{
			name:    "single write no value",
			spec:    RequestSpec{ID: "x7", Function: FuncWriteSingleCoil, Count: 1, SlaveID: 1},
			wantErr: true,
		},
		{
			name:    "multi write length mismatch",
			spec:    RequestSpec{ID: "x8", Function: FuncWriteMultipleCoils, Count: 4, SlaveID: 1, Values: []uint16{1, 0}},
			wantErr: true,
		},
		{
			name: "read registers at maximum",
			spec: RequestSpec{ID: "m1", Function: FuncReadHoldingRegisters, Count: MaxReadWords, SlaveID: 1},
		},
		{
			name:    "read registers past maximum",
			spec:    RequestSpec{ID: "m2", Function: FuncReadInputRegisters, Count: MaxReadWords + 1, SlaveID: 1},
			wantErr: true,
		},
		{
			name: "read coils at maximum",
			spec: RequestSpec{ID: "m3", Function: FuncReadCoils, Count: MaxReadBits, SlaveID: 1},
		},
		{
			name:    "read coils past maximum",
			spec:    RequestSpec{ID: "m4", Function: FuncReadDiscreteInputs, Count: MaxReadBits + 1, SlaveID: 1},
			wantErr: true,
		},
		{
			name: "write registers at maximum",
			spec: RequestSpec{ID: "m5", Function: FuncWriteMultipleRegisters, Count: MaxWriteWords, SlaveID: 1, Values: make([]uint16, MaxWriteWords)},
		},
		{
			name:    "write registers past maximum",
			spec:    RequestSpec{ID: "m6", Function: FuncWriteMultipleRegisters, Count: MaxWriteWords + 1, SlaveID: 1, Values: make([]uint16, MaxWriteWords+1)},
			wantErr: true,
		},
		{
			name: "write coils at maximum",
			spec: RequestSpec{ID: "m7", Function: FuncWriteMultipleCoils, Count: MaxWriteBits, SlaveID: 1, Values: make([]uint16, MaxWriteBits)},
		},
		{
			name:    "write coils past maximum",
			spec:    RequestSpec{ID: "m8", Function: FuncWriteMultipleCoils, Count: MaxWriteBits + 1, SlaveID: 1, Values: make([]uint16, MaxWriteBits+1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var encErr *EncodingError
				if !errors.As(err, &encErr) {
					t.Fatalf("Validate() error type = %T, want *EncodingError", err)
				}
				if encErr.RequestID != tt.spec.ID {
					t.Errorf("error request id = %q, want %q", encErr.RequestID, tt.spec.ID)
				}
				if KindOf(err) != KindEncoding {
					t.Errorf("KindOf() = %v, want KindEncoding", KindOf(err))
				}
			}
		})
	}
}

func TestSortByOrder(t *testing.T) {
	specs := []RequestSpec{
		{ID: "c", Order: 2},
		{ID: "a", Order: 1},
		{ID: "b", Order: 1},
		{ID: "d", Order: 0},
	}

	sorted := SortByOrder(specs)

	want := []string{"d", "a", "b", "c"}
	for i, id := range want {
		if sorted[i].ID != id {
			t.Errorf("sorted[%d].ID = %q, want %q", i, sorted[i].ID, id)
		}
	}

	// Input order untouched.
	if specs[0].ID != "c" {
		t.Errorf("input slice mutated: specs[0].ID = %q", specs[0].ID)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"encoding", &EncodingError{RequestID: "r", Reason: "bad"}, KindEncoding},
		{"decoding", &DecodingError{RequestID: "r", Reason: "short"}, KindDecoding},
		{"exception", &ExceptionError{RequestID: "r", Function: FuncReadCoils, Code: ExcIllegalDataAddress}, KindException},
		{"timeout", ErrTimeout, KindTimeout},
		{"wrapped timeout", errors.New("x"), KindTransport},
		{"transport", &TransportError{Op: "write", Err: errors.New("broken pipe")}, KindTransport},
		{"not connected", ErrNotConnected, KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
