package nlenc

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/josharian/native"
)

func skipBigEndian(t *testing.T) {
	t.Helper()

	if native.IsBigEndian {
		t.Skip("skipping test on big-endian system")
	}
}

func TestUintPanic(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
		fn   func(b []byte)
	}{
		{
			name: "short put 8",
			b:    make([]byte, 0),
			fn: func(b []byte) {
				PutUint8(b, 0)
			},
		},
		{
			name: "long get 8",
			b:    make([]byte, 2),
			fn: func(b []byte) {
				Uint8(b)
			},
		},
		{
			name: "short put 16",
			b:    make([]byte, 1),
			fn: func(b []byte) {
				PutUint16(b, 0)
			},
		},
		{
			name: "long get 16",
			b:    make([]byte, 3),
			fn: func(b []byte) {
				Uint16(b)
			},
		},
		{
			name: "short put 32",
			b:    make([]byte, 3),
			fn: func(b []byte) {
				PutUint32(b, 0)
			},
		},
		{
			name: "long get 32",
			b:    make([]byte, 5),
			fn: func(b []byte) {
				Uint32(b)
			},
		},
		{
			name: "short get signed 32",
			b:    make([]byte, 3),
			fn: func(b []byte) {
				Int32(b)
			},
		},
		{
			name: "short put 64",
			b:    make([]byte, 7),
			fn: func(b []byte) {
				PutUint64(b, 0)
			},
		},
		{
			name: "long get signed 64",
			b:    make([]byte, 9),
			fn: func(b []byte) {
				Int64(b)
			},
		},
		{
			name: "short get big endian 16",
			b:    make([]byte, 1),
			fn: func(b []byte) {
				Uint16BE(b)
			},
		},
		{
			name: "long put big endian 32",
			b:    make([]byte, 5),
			fn: func(b []byte) {
				PutUint32BE(b, 0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic, but none occurred")
				}
			}()

			tt.fn(tt.b)
			t.Fatal("reached end of test case without panic")
		})
	}
}

func TestUint16(t *testing.T) {
	skipBigEndian(t)

	tests := []struct {
		v uint16
		b []byte
	}{
		{
			v: 0x1,
			b: []byte{0x01, 0x00},
		},
		{
			v: 0x0102,
			b: []byte{0x02, 0x01},
		},
		{
			v: 0xffff,
			b: []byte{0xff, 0xff},
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%04x", tt.v), func(t *testing.T) {
			b := make([]byte, 2)
			PutUint16(b, tt.v)

			if want, got := tt.b, b; !bytes.Equal(want, got) {
				t.Fatalf("unexpected bytes:\n- want: [%# x]\n-  got: [%# x]",
					want, got)
			}

			if want, got := tt.v, Uint16(b); want != got {
				t.Fatalf("unexpected integer:\n- want: 0x%04x\n-  got: 0x%04x",
					want, got)
			}
		})
	}
}

func TestUint32(t *testing.T) {
	skipBigEndian(t)

	tests := []struct {
		v uint32
		b []byte
	}{
		{
			v: 0x1,
			b: []byte{0x01, 0x00, 0x00, 0x00},
		},
		{
			v: 0x0102,
			b: []byte{0x02, 0x01, 0x00, 0x00},
		},
		{
			v: 0x01020304,
			b: []byte{0x04, 0x03, 0x02, 0x01},
		},
		{
			v: 0x1a2a3a4a,
			b: []byte{0x4a, 0x3a, 0x2a, 0x1a},
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("0x%08x", tt.v), func(t *testing.T) {
			b := make([]byte, 4)
			PutUint32(b, tt.v)

			if want, got := tt.b, b; !bytes.Equal(want, got) {
				t.Fatalf("unexpected bytes:\n- want: [%# x]\n-  got: [%# x]",
					want, got)
			}

			if want, got := tt.v, Uint32(b); want != got {
				t.Fatalf("unexpected integer:\n- want: 0x%08x\n-  got: 0x%08x",
					want, got)
			}
		})
	}
}

func TestInt32(t *testing.T) {
	skipBigEndian(t)

	tests := []struct {
		b []byte
		v int32
	}{
		{
			b: []byte{0x01, 0x00, 0x00, 0x00},
			v: 0x1,
		},
		{
			b: []byte{0x4a, 0x3a, 0x2a, 0x1a},
			v: 0x1a2a3a4a,
		},
		{
			b: []byte{0xff, 0xff, 0xff, 0xff},
			v: -1,
		},
		{
			b: []byte{0xfe, 0xff, 0xff, 0xff},
			v: -2,
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.v), func(t *testing.T) {
			if want, got := tt.v, Int32(tt.b); want != got {
				t.Fatalf("unexpected integer:\n- want: %d\n-  got: %d",
					want, got)
			}

			if want, got := tt.b, Int32Bytes(tt.v); !bytes.Equal(want, got) {
				t.Fatalf("unexpected bytes:\n- want: [%# x]\n-  got: [%# x]",
					want, got)
			}
		})
	}
}

func TestBigEndian(t *testing.T) {
	if want, got := []byte{0x12, 0x34}, Uint16BEBytes(0x1234); !bytes.Equal(want, got) {
		t.Fatalf("unexpected bytes:\n- want: [%# x]\n-  got: [%# x]", want, got)
	}

	b := Uint32BEBytes(0xc0a80001)
	if want, got := []byte{0xc0, 0xa8, 0x00, 0x01}, b; !bytes.Equal(want, got) {
		t.Fatalf("unexpected bytes:\n- want: [%# x]\n-  got: [%# x]", want, got)
	}
	if want, got := uint32(0xc0a80001), Uint32BE(b); want != got {
		t.Fatalf("unexpected integer:\n- want: 0x%08x\n-  got: 0x%08x", want, got)
	}

	b = make([]byte, 8)
	PutUint64BE(b, 0x0102030405060708)
	if want, got := uint64(0x0102030405060708), Uint64BE(b); want != got {
		t.Fatalf("unexpected integer:\n- want: 0x%016x\n-  got: 0x%016x", want, got)
	}
	if b[0] != 0x01 || b[7] != 0x08 {
		t.Fatalf("unexpected big endian layout: [%# x]", b)
	}
}

func TestSignedRoundTrip(t *testing.T) {
	if want, got := int8(-3), Int8(Int8Bytes(-3)); want != got {
		t.Fatalf("unexpected int8:\n- want: %d\n-  got: %d", want, got)
	}
	if want, got := int16(-300), Int16(Int16Bytes(-300)); want != got {
		t.Fatalf("unexpected int16:\n- want: %d\n-  got: %d", want, got)
	}
	if want, got := int64(-1<<40), Int64(Int64Bytes(-1<<40)); want != got {
		t.Fatalf("unexpected int64:\n- want: %d\n-  got: %d", want, got)
	}
	if want, got := uint64(1<<63), Uint64(Uint64Bytes(1<<63)); want != got {
		t.Fatalf("unexpected uint64:\n- want: %d\n-  got: %d", want, got)
	}
}
