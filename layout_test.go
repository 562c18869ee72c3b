package rtnl_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/nlenc"
)

// testAddrHeader mirrors struct ifaddrmsg.
type testAddrHeader struct {
	Family    uint8
	PrefixLen uint8
	Flags     uint8
	Scope     uint8
	Index     uint32
}

var testAddrCodec = rtnl.HeaderCodec[testAddrHeader]{
	Name: "ifaddrmsg",
	Len:  8,
	Read: func(d *rtnl.FixedDecoder) testAddrHeader {
		return testAddrHeader{
			Family:    d.Uint8(0),
			PrefixLen: d.Uint8(1),
			Flags:     d.Uint8(2),
			Scope:     d.Uint8(3),
			Index:     d.Uint32(4),
		}
	},
	Write: func(e *rtnl.FixedEncoder, h *testAddrHeader) {
		e.PutUint8(0, h.Family)
		e.PutUint8(1, h.PrefixLen)
		e.PutUint8(2, h.Flags)
		e.PutUint8(3, h.Scope)
		e.PutUint32(4, h.Index)
	},
}

func TestHeaderCodec(t *testing.T) {
	h := testAddrHeader{
		Family:    2,
		PrefixLen: 24,
		Flags:     0x80,
		Index:     2,
	}

	b, err := testAddrCodec.Format(&h, nil)
	if err != nil {
		t.Fatalf("failed to format: %v", err)
	}

	want := append([]byte{0x02, 0x18, 0x80, 0x00}, nlenc.Uint32Bytes(2)...)
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("unexpected bytes (-want +got):\n%s", diff)
	}

	out, err := testAddrCodec.Parse(b)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if diff := cmp.Diff(h, out); diff != "" {
		t.Fatalf("unexpected header (-want +got):\n%s", diff)
	}
}

func TestHeaderCodecFormatInPlace(t *testing.T) {
	// Bytes not written by the codec keep their value.
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	c := rtnl.HeaderCodec[uint16]{
		Name:  "word",
		Len:   10,
		Read:  func(d *rtnl.FixedDecoder) uint16 { return d.Uint16BE(8) },
		Write: func(e *rtnl.FixedEncoder, v *uint16) { e.PutUint16BE(8, *v) },
	}

	v := uint16(0x0102)
	b, err := c.Format(&v, buf)
	if err != nil {
		t.Fatalf("failed to format: %v", err)
	}

	want := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01, 0x02}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("unexpected bytes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Fatalf("buffer was not written in place (-want +got):\n%s", diff)
	}
}

func TestHeaderCodecErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
		err  error
	}{
		{
			name: "parse short",
			fn: func() error {
				_, err := testAddrCodec.Parse(make([]byte, 7))
				return err
			},
			err: rtnl.ErrLengthMismatch,
		},
		{
			name: "parse long",
			fn: func() error {
				_, err := testAddrCodec.Parse(make([]byte, 9))
				return err
			},
			err: rtnl.ErrLengthMismatch,
		},
		{
			name: "format wrong buffer",
			fn: func() error {
				_, err := testAddrCodec.Format(&testAddrHeader{}, make([]byte, 4))
				return err
			},
			err: rtnl.ErrLengthMismatch,
		},
		{
			name: "read out of range",
			fn: func() error {
				c := rtnl.HeaderCodec[uint64]{
					Name:  "bad",
					Len:   4,
					Read:  func(d *rtnl.FixedDecoder) uint64 { return d.Uint64(0) },
					Write: func(_ *rtnl.FixedEncoder, _ *uint64) {},
				}
				_, err := c.Parse(make([]byte, 4))
				return err
			},
			err: rtnl.ErrLengthMismatch,
		},
		{
			name: "write out of range",
			fn: func() error {
				c := rtnl.HeaderCodec[uint32]{
					Name:  "bad",
					Len:   4,
					Read:  func(d *rtnl.FixedDecoder) uint32 { return d.Uint32(0) },
					Write: func(e *rtnl.FixedEncoder, v *uint32) { e.PutUint32(2, *v) },
				}
				v := uint32(1)
				_, err := c.Format(&v, nil)
				return err
			},
			err: rtnl.ErrLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, but got: %v", tt.err, err)
			}
		})
	}
}

func TestFixedDecoder(t *testing.T) {
	b := []byte{
		0x01,
		0x00, 0x50,
		0xaa, 0xbb, 0xcc,
		0xc0, 0x00, 0x02, 0x01,
	}

	d, err := rtnl.NewFixedDecoder("test", b, len(b))
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}

	if diff := cmp.Diff(uint8(1), d.Uint8(0)); diff != "" {
		t.Fatalf("unexpected uint8 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(uint16(80), d.Uint16BE(1)); diff != "" {
		t.Fatalf("unexpected uint16 (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]byte{0xaa, 0xbb, 0xcc}, d.Bytes(3, 3)); diff != "" {
		t.Fatalf("unexpected bytes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(uint32(0xc0000201), d.Uint32BE(6)); diff != "" {
		t.Fatalf("unexpected uint32 (-want +got):\n%s", diff)
	}
	if err := d.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The first failure sticks and later reads return zero.
	if v := d.Uint32(8); v != 0 {
		t.Fatalf("out of range read returned %d", v)
	}
	if v := d.Uint8(0); v != 0 {
		t.Fatalf("read after failure returned %d", v)
	}

	var lerr *rtnl.LengthMismatchError
	if !errors.As(d.Err(), &lerr) {
		t.Fatalf("expected *LengthMismatchError, but got: %v", d.Err())
	}

	want := &rtnl.LengthMismatchError{Name: "test", Want: 12, Got: 10}
	if diff := cmp.Diff(want, lerr); diff != "" {
		t.Fatalf("unexpected error (-want +got):\n%s", diff)
	}
}

func TestFixedEncoderArray(t *testing.T) {
	tests := []struct {
		name string
		v    []byte
		want []byte
		err  error
	}{
		{
			name: "OK",
			v:    []byte{0xde, 0xad, 0xbe, 0xef, 0xde, 0xad},
			want: []byte{0x00, 0x00, 0xde, 0xad, 0xbe, 0xef, 0xde, 0xad},
		},
		{
			name: "short",
			v:    []byte{0xde, 0xad},
			err:  rtnl.ErrArrayLengthMismatch,
		},
		{
			name: "long",
			v:    make([]byte, 7),
			err:  rtnl.ErrArrayLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := rtnl.NewFixedEncoder("hwaddr", 8, nil)
			if err != nil {
				t.Fatalf("failed to create encoder: %v", err)
			}

			e.Array(2, tt.v, 6)

			b, err := e.Bytes()
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected %v, but got: %v", tt.err, err)
			}
			if err != nil {
				return
			}

			if diff := cmp.Diff(tt.want, b); diff != "" {
				t.Fatalf("unexpected bytes (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFixedFlagsAndEnums(t *testing.T) {
	type hdr struct {
		Flags rtnl.Bitmask
		Proto rtnl.Enum
	}

	c := rtnl.HeaderCodec[hdr]{
		Name: "hdr",
		Len:  4,
		Read: func(d *rtnl.FixedDecoder) hdr {
			return hdr{
				Flags: d.Flags(0, 2, testFlags),
				Proto: d.Enum(2, 1, testProtocols),
			}
		},
		Write: func(e *rtnl.FixedEncoder, h *hdr) {
			e.PutFlags(0, 2, h.Flags, testFlags)
			e.PutEnum(2, 1, h.Proto, testProtocols)
		},
	}

	in := hdr{
		Flags: rtnl.Bitmask{
			Names:   map[string]bool{"permanent": true},
			Unknown: 0x0400,
		},
		Proto: rtnl.Enum{Name: "static", Value: 4},
	}

	b, err := c.Format(&in, nil)
	if err != nil {
		t.Fatalf("failed to format: %v", err)
	}

	out, err := c.Parse(b)
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("unexpected header (-want +got):\n%s", diff)
	}

	bad := hdr{Proto: rtnl.Enum{Name: "bogus"}}
	if _, err := c.Format(&bad, nil); err == nil {
		t.Fatal("expected an error for an unknown enum name")
	}

	for _, h := range []hdr{
		{Flags: rtnl.Bitmask{Unknown: 0x10000}},
		{Proto: rtnl.Enum{Value: 300}},
	} {
		_, err := c.Format(&h, nil)
		var lerr *rtnl.LengthMismatchError
		if !errors.As(err, &lerr) {
			t.Fatalf("expected length mismatch for %+v, but got: %v", h, err)
		}
		if lerr.Name != "hdr" {
			t.Fatalf("unexpected error name: %q", lerr.Name)
		}
	}
}
