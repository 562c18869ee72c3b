package rtnl

import (
	"encoding/binary"
	"fmt"

	"github.com/mdlayher/rtnl/nlenc"
)

// A FixedDecoder reads fields at fixed offsets from a buffer of an exact,
// known length, such as a kernel C structure.
//
// The first out of range read is recorded and returned by Err; later reads
// return zero values.
type FixedDecoder struct {
	name string
	b    []byte
	err  error
}

// NewFixedDecoder creates a FixedDecoder for the structure name.  It fails
// with a *LengthMismatchError unless len(b) == length.
func NewFixedDecoder(name string, b []byte, length int) (*FixedDecoder, error) {
	if len(b) != length {
		return nil, &LengthMismatchError{Name: name, Want: length, Got: len(b)}
	}

	return &FixedDecoder{name: name, b: b}, nil
}

// Err returns the first error encountered by the decoder.
func (d *FixedDecoder) Err() error { return d.err }

// field returns n bytes at off, or nil after recording an error.
func (d *FixedDecoder) field(off, n int) []byte {
	if d.err != nil {
		return nil
	}
	if off < 0 || off+n > len(d.b) {
		d.err = &LengthMismatchError{Name: d.name, Want: off + n, Got: len(d.b)}
		return nil
	}

	return d.b[off : off+n]
}

// Uint8 reads a uint8 at off.
func (d *FixedDecoder) Uint8(off int) uint8 {
	b := d.field(off, 1)
	if b == nil {
		return 0
	}

	return b[0]
}

// Uint16 reads a host order uint16 at off.
func (d *FixedDecoder) Uint16(off int) uint16 {
	b := d.field(off, 2)
	if b == nil {
		return 0
	}

	return nlenc.Uint16(b)
}

// Uint32 reads a host order uint32 at off.
func (d *FixedDecoder) Uint32(off int) uint32 {
	b := d.field(off, 4)
	if b == nil {
		return 0
	}

	return nlenc.Uint32(b)
}

// Uint64 reads a host order uint64 at off.
func (d *FixedDecoder) Uint64(off int) uint64 {
	b := d.field(off, 8)
	if b == nil {
		return 0
	}

	return nlenc.Uint64(b)
}

// Int32 reads a host order int32 at off.
func (d *FixedDecoder) Int32(off int) int32 { return int32(d.Uint32(off)) }

// Uint16BE reads a big endian uint16 at off.
func (d *FixedDecoder) Uint16BE(off int) uint16 {
	b := d.field(off, 2)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint16(b)
}

// Uint32BE reads a big endian uint32 at off.
func (d *FixedDecoder) Uint32BE(off int) uint32 {
	b := d.field(off, 4)
	if b == nil {
		return 0
	}

	return binary.BigEndian.Uint32(b)
}

// Bytes returns a copy of the n bytes at off.
func (d *FixedDecoder) Bytes(off, n int) []byte {
	b := d.field(off, n)
	if b == nil {
		return nil
	}

	return append([]byte(nil), b...)
}

// Flags reads a size byte host order bitmask word at off and splits it into
// the named flags of t.
func (d *FixedDecoder) Flags(off, size int, t *FlagTable) Bitmask {
	b := d.field(off, size)
	if b == nil {
		return Bitmask{}
	}

	return DecodeFlags(uint32(getUint(nlenc.NativeEndian(), b, size)), t)
}

// Enum reads a size byte host order enum at off and resolves it with t.
func (d *FixedDecoder) Enum(off, size int, t *EnumTable) Enum {
	b := d.field(off, size)
	if b == nil {
		return Enum{}
	}

	return DecodeEnum(uint32(getUint(nlenc.NativeEndian(), b, size)), t)
}

// A FixedEncoder writes fields at fixed offsets into a buffer of an exact,
// known length.  Bytes not written keep their previous value, which is zero
// for a buffer allocated by NewFixedEncoder.
type FixedEncoder struct {
	name string
	b    []byte
	err  error
}

// NewFixedEncoder creates a FixedEncoder for the structure name.  When buf
// is nil a zeroed buffer of length bytes is allocated; otherwise buf must be
// exactly length bytes long.
func NewFixedEncoder(name string, length int, buf []byte) (*FixedEncoder, error) {
	if buf == nil {
		buf = make([]byte, length)
	}
	if len(buf) != length {
		return nil, &LengthMismatchError{Name: name, Want: length, Got: len(buf)}
	}

	return &FixedEncoder{name: name, b: buf}, nil
}

// Bytes returns the encoded buffer, or the first error encountered.
func (e *FixedEncoder) Bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}

	return e.b, nil
}

// field returns n writable bytes at off, or nil after recording an error.
func (e *FixedEncoder) field(off, n int) []byte {
	if e.err != nil {
		return nil
	}
	if off < 0 || off+n > len(e.b) {
		e.err = &LengthMismatchError{Name: e.name, Want: off + n, Got: len(e.b)}
		return nil
	}

	return e.b[off : off+n]
}

// PutUint8 writes v at off.
func (e *FixedEncoder) PutUint8(off int, v uint8) {
	if b := e.field(off, 1); b != nil {
		b[0] = v
	}
}

// PutUint16 writes v at off in host order.
func (e *FixedEncoder) PutUint16(off int, v uint16) {
	if b := e.field(off, 2); b != nil {
		nlenc.PutUint16(b, v)
	}
}

// PutUint32 writes v at off in host order.
func (e *FixedEncoder) PutUint32(off int, v uint32) {
	if b := e.field(off, 4); b != nil {
		nlenc.PutUint32(b, v)
	}
}

// PutUint64 writes v at off in host order.
func (e *FixedEncoder) PutUint64(off int, v uint64) {
	if b := e.field(off, 8); b != nil {
		nlenc.PutUint64(b, v)
	}
}

// PutInt32 writes v at off in host order.
func (e *FixedEncoder) PutInt32(off int, v int32) { e.PutUint32(off, uint32(v)) }

// PutUint16BE writes v at off in big endian order.
func (e *FixedEncoder) PutUint16BE(off int, v uint16) {
	if b := e.field(off, 2); b != nil {
		binary.BigEndian.PutUint16(b, v)
	}
}

// PutUint32BE writes v at off in big endian order.
func (e *FixedEncoder) PutUint32BE(off int, v uint32) {
	if b := e.field(off, 4); b != nil {
		binary.BigEndian.PutUint32(b, v)
	}
}

// Array writes a fixed-count byte array at off.  It records an
// *ArrayLengthMismatchError unless len(v) == count.
func (e *FixedEncoder) Array(off int, v []byte, count int) {
	if e.err != nil {
		return
	}
	if len(v) != count {
		e.err = &ArrayLengthMismatchError{Name: e.name, Want: count, Got: len(v)}
		return
	}

	if b := e.field(off, count); b != nil {
		copy(b, v)
	}
}

// PutFlags packs bm with t and writes it at off as a size byte host order
// word.  A flag name unknown to t, or a word wider than size, is recorded
// as an error.
func (e *FixedEncoder) PutFlags(off, size int, bm Bitmask, t *FlagTable) {
	if e.err != nil {
		return
	}

	w, err := EncodeFlags(bm, t)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", e.name, err)
		return
	}

	if err := checkWidth(e.name, uint64(w), size); err != nil {
		e.err = err
		return
	}

	if b := e.field(off, size); b != nil {
		copy(b, putUint(nlenc.NativeEndian(), uint64(w), size))
	}
}

// PutEnum resolves v with t and writes it at off as a size byte host order
// value.  An enum name unknown to t, or a value wider than size, is
// recorded as an error.
func (e *FixedEncoder) PutEnum(off, size int, v Enum, t *EnumTable) {
	if e.err != nil {
		return
	}

	x, err := EncodeEnum(v, t)
	if err != nil {
		e.err = fmt.Errorf("%s: %w", e.name, err)
		return
	}

	if err := checkWidth(e.name, uint64(x), size); err != nil {
		e.err = err
		return
	}

	if b := e.field(off, size); b != nil {
		copy(b, putUint(nlenc.NativeEndian(), uint64(x), size))
	}
}

// A HeaderCodec describes the fixed-layout header of a message kind: its
// name, exact length, and the functions which read and write its fields.
type HeaderCodec[H any] struct {
	Name  string
	Len   int
	Read  func(d *FixedDecoder) H
	Write func(e *FixedEncoder, h *H)
}

// Parse decodes a header from b, which must be exactly c.Len bytes.
func (c HeaderCodec[H]) Parse(b []byte) (H, error) {
	var h H
	d, err := NewFixedDecoder(c.Name, b, c.Len)
	if err != nil {
		return h, err
	}

	h = c.Read(d)
	if err := d.Err(); err != nil {
		var zero H
		return zero, err
	}

	return h, nil
}

// Format encodes h.  When buf is nil a zeroed buffer is allocated;
// otherwise buf must be exactly c.Len bytes and is written in place.
func (c HeaderCodec[H]) Format(h *H, buf []byte) ([]byte, error) {
	e, err := NewFixedEncoder(c.Name, c.Len, buf)
	if err != nil {
		return nil, err
	}

	c.Write(e, h)
	return e.Bytes()
}
