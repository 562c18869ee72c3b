package rtnl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/mdlayher/rtnl/nlenc"
)

var (
	// errInvalidAttribute specifies if an Attribute's length is incorrect.
	errInvalidAttribute = errors.New("invalid attribute; length too short or too large")
)

// Attribute type flag bits, stored in the upper two bits of an attribute's
// type field.
const (
	// Nested indicates the attribute payload is itself a stream of
	// attributes.
	Nested uint16 = 0x8000

	// NetByteOrder indicates the attribute payload is stored in network
	// byte order.
	NetByteOrder uint16 = 0x4000

	// attrTypeMask masks off the Nested and NetByteOrder bits.
	attrTypeMask uint16 = 0x3fff
)

// An Attribute is a netlink attribute.  Attributes are packed and unpacked
// to and from the Data field of Message for some netlink families.
type Attribute struct {
	// Length of an Attribute, including this field and Type.
	Length uint16

	// The type of this Attribute, typically matched to a constant. The
	// Nested and NetByteOrder bits are kept; use Code to mask them off.
	Type uint16

	// An arbitrary payload which is specified by Type.
	Data []byte
}

// Code returns the attribute's type with the Nested and NetByteOrder bits
// masked off.
func (a Attribute) Code() uint16 { return a.Type & attrTypeMask }

// IsNested reports whether the Nested bit is set.
func (a Attribute) IsNested() bool { return a.Type&Nested != 0 }

// IsNetByteOrder reports whether the NetByteOrder bit is set.
func (a Attribute) IsNetByteOrder() bool { return a.Type&NetByteOrder != 0 }

// marshal marshals the contents of a into b and returns the number of bytes
// written to b, including attribute alignment padding.
func (a *Attribute) marshal(b []byte) (int, error) {
	if int(a.Length) < nlaHeaderLen {
		return 0, errInvalidAttribute
	}

	nlenc.PutUint16(b[0:2], a.Length)
	nlenc.PutUint16(b[2:4], a.Type)
	n := copy(b[nlaHeaderLen:], a.Data)

	return nlaHeaderLen + nlaAlign(n), nil
}

// MarshalAttributes packs a slice of Attributes into a single byte slice.
// In most cases, the Length field of each Attribute should be set to 0, so it
// can be calculated and populated automatically for each Attribute.
//
// Every attribute starts on a 4-byte boundary and padding bytes are zero.
func MarshalAttributes(attrs []Attribute) ([]byte, error) {
	// Count how many bytes we should allocate to store each attribute's contents.
	var c int
	for _, a := range attrs {
		c += nlaHeaderLen + nlaAlign(len(a.Data))
	}

	// Advance through b with idx to place attribute data at the correct offset.
	var idx int
	b := make([]byte, c)
	for _, a := range attrs {
		// Infer the length of attribute if zero.
		if a.Length == 0 {
			if nlaHeaderLen+len(a.Data) > math.MaxUint16 {
				return nil, &LengthMismatchError{
					Name: fmt.Sprintf("attribute %d", a.Code()),
					Want: math.MaxUint16 - nlaHeaderLen,
					Got:  len(a.Data),
				}
			}

			a.Length = uint16(nlaHeaderLen + len(a.Data))
		}

		// Marshal a into b and advance idx to show many bytes are occupied.
		n, err := a.marshal(b[idx:])
		if err != nil {
			return nil, err
		}
		idx += n
	}

	return b, nil
}

// UnmarshalAttributes unpacks a slice of Attributes from a single byte slice.
//
// It is recommend to use the AttributeDecoder type where possible instead of
// calling UnmarshalAttributes and using package nlenc functions directly.
func UnmarshalAttributes(b []byte) ([]Attribute, error) {
	var attrs []Attribute
	var i int
	for len(b[i:]) > 0 {
		rest := len(b[i:])
		if rest < nlaHeaderLen {
			return nil, &TruncatedAttributeError{
				Offset:    i,
				Length:    nlaHeaderLen,
				Remaining: rest,
			}
		}

		l := int(nlenc.Uint16(b[i : i+2]))
		t := nlenc.Uint16(b[i+2 : i+4])

		switch {
		case l == 0:
			// Zero-length padding header; skip it.
			i += nlaHeaderLen
			continue
		case l < nlaHeaderLen:
			return nil, errInvalidAttribute
		case l > rest:
			return nil, &TruncatedAttributeError{
				Offset:    i,
				Length:    l,
				Remaining: rest,
			}
		}

		attrs = append(attrs, Attribute{
			Length: uint16(l),
			Type:   t,
			// Zero-copy: the codec never mutates its input.
			Data: b[i+nlaHeaderLen : i+l : i+l],
		})

		// The final attribute may omit its trailing padding.
		i += min(nlaAlign(l), rest)
	}

	return attrs, nil
}

// An AttributeDecoder provides a safe, iterator-like, API around attribute
// decoding.
//
// It is recommended to use an AttributeDecoder where possible instead of
// calling UnmarshalAttributes and using package nlenc functions directly.
//
// The Err method must be called after the Next method returns false to
// determine if any errors occurred during iteration.
type AttributeDecoder struct {
	// ByteOrder defines a specific byte order to use when processing integer
	// attributes.  ByteOrder should be set immediately after creating the
	// AttributeDecoder: before any attributes are parsed.
	//
	// If not set, the native byte order will be used.  Attributes carrying
	// the NetByteOrder bit are always decoded in network byte order.
	ByteOrder binary.ByteOrder

	// The attributes being worked on, and the iterator index into the slice of
	// attributes.
	attrs []Attribute
	i     int

	// Any error encountered while decoding attributes.
	err error
}

// NewAttributeDecoder creates an AttributeDecoder that unpacks Attributes
// from b and prepares the decoder for iteration.
func NewAttributeDecoder(b []byte) (*AttributeDecoder, error) {
	attrs, err := UnmarshalAttributes(b)
	if err != nil {
		return nil, err
	}

	return &AttributeDecoder{
		ByteOrder: nlenc.NativeEndian(),
		attrs:     attrs,
		// Start before the first attribute so Next advances onto it.
		i: -1,
	}, nil
}

// Next advances the decoder to the next netlink attribute.  It returns false
// when no more attributes are present, or an error was encountered.
func (ad *AttributeDecoder) Next() bool {
	if ad.err != nil {
		// Hit an error, stop iteration.
		return false
	}

	ad.i++
	return ad.i < len(ad.attrs)
}

// Type returns the Attribute.Type field of the current netlink attribute
// pointed to by the decoder, with the Nested and NetByteOrder bits masked off.
func (ad *AttributeDecoder) Type() uint16 {
	return ad.attr().Code()
}

// TypeFlags returns the two high bits of the Attribute.Type field of the
// current netlink attribute pointed to by the decoder.
func (ad *AttributeDecoder) TypeFlags() uint16 {
	return ad.attr().Type &^ attrTypeMask
}

// Len returns the number of netlink attributes pointed to by the decoder.
func (ad *AttributeDecoder) Len() int { return len(ad.attrs) }

// Attribute returns the current netlink attribute pointed to by the
// decoder, with its payload aliasing the decoder's input.
func (ad *AttributeDecoder) Attribute() Attribute { return ad.attr() }

// attr returns the current Attribute pointed to by the decoder.
func (ad *AttributeDecoder) attr() Attribute {
	return ad.attrs[ad.i]
}

// data returns the Data field of the current Attribute pointed to by the decoder.
func (ad *AttributeDecoder) data() []byte {
	return ad.attrs[ad.i].Data
}

// order returns the byte order for the current attribute.
func (ad *AttributeDecoder) order() binary.ByteOrder {
	if ad.attr().IsNetByteOrder() {
		return binary.BigEndian
	}
	if ad.ByteOrder == nil {
		return nlenc.NativeEndian()
	}

	return ad.ByteOrder
}

// Err returns the first error encountered by the decoder.
func (ad *AttributeDecoder) Err() error {
	return ad.err
}

// Bytes returns the raw bytes of the current Attribute's data.
func (ad *AttributeDecoder) Bytes() []byte {
	src := ad.data()
	dest := make([]byte, len(src))
	copy(dest, src)
	return dest
}

// String returns the string representation of the current Attribute's data.
func (ad *AttributeDecoder) String() string {
	if ad.err != nil {
		return ""
	}

	return nlenc.String(ad.data())
}

// Flag returns a boolean representing the Attribute.  A flag attribute is
// present with no payload; any payload is an error.
func (ad *AttributeDecoder) Flag() bool {
	if !ad.check(0) {
		return false
	}

	return true
}

// check records a LengthMismatchError when the current attribute's payload
// is not exactly n bytes.
func (ad *AttributeDecoder) check(n int) bool {
	if ad.err != nil {
		return false
	}

	b := ad.data()
	if len(b) != n {
		ad.err = &LengthMismatchError{
			Name: fmt.Sprintf("attribute %d", ad.Type()),
			Want: n,
			Got:  len(b),
		}
		return false
	}

	return true
}

// Uint8 returns the uint8 representation of the current Attribute's data.
func (ad *AttributeDecoder) Uint8() uint8 {
	if !ad.check(1) {
		return 0
	}

	return ad.data()[0]
}

// Uint16 returns the uint16 representation of the current Attribute's data.
func (ad *AttributeDecoder) Uint16() uint16 {
	if !ad.check(2) {
		return 0
	}

	return ad.order().Uint16(ad.data())
}

// Uint32 returns the uint32 representation of the current Attribute's data.
func (ad *AttributeDecoder) Uint32() uint32 {
	if !ad.check(4) {
		return 0
	}

	return ad.order().Uint32(ad.data())
}

// Uint64 returns the uint64 representation of the current Attribute's data.
func (ad *AttributeDecoder) Uint64() uint64 {
	if !ad.check(8) {
		return 0
	}

	return ad.order().Uint64(ad.data())
}

// Int8 returns the int8 representation of the current Attribute's data.
func (ad *AttributeDecoder) Int8() int8 { return int8(ad.Uint8()) }

// Int16 returns the int16 representation of the current Attribute's data.
func (ad *AttributeDecoder) Int16() int16 { return int16(ad.Uint16()) }

// Int32 returns the int32 representation of the current Attribute's data.
func (ad *AttributeDecoder) Int32() int32 { return int32(ad.Uint32()) }

// Int64 returns the int64 representation of the current Attribute's data.
func (ad *AttributeDecoder) Int64() int64 { return int64(ad.Uint64()) }

// Do is a general purpose function which allows access to the current data
// pointed to by the AttributeDecoder.
//
// Do can be used to allow parsing arbitrary data within the context of the
// decoder.  Do is most useful when dealing with nested attributes, attribute
// arrays, or decoding arbitrary types (such as C structures) which don't fit
// cleanly into a typical unsigned integer value.
//
// The function fn should not retain any reference to the data b outside of the
// scope of the function.
func (ad *AttributeDecoder) Do(fn func(b []byte) error) {
	if ad.err != nil {
		return
	}

	if err := fn(ad.data()); err != nil {
		ad.err = err
	}
}

// Nested decodes data into a nested AttributeDecoder to handle nested netlink
// attributes.  When calling Nested, the Err method does not need to be called
// on the nested AttributeDecoder.
//
// The nested AttributeDecoder nad inherits the same ByteOrder setting as the
// top-level AttributeDecoder ad.
func (ad *AttributeDecoder) Nested(fn func(nad *AttributeDecoder) error) {
	// Because we are wrapping Do, there is no need to check ad.err immediately.
	ad.Do(func(b []byte) error {
		nad, err := NewAttributeDecoder(b)
		if err != nil {
			return err
		}
		nad.ByteOrder = ad.ByteOrder

		if err := fn(nad); err != nil {
			return err
		}

		return nad.Err()
	})
}

// An AttributeEncoder provides a safe way to encode attributes.
//
// It is recommended to use an AttributeEncoder where possible instead of
// calling MarshalAttributes or using package nlenc directly.
//
// Errors from intermediate encoding steps are returned in the call to
// the Encode method.
type AttributeEncoder struct {
	// ByteOrder defines a specific byte order to use when processing integer
	// attributes.  ByteOrder should be set immediately after creating the
	// AttributeEncoder: before any attributes are encoded.
	//
	// If not set, the native byte order will be used.
	ByteOrder binary.ByteOrder

	attrs []Attribute
	err   error
}

// NewAttributeEncoder creates an AttributeEncoder that encodes Attributes.
func NewAttributeEncoder() *AttributeEncoder {
	return &AttributeEncoder{ByteOrder: nlenc.NativeEndian()}
}

// order returns the byte order for an attribute of type typ.
func (ae *AttributeEncoder) order(typ uint16) binary.ByteOrder {
	if typ&NetByteOrder != 0 {
		return binary.BigEndian
	}
	if ae.ByteOrder == nil {
		return nlenc.NativeEndian()
	}

	return ae.ByteOrder
}

// Uint8 encodes uint8 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Uint8(typ uint16, v uint8) {
	if ae.err != nil {
		return
	}

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: []byte{v},
	})
}

// Uint16 encodes uint16 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Uint16(typ uint16, v uint16) {
	if ae.err != nil {
		return
	}

	b := make([]byte, 2)
	ae.order(typ).PutUint16(b, v)

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: b,
	})
}

// Uint32 encodes uint32 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Uint32(typ uint16, v uint32) {
	if ae.err != nil {
		return
	}

	b := make([]byte, 4)
	ae.order(typ).PutUint32(b, v)

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: b,
	})
}

// Uint64 encodes uint64 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Uint64(typ uint16, v uint64) {
	if ae.err != nil {
		return
	}

	b := make([]byte, 8)
	ae.order(typ).PutUint64(b, v)

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: b,
	})
}

// Int8 encodes int8 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Int8(typ uint16, v int8) { ae.Uint8(typ, uint8(v)) }

// Int16 encodes int16 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Int16(typ uint16, v int16) { ae.Uint16(typ, uint16(v)) }

// Int32 encodes int32 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Int32(typ uint16, v int32) { ae.Uint32(typ, uint32(v)) }

// Int64 encodes int64 data into an Attribute specified by typ.
func (ae *AttributeEncoder) Int64(typ uint16, v int64) { ae.Uint64(typ, uint64(v)) }

// Flag encodes a flag into an Attribute specified by typ.  A true flag is
// encoded as a zero-length attribute; a false flag is omitted.
func (ae *AttributeEncoder) Flag(typ uint16, v bool) {
	// Only set flag on no previous error or v == true.
	if ae.err != nil || !v {
		return
	}

	// Flags have no length or data fields.
	ae.attrs = append(ae.attrs, Attribute{Type: typ})
}

// String encodes string s as a null-terminated string into an Attribute
// specified by typ.
func (ae *AttributeEncoder) String(typ uint16, s string) {
	if ae.err != nil {
		return
	}

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: nlenc.Bytes(s),
	})
}

// Bytes embeds raw byte data into an Attribute specified by typ.
func (ae *AttributeEncoder) Bytes(typ uint16, b []byte) {
	if ae.err != nil {
		return
	}

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: b,
	})
}

// Do is a general purpose function to encode arbitrary data into an attribute
// specified by typ.
//
// Do is only necessary when dealing with raw bytes to encode, or when the
// Nested method does not fit the situation.
func (ae *AttributeEncoder) Do(typ uint16, fn func() ([]byte, error)) {
	if ae.err != nil {
		return
	}

	b, err := fn()
	if err != nil {
		ae.err = err
		return
	}

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ,
		Data: b,
	})
}

// Nested embeds data produced by a nested AttributeEncoder and flags that data
// with the Nested flag.  When calling Nested, the Encode method should not be
// called on the nested AttributeEncoder.
//
// The nested AttributeEncoder nae inherits the same ByteOrder setting as the
// top-level AttributeEncoder ae.
func (ae *AttributeEncoder) Nested(typ uint16, fn func(nae *AttributeEncoder) error) {
	if ae.err != nil {
		return
	}

	nae := NewAttributeEncoder()
	nae.ByteOrder = ae.ByteOrder

	if err := fn(nae); err != nil {
		ae.err = err
		return
	}

	b, err := nae.Encode()
	if err != nil {
		ae.err = err
		return
	}

	ae.attrs = append(ae.attrs, Attribute{
		Type: typ | Nested,
		Data: b,
	})
}

// Attribute appends a as-is, keeping its type flag bits.
func (ae *AttributeEncoder) Attribute(a Attribute) {
	if ae.err != nil {
		return
	}

	a.Length = 0
	ae.attrs = append(ae.attrs, a)
}

// Encode returns the encoded bytes representing the attributes.
func (ae *AttributeEncoder) Encode() ([]byte, error) {
	if ae.err != nil {
		return nil, ae.err
	}

	return MarshalAttributes(ae.attrs)
}
