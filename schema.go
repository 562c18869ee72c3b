package rtnl

import (
	"encoding/binary"
	"fmt"

	"github.com/mdlayher/rtnl/nlenc"
)

// A Field describes one attribute of a typed object T: the attribute code,
// how to merge a received attribute into T, and how to produce attributes
// from T.  Fields are created with the *Field constructors in this package.
//
// Encoded attributes carry no Nested or NetByteOrder bits unless the field
// is marked with WithFlags.  Received attributes are accepted with or
// without them.
type Field[T any] struct {
	Name string
	Code uint16

	flags  uint16
	decode func(v *T, a Attribute) error
	encode func(v *T, flags uint16) ([]Attribute, error)
}

// WithFlags returns a copy of f whose encoded attribute types carry flags,
// any combination of Nested and NetByteOrder.  Integer, bitmask and enum
// fields marked NetByteOrder are written in network byte order.
func (f Field[T]) WithFlags(flags uint16) Field[T] {
	f.flags = flags &^ attrTypeMask
	return f
}

// Flags returns the flag bits f sets on encoded attributes.
func (f Field[T]) Flags() uint16 { return f.flags }

// A Schema is an ordered set of Fields which maps an attribute stream to a
// typed object T and back.  A Schema is immutable after creation and safe
// for concurrent use.
type Schema[T any] struct {
	name    string
	fields  []Field[T]
	byCode  map[uint16]int
	unknown func(v *T) *[]Attribute
}

// NewSchema creates a Schema named name from fields.  Fields are encoded
// in the order given.  NewSchema panics if two fields share a code.
func NewSchema[T any](name string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{
		name:   name,
		fields: fields,
		byCode: make(map[uint16]int, len(fields)),
	}

	for i, f := range fields {
		if f.Code&^attrTypeMask != 0 {
			panicf("rtnl: schema %s: field %s: code %#x uses flag bits", name, f.Name, f.Code)
		}
		if j, ok := s.byCode[f.Code]; ok {
			panicf("rtnl: schema %s: fields %s and %s share code %d",
				name, fields[j].Name, f.Name, f.Code)
		}

		s.byCode[f.Code] = i
	}

	return s
}

// Unknown configures s to store attributes with no matching field in the
// slice returned by fn, in arrival order.  They are written back after all
// known fields when encoding.  Without Unknown, such attributes are dropped.
func (s *Schema[T]) Unknown(fn func(v *T) *[]Attribute) *Schema[T] {
	s.unknown = fn
	return s
}

// Name returns the name of the schema.
func (s *Schema[T]) Name() string { return s.name }

// Fields returns the fields of the schema in encoding order.
func (s *Schema[T]) Fields() []Field[T] { return s.fields }

// DecodeObject decodes an attribute stream into a new T using s.
// Attributes whose code matches a list field are appended in arrival order;
// any other repeated attribute overwrites the earlier occurrence.
func DecodeObject[T any](b []byte, s *Schema[T]) (T, error) {
	var v T
	if err := s.decode(&v, b); err != nil {
		var zero T
		return zero, err
	}

	return v, nil
}

// EncodeObject encodes the present fields of v in schema order, followed
// by any preserved unknown attributes.
func EncodeObject[T any](v *T, s *Schema[T]) ([]byte, error) {
	attrs, err := s.attributes(v)
	if err != nil {
		return nil, err
	}

	return MarshalAttributes(attrs)
}

func (s *Schema[T]) decode(v *T, b []byte) error {
	attrs, err := UnmarshalAttributes(b)
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}

	for _, a := range attrs {
		i, ok := s.byCode[a.Code()]
		if !ok {
			if s.unknown != nil {
				u := s.unknown(v)
				*u = append(*u, Attribute{
					Length: a.Length,
					Type:   a.Type,
					Data:   append([]byte(nil), a.Data...),
				})
			}
			continue
		}

		if err := s.fields[i].decode(v, a); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	return nil
}

func (s *Schema[T]) attributes(v *T) ([]Attribute, error) {
	var attrs []Attribute
	for _, f := range s.fields {
		as, err := f.encode(v, f.flags)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}

		for i := range as {
			as[i].Type |= f.flags
		}
		attrs = append(attrs, as...)
	}

	if s.unknown != nil {
		for _, a := range *s.unknown(v) {
			a.Length = 0
			attrs = append(attrs, a)
		}
	}

	return attrs, nil
}

// order returns the byte order of a's payload: network order when its
// NetByteOrder bit is set, otherwise host order.
func order(a Attribute) binary.ByteOrder {
	if a.IsNetByteOrder() {
		return binary.BigEndian
	}

	return nlenc.NativeEndian()
}

// encodeOrder returns the byte order for a field encoded with flags.
func encodeOrder(flags uint16) binary.ByteOrder {
	if flags&NetByteOrder != 0 {
		return binary.BigEndian
	}

	return nlenc.NativeEndian()
}

// checkWidth returns a *LengthMismatchError for field name when v does not
// fit in size bytes.  Got is the number of bytes v needs.
func checkWidth(name string, v uint64, size int) error {
	n := size
	for n < 8 && v>>(8*n) != 0 {
		n++
	}
	if n != size {
		return &LengthMismatchError{Name: name, Want: size, Got: n}
	}

	return nil
}

// checkLen returns a *LengthMismatchError for field name unless len(b) == n.
func checkLen(name string, b []byte, n int) error {
	if len(b) != n {
		return &LengthMismatchError{Name: name, Want: n, Got: len(b)}
	}

	return nil
}

type integer interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 | ~int8 | ~int16 | ~int32 | ~int64
}

// getUint reads a size byte unsigned integer from b.
func getUint(bo binary.ByteOrder, b []byte, size int) uint64 {
	switch size {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(bo.Uint16(b))
	case 4:
		return uint64(bo.Uint32(b))
	default:
		return bo.Uint64(b)
	}
}

// putUint writes v as a size byte unsigned integer.
func putUint(bo binary.ByteOrder, v uint64, size int) []byte {
	b := make([]byte, size)
	switch size {
	case 1:
		b[0] = uint8(v)
	case 2:
		bo.PutUint16(b, uint16(v))
	case 4:
		bo.PutUint32(b, uint32(v))
	default:
		bo.PutUint64(b, v)
	}

	return b
}

// intField builds a field for an optional integer of size bytes.  When be
// is set the value is always big endian.  Otherwise it is read in the order
// named by the received attribute and written in the order named by the
// field's flags.
func intField[T any, V integer](name string, code uint16, size int, be bool, get func(*T) **V) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			if err := checkLen(name, a.Data, size); err != nil {
				return err
			}

			bo := order(a)
			if be {
				bo = binary.BigEndian
			}

			x := V(getUint(bo, a.Data, size))
			*get(v) = &x
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}

			bo := encodeOrder(flags)
			if be {
				bo = binary.BigEndian
			}

			return []Attribute{{Type: code, Data: putUint(bo, uint64(*p), size)}}, nil
		},
	}
}

// Uint8Field is a field holding an optional uint8.
func Uint8Field[T any](name string, code uint16, get func(*T) **uint8) Field[T] {
	return intField(name, code, 1, false, get)
}

// Uint16Field is a field holding an optional host order uint16.
func Uint16Field[T any](name string, code uint16, get func(*T) **uint16) Field[T] {
	return intField(name, code, 2, false, get)
}

// Uint32Field is a field holding an optional host order uint32.
func Uint32Field[T any](name string, code uint16, get func(*T) **uint32) Field[T] {
	return intField(name, code, 4, false, get)
}

// Uint64Field is a field holding an optional host order uint64.
func Uint64Field[T any](name string, code uint16, get func(*T) **uint64) Field[T] {
	return intField(name, code, 8, false, get)
}

// Int32Field is a field holding an optional host order int32.
func Int32Field[T any](name string, code uint16, get func(*T) **int32) Field[T] {
	return intField(name, code, 4, false, get)
}

// Uint16BEField is a field holding an optional big endian uint16.
func Uint16BEField[T any](name string, code uint16, get func(*T) **uint16) Field[T] {
	return intField(name, code, 2, true, get)
}

// Uint32BEField is a field holding an optional big endian uint32.
func Uint32BEField[T any](name string, code uint16, get func(*T) **uint32) Field[T] {
	return intField(name, code, 4, true, get)
}

// StringField is a field holding an optional NUL-terminated string.
func StringField[T any](name string, code uint16, get func(*T) **string) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			s := nlenc.String(a.Data)
			*get(v) = &s
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}

			return []Attribute{{Type: code, Data: nlenc.Bytes(*p)}}, nil
		},
	}
}

// BytesField is a field holding an optional raw byte payload of any
// length, such as a net.IP.  A nil slice is absent; an empty one is present.
func BytesField[T any, B ~[]byte](name string, code uint16, get func(*T) *B) Field[T] {
	return bytesField(name, code, -1, get)
}

// FixedBytesField is a BytesField whose payload must be exactly size bytes,
// such as a net.HardwareAddr.  Decoding another length fails with a
// *LengthMismatchError; encoding one fails with an *ArrayLengthMismatchError.
func FixedBytesField[T any, B ~[]byte](name string, code uint16, size int, get func(*T) *B) Field[T] {
	return bytesField(name, code, size, get)
}

func bytesField[T any, B ~[]byte](name string, code uint16, size int, get func(*T) *B) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			if size >= 0 {
				if err := checkLen(name, a.Data, size); err != nil {
					return err
				}
			}

			*get(v) = B(append([]byte{}, a.Data...))
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}
			if size >= 0 && len(p) != size {
				return nil, &ArrayLengthMismatchError{Name: name, Want: size, Got: len(p)}
			}

			return []Attribute{{Type: code, Data: []byte(p)}}, nil
		},
	}
}

// FlagField is a field holding a presence flag: a zero-length attribute
// which decodes to true.  A false flag is not encoded.
func FlagField[T any](name string, code uint16, get func(*T) *bool) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			if err := checkLen(name, a.Data, 0); err != nil {
				return err
			}

			*get(v) = true
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			if !*get(v) {
				return nil, nil
			}

			return []Attribute{{Type: code}}, nil
		},
	}
}

// FlagsField is a field holding an optional bitmask word of size bytes,
// split into named flags using t.
func FlagsField[T any](name string, code uint16, size int, t *FlagTable, get func(*T) **Bitmask) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			if err := checkLen(name, a.Data, size); err != nil {
				return err
			}

			bm := DecodeFlags(uint32(getUint(order(a), a.Data, size)), t)
			*get(v) = &bm
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}

			w, err := EncodeFlags(*p, t)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if err := checkWidth(name, uint64(w), size); err != nil {
				return nil, err
			}

			return []Attribute{{Type: code, Data: putUint(encodeOrder(flags), uint64(w), size)}}, nil
		},
	}
}

// EnumField is a field holding an optional enum of size bytes, resolved
// using t.  Unknown values decode to an Enum with an empty Name.
func EnumField[T any](name string, code uint16, size int, t *EnumTable, get func(*T) **Enum) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			if err := checkLen(name, a.Data, size); err != nil {
				return err
			}

			e := DecodeEnum(uint32(getUint(order(a), a.Data, size)), t)
			*get(v) = &e
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}

			x, err := EncodeEnum(*p, t)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			if err := checkWidth(name, uint64(x), size); err != nil {
				return nil, err
			}

			return []Attribute{{Type: code, Data: putUint(encodeOrder(flags), uint64(x), size)}}, nil
		},
	}
}

// StructField is a field holding an optional fixed-layout structure S,
// such as a cache info block, read and written with c.
func StructField[T, S any](name string, code uint16, c HeaderCodec[S], get func(*T) **S) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			s, err := c.Parse(a.Data)
			if err != nil {
				return err
			}

			*get(v) = &s
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}

			b, err := c.Format(p, nil)
			if err != nil {
				return nil, err
			}

			return []Attribute{{Type: code, Data: b}}, nil
		},
	}
}

// NestedField is a field holding an optional nested object N, whose
// attributes are decoded with s.
func NestedField[T, N any](name string, code uint16, s *Schema[N], get func(*T) **N) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			n, err := DecodeObject(a.Data, s)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			*get(v) = &n
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			p := *get(v)
			if p == nil {
				return nil, nil
			}

			b, err := EncodeObject(p, s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}

			return []Attribute{{Type: code, Data: b}}, nil
		},
	}
}

// ListField is a field holding a repeated attribute: each occurrence of
// code is decoded with dec and appended, and each element is encoded with
// enc as its own attribute.
func ListField[T, E any](name string, code uint16, dec func([]byte) (E, error), enc func(E) ([]byte, error), get func(*T) *[]E) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			e, err := dec(a.Data)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			l := get(v)
			*l = append(*l, e)
			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			l := *get(v)
			if len(l) == 0 {
				return nil, nil
			}

			attrs := make([]Attribute, 0, len(l))
			for _, e := range l {
				b, err := enc(e)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}

				attrs = append(attrs, Attribute{Type: code, Data: b})
			}

			return attrs, nil
		},
	}
}

// NestedListField is a field holding an array of nested objects inside a
// single nested attribute.  Each element is its own nested attribute,
// numbered from 1 in order, and decoded with s.  Elements carry the Nested
// bit when the field is marked with it.
func NestedListField[T, N any](name string, code uint16, s *Schema[N], get func(*T) *[]N) Field[T] {
	return Field[T]{
		Name: name,
		Code: code,
		decode: func(v *T, a Attribute) error {
			elems, err := UnmarshalAttributes(a.Data)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}

			l := get(v)
			if *l == nil {
				*l = make([]N, 0, len(elems))
			}
			for _, e := range elems {
				n, err := DecodeObject(e.Data, s)
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", name, e.Code(), err)
				}

				*l = append(*l, n)
			}

			return nil
		},
		encode: func(v *T, flags uint16) ([]Attribute, error) {
			l := *get(v)
			if l == nil {
				return nil, nil
			}

			elems := make([]Attribute, 0, len(l))
			for i := range l {
				b, err := EncodeObject(&l[i], s)
				if err != nil {
					return nil, fmt.Errorf("%s[%d]: %w", name, i+1, err)
				}

				elems = append(elems, Attribute{Type: uint16(i+1) | flags&Nested, Data: b})
			}

			b, err := MarshalAttributes(elems)
			if err != nil {
				return nil, err
			}

			return []Attribute{{Type: code, Data: b}}, nil
		},
	}
}
