package nlenc

import (
	"encoding/binary"
	"fmt"

	"github.com/josharian/native"
)

// NativeEndian returns the native byte order of this system.
func NativeEndian() binary.ByteOrder {
	return native.Endian
}

// checkSize panics when b is not exactly n bytes long.
func checkSize(fn string, b []byte, n int) {
	if l := len(b); l != n {
		panic(fmt.Sprintf("%s: unexpected byte slice length: %d", fn, l))
	}
}

// PutUint8 encodes a uint8 into b.
// If b is not exactly 1 byte in length, PutUint8 will panic.
func PutUint8(b []byte, v uint8) {
	checkSize("PutUint8", b, 1)
	b[0] = v
}

// PutUint16 encodes a uint16 into b using the host machine's native endianness.
// If b is not exactly 2 bytes in length, PutUint16 will panic.
func PutUint16(b []byte, v uint16) {
	checkSize("PutUint16", b, 2)
	native.Endian.PutUint16(b, v)
}

// PutUint32 encodes a uint32 into b using the host machine's native endianness.
// If b is not exactly 4 bytes in length, PutUint32 will panic.
func PutUint32(b []byte, v uint32) {
	checkSize("PutUint32", b, 4)
	native.Endian.PutUint32(b, v)
}

// PutUint64 encodes a uint64 into b using the host machine's native endianness.
// If b is not exactly 8 bytes in length, PutUint64 will panic.
func PutUint64(b []byte, v uint64) {
	checkSize("PutUint64", b, 8)
	native.Endian.PutUint64(b, v)
}

// PutInt8 encodes a int8 into b.
// If b is not exactly 1 byte in length, PutInt8 will panic.
func PutInt8(b []byte, v int8) {
	checkSize("PutInt8", b, 1)
	b[0] = uint8(v)
}

// PutInt16 encodes a int16 into b using the host machine's native endianness.
// If b is not exactly 2 bytes in length, PutInt16 will panic.
func PutInt16(b []byte, v int16) {
	checkSize("PutInt16", b, 2)
	native.Endian.PutUint16(b, uint16(v))
}

// PutInt32 encodes a int32 into b using the host machine's native endianness.
// If b is not exactly 4 bytes in length, PutInt32 will panic.
func PutInt32(b []byte, v int32) {
	checkSize("PutInt32", b, 4)
	native.Endian.PutUint32(b, uint32(v))
}

// PutInt64 encodes a int64 into b using the host machine's native endianness.
// If b is not exactly 8 bytes in length, PutInt64 will panic.
func PutInt64(b []byte, v int64) {
	checkSize("PutInt64", b, 8)
	native.Endian.PutUint64(b, uint64(v))
}

// Uint8 decodes a uint8 from b.
// If b is not exactly 1 byte in length, Uint8 will panic.
func Uint8(b []byte) uint8 {
	checkSize("Uint8", b, 1)
	return b[0]
}

// Uint16 decodes a uint16 from b using the host machine's native endianness.
// If b is not exactly 2 bytes in length, Uint16 will panic.
func Uint16(b []byte) uint16 {
	checkSize("Uint16", b, 2)
	return native.Endian.Uint16(b)
}

// Uint32 decodes a uint32 from b using the host machine's native endianness.
// If b is not exactly 4 bytes in length, Uint32 will panic.
func Uint32(b []byte) uint32 {
	checkSize("Uint32", b, 4)
	return native.Endian.Uint32(b)
}

// Uint64 decodes a uint64 from b using the host machine's native endianness.
// If b is not exactly 8 bytes in length, Uint64 will panic.
func Uint64(b []byte) uint64 {
	checkSize("Uint64", b, 8)
	return native.Endian.Uint64(b)
}

// Int8 decodes an int8 from b.
// If b is not exactly 1 byte in length, Int8 will panic.
func Int8(b []byte) int8 {
	checkSize("Int8", b, 1)
	return int8(b[0])
}

// Int16 decodes an int16 from b using the host machine's native endianness.
// If b is not exactly 2 bytes in length, Int16 will panic.
func Int16(b []byte) int16 {
	checkSize("Int16", b, 2)
	return int16(native.Endian.Uint16(b))
}

// Int32 decodes an int32 from b using the host machine's native endianness.
// If b is not exactly 4 bytes in length, Int32 will panic.
func Int32(b []byte) int32 {
	checkSize("Int32", b, 4)
	return int32(native.Endian.Uint32(b))
}

// Int64 decodes an int64 from b using the host machine's native endianness.
// If b is not exactly 8 bytes in length, Int64 will panic.
func Int64(b []byte) int64 {
	checkSize("Int64", b, 8)
	return int64(native.Endian.Uint64(b))
}

// Network byte order variants, used for attributes carrying the
// NLA_F_NET_BYTEORDER bit and for port numbers in fixed headers.

// PutUint16BE encodes a uint16 into b in network byte order.
// If b is not exactly 2 bytes in length, PutUint16BE will panic.
func PutUint16BE(b []byte, v uint16) {
	checkSize("PutUint16BE", b, 2)
	binary.BigEndian.PutUint16(b, v)
}

// PutUint32BE encodes a uint32 into b in network byte order.
// If b is not exactly 4 bytes in length, PutUint32BE will panic.
func PutUint32BE(b []byte, v uint32) {
	checkSize("PutUint32BE", b, 4)
	binary.BigEndian.PutUint32(b, v)
}

// PutUint64BE encodes a uint64 into b in network byte order.
// If b is not exactly 8 bytes in length, PutUint64BE will panic.
func PutUint64BE(b []byte, v uint64) {
	checkSize("PutUint64BE", b, 8)
	binary.BigEndian.PutUint64(b, v)
}

// Uint16BE decodes a uint16 from b in network byte order.
// If b is not exactly 2 bytes in length, Uint16BE will panic.
func Uint16BE(b []byte) uint16 {
	checkSize("Uint16BE", b, 2)
	return binary.BigEndian.Uint16(b)
}

// Uint32BE decodes a uint32 from b in network byte order.
// If b is not exactly 4 bytes in length, Uint32BE will panic.
func Uint32BE(b []byte) uint32 {
	checkSize("Uint32BE", b, 4)
	return binary.BigEndian.Uint32(b)
}

// Uint64BE decodes a uint64 from b in network byte order.
// If b is not exactly 8 bytes in length, Uint64BE will panic.
func Uint64BE(b []byte) uint64 {
	checkSize("Uint64BE", b, 8)
	return binary.BigEndian.Uint64(b)
}

// Uint8Bytes encodes a uint8 into a newly-allocated byte slice. It is a
// shortcut for allocating a new byte slice and filling it using PutUint8.
func Uint8Bytes(v uint8) []byte {
	b := make([]byte, 1)
	PutUint8(b, v)
	return b
}

// Uint16Bytes encodes a uint16 into a newly-allocated byte slice using the
// host machine's native endianness.  It is a shortcut for allocating a new
// byte slice and filling it using PutUint16.
func Uint16Bytes(v uint16) []byte {
	b := make([]byte, 2)
	PutUint16(b, v)
	return b
}

// Uint32Bytes encodes a uint32 into a newly-allocated byte slice using the
// host machine's native endianness.  It is a shortcut for allocating a new
// byte slice and filling it using PutUint32.
func Uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	PutUint32(b, v)
	return b
}

// Uint64Bytes encodes a uint64 into a newly-allocated byte slice using the
// host machine's native endianness.  It is a shortcut for allocating a new
// byte slice and filling it using PutUint64.
func Uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	PutUint64(b, v)
	return b
}

// Int8Bytes encodes a int8 into a newly-allocated byte slice.
func Int8Bytes(v int8) []byte {
	b := make([]byte, 1)
	PutInt8(b, v)
	return b
}

// Int16Bytes encodes a int16 into a newly-allocated byte slice using the
// host machine's native endianness.
func Int16Bytes(v int16) []byte {
	b := make([]byte, 2)
	PutInt16(b, v)
	return b
}

// Int32Bytes encodes a int32 into a newly-allocated byte slice using the
// host machine's native endianness.  It is a shortcut for allocating a new
// byte slice and filling it using PutInt32.
func Int32Bytes(v int32) []byte {
	b := make([]byte, 4)
	PutInt32(b, v)
	return b
}

// Int64Bytes encodes a int64 into a newly-allocated byte slice using the
// host machine's native endianness.
func Int64Bytes(v int64) []byte {
	b := make([]byte, 8)
	PutInt64(b, v)
	return b
}

// Uint16BEBytes encodes a uint16 into a newly-allocated byte slice in
// network byte order.
func Uint16BEBytes(v uint16) []byte {
	b := make([]byte, 2)
	PutUint16BE(b, v)
	return b
}

// Uint32BEBytes encodes a uint32 into a newly-allocated byte slice in
// network byte order.
func Uint32BEBytes(v uint32) []byte {
	b := make([]byte, 4)
	PutUint32BE(b, v)
	return b
}
