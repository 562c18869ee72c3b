package nlenc

import "bytes"

// Bytes returns a null-terminated byte slice with the contents of s.
func Bytes(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// String returns a string with the contents of b up to the first null
// byte, or the whole of b if no null byte is present.
func String(b []byte) string {
	if i := bytes.IndexByte(b, 0x00); i != -1 {
		b = b[:i]
	}

	return string(b)
}
