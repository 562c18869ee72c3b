//go:build !linux

package rtnl

// Dial is not supported on this platform; use NewConn with a custom
// Socket instead.
func Dial(family int, config *Config) (*Conn, error) {
	return nil, notSupported("dial")
}
