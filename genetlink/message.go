package genetlink

import (
	"errors"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/nlenc"
)

// headerLen is sizeof(struct genlmsghdr).
const headerLen = 4

var errInvalidMessage = errors.New("generic netlink message reserved field is set")

// A Header is struct genlmsghdr, the generic netlink header which follows
// the netlink header.
type Header struct {
	// Command specifies a command to issue to netlink.
	Command uint8

	// Version specifies the version of a command to use.
	Version uint8
}

// HeaderCodec reads and writes a Header.  The two reserved bytes are
// written as zero.
var HeaderCodec = rtnl.HeaderCodec[Header]{
	Name: "genlmsghdr",
	Len:  headerLen,
	Read: func(d *rtnl.FixedDecoder) Header {
		return Header{
			Command: d.Uint8(0),
			Version: d.Uint8(1),
		}
	},
	Write: func(e *rtnl.FixedEncoder, h *Header) {
		e.PutUint8(0, h.Command)
		e.PutUint8(1, h.Version)
	},
}

// A Message is a generic netlink message.  It contains a Header and an
// arbitrary byte payload, which may be decoded using information from the
// Header.
//
// Data is encoded using the native endianness of the host system.  Use
// the rtnl.AttributeDecoder and rtnl.AttributeEncoder types to decode and
// encode data.
type Message struct {
	Header Header
	Data   []byte
}

// MarshalBinary marshals a Message into a byte slice.
func (m Message) MarshalBinary() ([]byte, error) {
	b := make([]byte, headerLen, headerLen+len(m.Data))
	if _, err := HeaderCodec.Format(&m.Header, b); err != nil {
		return nil, err
	}

	return append(b, m.Data...), nil
}

// UnmarshalBinary unmarshals the contents of a byte slice into a Message.
func (m *Message) UnmarshalBinary(b []byte) error {
	if len(b) < headerLen {
		return &rtnl.ShortMessageError{Kind: HeaderCodec.Name, Want: headerLen, Got: len(b)}
	}

	// Reserved field must be zero.
	if nlenc.Uint16(b[2:4]) != 0 {
		return errInvalidMessage
	}

	h, err := HeaderCodec.Parse(b[:headerLen])
	if err != nil {
		return err
	}

	m.Header = h
	m.Data = append([]byte{}, b[headerLen:]...)

	return nil
}
