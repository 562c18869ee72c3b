package rtnl

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/mdlayher/rtnl/nlenc"
)

// Various errors which may occur when attempting to marshal or unmarshal
// a Message to and from its binary form.
var (
	errIncorrectMessageLength = errors.New("netlink message header length incorrect")
	errUnalignedMessage       = errors.New("input data is not properly aligned for netlink message")
)

// HeaderFlags specify flags which may be present in a Header.
type HeaderFlags uint16

const (
	// General netlink communication flags.

	// HeaderFlagsRequest indicates a request to netlink.
	HeaderFlagsRequest HeaderFlags = 1

	// HeaderFlagsMulti indicates a multi-part message, terminated
	// by HeaderTypeDone on the last message.
	HeaderFlagsMulti HeaderFlags = 2

	// HeaderFlagsAcknowledge requests that netlink reply with
	// an acknowledgement using HeaderTypeError and, if needed,
	// an error code.
	HeaderFlagsAcknowledge HeaderFlags = 4

	// HeaderFlagsEcho requests that netlink echo this request
	// back to the sender.
	HeaderFlagsEcho HeaderFlags = 8

	// HeaderFlagsDumpInterrupted indicates that a dump was
	// inconsistent due to a sequence change.
	HeaderFlagsDumpInterrupted HeaderFlags = 16

	// HeaderFlagsDumpFiltered indicates that a dump was filtered
	// as requested.
	HeaderFlagsDumpFiltered HeaderFlags = 32

	// Flags used to retrieve data from netlink.

	// HeaderFlagsRoot requests that netlink return a complete table instead
	// of a single entry.
	HeaderFlagsRoot HeaderFlags = 0x100

	// HeaderFlagsMatch requests that netlink return a list of all matching
	// entries.
	HeaderFlagsMatch HeaderFlags = 0x200

	// HeaderFlagsAtomic requests that netlink send an atomic snapshot of
	// its entries.  Requires CAP_NET_ADMIN or an effective UID of 0.
	// May be obsolete.
	HeaderFlagsAtomic HeaderFlags = 0x300

	// HeaderFlagsDump requests that netlink return a complete list of
	// all entries.
	HeaderFlagsDump HeaderFlags = HeaderFlagsRoot | HeaderFlagsMatch

	// Flags used to create objects.

	// HeaderFlagsReplace indicates request replaces an existing matching object.
	HeaderFlagsReplace HeaderFlags = 0x100

	// HeaderFlagsExcl indicates request does not replace the object if it
	// already exists.
	HeaderFlagsExcl HeaderFlags = 0x200

	// HeaderFlagsCreate indicates request creates an object if it doesn't
	// already exist.
	HeaderFlagsCreate HeaderFlags = 0x400

	// HeaderFlagsAppend indicates request adds to the end of the object list.
	HeaderFlagsAppend HeaderFlags = 0x800

	// Flags for extended acknowledgements.

	// HeaderFlagsCapped indicates the request was capped in an error reply.
	HeaderFlagsCapped HeaderFlags = 0x100

	// HeaderFlagsAcknowledgeTLVs indicates extended acknowledgement TLVs
	// follow the error code.
	HeaderFlagsAcknowledgeTLVs HeaderFlags = 0x200
)

// String returns the string representation of a netlink.HeaderFlags.
// The high byte is ambiguous across request kinds and is printed in hex.
func (f HeaderFlags) String() string {
	names := []string{
		"request",
		"multi",
		"acknowledge",
		"echo",
		"dumpinterrupted",
		"dumpfiltered",
	}

	var s []string
	left := uint(f)
	for i, name := range names {
		if f&(1<<uint(i)) != 0 {
			s = append(s, name)
			left ^= 1 << uint(i)
		}
	}

	if left != 0 {
		s = append(s, fmt.Sprintf("0x%x", left))
	}
	if len(s) == 0 {
		return "0"
	}

	return strings.Join(s, "|")
}

// HeaderType specifies the type of a Header.
type HeaderType uint16

const (
	// HeaderTypeNoop indicates that no action was taken.
	HeaderTypeNoop HeaderType = 0x1

	// HeaderTypeError indicates an error code is present, which is also
	// used to indicate success when the code is 0.
	HeaderTypeError HeaderType = 0x2

	// HeaderTypeDone indicates the end of a multi-part message.
	HeaderTypeDone HeaderType = 0x3

	// HeaderTypeOverrun indicates that data was lost from this message.
	HeaderTypeOverrun HeaderType = 0x4
)

// String returns the string representation of a HeaderType.
func (t HeaderType) String() string {
	switch t {
	case HeaderTypeNoop:
		return "noop"
	case HeaderTypeError:
		return "error"
	case HeaderTypeDone:
		return "done"
	case HeaderTypeOverrun:
		return "overrun"
	default:
		return fmt.Sprintf("unknown(%d)", t)
	}
}

// NB: the memory layout of Header and Linux's syscall.NlMsgHdr must be
// exactly the same.  Cannot reorder, change data type, add, or remove fields.
// Named types of the same size (e.g. HeaderFlags is a uint16) are okay.

// A Header is a netlink header.  A Header is sent and received with each
// Message to indicate metadata regarding a Message.
type Header struct {
	// Length of a Message, including this Header.
	Length uint32

	// Contents of a Message.
	Type HeaderType

	// Flags which may be used to modify a request or response.
	Flags HeaderFlags

	// The sequence number of a Message.
	Sequence uint32

	// The port ID of the sending process.
	PID uint32
}

// A Message is a netlink message.  It contains a Header and an arbitrary
// byte payload, which may be decoded using information from the Header.
//
// Data is encoded in the native endianness of the host system.  Use package
// nlenc, or a Kind registered in a Registry, to decode it.
type Message struct {
	Header Header
	Data   []byte
}

// MarshalBinary marshals a Message into a byte slice.
func (m Message) MarshalBinary() ([]byte, error) {
	ml := nlmsgAlign(int(m.Header.Length))
	if ml < nlmsgHeaderLen || ml != int(m.Header.Length) {
		return nil, errIncorrectMessageLength
	}

	b := make([]byte, ml)

	nlenc.PutUint32(b[0:4], m.Header.Length)
	nlenc.PutUint16(b[4:6], uint16(m.Header.Type))
	nlenc.PutUint16(b[6:8], uint16(m.Header.Flags))
	nlenc.PutUint32(b[8:12], m.Header.Sequence)
	nlenc.PutUint32(b[12:16], m.Header.PID)
	copy(b[16:], m.Data)

	return b, nil
}

// UnmarshalBinary unmarshals the contents of a byte slice into a Message.
func (m *Message) UnmarshalBinary(b []byte) error {
	if len(b) < nlmsgHeaderLen {
		return &ShortMessageError{Kind: "netlink header", Want: nlmsgHeaderLen, Got: len(b)}
	}
	if len(b) != nlmsgAlign(len(b)) {
		return errUnalignedMessage
	}

	// Don't allow misleading length
	m.Header.Length = nlenc.Uint32(b[0:4])
	if int(m.Header.Length) != len(b) {
		return &ShortMessageError{Kind: "netlink message", Want: int(m.Header.Length), Got: len(b)}
	}

	m.Header.Type = HeaderType(nlenc.Uint16(b[4:6]))
	m.Header.Flags = HeaderFlags(nlenc.Uint16(b[6:8]))
	m.Header.Sequence = nlenc.Uint32(b[8:12])
	m.Header.PID = nlenc.Uint32(b[12:16])
	m.Data = b[16:]

	return nil
}

// parseMessages splits a single datagram into its framed messages.  Each
// message's Data aliases b.
//
// When framing fails part way through, the messages parsed so far are
// returned along with the error, and the sequence number of the offending
// header (0 if it could not be read).
func parseMessages(b []byte) ([]Message, uint32, error) {
	var msgs []Message
	for len(b) > 0 {
		if len(b) < nlmsgHeaderLen {
			return msgs, 0, &ShortMessageError{Kind: "netlink header", Want: nlmsgHeaderLen, Got: len(b)}
		}

		var h Header
		h.Length = nlenc.Uint32(b[0:4])
		h.Type = HeaderType(nlenc.Uint16(b[4:6]))
		h.Flags = HeaderFlags(nlenc.Uint16(b[6:8]))
		h.Sequence = nlenc.Uint32(b[8:12])
		h.PID = nlenc.Uint32(b[12:16])

		l := int(h.Length)
		switch {
		case l < nlmsgHeaderLen:
			return msgs, h.Sequence, fmt.Errorf("%w: %d", errIncorrectMessageLength, l)
		case l > len(b):
			return msgs, h.Sequence, &ShortMessageError{Kind: "netlink message", Want: l, Got: len(b)}
		}

		msgs = append(msgs, Message{
			Header: h,
			Data:   b[nlmsgHeaderLen:l:l],
		})

		// The final message may omit its trailing padding.
		b = b[min(nlmsgAlign(l), len(b)):]
	}

	return msgs, 0, nil
}

// Extended acknowledgement attribute types, from NLMSGERR_ATTR_*.
const (
	extAckMessage uint16 = 1
	extAckOffset  uint16 = 2
)

// checkMessage checks a single Message for a kernel error.  It returns a
// *KernelError when m is a HeaderTypeError or HeaderTypeDone message
// carrying a negative error code, nil when m reports success or carries no
// error at all, and any other error when m is malformed.
func checkMessage(m Message) error {
	// HeaderTypeDone messages from dumps carry an error code which may be
	// zero; older kernels omit it.
	const success = 0

	switch m.Header.Type {
	case HeaderTypeError:
	case HeaderTypeDone:
		if len(m.Data) == 0 {
			return nil
		}
	default:
		return nil
	}

	if len(m.Data) < 4 {
		return &ShortMessageError{Kind: "netlink error", Want: 4, Got: len(m.Data)}
	}

	c := nlenc.Int32(m.Data[0:4])
	if c == success {
		return nil
	}

	kerr := &KernelError{
		Errno: syscall.Errno(-c),
	}

	// Extended acknowledgement attributes follow the error code and, for
	// error messages, the echoed request.
	if m.Header.Flags&HeaderFlagsAcknowledgeTLVs == 0 {
		return kerr
	}

	off := 4
	if m.Header.Type == HeaderTypeError {
		if len(m.Data) < off+nlmsgHeaderLen {
			return kerr
		}

		if m.Header.Flags&HeaderFlagsCapped != 0 {
			off += nlmsgHeaderLen
		} else {
			off += nlmsgAlign(int(nlenc.Uint32(m.Data[off : off+4])))
		}
	}
	if off >= len(m.Data) {
		return kerr
	}

	attrs, err := UnmarshalAttributes(m.Data[off:])
	if err != nil {
		// The error code is still meaningful without its diagnostics.
		return kerr
	}

	kerr.Attributes = attrs
	for _, a := range attrs {
		switch a.Code() {
		case extAckMessage:
			kerr.Message = nlenc.String(a.Data)
		case extAckOffset:
			if len(a.Data) == 4 {
				kerr.Offset = int(nlenc.Uint32(a.Data))
			}
		}
	}

	return kerr
}

// isAck reports whether m is a successful acknowledgement.
func isAck(m Message) bool {
	return m.Header.Type == HeaderTypeError &&
		len(m.Data) >= 4 &&
		nlenc.Int32(m.Data[0:4]) == 0
}
