package rtnl

import (
	"golang.org/x/net/bpf"
)

// A Sender identifies the origin of a received datagram.
type Sender struct {
	// PID is the port ID of the sender; 0 for the kernel.
	PID uint32

	// Groups is the multicast group bitmask the datagram was delivered
	// on.  A non-zero value marks the datagram as a notification.
	Groups uint32
}

// A Socket is a packet-oriented netlink transport used by a Conn.  Dial
// creates a Socket backed by the operating system; package nltest provides
// an in-memory implementation for tests.
//
// Send and Close may be called concurrently with Receive.  Close must cause
// a blocked Receive to return an error.
type Socket interface {
	// Send writes one datagram.
	Send(b []byte) error

	// Receive reads one datagram, which may hold several messages.
	Receive() ([]byte, Sender, error)

	Close() error
}

// A groupJoinLeaver is a Socket that supports joining and leaving
// netlink multicast groups.
type groupJoinLeaver interface {
	Socket
	JoinGroup(group uint32) error
	LeaveGroup(group uint32) error
}

// A bpfSetter is a Socket that supports setting and removing BPF filters.
type bpfSetter interface {
	Socket
	SetBPF(filter []bpf.RawInstruction) error
	RemoveBPF() error
}

// An optionSetter is a Socket that supports setting netlink options.
type optionSetter interface {
	Socket
	SetOption(option ConnOption, enable bool) error
}

// A ConnOption is a boolean option that may be set for a Conn.
type ConnOption int

// Possible ConnOption values.  These constants are equivalent to the Linux
// setsockopt boolean options for netlink sockets.
const (
	PacketInfo ConnOption = iota
	BroadcastError
	NoENOBUFS
	ListenAllNSID
	CapAcknowledge
	ExtendedAcknowledge
	GetStrictCheck
)
