// Package nltest provides utilities for netlink testing.
package nltest

import (
	"fmt"
	"net"
	"sync"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/nlenc"
)

// PID is the port ID used by connections created with Dial.
const PID = 1

// Multipart marks each of msgs as part of a multi-part reply and appends
// the HeaderTypeDone message which terminates it.
func Multipart(msgs []rtnl.Message) ([]rtnl.Message, error) {
	out := make([]rtnl.Message, 0, len(msgs)+1)
	for _, m := range msgs {
		m.Header.Flags |= rtnl.HeaderFlagsMulti
		out = append(out, m)
	}

	var seq, pid uint32
	if len(msgs) > 0 {
		seq, pid = msgs[0].Header.Sequence, msgs[0].Header.PID
	}

	return append(out, rtnl.Message{
		Header: rtnl.Header{
			Type:     rtnl.HeaderTypeDone,
			Flags:    rtnl.HeaderFlagsMulti,
			Sequence: seq,
			PID:      pid,
		},
		Data: nlenc.Int32Bytes(0),
	}), nil
}

// Error returns a netlink error to the caller with the specified error
// number, in the body of the specified request message.
func Error(number int, req rtnl.Message) ([]rtnl.Message, error) {
	req.Header.Length += 4
	req.Header.Type = rtnl.HeaderTypeError

	errno := -1 * int32(number)
	req.Data = append(nlenc.Int32Bytes(errno), req.Data...)

	return []rtnl.Message{req}, nil
}

// Acknowledge returns a successful acknowledgement of req.
func Acknowledge(req rtnl.Message) ([]rtnl.Message, error) {
	return Error(0, req)
}

// A Func is a function that can be used to test rtnl.Conn interactions.
// The function can choose to return zero or more netlink messages, or an
// error if needed.
//
// For a netlink request/response interaction, a request req is populated by
// rtnl.Conn and passed to the function.  Replies with a zero Sequence or PID
// inherit those of req.  An error returned by the function is returned from
// the Conn's send.
type Func func(req rtnl.Message) ([]rtnl.Message, error)

// Dial sets up a rtnl.Conn for testing using the specified Func. All requests
// sent from the connection will be passed to the Func.  The connection should be
// closed as usual when it is no longer needed.
func Dial(fn Func) *rtnl.Conn {
	c, _ := DialConfig(fn, nil)
	return c
}

// DialConfig is like Dial, but also accepts a Config and returns the
// underlying Socket so tests can inject datagrams.
func DialConfig(fn Func, config *rtnl.Config) (*rtnl.Conn, *Socket) {
	s := NewSocket(fn)
	return rtnl.NewConn(s, PID, config), s
}

var _ rtnl.Socket = &Socket{}

// A Socket is an in-memory rtnl.Socket.  Replies produced by its Func, and
// datagrams passed to Inject or Notify, are queued for Receive.
type Socket struct {
	fn Func

	in        chan datagram
	done      chan struct{}
	closeOnce sync.Once

	mu     sync.Mutex
	sent   []rtnl.Message
	groups map[uint32]bool
}

type datagram struct {
	b    []byte
	from rtnl.Sender
}

// NewSocket creates a Socket which passes requests to fn.  fn may be nil,
// in which case requests receive no reply.
func NewSocket(fn Func) *Socket {
	return &Socket{
		fn:     fn,
		in:     make(chan datagram, 256),
		done:   make(chan struct{}),
		groups: make(map[uint32]bool),
	}
}

// Send implements rtnl.Socket.
func (s *Socket) Send(b []byte) error {
	var req rtnl.Message
	if err := req.UnmarshalBinary(b); err != nil {
		return err
	}

	// Keep a private copy; b may be reused by the caller.
	req.Data = append([]byte(nil), req.Data...)

	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()

	if s.fn == nil {
		return nil
	}

	msgs, err := s.fn(req)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	for i := range msgs {
		if msgs[i].Header.Sequence == 0 {
			msgs[i].Header.Sequence = req.Header.Sequence
		}
		if msgs[i].Header.PID == 0 {
			msgs[i].Header.PID = req.Header.PID
		}
	}

	rb, err := Marshal(msgs...)
	if err != nil {
		return err
	}

	return s.Inject(rb, rtnl.Sender{})
}

// Receive implements rtnl.Socket.
func (s *Socket) Receive() ([]byte, rtnl.Sender, error) {
	select {
	case d := <-s.in:
		return d.b, d.from, nil
	case <-s.done:
		return nil, rtnl.Sender{}, net.ErrClosed
	}
}

// Close implements rtnl.Socket.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Inject queues a raw datagram for Receive, as if sent by from.
func (s *Socket) Inject(b []byte, from rtnl.Sender) error {
	select {
	case s.in <- datagram{b: b, from: from}:
		return nil
	case <-s.done:
		return net.ErrClosed
	}
}

// Notify queues msgs as a single datagram delivered on multicast groups.
func (s *Socket) Notify(groups uint32, msgs ...rtnl.Message) error {
	b, err := Marshal(msgs...)
	if err != nil {
		return err
	}

	return s.Inject(b, rtnl.Sender{Groups: groups})
}

// Sent returns every request received by Send, in order.
func (s *Socket) Sent() []rtnl.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rtnl.Message(nil), s.sent...)
}

// JoinGroup records membership of group.
func (s *Socket) JoinGroup(group uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[group] = true
	return nil
}

// LeaveGroup removes membership of group.
func (s *Socket) LeaveGroup(group uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, group)
	return nil
}

// Groups reports whether group has been joined.
func (s *Socket) Groups(group uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[group]
}

// Marshal packs msgs into a single datagram, filling in any zero Length.
func Marshal(msgs ...rtnl.Message) ([]byte, error) {
	var b []byte
	for _, m := range msgs {
		if m.Header.Length == 0 {
			m.Header.Length = uint32(align(16 + len(m.Data)))
		}

		mb, err := m.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("nltest: marshal message: %w", err)
		}

		b = append(b, mb...)
	}

	return b, nil
}

func align(n int) int { return (n + 3) &^ 3 }
