//go:build linux

package rtnl

import (
	"context"
	"errors"
	"os"

	"github.com/mdlayher/socket"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

var _ Socket = &sysSocket{}

var errInvalidSockaddr = errors.New("expected unix.SockaddrNetlink but received different unix.Sockaddr")

// A sysSocket is the Linux implementation of Socket.
type sysSocket struct {
	s *socket.Conn
}

// Dial dials a connection to netlink, using the specified netlink family.
// Config specifies optional configuration for Conn.  If config is nil, a
// default configuration will be used.
func Dial(family int, config *Config) (*Conn, error) {
	if config == nil {
		config = &Config{}
	}

	s, pid, err := dialSocket(family, config.Groups)
	if err != nil {
		return nil, err
	}

	return NewConn(s, pid, config), nil
}

// dialSocket opens and binds a netlink socket, returning it and the port
// ID assigned by the kernel.
func dialSocket(family int, groups uint32) (*sysSocket, uint32, error) {
	c, err := socket.Socket(
		unix.AF_NETLINK,
		unix.SOCK_RAW,
		family,
		"netlink",
		nil,
	)
	if err != nil {
		return nil, 0, &OpError{Op: "dial", Err: err}
	}

	if err := c.Bind(&unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: groups,
	}); err != nil {
		_ = c.Close()
		return nil, 0, &OpError{Op: "bind", Err: err}
	}

	sa, err := c.Getsockname()
	if err != nil {
		_ = c.Close()
		return nil, 0, &OpError{Op: "getsockname", Err: err}
	}

	nsa, ok := sa.(*unix.SockaddrNetlink)
	if !ok {
		_ = c.Close()
		return nil, 0, &OpError{Op: "getsockname", Err: errInvalidSockaddr}
	}

	return &sysSocket{s: c}, nsa.Pid, nil
}

// Send implements Socket.
func (s *sysSocket) Send(b []byte) error {
	_, err := s.s.Sendmsg(context.Background(), b, nil, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}, 0)
	return err
}

// Receive implements Socket.
func (s *sysSocket) Receive() ([]byte, Sender, error) {
	ctx := context.Background()

	// Peek at the datagram to size the buffer, growing it until the whole
	// datagram fits.
	b := make([]byte, os.Getpagesize())
	for {
		n, _, _, _, err := s.s.Recvmsg(ctx, b, nil, unix.MSG_PEEK)
		if err != nil {
			return nil, Sender{}, err
		}

		if n < len(b) {
			break
		}

		b = make([]byte, len(b)*2)
	}

	n, _, _, from, err := s.s.Recvmsg(ctx, b, nil, 0)
	if err != nil {
		return nil, Sender{}, err
	}

	sa, ok := from.(*unix.SockaddrNetlink)
	if !ok {
		return nil, Sender{}, errInvalidSockaddr
	}

	return b[:n], Sender{PID: sa.Pid, Groups: sa.Groups}, nil
}

// Close implements Socket.
func (s *sysSocket) Close() error { return s.s.Close() }

// JoinGroup joins a multicast group by ID.
func (s *sysSocket) JoinGroup(group uint32) error {
	return os.NewSyscallError("setsockopt", s.s.SetsockoptInt(
		unix.SOL_NETLINK,
		unix.NETLINK_ADD_MEMBERSHIP,
		int(group),
	))
}

// LeaveGroup leaves a multicast group by ID.
func (s *sysSocket) LeaveGroup(group uint32) error {
	return os.NewSyscallError("setsockopt", s.s.SetsockoptInt(
		unix.SOL_NETLINK,
		unix.NETLINK_DROP_MEMBERSHIP,
		int(group),
	))
}

// SetBPF attaches an assembled BPF program to the socket.
func (s *sysSocket) SetBPF(filter []bpf.RawInstruction) error { return s.s.SetBPF(filter) }

// RemoveBPF removes a BPF filter from the socket.
func (s *sysSocket) RemoveBPF() error { return s.s.RemoveBPF() }

// SetOption enables or disables a netlink socket option.
func (s *sysSocket) SetOption(option ConnOption, enable bool) error {
	o, ok := linuxOption(option)
	if !ok {
		// Return the typical Linux error for an unknown ConnOption.
		return os.NewSyscallError("setsockopt", unix.ENOPROTOOPT)
	}

	var v int
	if enable {
		v = 1
	}

	return os.NewSyscallError("setsockopt", s.s.SetsockoptInt(unix.SOL_NETLINK, o, v))
}

// linuxOption converts a ConnOption to its Linux value.
func linuxOption(o ConnOption) (int, bool) {
	switch o {
	case PacketInfo:
		return unix.NETLINK_PKTINFO, true
	case BroadcastError:
		return unix.NETLINK_BROADCAST_ERROR, true
	case NoENOBUFS:
		return unix.NETLINK_NO_ENOBUFS, true
	case ListenAllNSID:
		return unix.NETLINK_LISTEN_ALL_NSID, true
	case CapAcknowledge:
		return unix.NETLINK_CAP_ACK, true
	case ExtendedAcknowledge:
		return unix.NETLINK_EXT_ACK, true
	case GetStrictCheck:
		return unix.NETLINK_GET_STRICT_CHK, true
	default:
		return 0, false
	}
}
