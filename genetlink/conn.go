// Package genetlink implements generic netlink interactions and data types
// on top of an rtnl.Conn.
package genetlink

import (
	"context"

	"github.com/mdlayher/rtnl"
)

// Protocol is the netlink protocol constant used to specify generic netlink.
const Protocol = 0x10

// Controller is the message type of the generic netlink controller
// (GENL_ID_CTRL), which resolves family names to IDs.
const Controller rtnl.HeaderType = 0x10

// A Conn is a generic netlink connection.  A Conn can be used to send and
// receive generic netlink messages to and from netlink.
type Conn struct {
	c *rtnl.Conn
}

// Dial dials a generic netlink connection.  Config specifies optional
// configuration for the underlying rtnl.Conn.  If config is nil, a default
// configuration will be used.
func Dial(config *rtnl.Config) (*Conn, error) {
	c, err := rtnl.Dial(Protocol, config)
	if err != nil {
		return nil, err
	}

	return NewConn(c), nil
}

// NewConn creates a Conn that wraps an existing *rtnl.Conn for generic
// netlink communications.
//
// NewConn is primarily useful for tests. Most applications should use
// Dial instead.
func NewConn(c *rtnl.Conn) *Conn {
	return &Conn{c: c}
}

// Close closes the connection.
func (c *Conn) Close() error { return c.c.Close() }

// JoinGroup joins a multicast group by ID, as found in Family.Groups.
func (c *Conn) JoinGroup(group uint32) error { return c.c.JoinGroup(group) }

// LeaveGroup leaves a multicast group by ID.
func (c *Conn) LeaveGroup(group uint32) error { return c.c.LeaveGroup(group) }

// Notifications returns the stream of messages which were not replies to
// a request, such as multicast group events.
func (c *Conn) Notifications() <-chan rtnl.Message { return c.c.Notifications() }

// Send sends a single Message to netlink without waiting for a reply,
// wrapping it in an rtnl.Message using the specified generic netlink family
// and flags.  On success, Send returns a copy of the rtnl.Message with all
// parameters populated, for later validation.
func (c *Conn) Send(m Message, family uint16, flags rtnl.HeaderFlags) (rtnl.Message, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return rtnl.Message{}, err
	}

	return c.c.Send(rtnl.Message{
		Header: rtnl.Header{
			Type:  rtnl.HeaderType(family),
			Flags: flags,
		},
		Data: b,
	})
}

// Execute sends a single Message to netlink using the specified family and
// flags, and waits for its complete reply.  An acknowledgement requested
// with rtnl.HeaderFlagsAcknowledge is not returned as a Message.
func (c *Conn) Execute(ctx context.Context, m Message, family uint16, flags rtnl.HeaderFlags) ([]Message, error) {
	b, err := m.MarshalBinary()
	if err != nil {
		return nil, err
	}

	msgs, err := c.executeRaw(ctx, b, rtnl.HeaderType(family), flags)
	if err != nil {
		return nil, err
	}

	gmsgs := make([]Message, 0, len(msgs))
	for _, nm := range msgs {
		var gm Message
		if err := (&gm).UnmarshalBinary(nm.Data); err != nil {
			return nil, err
		}

		gmsgs = append(gmsgs, gm)
	}

	return gmsgs, nil
}

// executeRaw sends data as a request of type t and returns the replies,
// minus any acknowledgement.
func (c *Conn) executeRaw(ctx context.Context, data []byte, t rtnl.HeaderType, flags rtnl.HeaderFlags) ([]rtnl.Message, error) {
	msgs, err := c.c.Execute(ctx, rtnl.Message{
		Header: rtnl.Header{
			Type:  t,
			Flags: flags,
		},
		Data: data,
	})
	if err != nil {
		return nil, err
	}

	out := msgs[:0]
	for _, m := range msgs {
		if m.Header.Type == rtnl.HeaderTypeError {
			continue
		}

		out = append(out, m)
	}

	return out, nil
}
