// Package genltest provides utilities for generic netlink testing.
package genltest

import (
	"errors"
	"fmt"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
	"github.com/mdlayher/rtnl/nltest"
)

// Error returns a netlink error to the caller with the specified error
// number.
func Error(number int) error {
	return &errnoError{number: number}
}

type errnoError struct {
	number int
}

func (err *errnoError) Error() string {
	return fmt.Sprintf("genltest errno: %d", err.number)
}

// A Func is a function that can be used to test genetlink.Conn interactions.
// The function can choose to return zero or more generic netlink messages,
// or an error if needed.
//
// For a netlink request/response interaction, the requests greq and nreq are
// populated by genetlink.Conn and passed to the function.  greq is created
// from the body of nreq.
type Func func(greq genetlink.Message, nreq rtnl.Message) ([]genetlink.Message, error)

// Dial sets up a genetlink.Conn for testing using the specified Func. All requests
// sent from the connection will be passed to the Func.  The connection should be
// closed as usual when it is no longer needed.
func Dial(fn Func) *genetlink.Conn {
	return genetlink.NewConn(nltest.Dial(Adapt(fn)))
}

var _ nltest.Func = Adapt(nil)

// Adapt is an adapter function for a Func to be used as a nltest.Func.
// Adapt handles marshaling and unmarshaling of generic netlink messages.
// Replies carry the message type of the request.
func Adapt(fn Func) nltest.Func {
	return func(req rtnl.Message) ([]rtnl.Message, error) {
		var gm genetlink.Message

		// Populate message if some data has been passed in req.
		if len(req.Data) > 0 {
			if err := gm.UnmarshalBinary(req.Data); err != nil {
				return nil, err
			}
		}

		gmsgs, err := fn(gm, req)
		if err != nil {
			// An error was returned with an error number by the Func.
			// Pass this to the caller as a netlink message error.
			var nerr *errnoError
			if !errors.As(err, &nerr) {
				return nil, err
			}

			return nltest.Error(nerr.number, req)
		}

		nmsgs := make([]rtnl.Message, 0, len(gmsgs))
		for _, msg := range gmsgs {
			b, err := msg.MarshalBinary()
			if err != nil {
				return nil, err
			}

			nmsgs = append(nmsgs, rtnl.Message{
				Header: rtnl.Header{Type: req.Header.Type},
				Data:   b,
			})
		}

		if req.Header.Flags&rtnl.HeaderFlagsDump == rtnl.HeaderFlagsDump {
			return nltest.Multipart(nmsgs)
		}
		if req.Header.Flags&rtnl.HeaderFlagsAcknowledge != 0 {
			ack, err := nltest.Acknowledge(req)
			if err != nil {
				return nil, err
			}

			nmsgs = append(nmsgs, ack...)
		}

		return nmsgs, nil
	}
}
