package genltest

import (
	"fmt"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
)

// ctrlCommandNewFamily is CTRL_CMD_NEWFAMILY, the reply to a get family
// request.
const ctrlCommandNewFamily = 1

// ctrlCommandGetFamily is CTRL_CMD_GETFAMILY.
const ctrlCommandGetFamily = 3

// ServeFamily returns a Func which replies to get family requests for f
// on the generic netlink controller.  Any other request is passed to fn.
func ServeFamily(f genetlink.Family, fn Func) Func {
	return func(greq genetlink.Message, nreq rtnl.Message) ([]genetlink.Message, error) {
		// Only intercept "get family" commands to the generic netlink controller.
		if nreq.Header.Type != genetlink.Controller || greq.Header.Command != ctrlCommandGetFamily {
			return fn(greq, nreq)
		}

		// Ensure this request is for the family provided by f.
		req, err := genetlink.ControllerKind.Decode(nreq.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse get family request: %w", err)
		}
		if req.Attributes.Name == nil {
			return nil, fmt.Errorf("get family request has no family name")
		}
		if want, got := f.Name, *req.Attributes.Name; want != got {
			return nil, fmt.Errorf("unexpected get family request value: %q, want: %q", got, want)
		}

		b, err := genetlink.ControllerKind.Encode(&rtnl.Object[genetlink.Header, genetlink.FamilyAttributes]{
			Header: genetlink.Header{
				Command: ctrlCommandNewFamily,
				Version: 2,
			},
			Attributes: f.Attributes(),
		})
		if err != nil {
			return nil, err
		}

		var m genetlink.Message
		if err := m.UnmarshalBinary(b); err != nil {
			return nil, err
		}

		return []genetlink.Message{m}, nil
	}
}
