package genetlink_test

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
	"github.com/mdlayher/rtnl/genetlink/genltest"
	"github.com/mdlayher/rtnl/nltest"
)

const testFamily = 0x1c

func TestConnExecute(t *testing.T) {
	req := genetlink.Message{
		Header: genetlink.Header{
			Command: 1,
			Version: 1,
		},
	}

	want := []genetlink.Message{{
		Header: genetlink.Header{
			Command: 1,
			Version: 1,
		},
		Data: []byte{0x01, 0x02, 0x03, 0x04},
	}}

	c := genltest.Dial(func(greq genetlink.Message, nreq rtnl.Message) ([]genetlink.Message, error) {
		if diff := cmp.Diff(rtnl.HeaderType(testFamily), nreq.Header.Type); diff != "" {
			t.Fatalf("unexpected request type (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(req.Header, greq.Header); diff != "" {
			t.Fatalf("unexpected request header (-want +got):\n%s", diff)
		}

		return want, nil
	})
	defer c.Close()

	msgs, err := c.Execute(context.Background(), req, testFamily, 0)
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}

	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Fatalf("unexpected replies (-want +got):\n%s", diff)
	}
}

func TestConnExecuteAcknowledge(t *testing.T) {
	c := genltest.Dial(func(greq genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		// Turn the request back around to the client, followed by an ack.
		return []genetlink.Message{greq}, nil
	})
	defer c.Close()

	req := genetlink.Message{
		Header: genetlink.Header{Command: 2},
		Data:   []byte{0xff, 0xff, 0xff, 0xff},
	}

	msgs, err := c.Execute(context.Background(), req, testFamily, rtnl.HeaderFlagsAcknowledge)
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}

	if diff := cmp.Diff([]genetlink.Message{req}, msgs); diff != "" {
		t.Fatalf("unexpected replies (-want +got):\n%s", diff)
	}
}

func TestConnExecuteDump(t *testing.T) {
	c := genltest.Dial(func(_ genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		return []genetlink.Message{
			{Header: genetlink.Header{Command: 1}, Data: []byte{0x01}},
			{Header: genetlink.Header{Command: 1}, Data: []byte{0x02}},
		}, nil
	})
	defer c.Close()

	msgs, err := c.Execute(context.Background(), genetlink.Message{}, testFamily, rtnl.HeaderFlagsDump)
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}

	if diff := cmp.Diff(2, len(msgs)); diff != "" {
		t.Fatalf("unexpected number of replies (-want +got):\n%s", diff)
	}
}

func TestConnExecuteError(t *testing.T) {
	c := genltest.Dial(func(_ genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		return nil, genltest.Error(int(syscall.EPERM))
	})
	defer c.Close()

	_, err := c.Execute(context.Background(), genetlink.Message{}, testFamily, 0)

	var kerr *rtnl.KernelError
	if !errors.As(err, &kerr) {
		t.Fatalf("expected kernel error, but got: %v", err)
	}
	if diff := cmp.Diff(syscall.EPERM, kerr.Errno); diff != "" {
		t.Fatalf("unexpected errno (-want +got):\n%s", diff)
	}
}

func TestConnSend(t *testing.T) {
	req := genetlink.Message{
		Header: genetlink.Header{
			Command: 1,
			Version: 1,
		},
	}

	nc, s := nltest.DialConfig(nil, nil)
	c := genetlink.NewConn(nc)
	defer c.Close()

	nlreq, err := c.Send(req, testFamily, 0)
	if err != nil {
		t.Fatalf("failed to send: %v", err)
	}

	reqb, err := req.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	want := rtnl.Message{
		Header: rtnl.Header{
			Length:   20,
			Type:     testFamily,
			Flags:    rtnl.HeaderFlagsRequest,
			Sequence: nlreq.Header.Sequence,
			PID:      nltest.PID,
		},
		Data: reqb,
	}

	if diff := cmp.Diff(want, nlreq); diff != "" {
		t.Fatalf("unexpected sent message (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]rtnl.Message{want}, s.Sent()); diff != "" {
		t.Fatalf("unexpected socket messages (-want +got):\n%s", diff)
	}
}
