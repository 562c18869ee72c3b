package genltest_test

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
	"github.com/mdlayher/rtnl/genetlink/genltest"
)

func TestConnSend(t *testing.T) {
	req := genetlink.Message{
		Data: []byte{0xff, 0xff, 0xff, 0xff},
	}

	got := make(chan []byte, 1)
	c := genltest.Dial(func(creq genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		got <- creq.Data
		return nil, nil
	})
	defer c.Close()

	if _, err := c.Send(req, 1, 1); err != nil {
		t.Fatalf("failed to send request: %v", err)
	}

	if diff := cmp.Diff(req.Data, <-got); diff != "" {
		t.Fatalf("unexpected request data (-want +got):\n%s", diff)
	}
}

func TestConnExecuteOK(t *testing.T) {
	req := genetlink.Message{
		Data: []byte{0xff},
	}

	c := genltest.Dial(func(creq genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		// Turn the request back around to the client.
		return []genetlink.Message{creq}, nil
	})
	defer c.Close()

	got, err := c.Execute(context.Background(), req, 1, 0)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}

	if diff := cmp.Diff([]genetlink.Message{req}, got); diff != "" {
		t.Fatalf("unexpected response messages (-want +got):\n%s", diff)
	}
}

func TestConnExecuteError(t *testing.T) {
	c := genltest.Dial(func(_ genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		return nil, genltest.Error(int(syscall.EPERM))
	})
	defer c.Close()

	_, err := c.Execute(context.Background(), genetlink.Message{}, 1, 0)
	if !errors.Is(err, syscall.EPERM) {
		t.Fatalf("expected permission denied error, but got: %v", err)
	}
}

func TestServeFamily(t *testing.T) {
	tests := []struct {
		name string
		f    genetlink.Family
		fn   func(c *genetlink.Conn) (*genetlink.Family, error)
		ok   bool
		pass bool
	}{
		{
			name: "error, wrong attribute type",
			fn: func(c *genetlink.Conn) (*genetlink.Family, error) {
				ae := rtnl.NewAttributeEncoder()
				ae.Bytes(0xff, nil)
				b, err := ae.Encode()
				if err != nil {
					return nil, err
				}

				m := genetlink.Message{
					Header: genetlink.Header{Command: 3},
					Data:   b,
				}

				_, err = c.Execute(context.Background(), m, uint16(genetlink.Controller), 0)
				return nil, err
			},
		},
		{
			name: "error, wrong family name",
			f:    genetlink.Family{Name: "foo"},
			fn: func(c *genetlink.Conn) (*genetlink.Family, error) {
				f, err := c.GetFamily(context.Background(), "bar")
				return &f, err
			},
		},
		{
			name: "ok, family foo",
			f: genetlink.Family{
				ID:      1,
				Name:    "foo",
				Version: 1,
			},
			fn: func(c *genetlink.Conn) (*genetlink.Family, error) {
				f, err := c.GetFamily(context.Background(), "foo")
				return &f, err
			},
			ok: true,
		},
		{
			name: "pass, different family",
			fn: func(c *genetlink.Conn) (*genetlink.Family, error) {
				_, err := c.Execute(context.Background(), genetlink.Message{}, 2, 0)
				return nil, err
			},
			ok:   true,
			pass: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var passed bool
			fn := func(_ genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
				passed = true
				return []genetlink.Message{{}}, nil
			}

			c := genltest.Dial(genltest.ServeFamily(tt.f, fn))
			defer c.Close()

			f, err := tt.fn(c)
			if tt.ok && err != nil {
				t.Fatalf("failed to execute: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected an error, but none occurred")
			}
			if err != nil {
				return
			}

			if diff := cmp.Diff(tt.pass, passed); diff != "" {
				t.Fatalf("unexpected pass through (-want +got):\n%s", diff)
			}
			if tt.pass {
				return
			}

			if diff := cmp.Diff(tt.f, *f); diff != "" {
				t.Fatalf("unexpected family (-want +got):\n%s", diff)
			}
		})
	}
}
