//go:build integration && linux

package rtnl_test

import (
	"context"
	"errors"
	"net"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/nlenc"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

func TestIntegrationConnExecute(t *testing.T) {
	t.Parallel()

	c := dial(t, unix.NETLINK_GENERIC, nil)

	// Ask for an acknowledgement, which carries an error code and a copy of
	// the request header.
	req := rtnl.Message{
		Header: rtnl.Header{
			Flags: rtnl.HeaderFlagsAcknowledge,
		},
	}

	msgs, err := c.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to execute request: %v", err)
	}
	if diff := cmp.Diff(1, len(msgs)); diff != "" {
		t.Fatalf("unexpected message count (-want +got):\n%s", diff)
	}

	m := msgs[0]
	if diff := cmp.Diff(rtnl.HeaderTypeError, m.Header.Type); diff != "" {
		t.Fatalf("unexpected header type (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(int32(0), nlenc.Int32(m.Data[0:4])); diff != "" {
		t.Fatalf("unexpected error code (-want +got):\n%s", diff)
	}

	var reply rtnl.Message
	if err := reply.UnmarshalBinary(m.Data[4:]); err != nil {
		t.Fatalf("failed to unmarshal reply: %v", err)
	}
	if diff := cmp.Diff(c.PID(), reply.Header.PID); diff != "" {
		t.Fatalf("unexpected copy header PID (-want +got):\n%s", diff)
	}
}

func TestIntegrationConnConcurrent(t *testing.T) {
	t.Parallel()

	c := dial(t, unix.NETLINK_GENERIC, nil)

	const (
		workers    = 16
		iterations = 1000
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			for j := 0; j < iterations; j++ {
				msgs, err := c.Execute(context.Background(), rtnl.Message{
					Header: rtnl.Header{Flags: rtnl.HeaderFlagsAcknowledge},
				})
				if err != nil {
					t.Errorf("failed to execute: %v", err)
					return
				}
				if l := len(msgs); l != 1 {
					t.Errorf("unexpected number of reply messages: %d", l)
					return
				}
			}
		}()
	}

	wg.Wait()
}

func TestIntegrationConnClosed(t *testing.T) {
	t.Parallel()

	c, err := rtnl.Dial(unix.NETLINK_GENERIC, nil)
	if err != nil {
		t.Fatalf("failed to dial netlink: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}

	_, err = c.Execute(context.Background(), rtnl.Message{})
	if diff := cmp.Diff(net.ErrClosed, err, cmpopts.EquateErrors()); diff != "" {
		t.Fatalf("unexpected error (-want +got):\n%s", diff)
	}
}

func TestIntegrationConnKernelError(t *testing.T) {
	t.Parallel()

	c := dial(t, unix.NETLINK_ROUTE, nil)
	if err := c.SetOption(rtnl.ExtendedAcknowledge, true); err != nil {
		t.Fatalf("failed to enable extended acknowledgements: %v", err)
	}

	// RTM_DELLINK for an interface index which cannot exist.
	b := make([]byte, unix.SizeofIfInfomsg)
	nlenc.PutInt32(b[4:8], 0x7ffffff0)

	_, err := c.Execute(context.Background(), rtnl.Message{
		Header: rtnl.Header{
			Type:  unix.RTM_DELLINK,
			Flags: rtnl.HeaderFlagsAcknowledge,
		},
		Data: b,
	})

	var kerr *rtnl.KernelError
	if !errors.As(err, &kerr) {
		t.Fatalf("expected *KernelError, but got: %v", err)
	}
	if !rtnl.IsNotExist(err) && !errors.Is(err, unix.ENODEV) {
		t.Fatalf("unexpected kernel error: %v", err)
	}
}

func TestIntegrationConnSetBPF(t *testing.T) {
	t.Parallel()

	c := dial(t, unix.NETLINK_GENERIC, nil)

	// Replies with any other sequence number are dropped by the kernel.
	const sequence uint32 = 0xffffffff
	prog, err := bpf.Assemble([]bpf.Instruction{
		bpf.LoadAbsolute{Off: 8, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: sequence, SkipTrue: 1},
		bpf.RetConstant{Val: 0},
		bpf.RetConstant{Val: 128},
	})
	if err != nil {
		t.Fatalf("failed to assemble BPF program: %v", err)
	}

	if err := c.SetBPF(prog); err != nil {
		t.Fatalf("failed to attach BPF program: %v", err)
	}
	defer func() {
		if err := c.RemoveBPF(); err != nil {
			t.Fatalf("failed to remove BPF filter: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = c.Execute(ctx, rtnl.Message{
		Header: rtnl.Header{Flags: rtnl.HeaderFlagsAcknowledge, Sequence: 10},
	})
	if !errors.Is(err, rtnl.ErrTimeout) {
		t.Fatalf("expected filtered reply to time out, but got: %v", err)
	}

	msgs, err := c.Execute(context.Background(), rtnl.Message{
		Header: rtnl.Header{Flags: rtnl.HeaderFlagsAcknowledge, Sequence: sequence},
	})
	if err != nil {
		t.Fatalf("failed to execute: %v", err)
	}
	if diff := cmp.Diff(sequence, msgs[0].Header.Sequence); diff != "" {
		t.Fatalf("unexpected reply sequence (-want +got):\n%s", diff)
	}
}

func TestIntegrationConnMulticast(t *testing.T) {
	c := dial(t, unix.NETLINK_ROUTE, &rtnl.Config{Groups: unix.RTMGRP_LINK})

	const ifName = "rtnltest0"
	if err := exec.Command("ip", "tuntap", "add", ifName, "mode", "tun").Run(); err != nil {
		t.Skipf("skipping, failed to create tun device: %v", err)
	}
	defer func() { _ = exec.Command("ip", "link", "del", ifName).Run() }()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case m := <-c.Notifications():
			if m.Header.Type != unix.RTM_NEWLINK {
				continue
			}

			ad, err := rtnl.NewAttributeDecoder(m.Data[unix.SizeofIfInfomsg:])
			if err != nil {
				t.Fatalf("failed to decode link attributes: %v", err)
			}
			for ad.Next() {
				if ad.Type() == unix.IFLA_IFNAME && ad.String() == ifName {
					return
				}
			}
		case <-timeout:
			t.Fatal("did not receive link notification after 5 seconds")
		}
	}
}

func dial(t *testing.T, family int, cfg *rtnl.Config) *rtnl.Conn {
	t.Helper()

	c, err := rtnl.Dial(family, cfg)
	if err != nil {
		t.Fatalf("failed to dial netlink: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c
}
