package genetlink_test

import (
	"context"
	"syscall"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
	"github.com/mdlayher/rtnl/genetlink/genltest"
)

func TestConnGetFamily(t *testing.T) {
	want := genetlink.Family{
		ID:      testFamily,
		Version: 1,
		Name:    "nl80211",
		MaxAttr: 300,
		Groups: []genetlink.MulticastGroup{
			{Name: "config", ID: 5},
			{Name: "mlme", ID: 7},
		},
	}

	c := genltest.Dial(genltest.ServeFamily(want, func(_ genetlink.Message, nreq rtnl.Message) ([]genetlink.Message, error) {
		t.Fatalf("unexpected request to type %v", nreq.Header.Type)
		return nil, nil
	}))
	defer c.Close()

	got, err := c.GetFamily(context.Background(), "nl80211")
	if err != nil {
		t.Fatalf("failed to get family: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected family (-want +got):\n%s", diff)
	}
}

func TestConnGetFamilyNotExist(t *testing.T) {
	c := genltest.Dial(func(_ genetlink.Message, _ rtnl.Message) ([]genetlink.Message, error) {
		return nil, genltest.Error(int(syscall.ENOENT))
	})
	defer c.Close()

	_, err := c.GetFamily(context.Background(), "missing")
	if !rtnl.IsNotExist(err) {
		t.Fatalf("expected not exist error, but got: %v", err)
	}
}

func TestConnGetFamilyWrongName(t *testing.T) {
	c := genltest.Dial(genltest.ServeFamily(genetlink.Family{Name: "foo"}, nil))
	defer c.Close()

	if _, err := c.GetFamily(context.Background(), "bar"); err == nil {
		t.Fatal("expected an error, but none occurred")
	}
}

func TestConnListFamilies(t *testing.T) {
	families := []genetlink.Family{
		{ID: 0x10, Version: 2, Name: "nlctrl", Groups: []genetlink.MulticastGroup{{Name: "notify", ID: 0x10}}},
		{ID: 0x11, Version: 1, Name: "VFS_DQUOT"},
	}

	c := genltest.Dial(func(greq genetlink.Message, nreq rtnl.Message) ([]genetlink.Message, error) {
		if nreq.Header.Type != genetlink.Controller {
			t.Fatalf("unexpected request type: %v", nreq.Header.Type)
		}
		if nreq.Header.Flags&rtnl.HeaderFlagsDump != rtnl.HeaderFlagsDump {
			t.Fatalf("request is not a dump: %v", nreq.Header.Flags)
		}

		var msgs []genetlink.Message
		for _, f := range families {
			b, err := genetlink.ControllerKind.Encode(&rtnl.Object[genetlink.Header, genetlink.FamilyAttributes]{
				Header:     genetlink.Header{Command: 1, Version: 2},
				Attributes: f.Attributes(),
			})
			if err != nil {
				return nil, err
			}

			var m genetlink.Message
			if err := m.UnmarshalBinary(b); err != nil {
				return nil, err
			}
			msgs = append(msgs, m)
		}

		return msgs, nil
	})
	defer c.Close()

	got, err := c.ListFamilies(context.Background())
	if err != nil {
		t.Fatalf("failed to list families: %v", err)
	}

	if diff := cmp.Diff(families, got); diff != "" {
		t.Fatalf("unexpected families (-want +got):\n%s", diff)
	}
}
