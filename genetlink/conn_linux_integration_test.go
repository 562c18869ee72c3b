//go:build integration && linux

package genetlink_test

import (
	"context"
	"testing"
	"time"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
)

func TestIntegrationConnGetFamily(t *testing.T) {
	t.Parallel()

	c, err := genetlink.Dial(&rtnl.Config{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to dial generic netlink: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	f, err := c.GetFamily(ctx, "nlctrl")
	if err != nil {
		t.Fatalf("failed to get nlctrl family: %v", err)
	}

	if f.ID != uint16(genetlink.Controller) {
		t.Fatalf("unexpected nlctrl ID: %d", f.ID)
	}
	if len(f.Operations) == 0 {
		t.Fatal("nlctrl reported no operations")
	}

	families, err := c.ListFamilies(ctx)
	if err != nil {
		t.Fatalf("failed to list families: %v", err)
	}

	var found bool
	for _, lf := range families {
		if lf.Name == "nlctrl" {
			found = true
		}
	}
	if !found {
		t.Fatal("nlctrl not found in family list")
	}
}

func TestIntegrationConnGetFamilyNotExist(t *testing.T) {
	t.Parallel()

	c, err := genetlink.Dial(nil)
	if err != nil {
		t.Fatalf("failed to dial generic netlink: %v", err)
	}
	defer c.Close()

	_, err = c.GetFamily(context.Background(), "NOTEXISTS")
	if !rtnl.IsNotExist(err) {
		t.Fatalf("expected not exist error, but got: %v", err)
	}
}
