package rtnl_test

import (
	"fmt"
	"log"

	"github.com/mdlayher/rtnl"
)

// Link attribute types from <linux/if_link.h>.
const (
	iflaIfname   = 3
	iflaMTU      = 4
	iflaLinkinfo = 18

	iflaInfoKind = 1
)

// linkOut is an example structure we will use to unpack link attributes.
type linkOut struct {
	Name string
	MTU  uint32
	Kind string
}

// exampleLinkAttributes returns the attributes of a veth link as they would
// follow the ifinfomsg header of an RTM_NEWLINK message.
func exampleLinkAttributes() []byte {
	ae := rtnl.NewAttributeEncoder()
	ae.String(iflaIfname, "veth0")
	ae.Uint32(iflaMTU, 1500)
	ae.Nested(iflaLinkinfo, func(nae *rtnl.AttributeEncoder) error {
		nae.String(iflaInfoKind, "veth")
		return nil
	})

	b, err := ae.Encode()
	if err != nil {
		log.Fatalf("failed to encode attributes: %v", err)
	}

	return b
}

// This example demonstrates using an rtnl.AttributeDecoder to decode the
// attributes of a link message.
func ExampleAttributeDecoder_decode() {
	ad, err := rtnl.NewAttributeDecoder(exampleLinkAttributes())
	if err != nil {
		log.Fatalf("failed to create attribute decoder: %v", err)
	}

	var out linkOut
	for ad.Next() {
		switch ad.Type() {
		case iflaIfname:
			out.Name = ad.String()
		case iflaMTU:
			out.MTU = ad.Uint32()
		case iflaLinkinfo:
			// Link info is nested, so decode it with its own decoder.
			ad.Nested(func(nad *rtnl.AttributeDecoder) error {
				for nad.Next() {
					if nad.Type() == iflaInfoKind {
						out.Kind = nad.String()
					}
				}
				return nil
			})
		}
	}

	// Any errors encountered during decoding, including those from nested
	// attributes, are returned here.
	if err := ad.Err(); err != nil {
		log.Fatalf("failed to decode attributes: %v", err)
	}

	fmt.Printf("%s: mtu %d, kind %s\n", out.Name, out.MTU, out.Kind)
	// Output:
	// veth0: mtu 1500, kind veth
}
