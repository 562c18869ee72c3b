package route

import "github.com/mdlayher/rtnl"

// Message types of the rtnetlink family, from <linux/rtnetlink.h>.
const (
	TypeNewLink     rtnl.HeaderType = 16
	TypeDelLink     rtnl.HeaderType = 17
	TypeGetLink     rtnl.HeaderType = 18
	TypeNewAddress  rtnl.HeaderType = 20
	TypeDelAddress  rtnl.HeaderType = 21
	TypeGetAddress  rtnl.HeaderType = 22
	TypeNewRoute    rtnl.HeaderType = 24
	TypeDelRoute    rtnl.HeaderType = 25
	TypeGetRoute    rtnl.HeaderType = 26
	TypeNewNeighbor rtnl.HeaderType = 28
	TypeDelNeighbor rtnl.HeaderType = 29
	TypeGetNeighbor rtnl.HeaderType = 30
)

// Multicast groups which deliver rtnetlink notifications, for use with
// Client.Subscribe.
const (
	GroupLink        uint32 = 1
	GroupNeighbor    uint32 = 3
	GroupIPv4Address uint32 = 5
	GroupIPv4Route   uint32 = 7
	GroupIPv6Address uint32 = 9
	GroupIPv6Route   uint32 = 11
)

// Address families used in message headers.
const (
	FamilyUnspec uint8 = 0
	FamilyIPv4   uint8 = 2
	FamilyIPv6   uint8 = 10
)

// LinkFlags names the IFF_* interface flags of a link header.
var LinkFlags = rtnl.NewFlagTable(map[string]uint32{
	"up":          0x1,
	"broadcast":   0x2,
	"debug":       0x4,
	"loopback":    0x8,
	"pointopoint": 0x10,
	"notrailers":  0x20,
	"running":     0x40,
	"noarp":       0x80,
	"promisc":     0x100,
	"allmulti":    0x200,
	"master":      0x400,
	"slave":       0x800,
	"multicast":   0x1000,
	"portsel":     0x2000,
	"automedia":   0x4000,
	"dynamic":     0x8000,
	"lower_up":    0x10000,
	"dormant":     0x20000,
	"echo":        0x40000,
})

// OperStates names the IF_OPER_* operational states of a link.
var OperStates = rtnl.NewEnumTable(map[uint32]string{
	0: "unknown",
	1: "notpresent",
	2: "down",
	3: "lowerlayerdown",
	4: "testing",
	5: "dormant",
	6: "up",
})

// AddressFlags names the IFA_F_* address flags.  The low eight bits also
// appear in the address header.
var AddressFlags = rtnl.NewFlagTable(map[string]uint32{
	"secondary":      0x1,
	"nodad":          0x2,
	"optimistic":     0x4,
	"dadfailed":      0x8,
	"homeaddress":    0x10,
	"deprecated":     0x20,
	"tentative":      0x40,
	"permanent":      0x80,
	"managetempaddr": 0x100,
	"noprefixroute":  0x200,
	"mcautojoin":     0x400,
	"stableprivacy":  0x800,
})

// Scopes names the RT_SCOPE_* values shared by addresses and routes.
var Scopes = rtnl.NewEnumTable(map[uint32]string{
	0:   "universe",
	200: "site",
	253: "link",
	254: "host",
	255: "nowhere",
})

// RouteProtocols names the RTPROT_* values identifying who installed a
// route.
var RouteProtocols = rtnl.NewEnumTable(map[uint32]string{
	0:   "unspec",
	1:   "redirect",
	2:   "kernel",
	3:   "boot",
	4:   "static",
	9:   "ra",
	11:  "zebra",
	12:  "bird",
	16:  "dhcp",
	42:  "babel",
	186: "bgp",
	187: "isis",
	188: "ospf",
	189: "rip",
	192: "eigrp",
})

// RouteTypes names the RTN_* route types, also used for neighbor entries.
var RouteTypes = rtnl.NewEnumTable(map[uint32]string{
	0:  "unspec",
	1:  "unicast",
	2:  "local",
	3:  "broadcast",
	4:  "anycast",
	5:  "multicast",
	6:  "blackhole",
	7:  "unreachable",
	8:  "prohibit",
	9:  "throw",
	10: "nat",
	11: "xresolve",
})

// RouteFlags names the RTNH_F_* and RTM_F_* flags of a route header.
var RouteFlags = rtnl.NewFlagTable(map[string]uint32{
	"dead":         0x1,
	"pervasive":    0x2,
	"onlink":       0x4,
	"offload":      0x8,
	"linkdown":     0x10,
	"unresolved":   0x20,
	"notify":       0x100,
	"cloned":       0x200,
	"equalize":     0x400,
	"prefix":       0x800,
	"lookup_table": 0x1000,
	"fib_match":    0x2000,
	"rt_offload":   0x4000,
	"trap":         0x8000,
})

// NeighborStates names the NUD_* neighbor cache states.
var NeighborStates = rtnl.NewFlagTable(map[string]uint32{
	"incomplete": 0x1,
	"reachable":  0x2,
	"stale":      0x4,
	"delay":      0x8,
	"probe":      0x10,
	"failed":     0x20,
	"noarp":      0x40,
	"permanent":  0x80,
})

// NeighborFlags names the NTF_* neighbor flags.
var NeighborFlags = rtnl.NewFlagTable(map[string]uint32{
	"use":          0x1,
	"self":         0x2,
	"master":       0x4,
	"proxy":        0x8,
	"extern_learn": 0x10,
	"offloaded":    0x20,
	"sticky":       0x40,
	"router":       0x80,
})
