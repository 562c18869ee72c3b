package route

import (
	"net"

	"github.com/mdlayher/rtnl"
)

// A Neighbor is a neighbor cache (ARP or NDP) entry: the payload of
// TypeNewNeighbor and related messages.
type Neighbor = rtnl.Object[NeighborHeader, NeighborAttributes]

// A NeighborHeader is struct ndmsg.
type NeighborHeader struct {
	Family uint8
	Index  int32
	State  rtnl.Bitmask
	Flags  rtnl.Bitmask
	Type   rtnl.Enum
}

// NeighborAttributes are the NDA_* attributes of a neighbor entry.
type NeighborAttributes struct {
	Destination net.IP
	// LinkLayerAddress is fixed at six bytes; other hardware types are
	// kept in Unknown.
	LinkLayerAddress net.HardwareAddr
	CacheInfo        *NeighborCacheInfo
	Probes           *uint32
	VLAN             *uint16
	Port             *uint16
	VNI              *uint32
	Index            *uint32
	Master           *uint32

	Unknown []rtnl.Attribute
}

// NeighborCacheInfo is struct nda_cacheinfo.  Ages are in clock ticks.
type NeighborCacheInfo struct {
	Confirmed uint32
	Used      uint32
	Updated   uint32
	RefCount  uint32
}

const (
	ndaDst       = 1
	ndaLladdr    = 2
	ndaCacheinfo = 3
	ndaProbes    = 4
	ndaVlan      = 5
	ndaPort      = 6
	ndaVni       = 7
	ndaIfindex   = 8
	ndaMaster    = 9
)

var neighborHeader = rtnl.HeaderCodec[NeighborHeader]{
	Name: "ndmsg",
	Len:  12,
	Read: func(d *rtnl.FixedDecoder) NeighborHeader {
		return NeighborHeader{
			Family: d.Uint8(0),
			Index:  d.Int32(4),
			State:  d.Flags(8, 2, NeighborStates),
			Flags:  d.Flags(10, 1, NeighborFlags),
			Type:   d.Enum(11, 1, RouteTypes),
		}
	},
	Write: func(e *rtnl.FixedEncoder, h *NeighborHeader) {
		e.PutUint8(0, h.Family)
		e.PutInt32(4, h.Index)
		e.PutFlags(8, 2, h.State, NeighborStates)
		e.PutFlags(10, 1, h.Flags, NeighborFlags)
		e.PutEnum(11, 1, h.Type, RouteTypes)
	},
}

var neighborCacheInfo = rtnl.HeaderCodec[NeighborCacheInfo]{
	Name: "nda_cacheinfo",
	Len:  16,
	Read: func(d *rtnl.FixedDecoder) NeighborCacheInfo {
		return NeighborCacheInfo{
			Confirmed: d.Uint32(0),
			Used:      d.Uint32(4),
			Updated:   d.Uint32(8),
			RefCount:  d.Uint32(12),
		}
	},
	Write: func(e *rtnl.FixedEncoder, c *NeighborCacheInfo) {
		e.PutUint32(0, c.Confirmed)
		e.PutUint32(4, c.Used)
		e.PutUint32(8, c.Updated)
		e.PutUint32(12, c.RefCount)
	},
}

// NeighborKind decodes and encodes neighbor messages.
var NeighborKind = rtnl.Kind[NeighborHeader, NeighborAttributes]{
	Header: neighborHeader,
	Attributes: rtnl.NewSchema("neighbor",
		rtnl.BytesField("dst", ndaDst, func(a *NeighborAttributes) *net.IP { return &a.Destination }),
		rtnl.FixedBytesField("lladdr", ndaLladdr, 6, func(a *NeighborAttributes) *net.HardwareAddr { return &a.LinkLayerAddress }),
		rtnl.StructField("cacheinfo", ndaCacheinfo, neighborCacheInfo, func(a *NeighborAttributes) **NeighborCacheInfo { return &a.CacheInfo }),
		rtnl.Uint32Field("probes", ndaProbes, func(a *NeighborAttributes) **uint32 { return &a.Probes }),
		rtnl.Uint16Field("vlan", ndaVlan, func(a *NeighborAttributes) **uint16 { return &a.VLAN }),
		rtnl.Uint16BEField("port", ndaPort, func(a *NeighborAttributes) **uint16 { return &a.Port }),
		rtnl.Uint32Field("vni", ndaVni, func(a *NeighborAttributes) **uint32 { return &a.VNI }),
		rtnl.Uint32Field("ifindex", ndaIfindex, func(a *NeighborAttributes) **uint32 { return &a.Index }),
		rtnl.Uint32Field("master", ndaMaster, func(a *NeighborAttributes) **uint32 { return &a.Master }),
	).Unknown(func(a *NeighborAttributes) *[]rtnl.Attribute { return &a.Unknown }),
}
