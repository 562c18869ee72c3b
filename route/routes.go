package route

import (
	"net"

	"github.com/mdlayher/rtnl"
)

// A Route is a routing table entry: the payload of TypeNewRoute and
// related messages.
type Route = rtnl.Object[RouteHeader, RouteAttributes]

// A RouteHeader is struct rtmsg.
type RouteHeader struct {
	Family            uint8
	DestinationLength uint8
	SourceLength      uint8
	TOS               uint8
	// Table is the table ID when below 256; larger IDs are carried in
	// the Table attribute.
	Table    uint8
	Protocol rtnl.Enum
	Scope    rtnl.Enum
	Type     rtnl.Enum
	Flags    rtnl.Bitmask
}

// RouteAttributes are the RTA_* attributes of a route.
type RouteAttributes struct {
	Destination     net.IP
	Source          net.IP
	InputInterface  *uint32
	OutputInterface *uint32
	Gateway         net.IP
	Priority        *uint32
	PreferredSource net.IP
	Metrics         *RouteMetrics
	Table           *uint32
	Mark            *uint32
	Preference      *uint8
	Expires         *uint32

	Unknown []rtnl.Attribute
}

// RouteMetrics is the nested RTA_METRICS attribute.
type RouteMetrics struct {
	MTU      *uint32
	Window   *uint32
	RTT      *uint32
	AdvMSS   *uint32
	HopLimit *uint32
	Unknown  []rtnl.Attribute
}

const (
	rtaDst      = 1
	rtaSrc      = 2
	rtaIif      = 3
	rtaOif      = 4
	rtaGateway  = 5
	rtaPriority = 6
	rtaPrefsrc  = 7
	rtaMetrics  = 8
	rtaTable    = 15
	rtaMark     = 16
	rtaPref     = 20
	rtaExpires  = 23

	raxMTU      = 2
	raxWindow   = 3
	raxRTT      = 4
	raxAdvMSS   = 8
	raxHopLimit = 10
)

var routeHeader = rtnl.HeaderCodec[RouteHeader]{
	Name: "rtmsg",
	Len:  12,
	Read: func(d *rtnl.FixedDecoder) RouteHeader {
		return RouteHeader{
			Family:            d.Uint8(0),
			DestinationLength: d.Uint8(1),
			SourceLength:      d.Uint8(2),
			TOS:               d.Uint8(3),
			Table:             d.Uint8(4),
			Protocol:          d.Enum(5, 1, RouteProtocols),
			Scope:             d.Enum(6, 1, Scopes),
			Type:              d.Enum(7, 1, RouteTypes),
			Flags:             d.Flags(8, 4, RouteFlags),
		}
	},
	Write: func(e *rtnl.FixedEncoder, h *RouteHeader) {
		e.PutUint8(0, h.Family)
		e.PutUint8(1, h.DestinationLength)
		e.PutUint8(2, h.SourceLength)
		e.PutUint8(3, h.TOS)
		e.PutUint8(4, h.Table)
		e.PutEnum(5, 1, h.Protocol, RouteProtocols)
		e.PutEnum(6, 1, h.Scope, Scopes)
		e.PutEnum(7, 1, h.Type, RouteTypes)
		e.PutFlags(8, 4, h.Flags, RouteFlags)
	},
}

var routeMetricsSchema = rtnl.NewSchema("metrics",
	rtnl.Uint32Field("mtu", raxMTU, func(m *RouteMetrics) **uint32 { return &m.MTU }),
	rtnl.Uint32Field("window", raxWindow, func(m *RouteMetrics) **uint32 { return &m.Window }),
	rtnl.Uint32Field("rtt", raxRTT, func(m *RouteMetrics) **uint32 { return &m.RTT }),
	rtnl.Uint32Field("advmss", raxAdvMSS, func(m *RouteMetrics) **uint32 { return &m.AdvMSS }),
	rtnl.Uint32Field("hoplimit", raxHopLimit, func(m *RouteMetrics) **uint32 { return &m.HopLimit }),
).Unknown(func(m *RouteMetrics) *[]rtnl.Attribute { return &m.Unknown })

// RouteKind decodes and encodes route messages.
var RouteKind = rtnl.Kind[RouteHeader, RouteAttributes]{
	Header: routeHeader,
	Attributes: rtnl.NewSchema("route",
		rtnl.BytesField("dst", rtaDst, func(a *RouteAttributes) *net.IP { return &a.Destination }),
		rtnl.BytesField("src", rtaSrc, func(a *RouteAttributes) *net.IP { return &a.Source }),
		rtnl.Uint32Field("iif", rtaIif, func(a *RouteAttributes) **uint32 { return &a.InputInterface }),
		rtnl.Uint32Field("oif", rtaOif, func(a *RouteAttributes) **uint32 { return &a.OutputInterface }),
		rtnl.BytesField("gateway", rtaGateway, func(a *RouteAttributes) *net.IP { return &a.Gateway }),
		rtnl.Uint32Field("priority", rtaPriority, func(a *RouteAttributes) **uint32 { return &a.Priority }),
		rtnl.BytesField("prefsrc", rtaPrefsrc, func(a *RouteAttributes) *net.IP { return &a.PreferredSource }),
		rtnl.NestedField("metrics", rtaMetrics, routeMetricsSchema, func(a *RouteAttributes) **RouteMetrics { return &a.Metrics }),
		rtnl.Uint32Field("table", rtaTable, func(a *RouteAttributes) **uint32 { return &a.Table }),
		rtnl.Uint32Field("mark", rtaMark, func(a *RouteAttributes) **uint32 { return &a.Mark }),
		rtnl.Uint8Field("pref", rtaPref, func(a *RouteAttributes) **uint8 { return &a.Preference }),
		rtnl.Uint32Field("expires", rtaExpires, func(a *RouteAttributes) **uint32 { return &a.Expires }),
	).Unknown(func(a *RouteAttributes) *[]rtnl.Attribute { return &a.Unknown }),
}
