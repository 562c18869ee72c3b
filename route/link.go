package route

import (
	"net"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/nlenc"
)

// A Link is a network interface: the payload of TypeNewLink and related
// messages.
type Link = rtnl.Object[LinkHeader, LinkAttributes]

// A LinkHeader is struct ifinfomsg.
type LinkHeader struct {
	Family uint8
	// Type is the ARPHRD_* hardware type.
	Type   uint16
	Index  int32
	Flags  rtnl.Bitmask
	Change uint32
}

// LinkAttributes are the IFLA_* attributes of a link.
type LinkAttributes struct {
	Address          net.HardwareAddr
	Broadcast        net.HardwareAddr
	Name             *string
	MTU              *uint32
	Link             *uint32
	Qdisc            *string
	Master           *uint32
	TxQueueLen       *uint32
	OperationalState *rtnl.Enum
	LinkMode         *uint8
	Info             *LinkInfo
	Properties       *LinkProperties

	// Unknown holds attributes without a field, in arrival order.
	Unknown []rtnl.Attribute
}

// LinkInfo is the nested IFLA_LINKINFO attribute describing a virtual
// link driver.
type LinkInfo struct {
	Kind      *string
	Data      []byte
	SlaveKind *string
	SlaveData []byte
	Unknown   []rtnl.Attribute
}

// LinkProperties is the nested IFLA_PROP_LIST attribute.
type LinkProperties struct {
	AltNames []string
	Unknown  []rtnl.Attribute
}

const (
	iflaAddress   = 1
	iflaBroadcast = 2
	iflaIfname    = 3
	iflaMTU       = 4
	iflaLink      = 5
	iflaQdisc     = 6
	iflaMaster    = 10
	iflaTxqlen    = 13
	iflaOperstate = 16
	iflaLinkmode  = 17
	iflaLinkinfo  = 18
	iflaPropList  = 52
	iflaAltIfname = 53

	iflaInfoKind      = 1
	iflaInfoData      = 2
	iflaInfoSlaveKind = 4
	iflaInfoSlaveData = 5
)

// linkHeaderLen is sizeof(struct ifinfomsg).
const linkHeaderLen = 16

var linkHeader = rtnl.HeaderCodec[LinkHeader]{
	Name: "ifinfomsg",
	Len:  linkHeaderLen,
	Read: func(d *rtnl.FixedDecoder) LinkHeader {
		return LinkHeader{
			Family: d.Uint8(0),
			Type:   d.Uint16(2),
			Index:  d.Int32(4),
			Flags:  d.Flags(8, 4, LinkFlags),
			Change: d.Uint32(12),
		}
	},
	Write: func(e *rtnl.FixedEncoder, h *LinkHeader) {
		e.PutUint8(0, h.Family)
		e.PutUint16(2, h.Type)
		e.PutInt32(4, h.Index)
		e.PutFlags(8, 4, h.Flags, LinkFlags)
		e.PutUint32(12, h.Change)
	},
}

var linkInfoSchema = rtnl.NewSchema("linkinfo",
	rtnl.StringField("kind", iflaInfoKind, func(i *LinkInfo) **string { return &i.Kind }),
	rtnl.BytesField("data", iflaInfoData, func(i *LinkInfo) *[]byte { return &i.Data }),
	rtnl.StringField("slave_kind", iflaInfoSlaveKind, func(i *LinkInfo) **string { return &i.SlaveKind }),
	rtnl.BytesField("slave_data", iflaInfoSlaveData, func(i *LinkInfo) *[]byte { return &i.SlaveData }),
).Unknown(func(i *LinkInfo) *[]rtnl.Attribute { return &i.Unknown })

var linkPropertiesSchema = rtnl.NewSchema("prop_list",
	rtnl.ListField("alt_ifname", iflaAltIfname, decodeString, encodeString,
		func(p *LinkProperties) *[]string { return &p.AltNames }),
).Unknown(func(p *LinkProperties) *[]rtnl.Attribute { return &p.Unknown })

// LinkKind decodes and encodes link messages.
var LinkKind = rtnl.Kind[LinkHeader, LinkAttributes]{
	Header: linkHeader,
	Attributes: rtnl.NewSchema("link",
		rtnl.BytesField("address", iflaAddress, func(a *LinkAttributes) *net.HardwareAddr { return &a.Address }),
		rtnl.BytesField("broadcast", iflaBroadcast, func(a *LinkAttributes) *net.HardwareAddr { return &a.Broadcast }),
		rtnl.StringField("ifname", iflaIfname, func(a *LinkAttributes) **string { return &a.Name }),
		rtnl.Uint32Field("mtu", iflaMTU, func(a *LinkAttributes) **uint32 { return &a.MTU }),
		rtnl.Uint32Field("link", iflaLink, func(a *LinkAttributes) **uint32 { return &a.Link }),
		rtnl.StringField("qdisc", iflaQdisc, func(a *LinkAttributes) **string { return &a.Qdisc }),
		rtnl.Uint32Field("master", iflaMaster, func(a *LinkAttributes) **uint32 { return &a.Master }),
		rtnl.Uint32Field("txqlen", iflaTxqlen, func(a *LinkAttributes) **uint32 { return &a.TxQueueLen }),
		rtnl.EnumField("operstate", iflaOperstate, 1, OperStates, func(a *LinkAttributes) **rtnl.Enum { return &a.OperationalState }),
		rtnl.Uint8Field("linkmode", iflaLinkmode, func(a *LinkAttributes) **uint8 { return &a.LinkMode }),
		rtnl.NestedField("linkinfo", iflaLinkinfo, linkInfoSchema, func(a *LinkAttributes) **LinkInfo { return &a.Info }),
		rtnl.NestedField("prop_list", iflaPropList, linkPropertiesSchema, func(a *LinkAttributes) **LinkProperties { return &a.Properties }).
			WithFlags(rtnl.Nested),
	).Unknown(func(a *LinkAttributes) *[]rtnl.Attribute { return &a.Unknown }),
}

func decodeString(b []byte) (string, error) { return nlenc.String(b), nil }

func encodeString(s string) ([]byte, error) { return nlenc.Bytes(s), nil }
