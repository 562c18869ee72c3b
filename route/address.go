package route

import (
	"net"

	"github.com/mdlayher/rtnl"
)

// An Address is an interface address: the payload of TypeNewAddress and
// related messages.
type Address = rtnl.Object[AddressHeader, AddressAttributes]

// An AddressHeader is struct ifaddrmsg.
type AddressHeader struct {
	Family       uint8
	PrefixLength uint8
	// Flags holds the low eight IFA_F_* bits; the full set is in the
	// Flags attribute.
	Flags rtnl.Bitmask
	Scope rtnl.Enum
	Index uint32
}

// AddressAttributes are the IFA_* attributes of an address.
type AddressAttributes struct {
	Address   net.IP
	Local     net.IP
	Label     *string
	Broadcast net.IP
	CacheInfo *AddressCacheInfo
	Flags     *rtnl.Bitmask

	Unknown []rtnl.Attribute
}

// AddressCacheInfo is struct ifa_cacheinfo.  Lifetimes are in seconds and
// timestamps in hundredths of a second since boot.
type AddressCacheInfo struct {
	Preferred uint32
	Valid     uint32
	Created   uint32
	Updated   uint32
}

const (
	ifaAddress   = 1
	ifaLocal     = 2
	ifaLabel     = 3
	ifaBroadcast = 4
	ifaCacheinfo = 6
	ifaFlags     = 8
)

var addressHeader = rtnl.HeaderCodec[AddressHeader]{
	Name: "ifaddrmsg",
	Len:  8,
	Read: func(d *rtnl.FixedDecoder) AddressHeader {
		return AddressHeader{
			Family:       d.Uint8(0),
			PrefixLength: d.Uint8(1),
			Flags:        d.Flags(2, 1, AddressFlags),
			Scope:        d.Enum(3, 1, Scopes),
			Index:        d.Uint32(4),
		}
	},
	Write: func(e *rtnl.FixedEncoder, h *AddressHeader) {
		e.PutUint8(0, h.Family)
		e.PutUint8(1, h.PrefixLength)
		e.PutFlags(2, 1, h.Flags, AddressFlags)
		e.PutEnum(3, 1, h.Scope, Scopes)
		e.PutUint32(4, h.Index)
	},
}

var addressCacheInfo = rtnl.HeaderCodec[AddressCacheInfo]{
	Name: "ifa_cacheinfo",
	Len:  16,
	Read: func(d *rtnl.FixedDecoder) AddressCacheInfo {
		return AddressCacheInfo{
			Preferred: d.Uint32(0),
			Valid:     d.Uint32(4),
			Created:   d.Uint32(8),
			Updated:   d.Uint32(12),
		}
	},
	Write: func(e *rtnl.FixedEncoder, c *AddressCacheInfo) {
		e.PutUint32(0, c.Preferred)
		e.PutUint32(4, c.Valid)
		e.PutUint32(8, c.Created)
		e.PutUint32(12, c.Updated)
	},
}

// AddressKind decodes and encodes address messages.
var AddressKind = rtnl.Kind[AddressHeader, AddressAttributes]{
	Header: addressHeader,
	Attributes: rtnl.NewSchema("address",
		rtnl.BytesField("address", ifaAddress, func(a *AddressAttributes) *net.IP { return &a.Address }),
		rtnl.BytesField("local", ifaLocal, func(a *AddressAttributes) *net.IP { return &a.Local }),
		rtnl.StringField("label", ifaLabel, func(a *AddressAttributes) **string { return &a.Label }),
		rtnl.BytesField("broadcast", ifaBroadcast, func(a *AddressAttributes) *net.IP { return &a.Broadcast }),
		rtnl.StructField("cacheinfo", ifaCacheinfo, addressCacheInfo, func(a *AddressAttributes) **AddressCacheInfo { return &a.CacheInfo }),
		rtnl.FlagsField("flags", ifaFlags, 4, AddressFlags, func(a *AddressAttributes) **rtnl.Bitmask { return &a.Flags }),
	).Unknown(func(a *AddressAttributes) *[]rtnl.Attribute { return &a.Unknown }),
}
