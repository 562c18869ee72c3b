package genetlink

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mdlayher/rtnl"
)

// Generic netlink controller commands and version, from
// <linux/genetlink.h>.
const (
	ctrlVersion = 1

	ctrlCommandGetFamily = 3
)

// Controller attributes.
const (
	attrFamilyID   = 1
	attrFamilyName = 2
	attrVersion    = 3
	attrHeaderSize = 4
	attrMaxAttr    = 5
	attrOperations = 6
	attrMulticast  = 7

	attrOpID    = 1
	attrOpFlags = 2

	attrMcastName = 1
	attrMcastID   = 2
)

// errInvalidFamilyVersion is returned when a family's version is greater
// than an 8-bit integer.
var errInvalidFamilyVersion = errors.New("invalid family version attribute")

// A Family is a generic netlink family.
type Family struct {
	ID         uint16
	Version    uint8
	Name       string
	HeaderSize uint32
	MaxAttr    uint32
	Operations []Operation
	Groups     []MulticastGroup
}

// An Operation is a command supported by a generic netlink family.
type Operation struct {
	ID    uint32
	Flags rtnl.Bitmask
}

// A MulticastGroup is a generic netlink multicast group, which can be
// joined for notifications with Conn.JoinGroup using ID.
type MulticastGroup struct {
	Name string
	ID   uint32
}

// OperationFlags names the GENL_* flags of an Operation.
var OperationFlags = rtnl.NewFlagTable(map[string]uint32{
	"admin_perm":     0x01,
	"cmd_cap_do":     0x02,
	"cmd_cap_dump":   0x04,
	"cmd_cap_haspol": 0x08,
	"uns_admin_perm": 0x10,
})

// FamilyAttributes are the CTRL_ATTR_* attributes of a controller
// message, as decoded by ControllerKind.
type FamilyAttributes struct {
	ID         *uint16
	Name       *string
	Version    *uint32
	HeaderSize *uint32
	MaxAttr    *uint32
	Operations []OperationAttributes
	Groups     []MulticastGroupAttributes

	// Unknown holds attributes without a field, such as CTRL_ATTR_POLICY,
	// in arrival order.
	Unknown []rtnl.Attribute
}

// OperationAttributes is one element of CTRL_ATTR_OPS.
type OperationAttributes struct {
	ID      *uint32
	Flags   *rtnl.Bitmask
	Unknown []rtnl.Attribute
}

// MulticastGroupAttributes is one element of CTRL_ATTR_MCAST_GROUPS.
type MulticastGroupAttributes struct {
	Name    *string
	ID      *uint32
	Unknown []rtnl.Attribute
}

var operationSchema = rtnl.NewSchema("op",
	rtnl.Uint32Field("id", attrOpID, func(o *OperationAttributes) **uint32 { return &o.ID }),
	rtnl.FlagsField("flags", attrOpFlags, 4, OperationFlags, func(o *OperationAttributes) **rtnl.Bitmask { return &o.Flags }),
).Unknown(func(o *OperationAttributes) *[]rtnl.Attribute { return &o.Unknown })

var multicastGroupSchema = rtnl.NewSchema("mcast_grp",
	rtnl.StringField("name", attrMcastName, func(g *MulticastGroupAttributes) **string { return &g.Name }),
	rtnl.Uint32Field("id", attrMcastID, func(g *MulticastGroupAttributes) **uint32 { return &g.ID }),
).Unknown(func(g *MulticastGroupAttributes) *[]rtnl.Attribute { return &g.Unknown })

// ControllerKind decodes and encodes messages of the generic netlink
// controller, nlctrl.
var ControllerKind = rtnl.Kind[Header, FamilyAttributes]{
	Header: HeaderCodec,
	Attributes: rtnl.NewSchema("ctrl",
		rtnl.Uint16Field("family_id", attrFamilyID, func(f *FamilyAttributes) **uint16 { return &f.ID }),
		rtnl.StringField("family_name", attrFamilyName, func(f *FamilyAttributes) **string { return &f.Name }),
		rtnl.Uint32Field("version", attrVersion, func(f *FamilyAttributes) **uint32 { return &f.Version }),
		rtnl.Uint32Field("hdrsize", attrHeaderSize, func(f *FamilyAttributes) **uint32 { return &f.HeaderSize }),
		rtnl.Uint32Field("maxattr", attrMaxAttr, func(f *FamilyAttributes) **uint32 { return &f.MaxAttr }),
		rtnl.NestedListField("ops", attrOperations, operationSchema, func(f *FamilyAttributes) *[]OperationAttributes { return &f.Operations }),
		rtnl.NestedListField("mcast_groups", attrMulticast, multicastGroupSchema, func(f *FamilyAttributes) *[]MulticastGroupAttributes { return &f.Groups }),
	).Unknown(func(f *FamilyAttributes) *[]rtnl.Attribute { return &f.Unknown }),
}

// GetFamily retrieves a generic netlink family with the specified name.
// If the family does not exist, the error value can be checked using
// rtnl.IsNotExist.
func (c *Conn) GetFamily(ctx context.Context, name string) (Family, error) {
	req, err := ControllerKind.Encode(&rtnl.Object[Header, FamilyAttributes]{
		Header: Header{
			Command: ctrlCommandGetFamily,
			Version: ctrlVersion,
		},
		Attributes: FamilyAttributes{Name: &name},
	})
	if err != nil {
		return Family{}, err
	}

	msgs, err := c.executeRaw(ctx, req, Controller, 0)
	if err != nil {
		return Family{}, err
	}

	families, err := buildFamilies(msgs)
	if err != nil {
		return Family{}, err
	}
	if len(families) != 1 {
		return Family{}, fmt.Errorf("genetlink: netlink returned %d families for name %q", len(families), name)
	}

	return families[0], nil
}

// ListFamilies retrieves all registered generic netlink families.
func (c *Conn) ListFamilies(ctx context.Context) ([]Family, error) {
	req, err := HeaderCodec.Format(&Header{
		Command: ctrlCommandGetFamily,
		Version: ctrlVersion,
	}, nil)
	if err != nil {
		return nil, err
	}

	msgs, err := c.executeRaw(ctx, req, Controller, rtnl.HeaderFlagsDump)
	if err != nil {
		return nil, err
	}

	return buildFamilies(msgs)
}

// buildFamilies decodes a Family from each controller reply.
func buildFamilies(msgs []rtnl.Message) ([]Family, error) {
	families := make([]Family, 0, len(msgs))
	for _, m := range msgs {
		o, err := ControllerKind.Decode(m.Data)
		if err != nil {
			return nil, err
		}

		f, err := newFamily(o.Attributes)
		if err != nil {
			return nil, err
		}

		families = append(families, f)
	}

	return families, nil
}

// newFamily flattens decoded controller attributes into a Family.
func newFamily(a FamilyAttributes) (Family, error) {
	f := Family{
		ID:         deref(a.ID),
		Name:       deref(a.Name),
		HeaderSize: deref(a.HeaderSize),
		MaxAttr:    deref(a.MaxAttr),
	}

	v := deref(a.Version)
	if v > math.MaxUint8 {
		return Family{}, errInvalidFamilyVersion
	}
	f.Version = uint8(v)

	for _, op := range a.Operations {
		var flags rtnl.Bitmask
		if op.Flags != nil {
			flags = *op.Flags
		}

		f.Operations = append(f.Operations, Operation{
			ID:    deref(op.ID),
			Flags: flags,
		})
	}

	for _, g := range a.Groups {
		f.Groups = append(f.Groups, MulticastGroup{
			Name: deref(g.Name),
			ID:   deref(g.ID),
		})
	}

	return f, nil
}

// Attributes converts f back into controller attributes, as the kernel
// would report it.
func (f Family) Attributes() FamilyAttributes {
	v := uint32(f.Version)
	a := FamilyAttributes{
		ID:         &f.ID,
		Name:       &f.Name,
		Version:    &v,
		HeaderSize: &f.HeaderSize,
		MaxAttr:    &f.MaxAttr,
	}

	for _, op := range f.Operations {
		a.Operations = append(a.Operations, OperationAttributes{
			ID:    &op.ID,
			Flags: &op.Flags,
		})
	}

	for _, g := range f.Groups {
		a.Groups = append(a.Groups, MulticastGroupAttributes{
			Name: &g.Name,
			ID:   &g.ID,
		})
	}

	return a
}

func deref[T any](p *T) T {
	var v T
	if p != nil {
		v = *p
	}

	return v
}
