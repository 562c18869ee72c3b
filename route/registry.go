package route

import "github.com/mdlayher/rtnl"

// Registry holds every kind in this package, keyed by the message types
// which carry it.  It is suitable for rtnl.Config.Registry.
var Registry = NewRegistry()

// NewRegistry creates a registry of the link, address, route and neighbor
// kinds.
func NewRegistry() *rtnl.Registry {
	r := rtnl.NewRegistry()
	rtnl.MustRegister(r, LinkKind, TypeNewLink, TypeDelLink, TypeGetLink)
	rtnl.MustRegister(r, AddressKind, TypeNewAddress, TypeDelAddress, TypeGetAddress)
	rtnl.MustRegister(r, RouteKind, TypeNewRoute, TypeDelRoute, TypeGetRoute)
	rtnl.MustRegister(r, NeighborKind, TypeNewNeighbor, TypeDelNeighbor, TypeGetNeighbor)
	return r
}
