// Package route implements the rtnetlink message kinds for links,
// addresses, routes and neighbors, and a Client which uses them.
package route

import (
	"context"
	"errors"
	"sync"

	"github.com/mdlayher/rtnl"
	"github.com/rs/zerolog"
)

// familyRoute is NETLINK_ROUTE.
const familyRoute = 0

var errNoReply = errors.New("route: no reply")

// A Client is an rtnetlink client.  It is safe for concurrent use.
type Client struct {
	c   *rtnl.Conn
	log zerolog.Logger

	notifications chan Notification
	done          chan struct{}
	wg            sync.WaitGroup
	closeOnce     sync.Once
}

// A Notification is a decoded rtnetlink message which was not a reply to
// one of the Client's requests, such as a multicast event.
type Notification struct {
	Type rtnl.HeaderType
	// Object is a Link, Address, Route or Neighbor, chosen by Type.
	Object any
}

// Dial dials an rtnetlink connection.  If config.Registry is nil, Registry
// is used so every reply is validated before it is delivered.
func Dial(config *rtnl.Config) (*Client, error) {
	var cfg rtnl.Config
	if config != nil {
		cfg = *config
	}
	if cfg.Registry == nil {
		cfg.Registry = Registry
	}

	c, err := rtnl.Dial(familyRoute, &cfg)
	if err != nil {
		return nil, err
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return newClient(c, log), nil
}

// NewClient creates a Client over an existing rtnl.Conn.  The Client takes
// ownership of c.
func NewClient(c *rtnl.Conn) *Client {
	return newClient(c, zerolog.Nop())
}

func newClient(c *rtnl.Conn, log zerolog.Logger) *Client {
	cl := &Client{
		c:             c,
		log:           log,
		notifications: make(chan Notification, cap(c.Notifications())),
		done:          make(chan struct{}),
	}

	cl.wg.Add(1)
	go func() {
		defer cl.wg.Done()
		cl.forward()
	}()

	return cl
}

// Close closes the underlying connection.  Notifications is closed once
// any in-flight notification has been dropped or delivered.
func (c *Client) Close() error {
	err := c.c.Close()
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	return err
}

// Conn returns the underlying connection.
func (c *Client) Conn() *rtnl.Conn { return c.c }

// Notifications returns the stream of decoded notifications.  Messages
// which fail to decode are logged and dropped.
func (c *Client) Notifications() <-chan Notification { return c.notifications }

// Subscribe joins each of the rtnetlink multicast groups, such as
// GroupLink, so their events arrive on Notifications.
func (c *Client) Subscribe(groups ...uint32) error {
	for _, g := range groups {
		if err := c.c.JoinGroup(g); err != nil {
			return err
		}
	}

	return nil
}

// forward decodes connection notifications until the connection closes.
func (c *Client) forward() {
	defer close(c.notifications)

	for m := range c.c.Notifications() {
		v, err := Registry.Decode(m)
		if err != nil {
			c.log.Debug().
				Err(err).
				Stringer("type", m.Header.Type).
				Uint32("seq", m.Header.Sequence).
				Msg("dropping notification")
			continue
		}

		select {
		case c.notifications <- Notification{Type: m.Header.Type, Object: v}:
		case <-c.done:
			return
		}
	}
}

// Links dumps every link.
func (c *Client) Links(ctx context.Context) ([]Link, error) {
	return dump(ctx, c, LinkKind, TypeGetLink, TypeNewLink, &Link{})
}

// Link fetches the link with the specified interface index.
func (c *Client) Link(ctx context.Context, index int32) (Link, error) {
	return get(ctx, c, LinkKind, TypeGetLink, TypeNewLink, &Link{
		Header: LinkHeader{Index: index},
	})
}

// Addresses dumps the addresses of family, or of every family when family
// is FamilyUnspec.
func (c *Client) Addresses(ctx context.Context, family uint8) ([]Address, error) {
	return dump(ctx, c, AddressKind, TypeGetAddress, TypeNewAddress, &Address{
		Header: AddressHeader{Family: family},
	})
}

// AddAddress adds a. It fails if the address already exists.
func (c *Client) AddAddress(ctx context.Context, a *Address) error {
	return change(ctx, c, AddressKind, TypeNewAddress,
		rtnl.HeaderFlagsCreate|rtnl.HeaderFlagsExcl, a)
}

// DeleteAddress removes a.
func (c *Client) DeleteAddress(ctx context.Context, a *Address) error {
	return change(ctx, c, AddressKind, TypeDelAddress, 0, a)
}

// Routes dumps the routes of family, or of every family when family is
// FamilyUnspec.
func (c *Client) Routes(ctx context.Context, family uint8) ([]Route, error) {
	return dump(ctx, c, RouteKind, TypeGetRoute, TypeNewRoute, &Route{
		Header: RouteHeader{Family: family},
	})
}

// AddRoute adds r, replacing nothing.
func (c *Client) AddRoute(ctx context.Context, r *Route) error {
	return change(ctx, c, RouteKind, TypeNewRoute,
		rtnl.HeaderFlagsCreate|rtnl.HeaderFlagsExcl, r)
}

// DeleteRoute removes r.
func (c *Client) DeleteRoute(ctx context.Context, r *Route) error {
	return change(ctx, c, RouteKind, TypeDelRoute, 0, r)
}

// Neighbors dumps the neighbor entries of family, or of every family when
// family is FamilyUnspec.
func (c *Client) Neighbors(ctx context.Context, family uint8) ([]Neighbor, error) {
	return dump(ctx, c, NeighborKind, TypeGetNeighbor, TypeNewNeighbor, &Neighbor{
		Header: NeighborHeader{Family: family},
	})
}

// request encodes req as a message of type t with flags.
func request[H, A any](k rtnl.Kind[H, A], t rtnl.HeaderType, flags rtnl.HeaderFlags, req *rtnl.Object[H, A]) (rtnl.Message, error) {
	b, err := k.Encode(req)
	if err != nil {
		return rtnl.Message{}, err
	}

	return rtnl.Message{
		Header: rtnl.Header{Type: t, Flags: rtnl.HeaderFlagsRequest | flags},
		Data:   b,
	}, nil
}

// decodeReplies decodes each reply of type want, skipping any other.
func decodeReplies[H, A any](k rtnl.Kind[H, A], want rtnl.HeaderType, msgs []rtnl.Message) ([]rtnl.Object[H, A], error) {
	out := make([]rtnl.Object[H, A], 0, len(msgs))
	for _, m := range msgs {
		if m.Header.Type != want {
			continue
		}

		o, err := k.Decode(m.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	return out, nil
}

func dump[H, A any](ctx context.Context, c *Client, k rtnl.Kind[H, A], t, want rtnl.HeaderType, req *rtnl.Object[H, A]) ([]rtnl.Object[H, A], error) {
	m, err := request(k, t, rtnl.HeaderFlagsDump, req)
	if err != nil {
		return nil, err
	}

	msgs, err := c.c.Execute(ctx, m)
	if err != nil {
		return nil, err
	}

	return decodeReplies(k, want, msgs)
}

func get[H, A any](ctx context.Context, c *Client, k rtnl.Kind[H, A], t, want rtnl.HeaderType, req *rtnl.Object[H, A]) (rtnl.Object[H, A], error) {
	m, err := request(k, t, 0, req)
	if err != nil {
		return rtnl.Object[H, A]{}, err
	}

	msgs, err := c.c.Execute(ctx, m)
	if err != nil {
		return rtnl.Object[H, A]{}, err
	}

	objs, err := decodeReplies(k, want, msgs)
	if err != nil {
		return rtnl.Object[H, A]{}, err
	}
	if len(objs) == 0 {
		return rtnl.Object[H, A]{}, errNoReply
	}

	return objs[0], nil
}

// change sends req with an acknowledgement request and waits for it.
func change[H, A any](ctx context.Context, c *Client, k rtnl.Kind[H, A], t rtnl.HeaderType, flags rtnl.HeaderFlags, req *rtnl.Object[H, A]) error {
	m, err := request(k, t, rtnl.HeaderFlagsAcknowledge|flags, req)
	if err != nil {
		return err
	}

	_, err = c.c.Execute(ctx, m)
	return err
}
