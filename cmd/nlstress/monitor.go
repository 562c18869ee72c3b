package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/route"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Print rtnetlink link, address, route and neighbor events.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		reg := prometheus.NewRegistry()
		m := newMetrics()
		if err := m.register(reg); err != nil {
			return err
		}
		serve(ctx, newServer(reg), conf.Metrics)

		c, err := route.Dial(&rtnl.Config{
			Timeout: time.Duration(conf.Timeout),
			Logger:  &logger,
		})
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Subscribe(
			route.GroupLink,
			route.GroupNeighbor,
			route.GroupIPv4Address,
			route.GroupIPv4Route,
			route.GroupIPv6Address,
			route.GroupIPv6Route,
		); err != nil {
			return err
		}

		return monitor(ctx, c.Notifications(), m, os.Stdout)
	},
}

// monitor prints each notification to w until ctx is done or ns closes.
func monitor(ctx context.Context, ns <-chan route.Notification, m *metrics, w io.Writer) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ns:
			if !ok {
				return nil
			}

			m.Notices.WithLabelValues(fmt.Sprint(n.Type)).Inc()
			fmt.Fprintln(w, describe(n))
		}
	}
}

// describe formats a notification as a single line.
func describe(n route.Notification) string {
	switch o := n.Object.(type) {
	case route.Link:
		return fmt.Sprintf("%s link %d %s <%s>", verb(n.Type), o.Header.Index, str(o.Attributes.Name), o.Header.Flags)
	case route.Address:
		ip := o.Attributes.Local
		if ip == nil {
			ip = o.Attributes.Address
		}
		return fmt.Sprintf("%s address %s/%d dev %d", verb(n.Type), ip, o.Header.PrefixLength, o.Header.Index)
	case route.Route:
		return fmt.Sprintf("%s route %s/%d via %s table %d", verb(n.Type),
			o.Attributes.Destination, o.Header.DestinationLength, o.Attributes.Gateway, o.Header.Table)
	case route.Neighbor:
		return fmt.Sprintf("%s neighbor %s lladdr %s <%s>", verb(n.Type),
			o.Attributes.Destination, o.Attributes.LinkLayerAddress, o.Header.State)
	default:
		return fmt.Sprintf("%v %T", n.Type, n.Object)
	}
}

func verb(t rtnl.HeaderType) string {
	switch t {
	case route.TypeNewLink, route.TypeNewAddress, route.TypeNewRoute, route.TypeNewNeighbor:
		return "new"
	case route.TypeDelLink, route.TypeDelAddress, route.TypeDelRoute, route.TypeDelNeighbor:
		return "del"
	default:
		return "get"
	}
}
