package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/route"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:       "dump [links|addresses|routes|neighbors]",
	Short:     "Dump rtnetlink state.",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"links", "addresses", "routes", "neighbors"},
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig()
		if err != nil {
			return err
		}

		c, err := route.Dial(&rtnl.Config{
			Timeout: time.Duration(conf.Timeout),
			Logger:  &logger,
		})
		if err != nil {
			return err
		}
		defer c.Close()

		return dump(cmd.Context(), c, args[0], os.Stdout)
	},
}

// dump writes one table of objects to w.
func dump(ctx context.Context, c *route.Client, what string, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	switch what {
	case "links":
		links, err := c.Links(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintln(tw, "INDEX\tNAME\tMTU\tSTATE\tFLAGS")
		for _, l := range links {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				l.Header.Index, str(l.Attributes.Name), num(l.Attributes.MTU),
				enum(l.Attributes.OperationalState), l.Header.Flags)
		}
	case "addresses":
		addrs, err := c.Addresses(ctx, route.FamilyUnspec)
		if err != nil {
			return err
		}

		fmt.Fprintln(tw, "INDEX\tADDRESS\tSCOPE\tLABEL")
		for _, a := range addrs {
			ip := a.Attributes.Local
			if ip == nil {
				ip = a.Attributes.Address
			}

			fmt.Fprintf(tw, "%d\t%s/%d\t%s\t%s\n",
				a.Header.Index, ip, a.Header.PrefixLength, a.Header.Scope, str(a.Attributes.Label))
		}
	case "routes":
		routes, err := c.Routes(ctx, route.FamilyUnspec)
		if err != nil {
			return err
		}

		fmt.Fprintln(tw, "DESTINATION\tGATEWAY\tOIF\tTABLE\tPROTOCOL\tTYPE")
		for _, r := range routes {
			dst := "default"
			if r.Attributes.Destination != nil {
				dst = fmt.Sprintf("%s/%d", r.Attributes.Destination, r.Header.DestinationLength)
			}

			table := uint32(r.Header.Table)
			if r.Attributes.Table != nil {
				table = *r.Attributes.Table
			}

			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				dst, r.Attributes.Gateway, num(r.Attributes.OutputInterface),
				table, r.Header.Protocol, r.Header.Type)
		}
	case "neighbors":
		neighs, err := c.Neighbors(ctx, route.FamilyUnspec)
		if err != nil {
			return err
		}

		fmt.Fprintln(tw, "INDEX\tADDRESS\tLLADDR\tSTATE")
		for _, n := range neighs {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n",
				n.Header.Index, n.Attributes.Destination, n.Attributes.LinkLayerAddress, n.Header.State)
		}
	default:
		return fmt.Errorf("unknown object type %q", what)
	}

	return nil
}

func str(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func num(v *uint32) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func enum(e *rtnl.Enum) string {
	if e == nil {
		return "-"
	}
	return e.String()
}
