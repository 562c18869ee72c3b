package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"time"

	"github.com/mdlayher/rtnl"
	"github.com/mdlayher/rtnl/genetlink"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	jobs int

	stressCmd = &cobra.Command{
		Use:   "stress",
		Short: "Repeatedly dial generic netlink and query a family from many workers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("jobs") {
				conf.Jobs = jobs
			}
			logger.Debug().Msgf("configuration:\n%s", conf)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			reg := prometheus.NewRegistry()
			m := newMetrics()
			if err := m.register(reg); err != nil {
				return err
			}
			serve(ctx, newServer(reg), conf.Metrics)

			return stress(ctx, conf, m, dialGeneric)
		},
	}
)

func init() {
	stressCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of jobs, overriding the configuration")
}

// dialFunc dials a generic netlink connection.
type dialFunc func(config *rtnl.Config) (*genetlink.Conn, error)

func dialGeneric(config *rtnl.Config) (*genetlink.Conn, error) {
	config.Logger = &logger
	return genetlink.Dial(config)
}

// stress runs conf.Jobs workers until ctx is done or a worker fails.
func stress(ctx context.Context, conf *Config, m *metrics, dial dialFunc) error {
	logger.Info().Int("jobs", conf.Jobs).Str("family", conf.Family).Msg("starting stress workers")

	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < conf.Jobs; i++ {
		eg.Go(func() error {
			for ctx.Err() == nil {
				if err := work(ctx, conf, m, dial); err != nil {
					return err
				}
			}

			return nil
		})
	}

	err := eg.Wait()
	if errors.Is(err, rtnl.ErrCancelled) {
		return nil
	}

	return err
}

// work dials a connection and issues conf.Requests family queries on it.
func work(ctx context.Context, conf *Config, m *metrics, dial dialFunc) error {
	c, err := dial(&rtnl.Config{Timeout: time.Duration(conf.Timeout)})
	if err != nil {
		return err
	}
	defer c.Close()
	m.Dials.Inc()

	for i := 0; i < conf.Requests; i++ {
		start := time.Now()
		_, err := c.GetFamily(ctx, conf.Family)
		m.observe("get_family", start, err)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			logger.Error().Err(err).Str("family", conf.Family).Msg("failed to get family")
			return err
		}
	}

	return nil
}
