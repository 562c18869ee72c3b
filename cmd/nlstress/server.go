package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newServer creates the HTTP server exposing metrics from reg and the
// pprof handlers.
func newServer(reg *prometheus.Registry) *echo.Echo {
	e := echo.New()

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	e.GET("/debug/pprof/*", echo.WrapHandler(http.DefaultServeMux))

	// Prevent the banner from showing up in the log
	e.HideBanner = true
	e.HidePort = true

	return e
}

// serve runs e on the configured address until ctx is done.
func serve(ctx context.Context, e *echo.Echo, c *MetricsConfig) {
	if c == nil || c.BindPort == 0 {
		return
	}

	addr := fmt.Sprintf("%s:%d", c.BindAddress, c.BindPort)
	go func() {
		logger.Info().Str("addr", addr).Msg("serving metrics")
		if err := e.Start(addr); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("couldn't start the metrics server")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := e.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("error shutting down the metrics server")
		}
	}()
}
