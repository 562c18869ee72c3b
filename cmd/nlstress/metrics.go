package main

import (
	"errors"
	"time"

	"github.com/mdlayher/rtnl"
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Dials    prometheus.Counter
	Notices  *prometheus.CounterVec
}

func newMetrics() *metrics {
	return &metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nlstress",
				Name:      "requests_total",
				Help:      "Netlink requests by operation and result.",
			},
			[]string{"op", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nlstress",
				Name:      "request_duration_seconds",
				Help:      "Netlink request duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 16),
			},
			[]string{"op"},
		),
		Dials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nlstress",
			Name:      "dials_total",
			Help:      "Netlink connections dialed.",
		}),
		Notices: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nlstress",
				Name:      "notifications_total",
				Help:      "Decoded rtnetlink notifications by message type.",
			},
			[]string{"type"},
		),
	}
}

func (m *metrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Requests, m.Duration, m.Dials, m.Notices} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// observe records the outcome of one request which started at start.
func (m *metrics) observe(op string, start time.Time, err error) {
	m.Requests.WithLabelValues(op, result(err)).Inc()
	m.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// result classifies err as a metric label.
func result(err error) string {
	var kerr *rtnl.KernelError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, rtnl.ErrTimeout):
		return "timeout"
	case errors.Is(err, rtnl.ErrCancelled):
		return "cancelled"
	case errors.As(err, &kerr):
		return "kernel"
	default:
		return "error"
	}
}
