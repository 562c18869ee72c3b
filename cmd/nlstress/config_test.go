package main

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestReadConf(t *testing.T) {
	def := DefaultConfig()

	tests := []struct {
		name string
		path string
		want *Config
		ok   bool
	}{
		{
			name: "full",
			path: "testdata/nlstress.yaml",
			want: &Config{
				Jobs:     4,
				Requests: 100,
				Family:   "TASKSTATS",
				Timeout:  Duration(250 * time.Millisecond),
				Metrics: &MetricsConfig{
					BindAddress: "0.0.0.0",
					BindPort:    9100,
				},
			},
			ok: true,
		},
		{
			name: "defaults",
			path: "testdata/partial.yaml",
			want: &Config{
				Jobs:     2,
				Requests: def.Requests,
				Family:   def.Family,
				Timeout:  def.Timeout,
				Metrics:  def.Metrics,
			},
			ok: true,
		},
		{
			name: "invalid",
			path: "testdata/invalid.yaml",
		},
		{
			name: "missing",
			path: "testdata/missing.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ReadConf(tt.path)
			if tt.ok && err != nil {
				t.Fatalf("failed to read configuration: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected an error, but none occurred")
			}
			if err != nil {
				return
			}

			t.Logf("%s:\n%s", tt.path, c)

			if diff := cmp.Diff(tt.want, c); diff != "" {
				t.Fatalf("unexpected configuration (-want +got):\n%s", diff)
			}
		})
	}
}
