package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the nlstress configuration file.
type Config struct {
	// Jobs is the number of concurrent stress workers.
	Jobs int `yaml:"jobs"`

	// Requests is the number of requests a worker sends on each connection
	// before redialing.
	Requests int `yaml:"requests"`

	// Family is the generic netlink family requested by stress workers.
	Family string `yaml:"family"`

	Timeout Duration `yaml:"timeout"`

	Metrics *MetricsConfig `yaml:"metrics"`
}

// MetricsConfig configures the HTTP endpoint serving metrics and pprof.
type MetricsConfig struct {
	BindAddress string `yaml:"bindAddress"`
	BindPort    int    `yaml:"bindPort"`
}

// A Duration is a time.Duration written as a string such as "5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(b []byte) error {
	var s string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return err
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	return &Config{
		Jobs:     runtime.NumCPU(),
		Requests: 10,
		Family:   "nlctrl",
		Timeout:  Duration(5 * time.Second),
		Metrics: &MetricsConfig{
			BindAddress: "127.0.0.1",
			BindPort:    8080,
		},
	}
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(*DefaultConfig())
	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	*c = Config(def)

	return c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.Jobs <= 0:
		return fmt.Errorf("jobs must be positive, got %d", c.Jobs)
	case c.Requests <= 0:
		return fmt.Errorf("requests must be positive, got %d", c.Requests)
	case c.Family == "":
		return fmt.Errorf("family must not be empty")
	}

	return nil
}

func ReadConf(path string) (*Config, error) {
	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}
