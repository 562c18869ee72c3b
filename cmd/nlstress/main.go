// Command nlstress continuously stresses the rtnl package, and can dump or
// monitor rtnetlink state over the same engine.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	logger = zerolog.Nop()

	rootCmd = &cobra.Command{
		Use:   "nlstress",
		Short: "Stress and inspect netlink over rtnl.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}

			logger = zerolog.New(zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			}).Level(lvl).With().Timestamp().Str("app", "nlstress").Logger()

			return nil
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Get the built version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("built commit: %s\n", builtCommit)
		},
	}

	builtCommit = "dev"
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(stressCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(monitorCmd)
}

// loadConfig reads the configuration file, or returns the defaults when
// none was given.
func loadConfig() (*Config, error) {
	if configPath == "" {
		return DefaultConfig(), nil
	}

	return ReadConf(configPath)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
