package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridopt/config"
	coremon "github.com/kilianp07/gridopt/core/monitoring"
	"github.com/kilianp07/gridopt/infra/logger"
	"github.com/kilianp07/gridopt/infra/monitoring"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "gridopt",
	Short:         "Rolling horizon dispatch of resource flow networks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig loads the configuration and installs the Sentry monitor. The
// returned function flushes pending events.
func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		logger.New("main").Errorf("sentry init: %v", err)
		mon = coremon.NopMonitor{}
	}
	coremon.Init(mon)
	return cfg, func() { coremon.Flush(2 * time.Second) }, nil
}
