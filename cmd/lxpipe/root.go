package main

import (
	"fmt"
	"os"

	"github.com/Geun-Oh/lxpipe/internal/config"
	"github.com/Geun-Oh/lxpipe/internal/filter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath   string
	statusLevel  string
	statusFormat string

	rootCmd = &cobra.Command{
		Use:   "lxpipe",
		Short: "lxpipe runs log lines through an asynchronous logging pipeline",
		Long: `lxpipe runs log lines through an asynchronous logging pipeline.
Lines are read from stdin, a file, a command or a docker container, admitted
through the configured filter chain and delivered by a single consumer to a
text, JSON or dashboard sink.`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize()

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "pipeline configuration file (YAML)")
	rootCmd.PersistentFlags().StringVar(&statusLevel, "status-level", "", "status logger level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&statusFormat, "status-format", "", "status logger format (console or json)")

	rootCmd.AddCommand(runCmd, watchCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config when given and applies the persistent flag
// overrides.
func loadConfig() (*config.Config, error) {
	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if statusLevel != "" {
		c.Status.Level = statusLevel
	}
	if statusFormat != "" {
		c.Status.Format = statusFormat
	}
	return c, nil
}

// skipFilter logs filters that could not be built.
func skipFilter(log *zap.Logger) func(filter.Spec, error) {
	return func(s filter.Spec, err error) {
		log.Warn("no filter created", zap.String("type", s.Type), zap.Error(err))
	}
}
