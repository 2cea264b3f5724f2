package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/monitor"
	"github.com/Geun-Oh/lxpipe/internal/status"
	"github.com/Geun-Oh/lxpipe/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var (
	watchFeed feedFlags

	watchCmd = &cobra.Command{
		Use:   "watch [command [args...]]",
		Short: "Show delivered events and pipeline counters in a live dashboard",
		Long: `Show delivered events and pipeline counters in a live dashboard.
The dashboard is the pipeline's sink. Status messages are not printed while
it owns the terminal; the counters bar shows discards, out-of-order
deliveries and losses instead.`,
		RunE: watchPipeline,
	}
)

func init() {
	watchFeed.register(watchCmd)
}

func watchPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := status.NewZap(cfg.Status.Level, cfg.Status.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	alerts := cfg.BuildAlerts(skipFilter(log))
	dash := tui.NewDashboard(cfg.Name, monitor.NewRateDetector(10*time.Second, 3), alerts, tea.WithAltScreen())

	rt, err := cfg.Build(dash, nil, status.Nop(), skipFilter(log))
	if err != nil {
		return err
	}
	feed, err := watchFeed.build(args, rt.Logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = dash.Run(ctx, rt.Pipeline.Stats(), func(ctx context.Context) error {
		if err := rt.Pipeline.Start(); err != nil {
			return err
		}
		_, feedErr := feed(ctx)
		_, stopErr := rt.Pipeline.Stop(cfg.ShutdownTimeout)
		return multierr.Combine(feedErr, stopErr)
	})

	fmt.Fprintln(cmd.ErrOrStderr(), rt.Pipeline.Stats().Summary())
	if s := alerts.Summary(); s != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), s)
	}
	return err
}
