package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Geun-Oh/lxpipe/internal/config"
	"github.com/Geun-Oh/lxpipe/internal/sink"
	"github.com/Geun-Oh/lxpipe/internal/status"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	runFeed     feedFlags
	outFormat   string
	outColor    bool
	metricsAddr string

	runCmd = &cobra.Command{
		Use:   "run [command [args...]]",
		Short: "Pipe a log source through the pipeline and print delivered events",
		Long: `Pipe a log source through the pipeline and print delivered events.
With no source flags and no command, lines are read from stdin.
A summary of the pipeline counters is written to stderr on exit.`,
		Example: `  kubectl logs -f deploy/api | lxpipe run --grok '%{TIMESTAMP_ISO8601:time} %{LOGLEVEL:level} %{GREEDYDATA:msg}'
  lxpipe run -c lxpipe.yaml --format json -- go test ./...
  lxpipe run --load 100000 --producers 8 --metrics :9090`,
		RunE: runPipeline,
	}
)

func init() {
	runFeed.register(runCmd)
	fl := runCmd.Flags()
	fl.StringVar(&outFormat, "format", "", "output layout: text or json (overrides the config file)")
	fl.BoolVar(&outColor, "color", false, "colorize text output by level")
	fl.StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = outFormat
	}
	if cmd.Flags().Changed("color") {
		cfg.Output.Color = outColor
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := status.NewZap(cfg.Status.Level, cfg.Status.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	alerts := cfg.BuildAlerts(skipFilter(log))
	out := outputSink(cfg, cmd.OutOrStdout())
	if len(alerts.Rules()) > 0 {
		out = &alertSink{Sink: out, alerts: alerts}
	}
	errOut := sink.NewTerminalSink(cmd.ErrOrStderr(), false)

	rt, err := cfg.Build(out, errOut, status.NewLogger(log), skipFilter(log))
	if err != nil {
		return err
	}
	feed, err := runFeed.build(args, rt.Logger)
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		shutdown, err := serveMetrics(metricsAddr, rt.Pipeline.Stats(), log)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Pipeline.Start(); err != nil {
		return err
	}
	n, feedErr := feed(ctx)
	lost, stopErr := rt.Pipeline.Stop(cfg.ShutdownTimeout)
	log.Debug("pipeline stopped",
		zap.String("pipeline", rt.Pipeline.Name()),
		zap.Int("submitted", n),
		zap.Int("lost", lost))

	fmt.Fprintln(cmd.ErrOrStderr(), rt.Pipeline.Stats().Summary())
	if s := alerts.Summary(); s != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), s)
	}

	if ctx.Err() != nil {
		feedErr = nil
	}
	return multierr.Combine(feedErr, stopErr)
}

// outputSink builds the reference sink for the configured layout.
func outputSink(cfg *config.Config, w io.Writer) sink.Sink {
	if cfg.Output.Format == "json" {
		return sink.NewJSONSink(w)
	}
	return sink.NewTerminalSink(w, cfg.Output.Color)
}
