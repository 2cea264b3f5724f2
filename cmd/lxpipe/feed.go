package main

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/logctx"
	"github.com/Geun-Oh/lxpipe/internal/logger"
	"github.com/Geun-Oh/lxpipe/internal/monitor"
	"github.com/Geun-Oh/lxpipe/internal/parser"
	"github.com/Geun-Oh/lxpipe/internal/pipeline"
	"github.com/Geun-Oh/lxpipe/internal/sink"
	"github.com/Geun-Oh/lxpipe/internal/source"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// feedFunc drives events into a logger and returns how many it submitted.
type feedFunc func(ctx context.Context) (int, error)

// feedFlags selects where events come from.
type feedFlags struct {
	file      string
	follow    bool
	docker    string
	grok      string
	level     string
	load      int
	producers int
}

func (f *feedFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.file, "file", "f", "", "read lines from a file")
	fl.BoolVarP(&f.follow, "follow", "F", false, "keep reading the file or container as it grows")
	fl.StringVar(&f.docker, "docker", "", "read the logs of a docker container")
	fl.StringVarP(&f.grok, "grok", "g", "", "grok pattern turning lines into structured messages")
	fl.StringVar(&f.level, "level", "info", "level for lines whose level cannot be detected")
	fl.IntVar(&f.load, "load", 0, "generate this many synthetic events instead of reading a source")
	fl.IntVar(&f.producers, "producers", 4, "concurrent producers used with --load")

	// Everything after the first positional argument belongs to the command.
	fl.SetInterspersed(false)
}

// open picks the source: --docker, then --file, then a command given as
// arguments, then stdin.
func (f *feedFlags) open(args []string) source.Source {
	switch {
	case f.docker != "":
		return source.NewDockerSource(f.docker, f.follow)
	case f.file != "":
		return source.NewFileSource(f.file, f.follow)
	case len(args) > 0:
		return source.NewExecSource(args[0], args[1:])
	default:
		return source.NewStdinSource()
	}
}

// build returns the feed described by the flags.
func (f *feedFlags) build(args []string, l *logger.Logger) (feedFunc, error) {
	if f.load > 0 {
		return func(ctx context.Context) (int, error) {
			return generate(ctx, l, f.producers, f.load)
		}, nil
	}

	def, ok := event.ParseLevel(f.level)
	if !ok {
		return nil, errors.Errorf("unknown level %q", f.level)
	}
	var g *parser.GrokParser
	if f.grok != "" {
		var err error
		if g, err = parser.NewGrokParser(f.grok); err != nil {
			return nil, err
		}
	}
	src := f.open(args)
	return func(ctx context.Context) (int, error) {
		return pump(ctx, src, l, g, def)
	}, nil
}

// pump logs every line of src until the source is exhausted or ctx is
// cancelled. Each event carries the line's stream as its thread name and the
// source name under "origin".
func pump(ctx context.Context, src source.Source, l *logger.Logger, g *parser.GrokParser, def event.Level) (int, error) {
	lines, err := src.Start(ctx)
	if err != nil {
		return 0, errors.Wrapf(err, "start %s", src.Name())
	}

	n := 0
	for line := range lines {
		msg, level := parser.Message(g, line.Text, def)
		lctx := logctx.WithThreadName(ctx, line.Stream)
		lctx = logctx.With(lctx, "origin", line.Origin)
		if err := submit(l.Log(lctx, level, event.Marker{}, msg, nil)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

var loadLevels = []event.Level{event.LevelDebug, event.LevelInfo, event.LevelInfo, event.LevelWarn, event.LevelError}

// generate logs total synthetic events from the given number of concurrent
// producers.
func generate(ctx context.Context, l *logger.Logger, producers, total int) (int, error) {
	if producers < 1 {
		producers = 1
	}
	var sent atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for p := 0; p < producers; p++ {
		share := total / producers
		if p < total%producers {
			share++
		}
		pctx := logctx.WithThreadName(ctx, "producer-"+strconv.Itoa(p))
		g.Go(func() error {
			for i := 0; i < share; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				level := loadLevels[i%len(loadLevels)]
				if err := submit(l.Logf(pctx, level, "synthetic event {} of {}", i+1, share)); err != nil {
					return err
				}
				sent.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	return int(sent.Load()), err
}

// submit treats a full queue in non-blocking mode as handled; the event has
// already gone to the error output.
func submit(err error) error {
	if errors.Is(err, pipeline.ErrQueueFull) {
		return nil
	}
	return err
}

// alertSink checks every delivered event against the alert rules before
// passing it on.
type alertSink struct {
	sink.Sink
	alerts *monitor.AlertEngine
}

func (s *alertSink) Deliver(r *event.Rendered) error {
	s.alerts.Check(r.Event)
	return s.Sink.Deliver(r)
}
