package source

import (
	"context"
	"io"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ExecSource runs a command and streams its stdout and stderr lines.
type ExecSource struct {
	name    string
	command string
	args    []string
	split   func(text string) (time.Time, string)
	seq     atomic.Uint64
}

// NewExecSource creates a source that runs the given command with arguments.
func NewExecSource(command string, args []string) *ExecSource {
	return &ExecSource{name: "exec:" + command, command: command, args: args}
}

// NewDockerSource reads a container's logs through `docker logs`, taking
// each line's time from the timestamp docker prefixes.
func NewDockerSource(container string, follow bool) *ExecSource {
	args := []string{"logs"}
	if follow {
		args = append(args, "--follow")
	}
	args = append(args, "--timestamps", container)
	s := NewExecSource("docker", args)
	s.name = "docker:" + container
	s.split = splitDockerTimestamp
	return s
}

// Name returns the source identifier.
func (s *ExecSource) Name() string { return s.name }

// Start runs the command. The channel is closed once both output streams
// are exhausted and the command has exited, or ctx is cancelled.
func (s *ExecSource) Start(ctx context.Context) (<-chan Line, error) {
	cmd := exec.CommandContext(ctx, s.command, s.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "start %s", s.command)
	}

	ch := make(chan Line, 256)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.read(gctx, "stdout", stdout, ch) })
	g.Go(func() error { return s.read(gctx, "stderr", stderr, ch) })
	go func() {
		_ = g.Wait()
		_ = cmd.Wait()
		close(ch)
	}()
	return ch, nil
}

func (s *ExecSource) read(ctx context.Context, stream string, r io.Reader, ch chan<- Line) error {
	return scan(ctx, r, func(text string) bool {
		ts := time.Now()
		if s.split != nil {
			ts, text = s.split(text)
		}
		return send(ctx, ch, Line{
			Time:   ts,
			Stream: stream,
			Origin: s.name,
			Text:   text,
			Seq:    s.seq.Add(1),
		})
	})
}

// splitDockerTimestamp separates the RFC 3339 timestamp docker writes in
// front of each line with --timestamps.
func splitDockerTimestamp(line string) (time.Time, string) {
	stamp, rest, ok := strings.Cut(line, " ")
	if !ok {
		return time.Now(), line
	}
	ts, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return time.Now(), line
	}
	return ts, rest
}
