// Package config loads the YAML configuration of a pipeline and builds the
// runtime objects it describes. Filter types, overflow policies and queue
// implementations are resolved by name through their packages' registries.
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Geun-Oh/lxpipe/internal/buffer"
	"github.com/Geun-Oh/lxpipe/internal/event"
	"github.com/Geun-Oh/lxpipe/internal/filter"
	"github.com/Geun-Oh/lxpipe/internal/logger"
	"github.com/Geun-Oh/lxpipe/internal/monitor"
	"github.com/Geun-Oh/lxpipe/internal/overflow"
	"github.com/Geun-Oh/lxpipe/internal/pipeline"
	"github.com/Geun-Oh/lxpipe/internal/queue"
	"github.com/Geun-Oh/lxpipe/internal/recycler"
	"github.com/Geun-Oh/lxpipe/internal/sink"
	"github.com/Geun-Oh/lxpipe/internal/status"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the file format.
//
//	name: orders
//	level: info
//	queue:
//	  capacity: 1024
//	  implementation: ring
//	overflow:
//	  policy: discard
//	  discardThreshold: info
//	  blocking: true
//	recycler: threadLocal:capacity=2
//	shutdownTimeout: 5s
//	filters:
//	  - type: threshold
//	    params: {level: debug}
type Config struct {
	Name            string         `yaml:"name"`
	Level           string         `yaml:"level"`
	Queue           QueueConfig    `yaml:"queue"`
	Overflow        OverflowConfig `yaml:"overflow"`
	Recycler        string         `yaml:"recycler"`
	MaxRetained     int            `yaml:"maxRetained"`
	ShutdownTimeout time.Duration  `yaml:"shutdownTimeout"`
	FormatAsync     bool           `yaml:"formatAsync"`
	ConsumerName    string         `yaml:"consumerName"`
	Filters         []filter.Spec  `yaml:"filters"`
	Alerts          []AlertConfig  `yaml:"alerts"`
	Output          OutputConfig   `yaml:"output"`
	Status          StatusConfig   `yaml:"status"`
}

// QueueConfig selects the queue size and implementation.
type QueueConfig struct {
	Capacity       int    `yaml:"capacity"`
	Implementation string `yaml:"implementation"`
}

// OverflowConfig selects the queue-full behavior.
type OverflowConfig struct {
	Policy           string `yaml:"policy"`
	DiscardThreshold string `yaml:"discardThreshold"`
	// Blocking false sends events that find the queue full to the error
	// output instead of consulting the policy.
	Blocking *bool `yaml:"blocking"`
}

// AlertConfig is a named filter whose accepted events are counted.
type AlertConfig struct {
	Name   string      `yaml:"name"`
	Filter filter.Spec `yaml:"filter"`
}

// OutputConfig selects the reference sink layout.
type OutputConfig struct {
	Format string `yaml:"format"` // text or json
	Color  bool   `yaml:"color"`
}

// StatusConfig configures the diagnostic logger.
type StatusConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and parses a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config: %s", path)
	}
	return c, nil
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "lxpipe"
	}
	if c.Level == "" {
		c.Level = "all"
	}
	if c.Queue.Capacity == 0 {
		c.Queue.Capacity = pipeline.DefaultCapacity
	}
	if c.Queue.Implementation == "" {
		c.Queue.Implementation = queue.Ring
	}
	if c.Overflow.Policy == "" {
		c.Overflow.Policy = "default"
	}
	if c.Overflow.Blocking == nil {
		blocking := true
		c.Overflow.Blocking = &blocking
	}
	if c.Recycler == "" {
		c.Recycler = "threadLocal"
	}
	if c.MaxRetained == 0 {
		c.MaxRetained = buffer.DefaultMaxRetained
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = pipeline.DefaultShutdownTimeout
	}
	if c.Output.Format == "" {
		c.Output.Format = "text"
	}
	if c.Status.Level == "" {
		c.Status.Level = "info"
	}
	if c.Status.Format == "" {
		c.Status.Format = "console"
	}
}

// Validate checks every field that can be checked without building.
// Filters are not validated here; a filter that fails to build is skipped.
func (c *Config) Validate() error {
	if c.Queue.Capacity <= 0 {
		return errors.Errorf("config: queue.capacity must be positive, got %d", c.Queue.Capacity)
	}
	if !slices.Contains(queue.Names(), strings.ToLower(c.Queue.Implementation)) {
		return errors.Errorf("config: unknown queue.implementation %q (have %s)",
			c.Queue.Implementation, strings.Join(queue.Names(), ", "))
	}
	if _, err := c.level(); err != nil {
		return err
	}
	if _, err := c.discardThreshold(); err != nil {
		return err
	}
	if !slices.Contains(overflow.Names(), strings.ToLower(c.Overflow.Policy)) {
		return errors.Errorf("config: unknown overflow.policy %q (have %s)",
			c.Overflow.Policy, strings.Join(overflow.Names(), ", "))
	}
	if _, err := recycler.Parse(c.Recycler); err != nil {
		return errors.Wrap(err, "config")
	}
	if c.ShutdownTimeout < 0 {
		return errors.Errorf("config: shutdownTimeout must not be negative, got %s", c.ShutdownTimeout)
	}
	switch c.Output.Format {
	case "text", "json":
	default:
		return errors.Errorf("config: output.format must be text or json, got %q", c.Output.Format)
	}
	return nil
}

func (c *Config) level() (event.Level, error) {
	l, ok := event.ParseLevel(c.Level)
	if !ok {
		return event.Level{}, errors.Errorf("config: unknown level %q", c.Level)
	}
	return l, nil
}

func (c *Config) discardThreshold() (event.Level, error) {
	if c.Overflow.DiscardThreshold == "" {
		return event.Level{}, nil
	}
	l, ok := event.ParseLevel(c.Overflow.DiscardThreshold)
	if !ok {
		return event.Level{}, errors.Errorf("config: unknown overflow.discardThreshold %q", c.Overflow.DiscardThreshold)
	}
	return l, nil
}

// Runtime is the pipeline and logger built from a Config.
type Runtime struct {
	Pipeline *pipeline.Pipeline
	Logger   *logger.Logger
}

// Build creates the pipeline and its logger. out receives
// delivered events and errOut, when not nil, receives events diverted in
// non-blocking mode. Filters that fail to build are reported to
// onFilterError and left out. The pipeline is not started.
func (c *Config) Build(out, errOut sink.Sink, report status.Reporter, onFilterError func(filter.Spec, error)) (*Runtime, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	threshold, _ := c.discardThreshold()
	policy, err := overflow.Lookup(c.Overflow.Policy, threshold)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	strategy, _ := recycler.Parse(c.Recycler)

	p, err := pipeline.New(pipeline.Config{
		Name:            c.Name,
		Capacity:        c.Queue.Capacity,
		Queue:           c.Queue.Implementation,
		Policy:          policy,
		Recycler:        strategy,
		MaxRetained:     c.MaxRetained,
		Sink:            out,
		NonBlocking:     !*c.Overflow.Blocking,
		ErrorSink:       errOut,
		Status:          report,
		ShutdownTimeout: c.ShutdownTimeout,
		ConsumerName:    c.ConsumerName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}

	text, err := recycler.New(strategy, buffer.New, buffer.Cleaner(c.MaxRetained))
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	level, _ := c.level()
	l, err := logger.New(c.Name, p,
		logger.WithLevel(level),
		logger.WithFilters(filter.BuildChain(c.Filters, onFilterError)),
		logger.WithFormatAsync(c.FormatAsync),
		logger.WithRecycler(text))
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}

	return &Runtime{Pipeline: p, Logger: l}, nil
}

// BuildAlerts creates the alert engine. Alert filters that fail to build are
// reported to onFilterError and left out.
func (c *Config) BuildAlerts(onFilterError func(filter.Spec, error)) *monitor.AlertEngine {
	rules := make([]*monitor.AlertRule, 0, len(c.Alerts))
	for _, a := range c.Alerts {
		f, err := filter.Build(a.Filter)
		if err != nil {
			if onFilterError != nil {
				onFilterError(a.Filter, errors.Wrapf(err, "alert %s", a.Name))
			}
			continue
		}
		rules = append(rules, &monitor.AlertRule{Name: a.Name, Filter: f})
	}
	return monitor.NewAlertEngine(rules...)
}
