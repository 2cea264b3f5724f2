package status

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZap builds the process-level zap logger used for status output.
// format is "console" or "json"; level is a zap level name.
func NewZap(level, format string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "status: level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.Sampling = nil
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch format {
	case "", "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "json":
		cfg.Encoding = "json"
	default:
		return nil, errors.Errorf("status: unknown format %q", format)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "status: build logger")
	}
	return l, nil
}
