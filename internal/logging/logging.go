// Package logging builds the zap loggers used by the CLI, the ingest
// service, the HTTP API and the outcome stores.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Config holds logging configuration.
type Config struct {
	Level  zapcore.Level `koanf:"level"`
	Format string        `koanf:"format"` // json or console
}

// DefaultConfig logs info and above as console text.
func DefaultConfig() Config {
	return Config{Level: zapcore.InfoLevel, Format: "console"}
}

// Validate checks the format name.
func (c Config) Validate() error {
	switch c.Format {
	case "json", "console":
		return nil
	}
	return fmt.Errorf("log format %q: want json or console", c.Format)
}

// New creates a logger writing to stderr, so stdout stays free for
// parse output.
func New(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	core := zapcore.NewCore(newEncoder(cfg.Format), zapcore.Lock(os.Stderr), cfg.Level)
	return zap.New(core, zap.AddCaller()), nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// NewTest returns a logger that records every entry at debug and above.
func NewTest() (*zap.Logger, *observer.ObservedLogs) {
	core, observed := observer.New(zapcore.DebugLevel)
	return zap.New(core), observed
}
