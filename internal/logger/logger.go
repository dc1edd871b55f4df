// Package logger builds the service's zap loggers and carries request-scoped
// loggers through context.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environments accepted by New.
const (
	EnvProd   = "prod"
	EnvLocal  = "local"
	EnvDev    = "dev"
	EnvDocker = "docker"
	// EnvCLI is terse stderr logging for one-shot commands.
	EnvCLI = "cli"
)

// Logger is a zap logger whose level can be changed while it runs.
// Level is an http.Handler (GET reports, PUT {"level":"debug"} changes it).
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
}

// New builds a logger for env. prod writes sampled JSON, local/dev/docker write
// colored console output, cli writes warnings and above to stderr. level, when
// non-empty, overrides the environment default.
func New(env, level string) (*Logger, error) {
	cfg, opts, err := configFor(env)
	if err != nil {
		return nil, err
	}

	if level != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level.SetLevel(lvl)
	}

	l, err := cfg.Build(opts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return &Logger{Logger: l.With(zap.String("service", "finrag")), Level: cfg.Level}, nil
}

func configFor(env string) (zap.Config, []zap.Option, error) {
	switch env {
	case EnvProd:
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
		return cfg, []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}, nil
	case EnvLocal, EnvDev, EnvDocker:
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg, []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}, nil
	case EnvCLI:
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
		cfg.OutputPaths = []string{"stderr"}
		cfg.EncoderConfig.TimeKey = ""
		return cfg, nil, nil
	default:
		return zap.Config{}, nil, fmt.Errorf("unknown environment %q for logger", env)
	}
}
