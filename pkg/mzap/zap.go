// Package mzap wires xdr's pkg/mlog.Logger interface to a zap.SugaredLogger.
package mzap

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cronos-labs/xdr/pkg/mlog"
)

// InitializeLogger builds the process-wide logger. ENV_NAME=production
// switches to JSON encoding; LOG_LEVEL overrides the default level (info in
// production, debug otherwise).
//
//nolint:ireturn
func InitializeLogger() mlog.Logger {
	var cfg zap.Config

	if os.Getenv("ENV_NAME") == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if val, ok := os.LookupEnv("LOG_LEVEL"); ok {
		var lvl zapcore.Level
		if err := lvl.Set(val); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic("mzap: can't initialize zap logger: " + err.Error())
	}

	return &SugaredLogger{Logger: logger.Sugar()}
}

// SugaredLogger adapts a *zap.SugaredLogger to mlog.Logger.
type SugaredLogger struct {
	Logger *zap.SugaredLogger
}

func (l *SugaredLogger) Info(args ...any)                  { l.Logger.Info(args...) }
func (l *SugaredLogger) Infof(format string, args ...any)  { l.Logger.Infof(format, args...) }
func (l *SugaredLogger) Infoln(args ...any)                { l.Logger.Infoln(args...) }
func (l *SugaredLogger) Error(args ...any)                 { l.Logger.Error(args...) }
func (l *SugaredLogger) Errorf(format string, args ...any) { l.Logger.Errorf(format, args...) }
func (l *SugaredLogger) Errorln(args ...any)               { l.Logger.Errorln(args...) }
func (l *SugaredLogger) Warn(args ...any)                  { l.Logger.Warn(args...) }
func (l *SugaredLogger) Warnf(format string, args ...any)  { l.Logger.Warnf(format, args...) }
func (l *SugaredLogger) Warnln(args ...any)                { l.Logger.Warnln(args...) }
func (l *SugaredLogger) Debug(args ...any)                 { l.Logger.Debug(args...) }
func (l *SugaredLogger) Debugf(format string, args ...any) { l.Logger.Debugf(format, args...) }
func (l *SugaredLogger) Debugln(args ...any)               { l.Logger.Debugln(args...) }
func (l *SugaredLogger) Fatal(args ...any)                 { l.Logger.Fatal(args...) }
func (l *SugaredLogger) Fatalf(format string, args ...any) { l.Logger.Fatalf(format, args...) }
func (l *SugaredLogger) Fatalln(args ...any)               { l.Logger.Fatalln(args...) }

// WithFields implements Logger interface function.
//
//nolint:ireturn
func (l *SugaredLogger) WithFields(fields ...any) mlog.Logger {
	return &SugaredLogger{Logger: l.Logger.With(fields...)}
}

// Sync flushes any buffered log entries.
func (l *SugaredLogger) Sync() error {
	return l.Logger.Sync()
}
