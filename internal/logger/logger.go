// Package logger builds the zap logger used by the CLI.
package logger

import (
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/joshharrison/sprintloom/internal/config"
	"github.com/joshharrison/sprintloom/internal/diag"
)

// atomicLevel is the level shared by every logger built here
var atomicLevel = zap.NewAtomicLevel()

// Build sets up the base logger and installs it as the zap global. All output
// goes to stderr so stdout stays machine-readable.
func Build(cfg config.Logger) (*zap.Logger, error) {
	return build(cfg, os.Stderr)
}

func build(cfg config.Logger, w io.Writer) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, diag.Configf("logger.level", "%v", err)
	}
	atomicLevel.SetLevel(lvl.Level())

	encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), atomicLevel)
	logger := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(logger)
	return logger, nil
}

// SetLevel changes logger level dynamically
func SetLevel(level string) {
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		zap.L().Error("Couldn't parse level", zap.Error(err))
		return
	}
	zap.L().Info("Atomic level updated", zap.String("value", level))
	atomicLevel.SetLevel(l)
}

// Level returns the current level.
func Level() zapcore.Level {
	return atomicLevel.Level()
}

// Watch re-reads logger.level whenever the config file changes. Only useful
// for long-running commands.
func Watch(v *viper.Viper) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(in fsnotify.Event) {
		if in.Op&fsnotify.Create == 0 {
			SetLevel(v.GetString("logger.level"))
		}
	})
	v.WatchConfig()
}
