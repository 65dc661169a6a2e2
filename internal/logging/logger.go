package logging

import (
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"accountsvc/internal/config"
)

const bytesPerMB = 1 << 20

func levelFromString(l string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds the process logger. Output goes to stdout and, when cfg.File
// is set, also to a size-rotated file. The returned closer flushes the
// logger and closes the file.
func New(cfg config.LogConfig) (*zap.Logger, func(), error) {
	lvl := levelFromString(cfg.Level)
	if cfg.Dev && strings.TrimSpace(cfg.Level) == "" {
		lvl = zapcore.DebugLevel
	}

	var encoder zapcore.Encoder
	if cfg.Dev {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	sinks := []io.Writer{os.Stdout}
	var file *RotatingFileWriter
	if cfg.File != "" {
		maxSize := int64(cfg.MaxSizeMB) * bytesPerMB
		if maxSize <= 0 {
			maxSize = 20 * bytesPerMB
		}
		w, err := NewRotatingFileWriter(cfg.File, maxSize, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		file = w
		sinks = append(sinks, w)
	}

	logger := newLogger(encoder, lvl, cfg.Dev, sinks...)
	closer := func() {
		_ = logger.Sync()
		if file != nil {
			_ = file.Close()
		}
	}
	return logger, closer, nil
}

func newLogger(encoder zapcore.Encoder, lvl zapcore.Level, dev bool, sinks ...io.Writer) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(sinks))
	for _, w := range sinks {
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(w), lvl))
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if dev {
		opts = append(opts, zap.Development())
	}
	return zap.New(zapcore.NewTee(cores...), opts...)
}
