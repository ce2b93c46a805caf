package bootstrap

import (
	"browser-agent/internal/config"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger tees zap output to stderr and to a rotating log file. Stdout
// stays free for the console REPL.
func newLogger(config *config.Config) (*zap.Logger, error) {
	level := zap.InfoLevel

	switch config.AppConfig.LogLevel {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	}

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleEncoder := zapcore.NewJSONEncoder(fileEncoderConfig)

	if config.AppConfig.Debug {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zap.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(config.AppConfig.LogFile), 0o755); err != nil {
		return nil, err
	}

	fileSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   config.AppConfig.LogFile,
		MaxSize:    config.AppConfig.LogFileMaxSizeMB,
		MaxBackups: config.AppConfig.LogFileMaxBackups,
		MaxAge:     config.AppConfig.LogFileMaxAgeDays,
		Compress:   config.AppConfig.LogFileCompress,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stderr), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), fileSink, level),
	)

	return zap.New(core), nil
}
