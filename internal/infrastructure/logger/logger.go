package logger

import (
	"fmt"
	"os"

	"github.com/memoria/core/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.SugaredLogger to provide application-specific logging
type Logger struct {
	*zap.SugaredLogger
}

// New creates a new logger instance
func New(cfg config.LoggerConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	var encoderConfig zapcore.EncoderConfig
	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	// Rotate through lumberjack when writing to a file
	var sink zapcore.WriteSyncer
	if cfg.Output == "file" && cfg.Filename != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	} else {
		sink = zapcore.Lock(os.Stdout)
	}

	core := zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level))

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1), // Skip one level to show the actual caller
		zap.AddStacktrace(zapcore.ErrorLevel),
	}
	if cfg.Format != "json" {
		options = append(options, zap.Development())
	}

	return &Logger{
		SugaredLogger: zap.New(core, options...).Sugar(),
	}, nil
}

// NewNop returns a logger that discards everything, used by tests and one-shot commands
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// WithFields adds structured fields to the logger
func (l *Logger) WithFields(fields ...interface{}) *Logger {
	return &Logger{
		SugaredLogger: l.SugaredLogger.With(fields...),
	}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// LogPipelineRun records the outcome of a background pipeline cycle
func (l *Logger) LogPipelineRun(pipeline string, duration float64, details map[string]interface{}, err error) {
	fields := []interface{}{
		"pipeline", pipeline,
		"duration_ms", duration,
	}

	for k, v := range details {
		fields = append(fields, k, v)
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		l.Warnw("Pipeline run failed", fields...)
		return
	}

	l.Infow("Pipeline run completed", fields...)
}
