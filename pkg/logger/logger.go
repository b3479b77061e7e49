package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New собирает zap-логгер: json для продакшена, console для локальной разработки.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "json", "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// Security - логгер для отказов аутентификации и авторизации.
func Security(l *zap.Logger) *zap.Logger { return l.Named("security") }

// Audit - логгер для значимых действий пользователей.
func Audit(l *zap.Logger) *zap.Logger { return l.Named("audit") }

// HTTP - логгер входящих запросов.
func HTTP(l *zap.Logger) *zap.Logger { return l.Named("http") }
