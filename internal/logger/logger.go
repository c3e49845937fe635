// Package logger собирает zap-логгер в зависимости от окружения.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zap оборачивает *zap.Logger, чтобы компоненты могли принимать один тип.
type Zap struct {
	*zap.Logger
}

// New создает логгер: JSON для prod, цветной консольный вывод для остальных окружений.
func New(env, level string) (*Zap, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("неизвестный уровень логирования %q: %w", level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(env, "prod") || strings.EqualFold(env, "production") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Zap{Logger: l}, nil
}

// Nop возвращает логгер, который ничего не пишет. Удобен в тестах.
func Nop() *Zap {
	return &Zap{Logger: zap.NewNop()}
}
