// Package logging builds the root logr.Logger every other package logs
// through, backed by zap the way structured logging is wired in the rest
// of this codebase's ecosystem.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a logr.Logger at the given level. level follows zap's
// convention: 0 is info, negative numbers are increasingly verbose debug
// levels, positive numbers suppress info down to warn/error.
func New(level int, development bool) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level))

	zapLog, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zapLog), nil
}
