package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON production logger or a console development
// logger whose level is controlled by level.
func NewLogger(production bool, level zap.AtomicLevel) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	return cfg.Build()
}

// NewAtomicLevel parses a level name such as "debug" or "warn". Unknown
// names fall back to info.
func NewAtomicLevel(name string) zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	SetLevel(level, name)
	return level
}

// SetLevel changes level in place and reports whether name was understood.
func SetLevel(level zap.AtomicLevel, name string) bool {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return false
	}
	level.SetLevel(l)
	return true
}
