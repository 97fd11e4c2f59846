package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// flooredCore drops entries below floor in addition to the wrapped core's own level.
type flooredCore struct {
	zapcore.Core

	floor zapcore.Level
}

// Enabled requires both the floor and the wrapped core to accept l.
func (c *flooredCore) Enabled(l zapcore.Level) bool {
	return c.floor.Enabled(l) && c.Core.Enabled(l)
}

// Check adds the core to ce when the entry passes both levels.
//
//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *flooredCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}

	return ce
}

// With keeps the floor on derived cores.
//
//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *flooredCore) With(fields []zapcore.Field) zapcore.Core {
	return &flooredCore{
		Core:  c.Core.With(fields),
		floor: c.floor,
	}
}

// WithLevel raises the minimum level of a logger to lvl. It never lowers it,
// so a stricter level set on the core still applies.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(lvl zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &flooredCore{Core: core, floor: lvl}
	})
}
