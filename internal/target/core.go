package target

import (
	"context"

	"go.uber.org/zap/zapcore"
)

// core plugs a Target into zap. Fields added through With are kept apart from
// the layout encoder so they also land in Properties.
type core struct {
	zapcore.LevelEnabler
	target *Target
	fields []zapcore.Field
}

// NewCore returns a zapcore.Core writing entries at or above enab to t.
func NewCore(t *Target, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{
		LevelEnabler: enab,
		target:       t,
	}
}

func (c *core) Enabled(level zapcore.Level) bool {
	return c.LevelEnabler.Enabled(level)
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	return &core{
		LevelEnabler: c.LevelEnabler,
		target:       c.target,
		fields:       append(append([]zapcore.Field(nil), c.fields...), fields...),
	}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if len(c.fields) == 0 {
		return c.target.Write(ent, fields)
	}
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	return c.target.Write(ent, append(all, fields...))
}

// Sync waits for in-flight submissions.
func (c *core) Sync() error {
	return c.target.Flush(context.Background())
}
