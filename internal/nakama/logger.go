package nakama

import (
	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger that writes through the runtime logger,
// so match logs land in the server's own log stream.
func NewLogger(l runtime.Logger) *zap.Logger {
	return zap.New(&loggerCore{LevelEnabler: zapcore.DebugLevel, log: l})
}

type loggerCore struct {
	zapcore.LevelEnabler
	log    runtime.Logger
	fields []zapcore.Field
}

func (c *loggerCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &loggerCore{LevelEnabler: c.LevelEnabler, log: c.log, fields: merged}
}

func (c *loggerCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *loggerCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	l := c.log
	if len(enc.Fields) > 0 {
		l = l.WithFields(enc.Fields)
	}
	switch {
	case ent.Level >= zapcore.ErrorLevel:
		l.Error("%s", ent.Message)
	case ent.Level == zapcore.WarnLevel:
		l.Warn("%s", ent.Message)
	case ent.Level == zapcore.InfoLevel:
		l.Info("%s", ent.Message)
	default:
		l.Debug("%s", ent.Message)
	}
	return nil
}

func (c *loggerCore) Sync() error { return nil }
