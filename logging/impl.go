package logging

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultTimeFormatStr is the default time format string for log appenders.
const DefaultTimeFormatStr = "2006-01-02T15:04:05.000Z0700"

type impl struct {
	name  string
	level zap.AtomicLevel
	base  *zap.SugaredLogger
}

func utcISO8601TimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.UTC().Format(DefaultTimeFormatStr))
}

func (imp *impl) Debug(args ...interface{}) { imp.base.Debug(args...) }

func (imp *impl) Debugf(template string, args ...interface{}) { imp.base.Debugf(template, args...) }

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	imp.base.Debugw(msg, keysAndValues...)
}

func (imp *impl) Info(args ...interface{}) { imp.base.Info(args...) }

func (imp *impl) Infof(template string, args ...interface{}) { imp.base.Infof(template, args...) }

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	imp.base.Infow(msg, keysAndValues...)
}

func (imp *impl) Warn(args ...interface{}) { imp.base.Warn(args...) }

func (imp *impl) Warnf(template string, args ...interface{}) { imp.base.Warnf(template, args...) }

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	imp.base.Warnw(msg, keysAndValues...)
}

func (imp *impl) Error(args ...interface{}) { imp.base.Error(args...) }

func (imp *impl) Errorf(template string, args ...interface{}) { imp.base.Errorf(template, args...) }

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	imp.base.Errorw(msg, keysAndValues...)
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if imp.level.Enabled(zapcore.DebugLevel) {
		imp.base.Debugw(msg, keysAndValues...)
		return
	}
	if dtName := GetName(ctx); dtName != "" {
		imp.base.Infow(msg, append([]interface{}{dtNameKey, dtName}, keysAndValues...)...)
	}
}

// Sublogger returns a logger named "<parent>.<subname>". Subloggers share their parent's level.
func (imp *impl) Sublogger(subname string) Logger {
	newName := subname
	if imp.name != "" {
		newName = fmt.Sprintf("%s.%s", imp.name, subname)
	}
	return &impl{
		name:  newName,
		level: imp.level,
		base:  imp.base.Named(subname),
	}
}

func (imp *impl) Name() string {
	return imp.name
}

func (imp *impl) SetLevel(level zapcore.Level) {
	imp.level.SetLevel(level)
}

func (imp *impl) Level() zapcore.Level {
	return imp.level.Level()
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	return imp.base
}

func (imp *impl) Sync() error {
	return imp.base.Sync()
}
