package logging

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	impl struct {
		name  string
		level AtomicLevel
		inUTC bool

		appenders []Appender
	}

	// LogEntry is a zapcore Entry plus the structured fields attached to it.
	LogEntry struct {
		zapcore.Entry
		fields []zapcore.Field
	}
)

// appenderMu serializes writes so that concurrent log statements from the tick loop and the rpc
// handlers never interleave within one appender.
var appenderMu sync.Mutex

func (imp *impl) newEntry(level Level, msg string) *LogEntry {
	entry := &LogEntry{}
	entry.Time = time.Now()
	if imp.inUTC {
		entry.Time = entry.Time.UTC()
	}
	entry.Level = level.AsZap()
	entry.LoggerName = imp.name
	entry.Message = msg
	entry.Caller = getCaller()
	return entry
}

func (imp *impl) AddAppender(appender Appender) {
	imp.appenders = append(imp.appenders, appender)
}

func (imp *impl) SetLevel(level Level) {
	imp.level.Set(level)
}

func (imp *impl) GetLevel() Level {
	return imp.level.Get()
}

func (imp *impl) Level() zapcore.Level {
	return imp.GetLevel().AsZap()
}

func (imp *impl) Sublogger(subname string) Logger {
	name := subname
	if imp.name != "" {
		name = imp.name + "." + subname
	}

	return register(name, &impl{
		name:      name,
		level:     NewAtomicLevelAt(imp.level.Get()),
		inUTC:     imp.inUTC,
		appenders: imp.appenders,
	})
}

func (imp *impl) Sync() error {
	var err error
	for _, appender := range imp.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

func (imp *impl) Desugar() *zap.Logger {
	return imp.AsZap().Desugar()
}

func (imp *impl) Named(name string) *zap.SugaredLogger {
	return imp.AsZap().Named(name)
}

func (imp *impl) With(args ...interface{}) *zap.SugaredLogger {
	return imp.AsZap().With(args...)
}

func (imp *impl) WithOptions(opts ...zap.Option) *zap.SugaredLogger {
	return imp.AsZap().WithOptions(opts...)
}

func (imp *impl) AsZap() *zap.SugaredLogger {
	// Appenders that are also zap cores (file appender, test observer) keep receiving logs written
	// through the downconverted logger.
	cores := []zapcore.Core{}
	for _, appender := range imp.appenders {
		if core, ok := appender.(zapcore.Core); ok {
			cores = append(cores, core)
		}
	}

	ret := zap.Must(NewZapLoggerConfig().Build()).Sugar().Named(imp.name)
	if len(cores) == 0 {
		return ret
	}
	return ret.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(append([]zapcore.Core{c}, cores...)...)
	}))
}

func (imp *impl) enabled(level Level) bool {
	return GlobalLogLevel.Level() == zapcore.DebugLevel || level >= imp.level.Get()
}

func (imp *impl) write(entry *LogEntry) {
	appenderMu.Lock()
	defer appenderMu.Unlock()
	for _, appender := range imp.appenders {
		if err := appender.Write(entry.Entry, entry.fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (imp *impl) emit(level Level, args ...interface{}) {
	imp.write(imp.newEntry(level, fmt.Sprint(args...)))
}

func (imp *impl) emitf(level Level, template string, args ...interface{}) {
	imp.write(imp.newEntry(level, fmt.Sprintf(template, args...)))
}

// emitw pairs up `keysAndValues` into zap fields. A trailing key without a value is kept with an
// error in place of its value.
func (imp *impl) emitw(level Level, msg string, keysAndValues ...interface{}) {
	entry := imp.newEntry(level, msg)
	entry.fields = make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			entry.fields = append(entry.fields, zap.Error(errors.Errorf("unpaired log key %q", key)))
			break
		}
		entry.fields = append(entry.fields, zap.Any(key, keysAndValues[i+1]))
	}
	imp.write(entry)
}

func (imp *impl) Debug(args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emit(DEBUG, args...)
	}
}

func (imp *impl) Debugf(template string, args ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emitf(DEBUG, template, args...)
	}
}

func (imp *impl) Debugw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) {
		imp.emitw(DEBUG, msg, keysAndValues...)
	}
}

// CDebug logs at debug level when either the logger or the request context asks for it.
func (imp *impl) CDebug(ctx context.Context, args ...interface{}) {
	if imp.enabled(DEBUG) || IsDebugMode(ctx) {
		imp.emit(DEBUG, args...)
	}
}

func (imp *impl) CDebugf(ctx context.Context, template string, args ...interface{}) {
	if imp.enabled(DEBUG) || IsDebugMode(ctx) {
		imp.emitf(DEBUG, template, args...)
	}
}

func (imp *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	if imp.enabled(DEBUG) || IsDebugMode(ctx) {
		imp.emitw(DEBUG, msg, keysAndValues...)
	}
}

func (imp *impl) Info(args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emit(INFO, args...)
	}
}

func (imp *impl) Infof(template string, args ...interface{}) {
	if imp.enabled(INFO) {
		imp.emitf(INFO, template, args...)
	}
}

func (imp *impl) Infow(msg string, keysAndValues ...interface{}) {
	if imp.enabled(INFO) {
		imp.emitw(INFO, msg, keysAndValues...)
	}
}

func (imp *impl) Warn(args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emit(WARN, args...)
	}
}

func (imp *impl) Warnf(template string, args ...interface{}) {
	if imp.enabled(WARN) {
		imp.emitf(WARN, template, args...)
	}
}

func (imp *impl) Warnw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(WARN) {
		imp.emitw(WARN, msg, keysAndValues...)
	}
}

func (imp *impl) Error(args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emit(ERROR, args...)
	}
}

func (imp *impl) Errorf(template string, args ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emitf(ERROR, template, args...)
	}
}

func (imp *impl) Errorw(msg string, keysAndValues ...interface{}) {
	if imp.enabled(ERROR) {
		imp.emitw(ERROR, msg, keysAndValues...)
	}
}

// Fatal logs at error level, syncs the appenders and exits the process.
func (imp *impl) Fatal(args ...interface{}) {
	imp.emit(ERROR, args...)
	imp.exit()
}

func (imp *impl) Fatalf(template string, args ...interface{}) {
	imp.emitf(ERROR, template, args...)
	imp.exit()
}

func (imp *impl) Fatalw(msg string, keysAndValues ...interface{}) {
	imp.emitw(ERROR, msg, keysAndValues...)
	imp.exit()
}

func (imp *impl) exit() {
	//nolint:errcheck
	imp.Sync()
	os.Exit(1)
}

// getCaller returns the location of the user's log statement. The public log method, emit*,
// newEntry and getCaller itself sit between it and runtime.Caller.
func getCaller() zapcore.EntryCaller {
	const skip = 4
	var caller zapcore.EntryCaller
	caller.PC, caller.File, caller.Line, caller.Defined = runtime.Caller(skip)
	if !caller.Defined {
		return caller
	}
	if fn := runtime.FuncForPC(caller.PC); fn != nil {
		caller.Function = fn.Name()
	}
	return caller
}
