package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through `tb.Log` in the machine's local time.
// Going through `tb.Log` ties each line to the test that produced it, which matters for tests that
// call `t.Parallel()`. `tb.Helper` keeps the reported file/line pointing at the log statement
// rather than at this appender.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	line := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		line = append(line, callerToString(&entry.Caller))
	}
	line = append(line, entry.Message)

	var err error
	if len(fields) > 0 {
		var encoded string
		if encoded, err = encodeFields(fields); err == nil {
			line = append(line, encoded)
		}
	}
	tapp.tb.Log(strings.Join(line, "\t"))
	return err
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
