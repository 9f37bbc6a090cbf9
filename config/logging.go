package config

import (
	"go.viam.com/fakemotor/logging"
)

// ApplyLogging sets the levels of registered loggers from c.Log and, if c.LogFile is set, makes
// `logger` also write to that file. Loggers derived from `logger` afterwards inherit the file. The
// returned function closes the file.
func (c *Config) ApplyLogging(logger logging.Logger) (func() error, error) {
	if err := logging.UpdateLoggerConfig(c.Log); err != nil {
		return nil, err
	}
	if c.LogFile == nil {
		return func() error { return nil }, nil
	}
	appender, closer := logging.NewFileAppender(*c.LogFile)
	logger.AddAppender(appender)
	return closer.Close, nil
}
