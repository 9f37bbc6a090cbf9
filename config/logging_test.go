package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/fakemotor/logging"
)

func TestApplyLogging(t *testing.T) {
	logger := logging.NewBlankLogger("applylogging")
	sub := logger.Sublogger("hub")
	test.That(t, sub.GetLevel(), test.ShouldEqual, logging.DEBUG)

	cfg := &Config{Log: []logging.LoggerPatternConfig{{Pattern: "applylogging.*", Level: "warn"}}}
	closeLog, err := cfg.ApplyLogging(logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, closeLog(), test.ShouldBeNil)
	test.That(t, sub.GetLevel(), test.ShouldEqual, logging.WARN)

	path := filepath.Join(t.TempDir(), "fakemotor.log")
	cfg = &Config{LogFile: &logging.FileAppenderConfig{Path: path}}
	closeLog, err = cfg.ApplyLogging(logger)
	test.That(t, err, test.ShouldBeNil)
	logger.Infow("written to file", "axis", 2)
	test.That(t, closeLog(), test.ShouldBeNil)

	content, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(content), test.ShouldContainSubstring, "written to file")

	_, err = (&Config{Log: []logging.LoggerPatternConfig{{Pattern: "a..b", Level: "info"}}}).ApplyLogging(logger)
	test.That(t, err, test.ShouldNotBeNil)
}
