package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/fakemotor/logging"
)

func TestWatcher(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	path := filepath.Join(t.TempDir(), "board.json")
	test.That(t, os.WriteFile(path, []byte(`{}`), 0o600), test.ShouldBeNil)

	var (
		mu      sync.Mutex
		changes []*Config
	)
	w, err := NewWatcher(path, logger, func(cfg *Config) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, cfg)
	})
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		test.That(t, w.Close(), test.ShouldBeNil)
	}()

	// other files in the directory are ignored
	other := filepath.Join(filepath.Dir(path), "other.json")
	test.That(t, os.WriteFile(other, []byte(`{}`), 0o600), test.ShouldBeNil)

	test.That(t, os.WriteFile(path, []byte(`{"log": [{"pattern": "fakemotor.*", "level": "debug"}]}`), 0o600),
		test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		mu.Lock()
		defer mu.Unlock()
		test.That(tb, changes, test.ShouldNotBeEmpty)
		last := changes[len(changes)-1]
		test.That(tb, last.Log, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "fakemotor.*", Level: "debug"}})
	})

	test.That(t, os.WriteFile(path, []byte(`{"nope": 1}`), 0o600), test.ShouldBeNil)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		test.That(tb, logs.FilterMessage("ignoring invalid config change").Len(), test.ShouldBeGreaterThan, 0)
	})
	mu.Lock()
	defer mu.Unlock()
	for _, cfg := range changes {
		test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "board.json"), logging.NewTestLogger(t), func(*Config) {})
	test.That(t, err, test.ShouldNotBeNil)
}
