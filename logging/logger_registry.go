package logging

import (
	"sync"
)

// Registry tracks named loggers so their levels can be changed by pattern at runtime.
type Registry struct {
	mu       sync.RWMutex
	loggers  map[string]Logger
	patterns []LoggerPatternConfig
	// fallback is the level of loggers that match no pattern.
	fallback Level
}

var globalLoggerRegistry = newRegistry()

func newRegistry() *Registry {
	return &Registry{loggers: map[string]Logger{}, fallback: INFO}
}

// register records `logger` under `name`, replacing any previous logger of that name, and applies
// the current level patterns to it.
func register(name string, logger Logger) Logger {
	return globalLoggerRegistry.put(name, logger)
}

// UpdateLoggerConfig applies level patterns to every logger registered now or later.
func UpdateLoggerConfig(patterns []LoggerPatternConfig) error {
	return globalLoggerRegistry.UpdateConfig(patterns)
}

// SetDefaultLevel sets the level of every logger that matches no pattern, now and on later
// updates.
func SetDefaultLevel(level Level) {
	globalLoggerRegistry.SetDefaultLevel(level)
}

// LoggerNamed returns the registered logger of that name, if any.
func LoggerNamed(name string) (Logger, bool) {
	return globalLoggerRegistry.loggerNamed(name)
}

func (lr *Registry) put(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.loggers[name] = logger
	if level, ok := levelFor(name, lr.patterns); ok {
		logger.SetLevel(level)
	}
	return logger
}

func (lr *Registry) loggerNamed(name string) (Logger, bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	return logger, ok
}

// UpdateConfig validates all patterns before applying any of them. Loggers matching no pattern
// are reset to the default level. When several patterns match, the last one wins.
func (lr *Registry) UpdateConfig(patterns []LoggerPatternConfig) error {
	for _, lpc := range patterns {
		if err := lpc.Validate(); err != nil {
			return err
		}
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.patterns = patterns
	lr.applyLocked()
	return nil
}

// SetDefaultLevel changes the level used for loggers that match no pattern.
func (lr *Registry) SetDefaultLevel(level Level) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.fallback = level
	lr.applyLocked()
}

func (lr *Registry) applyLocked() {
	for name, logger := range lr.loggers {
		level, ok := levelFor(name, lr.patterns)
		if !ok {
			level = lr.fallback
		}
		logger.SetLevel(level)
	}
}

func levelFor(name string, patterns []LoggerPatternConfig) (Level, bool) {
	var (
		level   Level
		matched bool
	)
	for _, lpc := range patterns {
		re, err := lpc.compile()
		if err != nil || !re.MatchString(name) {
			continue
		}
		if l, err := LevelFromString(lpc.Level); err == nil {
			level, matched = l, true
		}
	}
	return level, matched
}
