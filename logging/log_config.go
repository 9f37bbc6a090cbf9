package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// LoggerPatternConfig sets the level of every registered logger whose name matches Pattern.
// Patterns are dot separated logger names where a `*` section matches anything, e.g.
// "fakemotor.server.*".
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// e.g. "hub" or "state-stream".
	loggerSection = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "hub" or "*".
	loggerSectionOrWildcard = `(` + loggerSection + `|\*)`
	// e.g. "fakemotor.*.hub".
	loggerNamePattern = `^` + loggerSectionOrWildcard + `(\.` + loggerSectionOrWildcard + `)*$`
)

var loggerPatternRegexp = regexp.MustCompile(loggerNamePattern)

// Validate checks the pattern syntax and the level.
func (lpc LoggerPatternConfig) Validate() error {
	if !loggerPatternRegexp.MatchString(lpc.Pattern) {
		return errors.Errorf("invalid logger pattern %q", lpc.Pattern)
	}
	_, err := LevelFromString(lpc.Level)
	return err
}

func (lpc LoggerPatternConfig) compile() (*regexp.Regexp, error) {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range lpc.Pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return regexp.Compile(matcher.String())
}
