package utils

import (
	"time"

	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"go.viam.com/fakemotor/logging"
)

// ThrottledLogger logs at most `burst` warnings per `every` interval. Suppressed lines are
// counted and reported with the next line that gets through.
type ThrottledLogger struct {
	logger     logging.Logger
	limiter    *rate.Limiter
	suppressed atomic.Int64
}

// NewThrottledLogger wraps `logger`.
func NewThrottledLogger(logger logging.Logger, every time.Duration, burst int) *ThrottledLogger {
	return &ThrottledLogger{logger: logger, limiter: rate.NewLimiter(rate.Every(every), burst)}
}

// Warnw logs like logging.Logger.Warnw unless the rate is exceeded.
func (tl *ThrottledLogger) Warnw(msg string, keysAndValues ...interface{}) {
	if !tl.limiter.Allow() {
		tl.suppressed.Inc()
		return
	}
	if n := tl.suppressed.Swap(0); n > 0 {
		keysAndValues = append(keysAndValues, "suppressed", n)
	}
	tl.logger.Warnw(msg, keysAndValues...)
}
