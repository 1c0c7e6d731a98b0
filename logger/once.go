package logger

import (
	"sync"

	"go.uber.org/zap"
)

// OnceLogger emits each distinct warning a single time. Callers choose the
// key that makes two warnings the same.
//
// Unreachable knowledge services fail the same way for every entity; without
// this a bulk resolution would log thousands of identical lines.
type OnceLogger struct {
	logger *zap.SugaredLogger
	mu     sync.Mutex
	seen   map[string]struct{}
}

// NewOnceLogger wraps l. A nil l logs nothing.
func NewOnceLogger(l *zap.SugaredLogger) *OnceLogger {
	return &OnceLogger{
		logger: OrNop(l),
		seen:   make(map[string]struct{}),
	}
}

// Warnw logs msg with keysAndValues unless the same (msg, key) pair was
// logged before. The key is not logged. Returns true when the line was written.
func (o *OnceLogger) Warnw(msg, key string, keysAndValues ...interface{}) bool {
	key = msg + "\x00" + key

	o.mu.Lock()
	_, dup := o.seen[key]
	if !dup {
		o.seen[key] = struct{}{}
	}
	o.mu.Unlock()

	if dup {
		return false
	}
	o.logger.Warnw(msg, keysAndValues...)
	return true
}

// Seen returns how many distinct warnings have been logged.
func (o *OnceLogger) Seen() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.seen)
}
