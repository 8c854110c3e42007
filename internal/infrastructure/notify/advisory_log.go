// Package notify keeps recently raised advisories for the presentation layer
package notify

import (
	"sync"

	"github.com/damon-houk/masterclass-currency/internal/domain/entity"
	"github.com/damon-houk/masterclass-currency/internal/infrastructure/logger"
)

const defaultCapacity = 20

// AdvisoryLog is a bounded, thread-safe record of advisories, newest last
type AdvisoryLog struct {
	mu       sync.RWMutex
	items    []entity.Advisory
	capacity int
	logger   logger.Logger
}

// NewAdvisoryLog creates a log holding at most capacity advisories
func NewAdvisoryLog(capacity int, log logger.Logger) *AdvisoryLog {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &AdvisoryLog{
		items:    make([]entity.Advisory, 0, capacity),
		capacity: capacity,
		logger:   log.WithField("component", "advisory_log"),
	}
}

// Notify records an advisory, dropping the oldest when full
func (l *AdvisoryLog) Notify(advisory entity.Advisory) {
	l.mu.Lock()
	if len(l.items) == l.capacity {
		copy(l.items, l.items[1:])
		l.items = l.items[:len(l.items)-1]
	}
	l.items = append(l.items, advisory)
	l.mu.Unlock()

	l.logger.Debug("Advisory recorded", map[string]interface{}{
		"kind":     string(advisory.Kind),
		"currency": string(advisory.Currency),
	})
}

// Recent returns up to n advisories, newest first. n <= 0 returns all of them.
func (l *AdvisoryLog) Recent(n int) []entity.Advisory {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 || n > len(l.items) {
		n = len(l.items)
	}

	out := make([]entity.Advisory, 0, n)
	for i := len(l.items) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.items[i])
	}
	return out
}

// Len returns how many advisories are held
func (l *AdvisoryLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.items)
}
