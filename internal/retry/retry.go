// Package retry schedules bounded, delayed re-execution of failed
// transactions. Callers decide what is retriable and hand the task over
// explicitly.
package retry

import (
	"log"
	"sync"
	"time"
)

// Manager tracks attempt counts per transaction id.
type Manager struct {
	name string

	mu       sync.Mutex
	attempts map[string]int
	timers   map[string]*time.Timer
	stopped  bool
}

// NewManager creates a manager. name prefixes its log lines.
func NewManager(name string) *Manager {
	return &Manager{
		name:     name,
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
	}
}

// RetryTransaction schedules task to run after delay unless id has already
// been retried maxAttempts times, in which case the transaction is abandoned,
// its counter cleared and false returned. A new call for an id that is
// already scheduled replaces the pending timer.
func (m *Manager) RetryTransaction(id string, task func(), delay time.Duration, maxAttempts int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return false
	}

	attempts := m.attempts[id]
	if attempts >= maxAttempts {
		delete(m.attempts, id)
		if t, ok := m.timers[id]; ok {
			t.Stop()
			delete(m.timers, id)
		}
		log.Printf("[%s] Abandoned transaction: id=%s attempts=%d", m.name, id, attempts)
		return false
	}

	attempts++
	m.attempts[id] = attempts
	if t, ok := m.timers[id]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.stopped || m.timers[id] != timer {
			m.mu.Unlock()
			return
		}
		delete(m.timers, id)
		m.mu.Unlock()
		task()
	})
	m.timers[id] = timer

	log.Printf("[%s] Retrying transaction: id=%s attempt=%d/%d delay=%v", m.name, id, attempts, maxAttempts, delay)
	return true
}

// Forget clears the counter of a completed transaction and cancels any
// pending retry of it.
func (m *Manager) Forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attempts, id)
	if t, ok := m.timers[id]; ok {
		t.Stop()
		delete(m.timers, id)
	}
}

// Attempts returns how many retries have been scheduled for id.
func (m *Manager) Attempts(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[id]
}

// Pending returns the number of scheduled retries that have not fired.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// Stop cancels every pending retry. Later calls to RetryTransaction are
// rejected.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}
