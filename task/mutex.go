package task

import "sync"

// Mutex is a suspension-aware lock. Acquire returns an awaitable that
// completes when the caller owns the lock; waiters are served in FIFO order.
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters []*Task
}

// Acquire requests the lock.
func (m *Mutex) Acquire() *Task {
	m.mu.Lock()
	if !m.locked {
		m.locked = true
		m.mu.Unlock()
		return Completed(nil)
	}
	t := New()
	m.waiters = append(m.waiters, t)
	m.mu.Unlock()
	return t
}

// Release hands the lock to the next waiter, or unlocks it.
func (m *Mutex) Release() {
	m.mu.Lock()
	if !m.locked {
		m.mu.Unlock()
		panic("task: release of unlocked Mutex")
	}
	if len(m.waiters) == 0 {
		m.locked = false
		m.mu.Unlock()
		return
	}
	next := m.waiters[0]
	m.waiters = m.waiters[1:]
	m.mu.Unlock()
	next.MarkComplete()
}

// Locked reports whether the lock is currently held.
func (m *Mutex) Locked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}
