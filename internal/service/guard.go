package service

import (
	"context"
	"sync"
	"time"
)

// Guard is a mutual-exclusion primitive with bounded-wait acquisition.
// Bounded waits are what make the transfer path deadlock-free: a holder of
// one guard can never wait forever on another, so no circular wait can form.
type Guard struct {
	ch chan struct{}
}

// NewGuard creates a released guard.
func NewGuard() *Guard {
	return &Guard{ch: make(chan struct{}, 1)}
}

// Acquire takes the guard, waiting at most timeout. It returns false when
// the wait times out or ctx is cancelled first.
func (g *Guard) Acquire(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case g.ch <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Release frees the guard. Calling Release on a guard that is not held is a
// programming error and panics.
func (g *Guard) Release() {
	select {
	case <-g.ch:
	default:
		panic("service: release of unheld guard")
	}
}

// guardTable hands out one guard per account id, created lazily. Entries
// live for the process lifetime; the population is bounded by the number of
// accounts ever transferred.
type guardTable struct {
	mu     sync.Mutex
	guards map[string]*Guard
}

func newGuardTable() *guardTable {
	return &guardTable{guards: make(map[string]*Guard)}
}

func (t *guardTable) guardFor(id string) *Guard {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.guards[id]
	if !ok {
		g = NewGuard()
		t.guards[id] = g
	}
	return g
}
