package protocol

import (
	"sync"
	"time"
)

// Registry tracks every connection a run has opened so process shutdown
// can close stragglers. Sessions register on dial and deregister once
// their socket closes; a retrying session briefly holds two entries while
// the old socket drains.
type Registry struct {
	mu     sync.Mutex
	nextID int64
	conns  map[int64]Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

func (r *Registry) add(c Conn) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.conns[r.nextID] = c
	return r.nextID
}

func (r *Registry) remove(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
}

// Open reports how many connections are still registered.
func (r *Registry) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// CloseAll waits up to grace for registered connections to drain on their
// own, then force-closes whatever remains. This is cancellation by
// deadline, not graceful shutdown.
func (r *Registry) CloseAll(grace time.Duration) {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if r.Open() == 0 {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.conns {
		_ = c.Close()
		delete(r.conns, id)
	}
}
