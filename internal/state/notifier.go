// Package state holds the reactive in-memory caches over the record
// services. Each container owns its cache exclusively and mutates it only
// through its own action methods; persisted storage stays authoritative.
package state

import "sync"

// notifier fans out change ticks to subscribers. Sends never block; a
// subscriber that has not drained its channel simply coalesces ticks.
type notifier struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// Subscribe registers a change listener. The returned cancel func must be
// called when the listener goes away.
func (n *notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]chan struct{})
	}
	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch
	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
