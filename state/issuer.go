// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package state

import "sync"

// Listener receives a revision emission: the revision that is now
// current, the ordered changes that produced it, and the revision it
// replaced.
type Listener[R, C any] func(next R, changes []C, previous R)

// ListenerHandle identifies one registered listener for removal.
type ListenerHandle struct{ _ byte }

// Issuer holds the current revision of one room concern and fans
// emissions out to registered listeners.
//
// Updates are serialized: a second update cannot begin applying while
// a previous update's listener callbacks are still running. The new
// revision is swapped in before listeners run, so a listener that
// reads CurrentRevision during dispatch observes the revision it is
// being notified about.
type Issuer[R, C any] struct {
	updateMu sync.Mutex

	mu        sync.RWMutex
	current   R
	order     []*ListenerHandle
	listeners map[*ListenerHandle]Listener[R, C]
}

// NewIssuer returns an issuer holding the given initial revision.
func NewIssuer[R, C any](initial R) *Issuer[R, C] {
	return &Issuer[R, C]{
		current:   initial,
		listeners: map[*ListenerHandle]Listener[R, C]{},
	}
}

// CurrentRevision returns the revision most recently swapped in.
func (i *Issuer[R, C]) CurrentRevision() R {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.current
}

// OnRevision registers a listener. The returned handle deregisters it
// via OffRevision. Listeners are invoked in registration order.
func (i *Issuer[R, C]) OnRevision(listener Listener[R, C]) *ListenerHandle {
	handle := &ListenerHandle{}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.order = append(i.order, handle)
	i.listeners[handle] = listener
	return handle
}

// OffRevision deregisters a listener. Unknown handles are ignored.
func (i *Issuer[R, C]) OffRevision(handle *ListenerHandle) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.listeners[handle]; !ok {
		return
	}
	delete(i.listeners, handle)
	for index, h := range i.order {
		if h == handle {
			i.order = append(i.order[:index], i.order[index+1:]...)
			break
		}
	}
}

// UnregisterListeners detaches every listener without changing the
// revision. Used at teardown when a room stops being tracked.
func (i *Issuer[R, C]) UnregisterListeners() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.order = nil
	i.listeners = map[*ListenerHandle]Listener[R, C]{}
}

// Replace swaps in a revision without notifying listeners. Used for
// transitions that change nothing listeners observe, such as caching
// power levels on a policy revision.
func (i *Issuer[R, C]) Replace(next R) {
	i.updateMu.Lock()
	defer i.updateMu.Unlock()
	i.mu.Lock()
	i.current = next
	i.mu.Unlock()
}

// Advance swaps in the next revision and notifies listeners with the
// change list. Callers must not invoke Advance with an empty change
// list; skipping no-op batches is their responsibility.
func (i *Issuer[R, C]) Advance(next R, changes []C) {
	i.updateMu.Lock()
	defer i.updateMu.Unlock()

	i.mu.Lock()
	previous := i.current
	i.current = next
	dispatch := make([]Listener[R, C], 0, len(i.order))
	for _, handle := range i.order {
		dispatch = append(dispatch, i.listeners[handle])
	}
	i.mu.Unlock()

	for _, listener := range dispatch {
		listener(next, changes, previous)
	}
}
