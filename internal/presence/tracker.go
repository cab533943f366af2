// Package presence tracks which users currently hold live socket
// connections. State is in-process only: it is rebuilt from live
// connections after a restart and makes no durability promise — it backs
// online indicators and "last seen", never message delivery.
package presence

import (
	"sync"
	"time"
)

type entry struct {
	socketIDs  map[string]struct{}
	lastSeenAt time.Time
}

// Tracker is safe for concurrent use from many connection handlers; all
// mutation goes through one mutex.
type Tracker struct {
	mu      sync.RWMutex
	entries map[uint]*entry
	now     func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		entries: make(map[uint]*entry),
		now:     time.Now,
	}
}

// Connect records a socket for the user, creating the entry on the first
// connection. Multi-device: one user may hold any number of sockets.
func (t *Tracker) Connect(userID uint, socketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok {
		e = &entry{socketIDs: make(map[string]struct{})}
		t.entries[userID] = e
	}
	e.socketIDs[socketID] = struct{}{}
	e.lastSeenAt = t.now()
}

// Disconnect removes a socket and drops the whole entry once the user's
// socket set drains.
func (t *Tracker) Disconnect(userID uint, socketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok {
		return
	}
	delete(e.socketIDs, socketID)
	if len(e.socketIDs) == 0 {
		delete(t.entries, userID)
	}
}

// Touch refreshes the liveness timestamp without changing the socket set.
func (t *Tracker) Touch(userID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[userID]; ok {
		e.lastSeenAt = t.now()
	}
}

// IsOnline reports whether the user holds at least one live socket.
func (t *Tracker) IsOnline(userID uint) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[userID]
	return ok
}

// OnlineCount returns the number of distinct online users.
func (t *Tracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// ActiveUserIDs returns users seen within the given window; a non-positive
// window returns everyone currently connected.
func (t *Tracker) ActiveUserIDs(within time.Duration) []uint {
	t.mu.RLock()
	defer t.mu.RUnlock()
	cutoff := t.now().Add(-within)
	ids := make([]uint, 0, len(t.entries))
	for id, e := range t.entries {
		if within <= 0 || !e.lastSeenAt.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
