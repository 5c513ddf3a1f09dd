package conversation

import "sync"

// conversationLocks serializes turn processing per conversation id. Messages
// for one conversation are handled in arrival order; different conversations
// proceed in parallel. Entries are refcounted so idle conversations do not
// accumulate mutexes.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*lockEntry)}
}

// Lock acquires the per-conversation mutex, creating it on first use.
func (c *conversationLocks) Lock(conversationID string) {
	c.mu.Lock()
	entry, ok := c.locks[conversationID]
	if !ok {
		entry = &lockEntry{}
		c.locks[conversationID] = entry
	}
	entry.refs++
	c.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the per-conversation mutex, dropping it when no other turn
// is waiting.
func (c *conversationLocks) Unlock(conversationID string) {
	c.mu.Lock()
	entry, ok := c.locks[conversationID]
	if !ok {
		c.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(c.locks, conversationID)
	}
	c.mu.Unlock()

	entry.mu.Unlock()
}
