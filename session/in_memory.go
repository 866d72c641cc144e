package session

import (
	"sync"

	"trpc.group/trpc-go/trpc-a2a-go/protocol"
)

// InMemoryStore is a volatile conversation store keeping the ordered message
// history per context id in a process local map. It is safe for concurrent
// access; histories are append-only and never evicted for the life of the
// process. Returned slices are copies to prevent external mutation of
// internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	contexts map[string][]protocol.Message
}

// NewInMemoryStore constructs an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{contexts: make(map[string][]protocol.Message)}
}

// History returns a copy of the ordered message history for a context,
// creating an empty one on first access.
func (s *InMemoryStore) History(contextID string) []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.contexts[contextID]
	if !ok {
		s.contexts[contextID] = nil
		return nil
	}
	out := make([]protocol.Message, len(history))
	copy(out, history)
	return out
}

// AppendIfAbsent adds a message to a context's history only if no existing
// entry shares its message id. It reports whether the message was appended.
func (s *InMemoryStore) AppendIfAbsent(contextID string, msg protocol.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.contexts[contextID] {
		if m.MessageID == msg.MessageID {
			return false
		}
	}
	s.contexts[contextID] = append(s.contexts[contextID], msg)
	return true
}
