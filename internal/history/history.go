// Package history keeps per-context conversation turns in memory so that
// follow-up messages in the same A2A context see earlier exchanges.
package history

import (
	"sync"

	"calcagent/internal/llm"
)

// DefaultMaxMessages bounds the messages kept per context.
const DefaultMaxMessages = 50

type Store struct {
	mu          sync.Mutex
	maxMessages int
	turns       map[string][][]llm.Message
}

func NewStore(maxMessages int) *Store {
	return &Store{
		maxMessages: maxMessages,
		turns:       make(map[string][][]llm.Message),
	}
}

// SaveTurn appends one completed turn (the user message followed by
// everything the agent produced for it). Whole turns are evicted oldest
// first once the context exceeds the message bound, so a tool result is
// never kept without the call that produced it.
func (s *Store) SaveTurn(contextID string, turn []llm.Message) {
	if contextID == "" || len(turn) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.turns[contextID], append([]llm.Message(nil), turn...))
	for len(turns) > 1 && count(turns) > s.maxMessages {
		turns = turns[1:]
	}
	s.turns[contextID] = turns
}

// Load returns the stored messages for contextID in order.
func (s *Store) Load(contextID string) []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []llm.Message
	for _, turn := range s.turns[contextID] {
		out = append(out, turn...)
	}
	return out
}

// Forget drops everything stored for contextID.
func (s *Store) Forget(contextID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, contextID)
}

func count(turns [][]llm.Message) int {
	n := 0
	for _, t := range turns {
		n += len(t)
	}
	return n
}
