// Package tokenstore provides token slots that live outside redis: an
// in-process map for single-instance portals and a file for the CLI.
package tokenstore

import (
	"context"
	"sync"

	"github.com/hirelane/portal/internal/core/ports"
)

// Memory keeps one token per tab in process memory. Tokens are lost on
// restart, so returning tabs start logged out.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]string)}
}

// Slot returns the storage slot of tabID.
func (m *Memory) Slot(tabID string) ports.TokenStorage {
	return &memorySlot{store: m, tabID: tabID}
}

type memorySlot struct {
	store *Memory
	tabID string
}

func (s *memorySlot) Load(context.Context) (string, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	return s.store.tokens[s.tabID], nil
}

func (s *memorySlot) Save(_ context.Context, token string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.tokens[s.tabID] = token
	return nil
}

func (s *memorySlot) Clear(context.Context) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	delete(s.store.tokens, s.tabID)
	return nil
}
