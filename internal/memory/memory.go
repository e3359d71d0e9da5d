// Package memory keeps a bounded, ordered log of conversation turns per conversation id.
package memory

import (
	"context"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultMaxTurns is the per-conversation cap used when none is configured.
const DefaultMaxTurns = 20

type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the conversation memory contract. Get returns turns oldest first.
type Store interface {
	Append(ctx context.Context, conversationID string, role Role, content string) error
	Get(ctx context.Context, conversationID string) ([]Turn, error)
	Clear(ctx context.Context, conversationID string) error
}

type conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// InMemory is a process-local Store. Nothing survives a restart.
type InMemory struct {
	maxTurns int
	now      func() time.Time

	mu    sync.RWMutex
	convs map[string]*conversation
}

func NewInMemory(maxTurns int) *InMemory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &InMemory{
		maxTurns: maxTurns,
		now:      time.Now,
		convs:    make(map[string]*conversation),
	}
}

func (m *InMemory) conversation(id string, create bool) *conversation {
	m.mu.RLock()
	c, ok := m.convs[id]
	m.mu.RUnlock()
	if ok || !create {
		return c
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = m.convs[id]; ok {
		return c
	}
	c = &conversation{}
	m.convs[id] = c
	return c
}

func (m *InMemory) Append(_ context.Context, conversationID string, role Role, content string) error {
	c := m.conversation(conversationID, true)
	c.mu.Lock()
	defer c.mu.Unlock()

	// make room first so the log never holds more than maxTurns
	if excess := len(c.turns) + 1 - m.maxTurns; excess > 0 {
		c.turns = append(c.turns[:0:0], c.turns[excess:]...)
	}
	c.turns = append(c.turns, Turn{Role: role, Content: content, Timestamp: m.now()})
	return nil
}

func (m *InMemory) Get(_ context.Context, conversationID string) ([]Turn, error) {
	c := m.conversation(conversationID, false)
	if c == nil {
		return []Turn{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out, nil
}

func (m *InMemory) Clear(_ context.Context, conversationID string) error {
	m.mu.Lock()
	delete(m.convs, conversationID)
	m.mu.Unlock()
	return nil
}
