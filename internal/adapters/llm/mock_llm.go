package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/PabloGalante/solace-api/internal/domain"
)

// MockLLM is a deterministic domain.ModelGateway for local mode and tests.
type MockLLM struct {
	mu    sync.Mutex
	turns map[domain.ConversationHandle]int
}

func NewMockLLM() *MockLLM {
	return &MockLLM{
		turns: make(map[domain.ConversationHandle]int),
	}
}

func (m *MockLLM) OpenConversation(_ context.Context) (domain.ConversationHandle, error) {
	handle := domain.ConversationHandle(uuid.NewString())

	m.mu.Lock()
	m.turns[handle] = 0
	m.mu.Unlock()

	return handle, nil
}

func (m *MockLLM) Send(_ context.Context, handle domain.ConversationHandle, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.turns[handle]
	if !ok {
		return "", fmt.Errorf("conversation %q: %w", handle, domain.ErrSessionNotFound)
	}
	m.turns[handle] = n + 1

	if n == 0 {
		// First turn is the context priming.
		return "Welcome to your session. How are you feeling today?", nil
	}
	return fmt.Sprintf("I hear you. You said %q. Tell me a little more about how that makes you feel.", text), nil
}

func (m *MockLLM) GenerateOnce(_ context.Context, text string) (string, error) {
	return fmt.Sprintf("Mock answer to a %d character prompt.", len(text)), nil
}

func (m *MockLLM) CloseConversation(_ context.Context, handle domain.ConversationHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.turns[handle]; !ok {
		return fmt.Errorf("conversation %q: %w", handle, domain.ErrSessionNotFound)
	}
	delete(m.turns, handle)
	return nil
}

// Conversations returns how many conversations are open.
func (m *MockLLM) Conversations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
