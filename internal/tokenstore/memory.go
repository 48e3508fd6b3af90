package tokenstore

import (
	"context"
	"sync"

	"github.com/pribylovaa/kelibe/internal/models"
)

// Memory — хранилище в памяти процесса, безопасно для конкурентного доступа.
type Memory struct {
	mu   sync.RWMutex
	pair models.TokenPair
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get(_ context.Context) (models.TokenPair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.pair, nil
}

func (m *Memory) Set(_ context.Context, pair models.TokenPair) error {
	m.mu.Lock()
	m.pair = pair
	m.mu.Unlock()

	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.pair = models.TokenPair{}
	m.mu.Unlock()

	return nil
}
