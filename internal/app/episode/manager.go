package episode

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNoActiveEpisode = errors.New("no active episode")
	ErrEpisodeActive   = errors.New("episode already active")
)

// Manager tracks the process's single active episode. Starting a new one
// requires ending the previous one first.
type Manager struct {
	mu      sync.Mutex
	deps    Deps
	current *Episode
}

func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps}
}

func (m *Manager) Start(ctx context.Context, cfg Config) (*Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil, ErrEpisodeActive
	}
	ep, err := Begin(ctx, cfg, m.deps)
	if err != nil {
		return nil, err
	}
	m.current = ep
	return ep, nil
}

func (m *Manager) Current() (*Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoActiveEpisode
	}
	return m.current, nil
}

// End closes the active episode. The slot is freed even when the archive
// close fails; the error is still returned so callers can log it.
func (m *Manager) End(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return 0, ErrNoActiveEpisode
	}
	ep := m.current
	m.current = nil
	return ep.ID, ep.End(ctx)
}
