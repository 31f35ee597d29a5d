package scripted

import (
	"context"
	"sync"

	"bridgesim/internal/app/ports"
)

// Provider replays a fixed per-agent script of decisions. It backs local
// runs and tests where a live model is unavailable; once an agent's script
// is exhausted it keeps answering with a passive action.
type Provider struct {
	mu      sync.Mutex
	scripts map[string][]ports.Decision
	cursor  map[string]int
}

func NewProvider(scripts map[string][]ports.Decision) *Provider {
	return &Provider{
		scripts: scripts,
		cursor:  make(map[string]int),
	}
}

func (p *Provider) Decide(_ context.Context, in ports.DecisionInput) (ports.Decision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	script := p.scripts[in.AgentID]
	i := p.cursor[in.AgentID]
	if i >= len(script) {
		return ports.Decision{ActionText: "Monitor situation"}, nil
	}
	p.cursor[in.AgentID] = i + 1
	return script[i], nil
}
