package episode

import (
	"context"
	"errors"
	"testing"

	"bridgesim/internal/app/ports"
)

func TestManagerSingleActiveEpisode(t *testing.T) {
	ctx := context.Background()
	m := NewManager(Deps{
		Archive: &fakeArchive{},
		Decider: &scriptedDecider{decisions: map[string]ports.Decision{}},
	})

	if _, err := m.Current(); !errors.Is(err, ErrNoActiveEpisode) {
		t.Fatalf("expected ErrNoActiveEpisode before start, got %v", err)
	}

	ep, err := m.Start(ctx, Config{Agents: []string{"captain"}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	cur, err := m.Current()
	if err != nil || cur != ep {
		t.Fatalf("expected current episode, got %v err=%v", cur, err)
	}

	if _, err := m.Start(ctx, Config{}); !errors.Is(err, ErrEpisodeActive) {
		t.Fatalf("expected ErrEpisodeActive, got %v", err)
	}

	id, err := m.End(ctx)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if id != ep.ID {
		t.Fatalf("expected ended id %d, got %d", ep.ID, id)
	}
	if _, err := m.End(ctx); !errors.Is(err, ErrNoActiveEpisode) {
		t.Fatalf("expected ErrNoActiveEpisode after end, got %v", err)
	}

	if _, err := m.Start(ctx, Config{Agents: []string{"captain"}}); err != nil {
		t.Fatalf("restart after end: %v", err)
	}
}
