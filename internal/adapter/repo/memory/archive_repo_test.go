package memory

import (
	"context"
	"testing"
	"time"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
)

var _ ports.ArchiveRepository = ArchiveRepo{}
var _ ports.TxManager = TxManager{}

func TestArchiveRepoEpisodeLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewArchiveRepo(NewStore())

	id, err := repo.CreateEpisode(ctx, ports.EpisodeRecord{Policy: "priority", StartedAt: time.Now()})
	if err != nil {
		t.Fatalf("CreateEpisode: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first episode id 1, got %d", id)
	}

	id2, _ := repo.CreateEpisode(ctx, ports.EpisodeRecord{Policy: "fair_share", StartedAt: time.Now()})
	if id2 != 2 {
		t.Fatalf("expected second episode id 2, got %d", id2)
	}

	if err := repo.CloseEpisode(ctx, id, time.Now()); err != nil {
		t.Fatalf("CloseEpisode: %v", err)
	}
	if err := repo.CloseEpisode(ctx, 99, time.Now()); err != ports.ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown episode, got %v", err)
	}
}

func TestArchiveRepoSnapshotLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewArchiveRepo(NewStore())
	id, _ := repo.CreateEpisode(ctx, ports.EpisodeRecord{StartedAt: time.Now()})

	for i := 0; i < 5; i++ {
		err := repo.SaveSnapshot(ctx, ports.SnapshotRecord{
			EpisodeID: id,
			AgentID:   "engineer",
			Reason:    "routine",
			StateJSON: []byte(`{}`),
			CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
	}

	got, err := repo.ListSnapshots(ctx, id, 3)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 snapshots with limit, got %d", len(got))
	}

	all, _ := repo.ListSnapshots(ctx, id, 0)
	if len(all) != 5 {
		t.Fatalf("expected all 5 snapshots without limit, got %d", len(all))
	}
}

func TestArchiveRepoAllocations(t *testing.T) {
	ctx := context.Background()
	repo := NewArchiveRepo(NewStore())
	id, _ := repo.CreateEpisode(ctx, ports.EpisodeRecord{StartedAt: time.Now()})

	err := repo.SaveAllocations(ctx, id, []resource.Allocation{
		{AgentID: "captain", Type: resource.TypePower, Requested: 100, Allocated: 100, Success: true, Round: 1},
		{AgentID: "engineer", Type: resource.TypePower, Requested: 50, Allocated: 0, Round: 1},
	})
	if err != nil {
		t.Fatalf("SaveAllocations: %v", err)
	}

	got, err := repo.ListAllocations(ctx, id, 0)
	if err != nil {
		t.Fatalf("ListAllocations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(got))
	}
	if got[0].AgentID != "captain" || !got[0].Success {
		t.Fatalf("unexpected first allocation: %+v", got[0])
	}
}
