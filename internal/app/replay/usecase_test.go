package replay

import (
	"context"
	"errors"
	"testing"
	"time"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
)

func TestUseCase_ReturnsDecodedSnapshots(t *testing.T) {
	repo := fakeArchive{
		snapshots: []ports.SnapshotRecord{
			{EpisodeID: 7, AgentID: "engineer", Reason: "asteroid impact",
				StateJSON: []byte(`{"hull_integrity":70}`), CreatedAt: time.Unix(100, 0)},
			{EpisodeID: 7, AgentID: "system", Reason: "resource_arbitration",
				StateJSON: []byte(`not json`), CreatedAt: time.Unix(101, 0)},
		},
		allocations: []resource.Allocation{
			{AgentID: "engineer", Type: resource.TypePower, Requested: 60, Allocated: 60, Success: true},
		},
	}

	out, err := UseCase{Archive: repo}.Execute(context.Background(), Request{EpisodeID: 7, Limit: 10})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(out.Snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(out.Snapshots))
	}
	if got := out.Snapshots[0].State["hull_integrity"]; got != float64(70) {
		t.Fatalf("decoded hull = %v", got)
	}
	if _, ok := out.Snapshots[1].State["decode_error"]; !ok {
		t.Fatal("corrupt payload should surface a decode_error marker")
	}
	if len(out.Allocations) != 1 {
		t.Fatalf("allocations = %d, want 1", len(out.Allocations))
	}
}

func TestUseCase_RejectsMissingEpisode(t *testing.T) {
	if _, err := (UseCase{Archive: fakeArchive{}}).Execute(context.Background(), Request{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

type fakeArchive struct {
	snapshots   []ports.SnapshotRecord
	allocations []resource.Allocation
}

func (r fakeArchive) CreateEpisode(_ context.Context, _ ports.EpisodeRecord) (int64, error) {
	return 0, nil
}

func (r fakeArchive) CloseEpisode(_ context.Context, _ int64, _ time.Time) error {
	return nil
}

func (r fakeArchive) SaveSnapshot(_ context.Context, _ ports.SnapshotRecord) error {
	return nil
}

func (r fakeArchive) SaveAllocations(_ context.Context, _ int64, _ []resource.Allocation) error {
	return nil
}

func (r fakeArchive) SaveConflicts(_ context.Context, _ int64, _ []resource.ConflictRecord) error {
	return nil
}

func (r fakeArchive) ListSnapshots(_ context.Context, _ int64, _ int) ([]ports.SnapshotRecord, error) {
	return r.snapshots, nil
}

func (r fakeArchive) ListAllocations(_ context.Context, _ int64, _ int) ([]resource.Allocation, error) {
	return r.allocations, nil
}

var _ ports.ArchiveRepository = fakeArchive{}
