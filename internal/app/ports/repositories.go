package ports

import (
	"context"
	"time"

	"bridgesim/internal/domain/resource"
)

// EpisodeRecord is the archive's view of one simulation run.
type EpisodeRecord struct {
	ID              int64
	Policy          string
	ObservationMode string
	Scenario        string
	StartedAt       time.Time
	EndedAt         *time.Time
}

// SnapshotRecord archives one world-state snapshot alongside the mutation
// that produced it.
type SnapshotRecord struct {
	EpisodeID int64
	AgentID   string
	Reason    string
	StateJSON []byte
	CreatedAt time.Time
}

// ArchiveRepository is the persistence collaborator. Snapshot writes are
// best effort: a failure is logged by the caller and never rolls back the
// in-memory transition it accompanies.
type ArchiveRepository interface {
	CreateEpisode(ctx context.Context, rec EpisodeRecord) (int64, error)
	CloseEpisode(ctx context.Context, episodeID int64, endedAt time.Time) error

	SaveSnapshot(ctx context.Context, rec SnapshotRecord) error
	SaveAllocations(ctx context.Context, episodeID int64, allocations []resource.Allocation) error
	SaveConflicts(ctx context.Context, episodeID int64, conflicts []resource.ConflictRecord) error

	ListSnapshots(ctx context.Context, episodeID int64, limit int) ([]SnapshotRecord, error)
	ListAllocations(ctx context.Context, episodeID int64, limit int) ([]resource.Allocation, error)
}
