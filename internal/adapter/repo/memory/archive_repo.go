package memory

import (
	"context"
	"time"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
)

// ArchiveRepo keeps episode history in process memory. It backs tests and
// the server's no-database mode.
type ArchiveRepo struct {
	store *Store
}

func NewArchiveRepo(store *Store) ArchiveRepo {
	return ArchiveRepo{store: store}
}

func (r ArchiveRepo) CreateEpisode(_ context.Context, rec ports.EpisodeRecord) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec.ID = r.store.nextID
	r.store.nextID++
	r.store.episodes[rec.ID] = rec
	return rec.ID, nil
}

func (r ArchiveRepo) CloseEpisode(_ context.Context, episodeID int64, endedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	rec, ok := r.store.episodes[episodeID]
	if !ok {
		return ports.ErrNotFound
	}
	rec.EndedAt = &endedAt
	r.store.episodes[episodeID] = rec
	return nil
}

func (r ArchiveRepo) SaveSnapshot(_ context.Context, rec ports.SnapshotRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.snapshots[rec.EpisodeID] = append(r.store.snapshots[rec.EpisodeID], rec)
	return nil
}

func (r ArchiveRepo) SaveAllocations(_ context.Context, episodeID int64, allocations []resource.Allocation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.allocations[episodeID] = append(r.store.allocations[episodeID], allocations...)
	return nil
}

func (r ArchiveRepo) SaveConflicts(_ context.Context, episodeID int64, conflicts []resource.ConflictRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.conflicts[episodeID] = append(r.store.conflicts[episodeID], conflicts...)
	return nil
}

func (r ArchiveRepo) ListSnapshots(_ context.Context, episodeID int64, limit int) ([]ports.SnapshotRecord, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := r.store.snapshots[episodeID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]ports.SnapshotRecord, len(all))
	copy(out, all)
	return out, nil
}

func (r ArchiveRepo) ListAllocations(_ context.Context, episodeID int64, limit int) ([]resource.Allocation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	all := r.store.allocations[episodeID]
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]resource.Allocation, len(all))
	copy(out, all)
	return out, nil
}
