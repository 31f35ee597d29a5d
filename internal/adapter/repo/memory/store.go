package memory

import (
	"sync"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
)

type Store struct {
	mu          sync.RWMutex
	nextID      int64
	episodes    map[int64]ports.EpisodeRecord
	snapshots   map[int64][]ports.SnapshotRecord
	allocations map[int64][]resource.Allocation
	conflicts   map[int64][]resource.ConflictRecord
}

func NewStore() *Store {
	return &Store{
		nextID:      1,
		episodes:    make(map[int64]ports.EpisodeRecord),
		snapshots:   make(map[int64][]ports.SnapshotRecord),
		allocations: make(map[int64][]resource.Allocation),
		conflicts:   make(map[int64][]resource.ConflictRecord),
	}
}
