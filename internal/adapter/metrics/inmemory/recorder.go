package inmemory

import "sync"

type Snapshot struct {
	RoundTotal       uint64 `json:"round_total"`
	AllocationTotal  uint64 `json:"allocation_total"`
	ConflictTotal    uint64 `json:"conflict_total"`
	SkippedAgents    uint64 `json:"skipped_agents"`
	DecisionTimeouts uint64 `json:"decision_timeouts"`
	DecisionFailures uint64 `json:"decision_failures"`
	ArchiveFailures  uint64 `json:"archive_failures"`
}

type Recorder struct {
	mu               sync.Mutex
	rounds           uint64
	allocations      uint64
	conflicts        uint64
	skipped          uint64
	decisionTimeouts uint64
	decisionFailures uint64
	archiveFailures  uint64
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RecordRound(allocations, conflicts, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds++
	r.allocations += uint64(allocations)
	r.conflicts += uint64(conflicts)
	r.skipped += uint64(skipped)
}

func (r *Recorder) RecordDecisionTimeout() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisionTimeouts++
}

func (r *Recorder) RecordDecisionFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisionFailures++
}

func (r *Recorder) RecordArchiveFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.archiveFailures++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		RoundTotal:       r.rounds,
		AllocationTotal:  r.allocations,
		ConflictTotal:    r.conflicts,
		SkippedAgents:    r.skipped,
		DecisionTimeouts: r.decisionTimeouts,
		DecisionFailures: r.decisionFailures,
		ArchiveFailures:  r.archiveFailures,
	}
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
