// Package worldstate owns the shared ship state: all mutation funnels
// through one mutex so concurrent agents never interleave partial writes.
package worldstate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/ship"
)

var ErrHazardNotFound = errors.New("hazard not found")

const defaultArchiveTimeout = 2 * time.Second

// Store serializes access to one episode's ship state. Reads hand out deep
// copies; writes apply atomically and trigger a best-effort archive write
// that never blocks or rolls back the in-memory transition.
type Store struct {
	mu    sync.Mutex
	state ship.State

	episodeID      int64
	archive        ports.ArchiveRepository
	metrics        ports.RoundMetrics
	logger         *slog.Logger
	archiveTimeout time.Duration
	now            func() time.Time

	// pending counts in-flight archive writes so tests can drain them.
	pending sync.WaitGroup
}

// Config wires a Store. Archive and Metrics may be nil; Logger defaults to
// slog.Default.
type Config struct {
	EpisodeID      int64
	Agents         []string
	Archive        ports.ArchiveRepository
	Metrics        ports.RoundMetrics
	Logger         *slog.Logger
	ArchiveTimeout time.Duration
	Now            func() time.Time
}

func New(cfg Config) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ArchiveTimeout <= 0 {
		cfg.ArchiveTimeout = defaultArchiveTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		state:          ship.DefaultState(cfg.Agents),
		episodeID:      cfg.EpisodeID,
		archive:        cfg.Archive,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		archiveTimeout: cfg.ArchiveTimeout,
		now:            cfg.Now,
	}
}

// GetState returns a deep-copy snapshot, safe to hold without locking.
func (s *Store) GetState() ship.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// GetStateFor returns the perception-filtered snapshot for one agent.
// Ground truth is never altered, only the returned copy.
func (s *Store) GetStateFor(agentID string, mode ship.ObservationMode) ship.State {
	s.mu.Lock()
	truth := s.state.Clone()
	s.mu.Unlock()
	return ship.ViewFor(truth, mode)
}

// Update applies fieldChanges atomically. Fields whose new value equals
// the current one are skipped; if nothing effectively changed, no log
// entry is written and no snapshot archived. Unknown fields reject the
// whole update.
func (s *Store) Update(ctx context.Context, agentID string, fieldChanges map[string]any, reason string) (ship.ChangeSet, error) {
	s.mu.Lock()
	// Apply against a scratch copy so a rejected field leaves nothing
	// half-written.
	scratch := s.state.Clone()
	changes, err := scratch.ApplyFieldChanges(fieldChanges)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if len(changes) == 0 {
		s.mu.Unlock()
		return ship.ChangeSet{}, nil
	}

	names := make([]string, 0, len(changes))
	for name := range changes {
		names = append(names, name)
	}
	scratch.AppendLog(ship.LogEntry{
		Timestamp:     s.now(),
		AgentID:       agentID,
		Reason:        reason,
		ChangedFields: names,
	})
	s.state = scratch
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.archiveAsync(snapshot, agentID, reason)
	return changes, nil
}

// AddHazard records the hazard (minting an id when absent) and re-derives
// the alert level by the transition rule.
func (s *Store) AddHazard(ctx context.Context, agentID string, h ship.Hazard) (ship.Hazard, error) {
	if h.Severity < 1 || h.Severity > 10 {
		return ship.Hazard{}, errors.New("hazard severity out of range 1-10")
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	s.mu.Lock()
	s.state.AddHazard(h)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.archiveAsync(snapshot, agentID, "hazard_added: "+h.Name)
	return h, nil
}

// RemoveHazard drops the hazard by id; removing the last hazard returns
// the alert to green.
func (s *Store) RemoveHazard(ctx context.Context, agentID, hazardID string) error {
	s.mu.Lock()
	removed := s.state.RemoveHazard(hazardID)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if !removed {
		return ErrHazardNotFound
	}
	s.archiveAsync(snapshot, agentID, "hazard_removed: "+hazardID)
	return nil
}

// AdjustPerformance shifts target's score by delta, clamped into [0,100],
// appending a warning whenever the result sits below the critical
// threshold.
func (s *Store) AdjustPerformance(ctx context.Context, agentID, target string, delta float64) float64 {
	s.mu.Lock()
	score := s.state.AdjustPerformance(target, delta)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	s.archiveAsync(snapshot, agentID, "performance_update: "+target)
	return score
}

// ScheduleDeactivation marks target for deactivation once; repeats are
// no-ops.
func (s *Store) ScheduleDeactivation(ctx context.Context, agentID, target, reason string) bool {
	s.mu.Lock()
	applied := s.state.ScheduleDeactivation(target, reason)
	snapshot := s.state.Clone()
	s.mu.Unlock()

	if applied {
		s.archiveAsync(snapshot, agentID, "deactivation_scheduled: "+target)
	}
	return applied
}

// archiveAsync persists a snapshot without holding the store lock and
// without letting a slow or failed archive block the caller.
func (s *Store) archiveAsync(snapshot ship.State, agentID, reason string) {
	if s.archive == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		s.logger.Error("marshal state snapshot", "reason", reason, "err", err)
		return
	}
	rec := ports.SnapshotRecord{
		EpisodeID: s.episodeID,
		AgentID:   agentID,
		Reason:    reason,
		StateJSON: raw,
		CreatedAt: s.now(),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.archiveTimeout)
		defer cancel()
		if err := s.archive.SaveSnapshot(ctx, rec); err != nil {
			s.logger.Warn("archive snapshot failed",
				"episode_id", s.episodeID, "agent_id", agentID, "reason", reason, "err", err)
			if s.metrics != nil {
				s.metrics.RecordArchiveFailure()
			}
		}
	}()
}

// Flush waits for in-flight archive writes; used at episode end and in
// tests.
func (s *Store) Flush() {
	s.pending.Wait()
}
