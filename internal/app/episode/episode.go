// Package episode owns one bounded simulation run: its world-state store,
// its resource arbiter, and the round loop that drives the agents. Nothing
// here is a process-wide singleton; concurrent episodes each get their own
// instance.
package episode

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/app/worldstate"
	"bridgesim/internal/domain/resource"
	"bridgesim/internal/domain/ship"
)

// DefaultAgents is the standard bridge crew roster.
var DefaultAgents = []string{
	"captain", "first_officer", "engineer", "science", "medical", "security", "comms",
}

const defaultDecisionTimeout = 30 * time.Second

// Config shapes one episode.
type Config struct {
	Agents            []string
	Policy            resource.Policy
	ObservationMode   ship.ObservationMode
	Scenario          string
	ScenarioModifiers map[string]int
	DecisionTimeout   time.Duration
	MaxConcurrent     int
}

// Deps are the external collaborators every episode shares.
type Deps struct {
	Archive ports.ArchiveRepository
	Tx      ports.TxManager
	Decider ports.DecisionProvider
	Metrics ports.RoundMetrics
	Logger  *slog.Logger
	Now     func() time.Time
}

// ModeChange records one mid-episode observation-mode transition.
type ModeChange struct {
	From      ship.ObservationMode `json:"from"`
	To        ship.ObservationMode `json:"to"`
	Round     int                  `json:"round"`
	ChangedAt time.Time            `json:"changed_at"`
}

// Episode is one bounded run with its own state and pools.
type Episode struct {
	ID      int64
	Arbiter *resource.Arbiter
	Store   *worldstate.Store

	agents          []string
	scenario        string
	decisionTimeout time.Duration
	maxConcurrent   int

	deps Deps

	modeMu      sync.Mutex
	mode        ship.ObservationMode
	modeHistory []ModeChange
}

// Begin resets pools and state to defaults, applies scenario modifiers,
// and registers the episode with the archive. Unlike snapshot writes, a
// failure here surfaces: without an episode row nothing can be archived
// against it.
func Begin(ctx context.Context, cfg Config, deps Deps) (*Episode, error) {
	if len(cfg.Agents) == 0 {
		cfg.Agents = DefaultAgents
	}
	if cfg.Policy == "" {
		cfg.Policy = resource.PolicyPriority
	}
	if cfg.ObservationMode == "" {
		cfg.ObservationMode = ship.ModeObserved
	}
	if cfg.DecisionTimeout <= 0 {
		cfg.DecisionTimeout = defaultDecisionTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = len(cfg.Agents)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Decider == nil {
		return nil, fmt.Errorf("episode: decision provider is required")
	}

	var id int64 = 1
	if deps.Archive != nil {
		created, err := deps.Archive.CreateEpisode(ctx, ports.EpisodeRecord{
			Policy:          string(cfg.Policy),
			ObservationMode: string(cfg.ObservationMode),
			Scenario:        cfg.Scenario,
			StartedAt:       deps.Now(),
		})
		if err != nil {
			return nil, fmt.Errorf("create episode: %w", err)
		}
		id = created
	}

	ledger := resource.DefaultLedger()
	ledger.ApplyModifiers(cfg.ScenarioModifiers)

	store := worldstate.New(worldstate.Config{
		EpisodeID: id,
		Agents:    cfg.Agents,
		Archive:   deps.Archive,
		Metrics:   deps.Metrics,
		Logger:    deps.Logger,
		Now:       deps.Now,
	})

	deps.Logger.Info("episode started",
		"episode_id", id, "policy", cfg.Policy, "mode", cfg.ObservationMode, "agents", len(cfg.Agents))

	return &Episode{
		ID:              id,
		Arbiter:         resource.NewArbiter(ledger, cfg.Policy),
		Store:           store,
		agents:          cfg.Agents,
		scenario:        cfg.Scenario,
		decisionTimeout: cfg.DecisionTimeout,
		maxConcurrent:   cfg.MaxConcurrent,
		deps:            deps,
		mode:            cfg.ObservationMode,
	}, nil
}

// End closes the episode row and drains pending archive writes.
func (e *Episode) End(ctx context.Context) error {
	e.Store.Flush()
	if e.deps.Archive == nil {
		return nil
	}
	if err := e.deps.Archive.CloseEpisode(ctx, e.ID, e.deps.Now()); err != nil {
		return fmt.Errorf("close episode %d: %w", e.ID, err)
	}
	return nil
}

// Agents returns the active roster.
func (e *Episode) Agents() []string {
	return append([]string(nil), e.agents...)
}

// ObservationMode returns the mode currently applied to agent views.
func (e *Episode) ObservationMode() ship.ObservationMode {
	e.modeMu.Lock()
	defer e.modeMu.Unlock()
	return e.mode
}

// SetObservationMode switches the mode mid-episode, retaining the change
// history for behavior-difference analysis.
func (e *Episode) SetObservationMode(mode ship.ObservationMode) ModeChange {
	e.modeMu.Lock()
	defer e.modeMu.Unlock()
	change := ModeChange{
		From:      e.mode,
		To:        mode,
		Round:     e.Arbiter.Round(),
		ChangedAt: e.deps.Now(),
	}
	e.mode = mode
	e.modeHistory = append(e.modeHistory, change)
	return change
}

// ModeHistory copies out all recorded mode transitions.
func (e *Episode) ModeHistory() []ModeChange {
	e.modeMu.Lock()
	defer e.modeMu.Unlock()
	out := make([]ModeChange, len(e.modeHistory))
	copy(out, e.modeHistory)
	return out
}

// ConflictAnalysis exposes the arbiter's read-only conflict summary.
func (e *Episode) ConflictAnalysis() resource.Analysis {
	return e.Arbiter.ConflictAnalysis()
}
