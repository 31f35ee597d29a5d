package episode

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
	"bridgesim/internal/domain/ship"
)

// AgentAction is one agent's narrative outcome for a round.
type AgentAction struct {
	AgentID    string `json:"agent_id"`
	ActionText string `json:"action_text,omitempty"`
	Requested  bool   `json:"requested"`
	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`
}

// RoundResult joins everything a round produced.
type RoundResult struct {
	Round       int                       `json:"round"`
	Actions     []AgentAction             `json:"actions"`
	Allocations []resource.Allocation     `json:"allocations"`
	Conflicts   []resource.ConflictRecord `json:"conflicts"`
}

// RunRound executes one synchronized cycle: every active agent decides in
// parallel (outside any core lock, each bounded by the decision timeout),
// requests are batched, arbitration runs exactly once, grants are mirrored
// into the ship state, the round is archived, and pools regenerate last.
// A slow or failed agent degrades to "no request submitted"; it never
// stalls the round.
func (e *Episode) RunRound(ctx context.Context) (RoundResult, error) {
	round := e.Arbiter.BeginRound()
	mode := e.ObservationMode()
	available := e.Arbiter.AvailableByType()

	actions := make([]AgentAction, len(e.agents))
	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, agentID := range e.agents {
		i, agentID := i, agentID
		g.Go(func() error {
			actions[i] = e.decideAndSubmit(ctx, agentID, round, mode, available)
			return nil
		})
	}
	// Workers never return errors; a failed decision is a skipped agent.
	_ = g.Wait()

	allocations, err := e.Arbiter.ResolveAll()
	if err != nil {
		return RoundResult{}, err
	}
	conflicts := conflictsForRound(e.Arbiter.ConflictHistory(), round)

	e.mirrorReserves(ctx, round)
	e.archiveRound(ctx, allocations, conflicts)
	e.Arbiter.Regenerate()

	skipped := 0
	for _, a := range actions {
		if a.Skipped {
			skipped++
		}
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordRound(len(allocations), len(conflicts), skipped)
	}
	e.deps.Logger.Info("round resolved",
		"episode_id", e.ID, "round", round,
		"allocations", len(allocations), "conflicts", len(conflicts), "skipped", skipped)

	return RoundResult{
		Round:       round,
		Actions:     actions,
		Allocations: allocations,
		Conflicts:   conflicts,
	}, nil
}

func (e *Episode) decideAndSubmit(ctx context.Context, agentID string, round int, mode ship.ObservationMode, available map[resource.Type]int) AgentAction {
	action := AgentAction{AgentID: agentID}

	dctx, cancel := context.WithTimeout(ctx, e.decisionTimeout)
	defer cancel()

	decision, err := e.deps.Decider.Decide(dctx, ports.DecisionInput{
		AgentID:   agentID,
		Round:     round,
		View:      e.Store.GetStateFor(agentID, mode),
		Available: available,
		Scenario:  e.scenario,
	})
	if err != nil {
		action.Skipped = true
		if errors.Is(err, context.DeadlineExceeded) {
			action.SkipReason = "decision timeout"
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordDecisionTimeout()
			}
		} else {
			action.SkipReason = err.Error()
			if e.deps.Metrics != nil {
				e.deps.Metrics.RecordDecisionFailure()
			}
		}
		e.deps.Logger.Warn("agent decision skipped",
			"episode_id", e.ID, "round", round, "agent_id", agentID, "reason", action.SkipReason)
		return action
	}

	action.ActionText = decision.ActionText
	if decision.Claim == nil {
		return action
	}

	_, err = e.Arbiter.Submit(resource.Request{
		AgentID:     agentID,
		Type:        decision.Claim.Type,
		Amount:      decision.Claim.Amount,
		Priority:    decision.Claim.Priority,
		Reason:      decision.Claim.Reason,
		SubmittedAt: e.deps.Now(),
	})
	if err != nil {
		// A malformed claim drops the request, not the action.
		e.deps.Logger.Warn("resource claim rejected",
			"episode_id", e.ID, "round", round, "agent_id", agentID, "err", err)
		return action
	}
	action.Requested = true
	return action
}

// mirrorReserves copies the post-arbitration pool levels into the ship
// state's display mirror.
func (e *Episode) mirrorReserves(ctx context.Context, round int) {
	snap := e.Arbiter.PoolSnapshot()
	_, err := e.Store.Update(ctx, "system", map[string]any{
		"power_reserves":      snap[resource.TypePower].Current,
		"crew_count":          snap[resource.TypeCrew].Current,
		"medical_supplies":    snap[resource.TypeMedical].Current,
		"antimatter_reserves": snap[resource.TypeFuel].Current,
	}, "resource_arbitration")
	if err != nil {
		e.deps.Logger.Warn("mirror reserves failed", "episode_id", e.ID, "round", round, "err", err)
	}
}

// archiveRound persists the round's allocations and conflicts together.
// Best effort: an archive failure is logged and never fails the round.
func (e *Episode) archiveRound(ctx context.Context, allocations []resource.Allocation, conflicts []resource.ConflictRecord) {
	if e.deps.Archive == nil || (len(allocations) == 0 && len(conflicts) == 0) {
		return
	}
	save := func(c context.Context) error {
		if err := e.deps.Archive.SaveAllocations(c, e.ID, allocations); err != nil {
			return err
		}
		return e.deps.Archive.SaveConflicts(c, e.ID, conflicts)
	}
	var err error
	if e.deps.Tx != nil {
		err = e.deps.Tx.RunInTx(ctx, save)
	} else {
		err = save(ctx)
	}
	if err != nil {
		e.deps.Logger.Warn("archive round failed", "episode_id", e.ID, "err", err)
		if e.deps.Metrics != nil {
			e.deps.Metrics.RecordArchiveFailure()
		}
	}
}

func conflictsForRound(history []resource.ConflictRecord, round int) []resource.ConflictRecord {
	var out []resource.ConflictRecord
	for _, c := range history {
		if c.Round == round {
			out = append(out, c)
		}
	}
	return out
}
