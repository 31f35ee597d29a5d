package resource

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRequest  = errors.New("invalid resource request")
	ErrNotCollecting   = errors.New("arbiter is not collecting requests")
	ErrAlreadyResolved = errors.New("round already resolved")
)

// InvalidRequestError reports why a submission was rejected.
type InvalidRequestError struct {
	Field string
	Value any
}

func (e *InvalidRequestError) Error() string {
	return ErrInvalidRequest.Error() + ": " + e.Field
}

func (e *InvalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

type phase int

const (
	phaseCollecting phase = iota
	phaseApplied
)

// Arbiter collects the resource requests of one round and resolves them as
// a single batch against the ledger. Submissions may arrive concurrently;
// ResolveAll runs under the same exclusion, so arbitration output depends
// only on the set of requests and the active policy.
type Arbiter struct {
	mu      sync.Mutex
	ledger  *Ledger
	policy  Policy
	phase   phase
	round   int
	pending []Request

	allocations []Allocation
	conflicts   []ConflictRecord
	now         func() time.Time
}

// NewArbiter wires an arbiter around a ledger. An empty policy falls back
// to PolicyPriority.
func NewArbiter(ledger *Ledger, policy Policy) *Arbiter {
	if policy == "" {
		policy = PolicyPriority
	}
	return &Arbiter{
		ledger: ledger,
		policy: policy,
		phase:  phaseCollecting,
		round:  1,
		now:    time.Now,
	}
}

// Policy reports the active resolution policy.
func (a *Arbiter) Policy() Policy {
	return a.policy
}

// Round reports the current round number.
func (a *Arbiter) Round() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.round
}

// Ledger ops, serialized through the arbiter's exclusion so reads see a
// consistent point-in-time value while a resolve may be in flight.

func (a *Arbiter) Available(t Type) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Available(t)
}

func (a *Arbiter) AvailableByType() map[Type]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.AvailableByType()
}

func (a *Arbiter) PoolSnapshot() map[Type]Pool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Snapshot()
}

func (a *Arbiter) Consume(t Type, amount int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Consume(t, amount)
}

func (a *Arbiter) Add(t Type, amount int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ledger.Add(t, amount)
}

// Regenerate credits every pool its per-round regeneration. Callers invoke
// it once per round, after ResolveAll and never between a Submit and the
// matching ResolveAll.
func (a *Arbiter) Regenerate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ledger.Regenerate()
}

// Submit appends a request to the current round's batch and returns an
// opaque receipt id. Valid only while the round is collecting.
func (a *Arbiter) Submit(req Request) (string, error) {
	if req.AgentID == "" {
		return "", &InvalidRequestError{Field: "agent_id", Value: req.AgentID}
	}
	if _, ok := ParseType(string(req.Type)); !ok {
		return "", &InvalidRequestError{Field: "resource_type", Value: string(req.Type)}
	}
	if req.Amount <= 0 {
		return "", &InvalidRequestError{Field: "amount", Value: req.Amount}
	}
	if req.Priority < 1 || req.Priority > 10 {
		return "", &InvalidRequestError{Field: "priority", Value: req.Priority}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != phaseCollecting {
		return "", ErrNotCollecting
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = a.now()
	}
	a.pending = append(a.pending, req)
	return uuid.NewString(), nil
}

// ResolveAll resolves the pending batch atomically: per resource type it
// grants everything when supply covers demand, otherwise records a conflict
// and applies the active policy. Granted units are deducted from the
// ledger, the pending list is cleared, and every allocation is retained in
// the history log. Calling it twice within one round is an error.
func (a *Arbiter) ResolveAll() ([]Allocation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != phaseCollecting {
		return nil, ErrAlreadyResolved
	}
	a.phase = phaseApplied

	byType := make(map[Type][]Request)
	order := make([]Type, 0, len(byType))
	for _, req := range a.pending {
		if _, seen := byType[req.Type]; !seen {
			order = append(order, req.Type)
		}
		byType[req.Type] = append(byType[req.Type], req)
	}

	var out []Allocation
	for _, t := range order {
		requests := byType[t]
		avail := a.ledger.Available(t)
		if avail < 0 {
			avail = 0
		}
		total := 0
		for _, r := range requests {
			total += r.Amount
		}

		var granted []Allocation
		if total <= avail {
			granted = grantAll(requests, a.round)
		} else {
			a.conflicts = append(a.conflicts, ConflictRecord{
				Round:          a.round,
				Type:           t,
				Available:      avail,
				TotalRequested: total,
				Agents:         agentIDs(requests),
				Policy:         a.policy,
				OccurredAt:     a.now(),
			})
			granted = resolveConflict(a.policy, requests, avail, a.round)
		}

		sum := 0
		for _, g := range granted {
			sum += g.Allocated
		}
		a.ledger.deduct(t, sum)
		out = append(out, granted...)
	}

	a.pending = nil
	a.allocations = append(a.allocations, out...)
	return out, nil
}

// BeginRound re-arms the arbiter for the next round's collecting phase.
// Calling it while the current round is still collecting is a no-op.
func (a *Arbiter) BeginRound() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == phaseCollecting {
		return a.round
	}
	a.round++
	a.phase = phaseCollecting
	a.pending = nil
	return a.round
}

func grantAll(requests []Request, round int) []Allocation {
	out := make([]Allocation, 0, len(requests))
	for _, r := range requests {
		out = append(out, Allocation{
			AgentID:   r.AgentID,
			Type:      r.Type,
			Requested: r.Amount,
			Allocated: r.Amount,
			Success:   true,
			Round:     round,
		})
	}
	return out
}

func resolveConflict(policy Policy, requests []Request, avail int, round int) []Allocation {
	competing := agentIDs(requests)
	ordered := make([]Request, len(requests))
	copy(ordered, requests)

	switch policy {
	case PolicyFairShare:
		total := 0
		for _, r := range ordered {
			total += r.Amount
		}
		out := make([]Allocation, 0, len(ordered))
		for _, r := range ordered {
			// Floor keeps the granted sum at or below avail; the
			// remainder stays unallocated.
			allocated := avail * r.Amount / total
			out = append(out, Allocation{
				AgentID:         r.AgentID,
				Type:            r.Type,
				Requested:       r.Amount,
				Allocated:       allocated,
				Success:         false,
				Conflict:        true,
				CompetingAgents: competing,
				Round:           round,
			})
		}
		return out

	case PolicyFirstCome:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].SubmittedAt.Before(ordered[j].SubmittedAt)
		})
	default:
		// PolicyPriority and anything unrecognized: highest priority
		// first, submission order breaking ties.
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Priority > ordered[j].Priority
		})
	}

	remaining := avail
	out := make([]Allocation, 0, len(ordered))
	for _, r := range ordered {
		allocated := r.Amount
		if allocated > remaining {
			allocated = remaining
		}
		remaining -= allocated
		out = append(out, Allocation{
			AgentID:         r.AgentID,
			Type:            r.Type,
			Requested:       r.Amount,
			Allocated:       allocated,
			Success:         allocated == r.Amount,
			Conflict:        true,
			CompetingAgents: competing,
			Round:           round,
		})
	}
	return out
}

func agentIDs(requests []Request) []string {
	out := make([]string, 0, len(requests))
	for _, r := range requests {
		out = append(out, r.AgentID)
	}
	return out
}

// AllocationHistory copies out every allocation produced so far.
func (a *Arbiter) AllocationHistory() []Allocation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Allocation, len(a.allocations))
	copy(out, a.allocations)
	return out
}

// ConflictHistory copies out every recorded conflict.
func (a *Arbiter) ConflictHistory() []ConflictRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ConflictRecord, len(a.conflicts))
	copy(out, a.conflicts)
	return out
}

// ConflictAnalysis summarizes conflicts per resource type and per agent.
// An agent "wins" a conflict when its contested request was fully granted.
func (a *Arbiter) ConflictAnalysis() Analysis {
	a.mu.Lock()
	defer a.mu.Unlock()

	analysis := Analysis{
		TotalConflicts: len(a.conflicts),
		ByResource:     make(map[Type]int),
		ByAgent:        make(map[string]AgentConflictStats),
	}
	for _, c := range a.conflicts {
		analysis.ByResource[c.Type]++
		for _, agent := range c.Agents {
			stats := analysis.ByAgent[agent]
			stats.Involved++
			analysis.ByAgent[agent] = stats
		}
	}
	for _, alloc := range a.allocations {
		if alloc.Conflict && alloc.Success {
			stats := analysis.ByAgent[alloc.AgentID]
			stats.Won++
			analysis.ByAgent[alloc.AgentID] = stats
		}
	}
	analysis.History = make([]ConflictRecord, len(a.conflicts))
	copy(analysis.History, a.conflicts)
	return analysis
}
