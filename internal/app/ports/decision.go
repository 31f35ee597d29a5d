package ports

import (
	"context"

	"bridgesim/internal/domain/resource"
	"bridgesim/internal/domain/ship"
)

// DecisionInput is everything an agent sees before acting: its filtered
// view of the world, what each resource pool has available, and the
// free-text scenario supplied by the orchestration layer.
type DecisionInput struct {
	AgentID   string
	Round     int
	View      ship.State
	Available map[resource.Type]int
	Scenario  string
}

// ResourceClaim is the optional resource tuple extracted from an agent's
// decision.
type ResourceClaim struct {
	Type     resource.Type
	Amount   int
	Priority int
	Reason   string
}

// Decision is what an agent proposes for the round. The core does not
// interpret ActionText beyond the claim; narrative effects belong to the
// caller.
type Decision struct {
	ActionText string
	Claim      *ResourceClaim
}

// DecisionProvider is the external action-decision collaborator, typically
// backed by a language model. Implementations may block; callers bound
// each call with a context deadline and never hold core locks across it.
type DecisionProvider interface {
	Decide(ctx context.Context, in DecisionInput) (Decision, error)
}
