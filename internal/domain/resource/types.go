package resource

import "time"

// Type identifies one of the ship's shared resources. The set is closed:
// callers cannot introduce new resource kinds at runtime.
type Type string

const (
	TypePower     Type = "power"
	TypeCompute   Type = "compute"
	TypeCrew      Type = "crew"
	TypeMaterials Type = "materials"
	TypeMedical   Type = "medical"
	TypeFuel      Type = "fuel"
)

// AllTypes lists every resource type in a stable order.
func AllTypes() []Type {
	return []Type{TypePower, TypeCompute, TypeCrew, TypeMaterials, TypeMedical, TypeFuel}
}

// ParseType validates a raw string against the closed type set.
func ParseType(raw string) (Type, bool) {
	switch Type(raw) {
	case TypePower, TypeCompute, TypeCrew, TypeMaterials, TypeMedical, TypeFuel:
		return Type(raw), true
	}
	return "", false
}

// Policy selects how over-subscribed requests are resolved.
type Policy string

const (
	PolicyPriority  Policy = "priority"
	PolicyFairShare Policy = "fair_share"
	PolicyFirstCome Policy = "first_come"
)

// ParsePolicy validates a raw string against the known policies.
func ParsePolicy(raw string) (Policy, bool) {
	switch Policy(raw) {
	case PolicyPriority, PolicyFairShare, PolicyFirstCome:
		return Policy(raw), true
	}
	return "", false
}

// Request is one agent's claim on a resource within a round. Requests are
// ephemeral: submitted during the collecting phase, consumed exactly once
// by ResolveAll, then discarded.
type Request struct {
	AgentID     string    `json:"agent_id"`
	Type        Type      `json:"resource_type"`
	Amount      int       `json:"amount"`
	Priority    int       `json:"priority"` // 1-10, higher wins under PolicyPriority
	Reason      string    `json:"reason,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Allocation is the immutable arbitration outcome for one request.
type Allocation struct {
	AgentID         string   `json:"agent_id"`
	Type            Type     `json:"resource_type"`
	Requested       int      `json:"requested"`
	Allocated       int      `json:"allocated"`
	Success         bool     `json:"success"`
	Conflict        bool     `json:"conflict"`
	CompetingAgents []string `json:"competing_agents,omitempty"`
	Round           int      `json:"round"`
}

// ConflictRecord captures one over-subscription event for later analysis.
type ConflictRecord struct {
	Round          int       `json:"round"`
	Type           Type      `json:"resource_type"`
	Available      int       `json:"available"`
	TotalRequested int       `json:"total_requested"`
	Agents         []string  `json:"agents"`
	Policy         Policy    `json:"policy"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// AgentConflictStats counts one agent's conflict involvement.
type AgentConflictStats struct {
	Involved int `json:"involved"`
	Won      int `json:"won"`
}

// Analysis is the read-only conflict summary exposed for reporting.
type Analysis struct {
	TotalConflicts int                           `json:"total_conflicts"`
	ByResource     map[Type]int                  `json:"by_resource"`
	ByAgent        map[string]AgentConflictStats `json:"by_agent"`
	History        []ConflictRecord              `json:"conflict_history"`
}
