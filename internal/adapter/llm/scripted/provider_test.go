package scripted

import (
	"context"
	"testing"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
)

var _ ports.DecisionProvider = (*Provider)(nil)

func TestProviderReplaysScriptThenIdles(t *testing.T) {
	p := NewProvider(map[string][]ports.Decision{
		"engineer": {
			{ActionText: "Reroute power", Claim: &ports.ResourceClaim{Type: resource.TypePower, Amount: 50, Priority: 7}},
			{ActionText: "Patch hull"},
		},
	})
	ctx := context.Background()

	first, err := p.Decide(ctx, ports.DecisionInput{AgentID: "engineer", Round: 1})
	if err != nil {
		t.Fatalf("decide: %v", err)
	}
	if first.ActionText != "Reroute power" || first.Claim == nil || first.Claim.Amount != 50 {
		t.Fatalf("unexpected first decision: %+v", first)
	}

	second, _ := p.Decide(ctx, ports.DecisionInput{AgentID: "engineer", Round: 2})
	if second.ActionText != "Patch hull" || second.Claim != nil {
		t.Fatalf("unexpected second decision: %+v", second)
	}

	third, _ := p.Decide(ctx, ports.DecisionInput{AgentID: "engineer", Round: 3})
	if third.ActionText != "Monitor situation" {
		t.Fatalf("expected idle action after script end, got %+v", third)
	}

	unknown, _ := p.Decide(ctx, ports.DecisionInput{AgentID: "captain", Round: 1})
	if unknown.ActionText != "Monitor situation" {
		t.Fatalf("expected idle action for unscripted agent, got %+v", unknown)
	}
}
