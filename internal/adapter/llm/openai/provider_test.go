package openai

import (
	"strings"
	"testing"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"
	"bridgesim/internal/domain/ship"
)

var _ ports.DecisionProvider = (*Provider)(nil)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantAction string
		wantClaim  *ports.ResourceClaim
	}{
		{
			name:       "full reply with claim",
			raw:        "ACTION: Reroute auxiliary power to shields\nRESOURCE_REQUEST: power:60\nREASON: Shields failing",
			wantAction: "Reroute auxiliary power to shields",
			wantClaim:  &ports.ResourceClaim{Type: resource.TypePower, Amount: 60, Priority: 5, Reason: "Shields failing"},
		},
		{
			name:       "request none",
			raw:        "ACTION: Monitor long-range sensors\nRESOURCE_REQUEST: NONE\nREASON: No immediate threat",
			wantAction: "Monitor long-range sensors",
		},
		{
			name:       "lowercase none",
			raw:        "ACTION: Hold position\nRESOURCE_REQUEST: none",
			wantAction: "Hold position",
		},
		{
			name:       "unknown resource type dropped",
			raw:        "ACTION: Fire phasers\nRESOURCE_REQUEST: phasers:10\nREASON: Engaging",
			wantAction: "Fire phasers",
		},
		{
			name:       "non-numeric amount dropped",
			raw:        "ACTION: Seal breach\nRESOURCE_REQUEST: materials:lots",
			wantAction: "Seal breach",
		},
		{
			name:       "negative amount dropped",
			raw:        "ACTION: Divert crew\nRESOURCE_REQUEST: crew:-5",
			wantAction: "Divert crew",
		},
		{
			name:       "claim reason falls back to action text",
			raw:        "ACTION: Run diagnostics\nRESOURCE_REQUEST: compute:20",
			wantAction: "Run diagnostics",
			wantClaim:  &ports.ResourceClaim{Type: resource.TypeCompute, Amount: 20, Priority: 5, Reason: "Run diagnostics"},
		},
		{
			name:       "surrounding whitespace tolerated",
			raw:        "  ACTION:   Vent plasma  \n  RESOURCE_REQUEST:  fuel : 100  ",
			wantAction: "Vent plasma",
			wantClaim:  &ports.ResourceClaim{Type: resource.TypeFuel, Amount: 100, Priority: 5, Reason: "Vent plasma"},
		},
		{
			name: "empty reply",
			raw:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDecision(tt.raw)
			if got.ActionText != tt.wantAction {
				t.Fatalf("action = %q, want %q", got.ActionText, tt.wantAction)
			}
			if (got.Claim == nil) != (tt.wantClaim == nil) {
				t.Fatalf("claim = %+v, want %+v", got.Claim, tt.wantClaim)
			}
			if tt.wantClaim != nil && *got.Claim != *tt.wantClaim {
				t.Fatalf("claim = %+v, want %+v", *got.Claim, *tt.wantClaim)
			}
		})
	}
}

func TestBuildPromptIncludesFilteredState(t *testing.T) {
	state := ship.DefaultState([]string{"engineer"})
	state.HullIntegrity = 62

	prompt := buildPrompt(ports.DecisionInput{
		AgentID:  "engineer",
		Round:    3,
		View:     state,
		Scenario: "plasma storm ahead",
		Available: map[resource.Type]int{
			resource.TypePower:   900,
			resource.TypeCompute: 80,
		},
	})

	for _, want := range []string{
		"MISSION: plasma storm ahead",
		"Hull Integrity: 62%",
		"ROUND 3",
		"power: 900 units",
		"compute: 80 units",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
