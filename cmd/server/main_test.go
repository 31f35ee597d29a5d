package main

import (
	"log/slog"
	"testing"

	openaillm "bridgesim/internal/adapter/llm/openai"
	"bridgesim/internal/adapter/llm/scripted"
)

func TestEnvOr(t *testing.T) {
	t.Setenv("BRIDGESIM_ADDR", "")
	if got := envOr("BRIDGESIM_ADDR", ":8080"); got != ":8080" {
		t.Fatalf("envOr()=%q want %q", got, ":8080")
	}

	t.Setenv("BRIDGESIM_ADDR", " :9090 ")
	if got := envOr("BRIDGESIM_ADDR", ":8080"); got != ":9090" {
		t.Fatalf("envOr()=%q want %q", got, ":9090")
	}
}

func TestMustBuildDecider_FallsBackToScripted(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	decider := mustBuildDecider(slog.Default())
	if _, ok := decider.(*scripted.Provider); !ok {
		t.Fatalf("expected scripted provider without api key, got %T", decider)
	}
}

func TestMustBuildDecider_UsesOpenAIWhenKeySet(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")

	decider := mustBuildDecider(slog.Default())
	if _, ok := decider.(*openaillm.Provider); !ok {
		t.Fatalf("expected openai provider with api key, got %T", decider)
	}
}
