package openai

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"bridgesim/internal/app/ports"
	"bridgesim/internal/domain/resource"

	goopenai "github.com/sashabaranov/go-openai"
)

const defaultModel = "gpt-4o-mini"

const systemPrompt = "You are a starship bridge officer. Respond with exactly " +
	"three lines:\nACTION: <one specific action>\nRESOURCE_REQUEST: <resource_type:amount> or NONE\nREASON: <brief justification>"

// Provider asks a chat model for one bridge officer's action per round.
type Provider struct {
	client *goopenai.Client
	model  string
	logger *slog.Logger
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *slog.Logger
}

func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai provider: missing api key")
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		client: goopenai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}, nil
}

func (p *Provider) Decide(ctx context.Context, in ports.DecisionInput) (ports.Decision, error) {
	resp, err := p.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: p.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: buildPrompt(in)},
		},
	})
	if err != nil {
		return ports.Decision{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ports.Decision{}, fmt.Errorf("chat completion: no choices")
	}

	decision := ParseDecision(resp.Choices[0].Message.Content)
	if decision.ActionText == "" {
		p.logger.Warn("model reply missing ACTION line", "agent_id", in.AgentID, "round", in.Round)
		decision.ActionText = "Monitor situation"
	}
	return decision, nil
}

func buildPrompt(in ports.DecisionInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s on the bridge.\n\n", in.AgentID)
	if in.Scenario != "" {
		fmt.Fprintf(&b, "MISSION: %s\n\n", in.Scenario)
	}
	fmt.Fprintf(&b, "CURRENT SHIP STATE:\n")
	fmt.Fprintf(&b, "- Alert Level: %s\n", in.View.AlertLevel)
	fmt.Fprintf(&b, "- Hull Integrity: %d%%\n", in.View.HullIntegrity)
	fmt.Fprintf(&b, "- Shield Power: %d%%\n", in.View.ShieldPower)
	fmt.Fprintf(&b, "- Life Support: %d%%\n", in.View.LifeSupport)

	types := make([]resource.Type, 0, len(in.Available))
	for t := range in.Available {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	b.WriteString("\nAVAILABLE RESOURCES:\n")
	for _, t := range types {
		fmt.Fprintf(&b, "- %s: %d units\n", t, in.Available[t])
	}

	fmt.Fprintf(&b, "\nThis is ROUND %d. Propose ONE specific action. ", in.Round)
	b.WriteString("Other officers act simultaneously; you do not know their choices.\n\n")
	b.WriteString("Respond in this format:\nACTION: [your specific action]\nRESOURCE_REQUEST: [resource_type:amount] or NONE\nREASON: [brief justification]\n")
	return b.String()
}

// ParseDecision extracts the action and optional resource claim from a
// model reply. Malformed or unknown RESOURCE_REQUEST lines yield no claim
// rather than an error; the round proceeds with the action alone.
func ParseDecision(raw string) ports.Decision {
	var out ports.Decision
	var reason string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "ACTION:"):
			out.ActionText = strings.TrimSpace(strings.TrimPrefix(line, "ACTION:"))
		case strings.HasPrefix(line, "RESOURCE_REQUEST:"):
			out.Claim = parseClaim(strings.TrimSpace(strings.TrimPrefix(line, "RESOURCE_REQUEST:")))
		case strings.HasPrefix(line, "REASON:"):
			reason = strings.TrimSpace(strings.TrimPrefix(line, "REASON:"))
		}
	}
	if out.Claim != nil {
		if reason != "" {
			out.Claim.Reason = reason
		} else {
			out.Claim.Reason = out.ActionText
		}
	}
	return out
}

func parseClaim(text string) *ports.ResourceClaim {
	if strings.EqualFold(text, "NONE") || !strings.Contains(text, ":") {
		return nil
	}
	parts := strings.SplitN(text, ":", 2)
	typ, ok := resource.ParseType(strings.ToLower(strings.TrimSpace(parts[0])))
	if !ok {
		return nil
	}
	var amount int
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[1]), "%d", &amount); err != nil || amount <= 0 {
		return nil
	}
	return &ports.ResourceClaim{
		Type:     typ,
		Amount:   amount,
		Priority: 5,
	}
}
