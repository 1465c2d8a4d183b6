package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4096

// AnthropicProvider answers through the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string, opts ...anthropicoption.RequestOption) *AnthropicProvider {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	reqOpts := append([]anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}, opts...)
	return &AnthropicProvider{
		client: anthropic.NewClient(reqOpts...),
		model:  model,
	}
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Answer(ctx context.Context, transcript []Turn) (string, error) {
	system, msgs := buildAnthropicMessages(transcript)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		Messages:  msgs,
		MaxTokens: anthropicMaxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w: no text content", ErrMalformedReply)
	}
	return sb.String(), nil
}

// buildAnthropicMessages splits system turns into the system parameter and
// converts the rest to message params.
func buildAnthropicMessages(transcript []Turn) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system []anthropic.TextBlockParam
		msgs   []anthropic.MessageParam
	)
	for _, t := range transcript {
		switch t.Role {
		case RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: t.Content})
		case RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	return system, msgs
}
