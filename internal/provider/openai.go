package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider answers through any OpenAI-compatible chat completions API,
// including OpenAI, DeepSeek, Groq, Qwen, etc.
type OpenAIProvider struct {
	client openai.Client
	model  string
	name   string
}

func NewOpenAIProvider(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAIProvider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)

	name := "openai"
	switch {
	case strings.Contains(baseURL, "deepseek"):
		name = "deepseek"
	case strings.Contains(baseURL, "groq"):
		name = "groq"
	case strings.Contains(baseURL, "dashscope"):
		name = "qwen"
	case strings.Contains(baseURL, "moonshot"):
		name = "kimi"
	}

	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client: openai.NewClient(reqOpts...),
		model:  model,
		name:   name,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Answer(ctx context.Context, transcript []Turn) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(p.model),
		Messages: buildOpenAIMessages(transcript),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w: no choices", p.name, ErrMalformedReply)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildOpenAIMessages converts transcript turns to OpenAI message params.
func buildOpenAIMessages(transcript []Turn) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript))
	for _, t := range transcript {
		switch t.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(t.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(t.Content))
		default:
			params = append(params, openai.UserMessage(t.Content))
		}
	}
	return params
}
