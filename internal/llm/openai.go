package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIClient calls an OpenAI-compatible Chat Completions API. Ollama
// exposes one at /v1, which is the default target.
type OpenAIClient struct {
	model       openai.ChatModel
	client      *openai.Client
	timeout     time.Duration
	temperature float64
}

// OpenAIOptions configures NewOpenAIClient.
type OpenAIOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxRetries  int
}

const (
	defaultChatTimeout     = 120 * time.Second
	defaultChatTemperature = 0.2
)

// NewOpenAIClient builds a client against opts.BaseURL, or api.openai.com
// when it is empty.
func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("model required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultChatTimeout
	}
	if opts.Temperature < 0 {
		opts.Temperature = defaultChatTemperature
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(max(opts.MaxRetries, 0)),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	cli := openai.NewClient(reqOpts...)
	return &OpenAIClient{
		model:       openai.ChatModel(opts.Model),
		client:      &cli,
		timeout:     opts.Timeout,
		temperature: opts.Temperature,
	}, nil
}

func (c *OpenAIClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("nil openai client")
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    buildMessages(req.Messages),
		Temperature: openai.Float(c.temperature),
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	resp, err := c.client.Chat.Completions.New(reqCtx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	choice := resp.Choices[0]
	msg := Message{Role: RoleAssistant, Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return &ChatResponse{Message: msg, FinishReason: string(choice.FinishReason)}, nil
}

func buildMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case RoleAssistant:
			out = append(out, buildAssistantMessage(m))
		}
	}
	return out
}

func buildAssistantMessage(m Message) openai.ChatCompletionMessageParamUnion {
	var asst openai.ChatCompletionAssistantMessageParam
	if m.Content != "" {
		asst.Content.OfString = openai.String(m.Content)
	}
	for _, tc := range m.ToolCalls {
		asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			},
		})
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func buildTools(defs []ToolDefinition) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		fn := openai.FunctionDefinitionParam{
			Name:       d.Name,
			Parameters: openai.FunctionParameters(d.Parameters),
		}
		if d.Description != "" {
			fn.Description = openai.String(d.Description)
		}
		out = append(out, openai.ChatCompletionFunctionTool(fn))
	}
	return out
}
