// Package orchestrator turns free-text user turns into at most one round of
// tool calls against the conversion server and a final model reply.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"unit-converter/internal/converter"
	"unit-converter/internal/llm"
	"unit-converter/internal/toolclient"
	"unit-converter/internal/toolserver"
)

// ErrEmptyInput is returned for a blank user turn.
var ErrEmptyInput = errors.New("empty input")

// ToolCaller invokes a named tool on the conversion server.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (toolclient.Result, error)
}

// Orchestrator handles user turns. It keeps no per-conversation state; the
// history lives in the Conversation passed to HandleTurn.
type Orchestrator struct {
	llm   llm.Client
	tools ToolCaller
	defs  []llm.ToolDefinition
	log   *slog.Logger
}

// New builds an Orchestrator. defs is the tool schema advertised to the model.
func New(client llm.Client, tools ToolCaller, defs []llm.ToolDefinition, log *slog.Logger) *Orchestrator {
	return &Orchestrator{llm: client, tools: tools, defs: defs, log: log}
}

// toolOutcome is what one tool call contributed to the turn.
type toolOutcome struct {
	content string
	failure string
	result  *converter.Result
}

// HandleTurn appends input to conv, runs the model and any requested tool
// calls, and returns the assistant's final text. Tool failures are reported
// to the model rather than returned; only a failed model call is an error.
func (o *Orchestrator) HandleTurn(ctx context.Context, conv *Conversation, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrEmptyInput
	}
	// A failed turn leaves no trace in the history.
	start := conv.Len()
	conv.Append(llm.Message{Role: llm.RoleUser, Content: input})

	resp, err := o.llm.Chat(ctx, llm.ChatRequest{Messages: conv.Messages(), Tools: o.defs})
	if err != nil {
		conv.truncate(start)
		return "", fmt.Errorf("llm request: %w", err)
	}
	if !resp.HasToolCalls() {
		conv.Append(llm.Message{Role: llm.RoleAssistant, Content: resp.Message.Content})
		o.log.Debug("answered without tools", "conversation_id", conv.ID)
		return resp.Message.Content, nil
	}

	asst := resp.Message
	asst.Role = llm.RoleAssistant
	asst.ToolCalls = append([]llm.ToolCall(nil), resp.Message.ToolCalls...)
	for i := range asst.ToolCalls {
		if asst.ToolCalls[i].ID == "" {
			asst.ToolCalls[i].ID = "call_" + uuid.NewString()
		}
	}
	conv.Append(asst)

	var last toolOutcome
	for _, call := range asst.ToolCalls {
		last = o.runTool(ctx, conv, call)
		conv.Append(llm.Message{
			Role:       llm.RoleTool,
			Content:    last.content,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}

	final, err := o.llm.Chat(ctx, llm.ChatRequest{Messages: conv.Messages(), Tools: o.defs})
	if err != nil {
		conv.truncate(start)
		return "", fmt.Errorf("llm follow-up request: %w", err)
	}
	text := strings.TrimSpace(final.Message.Content)
	if text == "" {
		if final.HasToolCalls() {
			o.log.Warn("model requested a second tool round, ignoring", "conversation_id", conv.ID)
		}
		text = fallbackReply(last)
	}
	conv.Append(llm.Message{Role: llm.RoleAssistant, Content: text})
	return text, nil
}

func (o *Orchestrator) runTool(ctx context.Context, conv *Conversation, call llm.ToolCall) toolOutcome {
	log := o.log.With("conversation_id", conv.ID, "tool", call.Name, "tool_call_id", call.ID)

	if call.Name != toolserver.ConvertToolName {
		err := &converter.MalformedArgumentsError{
			Field:  "tool",
			Reason: fmt.Sprintf("unknown tool %q, only %q is available", call.Name, toolserver.ConvertToolName),
		}
		log.Warn("model requested unknown tool")
		return failed(err)
	}

	req, err := ParseConvertArguments(call.Arguments)
	if err != nil {
		log.Warn("rejected tool arguments", "arguments", call.Arguments, "err", err)
		return failed(err)
	}

	log.Info("calling tool", "value", req.Value, "from_unit", req.FromUnit, "to_unit", req.ToUnit)
	res, err := o.tools.CallTool(ctx, call.Name, requestArgs(req))
	if err != nil {
		log.Error("tool call failed", "err", err)
		return failed(fmt.Errorf("conversion service unavailable: %w", err))
	}
	if res.IsError {
		out := toolOutcome{content: res.Text, failure: res.Text}
		if toolErr, ok := toolserver.DecodeError(res.Text); ok {
			out.failure = toolErr.Message
		}
		log.Info("tool reported an error", "detail", out.failure)
		return out
	}

	out := toolOutcome{content: res.Text}
	var result converter.Result
	if err := json.Unmarshal([]byte(res.Text), &result); err == nil && result.Unit != "" {
		out.result = &result
	}
	return out
}

func failed(err error) toolOutcome {
	return toolOutcome{content: toolserver.EncodeError(err), failure: err.Error()}
}

// fallbackReply is used when the model produces no text after a tool round.
func fallbackReply(last toolOutcome) string {
	switch {
	case last.failure != "":
		return "Sorry, I couldn't complete that conversion: " + last.failure + "."
	case last.result != nil:
		return last.result.String()
	default:
		return "Sorry, I couldn't produce an answer for that request."
	}
}
