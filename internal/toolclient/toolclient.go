// Package toolclient connects to the unit-converter MCP server and adapts it
// to the shapes the orchestrator and the LLM client need.
package toolclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unit-converter/internal/llm"
	"unit-converter/internal/retry"
	"unit-converter/internal/toolserver"
	"unit-converter/internal/version"
)

// Result is the outcome of one tool call. IsError marks a tool-level
// failure whose Text describes the error.
type Result struct {
	Text    string
	IsError bool
}

// Client is a connected MCP client session.
type Client struct {
	session *mcp.ClientSession
	log     *slog.Logger
	closers []func() error
}

// Connect opens a session over transport.
func Connect(ctx context.Context, transport mcp.Transport, log *slog.Logger) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "unit-converter-client", Version: version.Version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect tool server: %w", err)
	}
	return &Client{session: session, log: log}, nil
}

// ConnectWithRetry builds a fresh transport for each attempt and backs off
// exponentially between failures.
func ConnectWithRetry(ctx context.Context, newTransport func() mcp.Transport, attempts int, base time.Duration, log *slog.Logger) (*Client, error) {
	var c *Client
	err := retry.Do(ctx, attempts, base, func(ctx context.Context) error {
		var err error
		c, err = Connect(ctx, newTransport(), log)
		return err
	}, func(attempt int, delay time.Duration, err error) {
		log.Warn("tool server not ready, retrying", "attempt", attempt, "delay", delay, "err", err)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ConnectInProcess starts a session against srv without leaving the process.
func ConnectInProcess(ctx context.Context, srv *mcp.Server, log *slog.Logger) (*Client, error) {
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := srv.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, fmt.Errorf("start in-process tool server: %w", err)
	}
	c, err := Connect(ctx, clientTransport, log)
	if err != nil {
		_ = ss.Close()
		return nil, err
	}
	c.closers = append(c.closers, ss.Close)
	return c, nil
}

// CommandTransport spawns the tool server binary and talks MCP over its
// stdin/stdout. With args set, command is the program path verbatim, so it
// may contain spaces; otherwise command is split on whitespace.
func CommandTransport(command string, args []string) func() mcp.Transport {
	name, argv := command, args
	if len(args) == 0 {
		fields := strings.Fields(command)
		if len(fields) > 0 {
			name, argv = fields[0], fields[1:]
		}
	}
	return func() mcp.Transport {
		return &mcp.CommandTransport{Command: exec.Command(name, argv...)}
	}
}

// HTTPTransport talks MCP to a streamable HTTP endpoint.
func HTTPTransport(endpoint string) func() mcp.Transport {
	return func() mcp.Transport {
		return &mcp.StreamableClientTransport{Endpoint: endpoint}
	}
}

// Tools lists the server's tools as LLM tool definitions.
func (c *Client) Tools(ctx context.Context) ([]llm.ToolDefinition, error) {
	res, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defs := make([]llm.ToolDefinition, 0, len(res.Tools))
	for _, t := range res.Tools {
		params, err := schemaMap(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  params,
		})
	}
	return defs, nil
}

// SupportedUnits reads the supported units resource as raw JSON.
func (c *Client) SupportedUnits(ctx context.Context) (string, error) {
	res, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: toolserver.UnitsResourceURI})
	if err != nil {
		return "", fmt.Errorf("read %s: %w", toolserver.UnitsResourceURI, err)
	}
	if len(res.Contents) == 0 {
		return "", fmt.Errorf("read %s: empty resource", toolserver.UnitsResourceURI)
	}
	return res.Contents[0].Text, nil
}

// CallTool invokes a tool. A non-nil error means the call never produced a
// result; tool-level failures come back as Result.IsError.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return Result{}, fmt.Errorf("call tool %s: %w", name, err)
	}
	var parts []string
	for _, content := range res.Content {
		if text, ok := content.(*mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	c.log.Debug("tool result", "tool", name, "is_error", res.IsError)
	return Result{Text: strings.Join(parts, "\n"), IsError: res.IsError}, nil
}

// Close ends the session and anything started with it.
func (c *Client) Close() error {
	err := c.session.Close()
	for _, closeFn := range c.closers {
		if cErr := closeFn(); cErr != nil && err == nil {
			err = cErr
		}
	}
	return err
}

func schemaMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object"}, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode input schema: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	return out, nil
}
