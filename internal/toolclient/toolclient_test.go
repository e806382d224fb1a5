package toolclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unit-converter/internal/converter"
	"unit-converter/internal/toolserver"
	"unit-converter/internal/units"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newInProcessClient(t *testing.T) *Client {
	t.Helper()
	catalog, err := units.Default()
	require.NoError(t, err)
	srv := toolserver.New(converter.NewService(catalog, converter.DefaultPrecision), discardLogger(), "test")

	c, err := ConnectInProcess(context.Background(), srv.MCP(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestTools(t *testing.T) {
	c := newInProcessClient(t)

	defs, err := c.Tools(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, toolserver.ConvertToolName, defs[0].Name)
	assert.Equal(t, "object", defs[0].Parameters["type"])

	props, ok := defs[0].Parameters["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "value")
	assert.Contains(t, props, "from_unit")
	assert.Contains(t, props, "to_unit")
}

func TestSupportedUnits(t *testing.T) {
	c := newInProcessClient(t)

	text, err := c.SupportedUnits(context.Background())
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &doc))
	assert.Contains(t, doc, "length")
	assert.Contains(t, doc, "mass")
	assert.Contains(t, doc, "temperature")
}

func TestCallTool(t *testing.T) {
	c := newInProcessClient(t)
	ctx := context.Background()

	res, err := c.CallTool(ctx, toolserver.ConvertToolName, map[string]any{"value": 1, "from_unit": "kg", "to_unit": "lb"})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, res.Text, `"value":2.204623`)
	assert.Contains(t, res.Text, `"unit":"lb"`)

	res, err = c.CallTool(ctx, toolserver.ConvertToolName, map[string]any{"value": 5, "from_unit": "kg", "to_unit": "C"})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	toolErr, ok := toolserver.DecodeError(res.Text)
	require.True(t, ok)
	assert.Equal(t, converter.CodeCategoryMismatch, toolErr.Code)
}

func TestCallUnknownTool(t *testing.T) {
	c := newInProcessClient(t)

	res, err := c.CallTool(context.Background(), "teleport", map[string]any{})
	if err == nil {
		assert.True(t, res.IsError)
	}
}

type failingTransport struct{}

func (failingTransport) Connect(context.Context) (mcp.Connection, error) {
	return nil, errors.New("connection refused")
}

func TestConnectWithRetry(t *testing.T) {
	calls := 0
	newTransport := func() mcp.Transport {
		calls++
		return failingTransport{}
	}

	_, err := ConnectWithRetry(context.Background(), newTransport, 3, time.Millisecond, discardLogger())
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, 3, calls)
}

func TestConnectWithRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConnectWithRetry(ctx, func() mcp.Transport { return failingTransport{} }, 5, time.Hour, discardLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandTransport(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		args     []string
		wantArgs []string
	}{
		{
			name:     "command line split on whitespace",
			command:  "unitconv-server --transport stdio",
			wantArgs: []string{"unitconv-server", "--transport", "stdio"},
		},
		{
			name:     "path with spaces and explicit args",
			command:  "/opt/unit tools/unitconv-server",
			args:     []string{"--transport", "stdio"},
			wantArgs: []string{"/opt/unit tools/unitconv-server", "--transport", "stdio"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport, ok := CommandTransport(tt.command, tt.args)().(*mcp.CommandTransport)
			require.True(t, ok)
			assert.Equal(t, tt.wantArgs, transport.Command.Args)
		})
	}
}
