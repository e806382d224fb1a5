package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unit-converter/internal/app"
	"unit-converter/internal/config"
	"unit-converter/internal/converter"
	"unit-converter/internal/toolclient"
)

func newTestDeps(t *testing.T) app.Deps {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	deps, err := app.BuildFromConfig(config.Config{DefaultPrecision: converter.DefaultPrecision}, log)
	require.NoError(t, err)
	return deps
}

func TestRouter(t *testing.T) {
	ts := httptest.NewServer(newRouter(newTestDeps(t)))
	t.Cleanup(ts.Close)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		check      func(*testing.T, []byte)
	}{
		{
			name:       "health",
			path:       "/healthz",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Equal(t, "ok", string(body))
			},
		},
		{
			name:       "units",
			path:       "/units",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var units map[string][]map[string]any
				require.NoError(t, json.Unmarshal(body, &units))
				assert.Contains(t, units, "length")
				assert.Contains(t, units, "mass")
				assert.Contains(t, units, "temperature")
			},
		},
		{
			name:       "metrics",
			path:       "/metrics",
			wantStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				assert.Contains(t, string(body), "unitconv_http_requests_total")
			},
		},
		{
			name:       "unknown path",
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestMCPOverHTTP(t *testing.T) {
	deps := newTestDeps(t)
	ts := httptest.NewServer(newRouter(deps))
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := toolclient.ConnectWithRetry(ctx, toolclient.HTTPTransport(ts.URL+mcpPath), 3, 10*time.Millisecond, deps.Log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	res, err := client.CallTool(ctx, "convert", map[string]any{"value": 212, "from_unit": "F", "to_unit": "C"})
	require.NoError(t, err)
	require.False(t, res.IsError, res.Text)

	var out converter.Result
	require.NoError(t, json.Unmarshal([]byte(res.Text), &out))
	assert.Equal(t, 100.0, out.Value)
	assert.Equal(t, "C", out.Unit)
}

func TestRunRejectsUnknownTransport(t *testing.T) {
	err := run(context.Background(), newTestDeps(t), "carrier-pigeon", "")
	assert.ErrorContains(t, err, "invalid transport")
}

func TestServeHTTPStopsOnCancel(t *testing.T) {
	deps := newTestDeps(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, deps, "127.0.0.1:0") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
