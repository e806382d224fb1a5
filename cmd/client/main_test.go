package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"unit-converter/internal/converter"
	"unit-converter/internal/orchestrator"
	"unit-converter/internal/toolclient"
	"unit-converter/internal/toolserver"
	"unit-converter/internal/units"
)

func newInProcessTools(t *testing.T) *toolclient.Client {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, err := units.Default()
	require.NoError(t, err)
	srv := toolserver.New(converter.NewService(catalog, converter.DefaultPrecision), log, "test")
	client, err := toolclient.ConnectInProcess(context.Background(), srv.MCP(), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRunConvert(t *testing.T) {
	two := 2
	tests := []struct {
		name      string
		args      []string
		precision *int
		want      string
		wantErr   string
	}{
		{name: "length", args: []string{"100", "cm", "in"}, want: "100 cm = 39.370079 in\n"},
		{name: "temperature", args: []string{"-40", "C", "F"}, want: "-40 C = -40 F\n"},
		{name: "precision flag", args: []string{"1", "kg", "lb"}, precision: &two, want: "1 kg = 2.2 lb\n"},
		{name: "aliases", args: []string{"3", "feet", "meters"}, want: "3 ft = 0.9144 m\n"},
		{name: "bad value", args: []string{"ten", "cm", "in"}, wantErr: "invalid value"},
		{name: "unsupported unit", args: []string{"5", "xyz", "m"}, wantErr: `unsupported_unit: unsupported from_unit "xyz"`},
		{name: "category mismatch", args: []string{"5", "kg", "C"}, wantErr: "category_mismatch"},
	}

	tools := newInProcessTools(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := runConvert(context.Background(), tools, &out, tt.args, tt.precision)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestRunConvertTransportError(t *testing.T) {
	tools := new(orchestrator.MockToolCaller)
	tools.On("CallTool", mock.Anything, "convert", mock.Anything).
		Return(toolclient.Result{}, errors.New("server gone")).Once()

	err := runConvert(context.Background(), tools, io.Discard, []string{"1", "m", "cm"}, nil)
	assert.ErrorContains(t, err, "server gone")
	tools.AssertExpectations(t)
}

func TestRunUnits(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runUnits(context.Background(), newInProcessTools(t), &out))

	text := out.String()
	assert.Contains(t, text, "length:\n")
	assert.Contains(t, text, "mass:\n")
	assert.Contains(t, text, "temperature:\n")
	assert.Contains(t, text, "  kg   kilogram")
	assert.Less(t, bytes.Index(out.Bytes(), []byte("length:")), bytes.Index(out.Bytes(), []byte("mass:")))
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["convert"])
	assert.True(t, names["units"])

	convert, _, err := root.Find([]string{"convert"})
	require.NoError(t, err)
	assert.Error(t, convert.Args(convert, []string{"1", "m"}))
	assert.NoError(t, convert.Args(convert, []string{"1", "m", "cm"}))
}
