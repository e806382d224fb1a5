package orchestrator

import (
	"context"

	"github.com/stretchr/testify/mock"

	"unit-converter/internal/toolclient"
)

// MockToolCaller is a mock implementation of ToolCaller using testify/mock.
type MockToolCaller struct {
	mock.Mock
}

func (m *MockToolCaller) CallTool(ctx context.Context, name string, args map[string]any) (toolclient.Result, error) {
	a := m.Called(ctx, name, args)
	return a.Get(0).(toolclient.Result), a.Error(1)
}
