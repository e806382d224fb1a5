// Package toolserver exposes the conversion service as an MCP server with a
// single "convert" tool and a resource listing the supported units.
package toolserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"unit-converter/internal/converter"
	"unit-converter/internal/metrics"
)

const (
	ServerName       = "unit-converter"
	ConvertToolName  = "convert"
	UnitsResourceURI = "units://supported_units.json"
	mimeJSON         = "application/json"
)

// ConvertInput is the argument contract of the convert tool.
type ConvertInput struct {
	Value     float64 `json:"value" jsonschema:"the numeric value to convert"`
	FromUnit  string  `json:"from_unit" jsonschema:"unit to convert from; symbols and names are accepted, e.g. cm or meters"`
	ToUnit    string  `json:"to_unit" jsonschema:"unit to convert to"`
	Precision *int    `json:"precision,omitempty" jsonschema:"decimal places to round the result to (0 to 12, default 6)"`
}

// ToolError is the structured error returned in a failed tool result.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error ToolError `json:"error"`
}

// EncodeError renders err as the JSON body of a failed tool result.
func EncodeError(err error) string {
	data, mErr := json.Marshal(errorEnvelope{Error: ToolError{Code: converter.Code(err), Message: err.Error()}})
	if mErr != nil {
		return `{"error":{"code":"internal","message":"unencodable error"}}`
	}
	return string(data)
}

// DecodeError extracts a ToolError from a failed tool result body.
func DecodeError(text string) (ToolError, bool) {
	var env errorEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil || env.Error.Code == "" {
		return ToolError{}, false
	}
	return env.Error, true
}

// Server wires a converter.Service into an MCP server.
type Server struct {
	svc *converter.Service
	log *slog.Logger
	mcp *mcp.Server
}

// New builds the MCP server and registers its tool and resource.
func New(svc *converter.Service, log *slog.Logger, version string) *Server {
	s := &Server{
		svc: svc,
		log: log,
		mcp: mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, &mcp.ServerOptions{
			Instructions: "Converts numeric values between length, mass and temperature units. Read " + UnitsResourceURI + " for valid unit symbols.",
		}),
	}
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ConvertToolName,
		Description: "Convert a numeric value between supported units of the same category (length, mass or temperature).",
	}, s.handleConvert)
	s.mcp.AddResource(&mcp.Resource{
		URI:         UnitsResourceURI,
		Name:        "supported_units",
		Description: "Supported unit categories and units",
		MIMEType:    mimeJSON,
	}, s.handleUnits)
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// RunStdio serves MCP over stdin/stdout until ctx is done or the peer
// disconnects. Nothing else may write to stdout while it runs.
func (s *Server) RunStdio(ctx context.Context) error {
	s.log.Info("tool server listening on stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves MCP over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return s.mcp }, nil)
}

func (s *Server) handleConvert(_ context.Context, _ *mcp.CallToolRequest, in ConvertInput) (*mcp.CallToolResult, any, error) {
	res, err := s.svc.Convert(converter.Request{
		Value:     in.Value,
		FromUnit:  in.FromUnit,
		ToUnit:    in.ToUnit,
		Precision: in.Precision,
	})
	if err != nil {
		code := converter.Code(err)
		metrics.RecordConversion("", code)
		s.log.Info("conversion rejected", "from_unit", in.FromUnit, "to_unit", in.ToUnit, "code", code, "err", err)
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: EncodeError(err)}},
		}, nil, nil
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordConversion(string(res.Category), metrics.ResultOK)
	s.log.Info("converted",
		"value", res.InputValue,
		"from_unit", res.FromUnit,
		"result", res.Value,
		"to_unit", res.Unit,
		"category", res.Category,
	)
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: string(data)}},
		StructuredContent: res,
	}, nil, nil
}

func (s *Server) handleUnits(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(s.svc.SupportedUnits())
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: mimeJSON,
			Text:     string(data),
		}},
	}, nil
}
