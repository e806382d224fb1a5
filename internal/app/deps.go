package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"unit-converter/internal/config"
	"unit-converter/internal/converter"
	"unit-converter/internal/llm"
	"unit-converter/internal/logger"
	"unit-converter/internal/toolclient"
	"unit-converter/internal/toolserver"
	"unit-converter/internal/units"
	"unit-converter/internal/version"
)

const (
	ollamaBaseURL     = "http://localhost:11434/v1/"
	connectRetryDelay = 200 * time.Millisecond
)

// Deps bundles the runtime dependencies shared by both binaries.
type Deps struct {
	Config     config.Config
	Log        *slog.Logger
	Converter  *converter.Service
	ToolServer *toolserver.Server
}

// ClientDeps adds what the chat client needs on top of Deps.
type ClientDeps struct {
	Deps
	LLM   llm.Client
	Tools *toolclient.Client
}

// Log levels the binaries fall back to when LOG_LEVEL is unset.
const (
	ServerLogLevel = "info"
	ClientLogLevel = "warn"
)

// Build loads .env (when present), config, the logger, the unit catalog and
// the tool server. defaultLogLevel applies when LOG_LEVEL is unset.
func Build(defaultLogLevel string) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	cfg.LogLevel = logLevel(cfg.LogLevel, defaultLogLevel)
	return BuildFromConfig(cfg, logger.New(cfg.LogLevel, cfg.LogFormat, nil))
}

func logLevel(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

// BuildFromConfig is Build without the environment.
func BuildFromConfig(cfg config.Config, log *slog.Logger) (Deps, error) {
	catalog, err := buildCatalog(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to load unit catalog: %w", err)
	}
	svc := converter.NewService(catalog, cfg.DefaultPrecision)
	return Deps{
		Config:     cfg,
		Log:        log,
		Converter:  svc,
		ToolServer: toolserver.New(svc, log, version.Version),
	}, nil
}

// BuildClient connects to the tool server and builds the LLM client.
// Callers must Close the returned Tools.
func BuildClient(ctx context.Context, deps Deps) (ClientDeps, error) {
	llmClient, err := buildLLM(deps.Config, deps.Log)
	if err != nil {
		return ClientDeps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	tools, err := ConnectTools(ctx, deps)
	if err != nil {
		return ClientDeps{}, fmt.Errorf("failed to connect to tool server: %w", err)
	}
	return ClientDeps{Deps: deps, LLM: llmClient, Tools: tools}, nil
}

func buildCatalog(cfg config.Config, log *slog.Logger) (*units.Catalog, error) {
	if cfg.UnitsFile == "" {
		return units.Default()
	}
	catalog, err := units.LoadFile(cfg.UnitsFile)
	if err != nil {
		return nil, err
	}
	log.Info("using unit catalog from file", "path", cfg.UnitsFile)
	return catalog, nil
}

// ConnectTools opens a session with the tool server over the configured transport.
func ConnectTools(ctx context.Context, deps Deps) (*toolclient.Client, error) {
	cfg, log := deps.Config, deps.Log
	switch cfg.ToolTransport {
	case config.TransportInProcess, "":
		log.Debug("using in-process tool server")
		return toolclient.ConnectInProcess(ctx, deps.ToolServer.MCP(), log)
	case config.TransportCommand:
		if strings.TrimSpace(cfg.ToolServerCommand) == "" {
			return nil, fmt.Errorf("TOOL_SERVER_COMMAND is required when TOOL_TRANSPORT=command")
		}
		log.Info("spawning tool server", "command", cfg.ToolServerCommand, "args", cfg.ToolServerArgs)
		return toolclient.ConnectWithRetry(ctx, toolclient.CommandTransport(cfg.ToolServerCommand, cfg.ToolServerArgs), cfg.ToolConnectAttempts, connectRetryDelay, log)
	case config.TransportHTTP:
		if cfg.ToolServerURL == "" {
			return nil, fmt.Errorf("TOOL_SERVER_URL is required when TOOL_TRANSPORT=http")
		}
		log.Info("using remote tool server", "url", cfg.ToolServerURL)
		return toolclient.ConnectWithRetry(ctx, toolclient.HTTPTransport(cfg.ToolServerURL), cfg.ToolConnectAttempts, connectRetryDelay, log)
	default:
		return nil, fmt.Errorf("invalid TOOL_TRANSPORT: %s (valid options: inprocess, command, http)", cfg.ToolTransport)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	opts := llm.OpenAIOptions{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Timeout:     cfg.LLMTimeout,
		Temperature: cfg.LLMTemperature,
		MaxRetries:  cfg.LLMMaxRetries,
	}
	switch cfg.LLMProvider {
	case "openai":
		if opts.BaseURL == "" && opts.APIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER=openai without LLM_BASE_URL")
		}
	case "ollama":
		if opts.BaseURL == "" {
			opts.BaseURL = ollamaBaseURL
		}
		if opts.APIKey == "" {
			opts.APIKey = "ollama"
		}
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: openai, ollama)", cfg.LLMProvider)
	}
	client, err := llm.NewOpenAIClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	log.Info("using OpenAI-compatible LLM client", "provider", cfg.LLMProvider, "base_url", opts.BaseURL, "model", cfg.LLMModel)
	return client, nil
}
