package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Tool server transports.
const (
	TransportInProcess = "inprocess"
	TransportCommand   = "command"
	TransportHTTP      = "http"
)

// Config holds runtime configuration for both binaries.
type Config struct {
	// Logging
	// LogLevel empty means the binary's own default: info for the server,
	// warn for the interactive client so logs stay out of the chat.
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// LLM
	LLMProvider    string        `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (any OpenAI-compatible endpoint) or "ollama"
	LLMBaseURL     string        `env:"LLM_BASE_URL" envDefault:"http://localhost:11434/v1/"`
	LLMAPIKey      string        `env:"LLM_API_KEY" envDefault:"ollama"`
	LLMModel       string        `env:"LLM_MODEL" envDefault:"llama3.1:8b"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE" envDefault:"0.2"`
	LLMMaxRetries  int           `env:"LLM_MAX_RETRIES" envDefault:"2"`

	// Tool server connection (client side)
	ToolTransport       string `env:"TOOL_TRANSPORT" envDefault:"inprocess"`
	// ToolServerCommand is split on whitespace into program and arguments
	// unless ToolServerArgs is set, in which case it is the program path as is.
	ToolServerCommand   string   `env:"TOOL_SERVER_COMMAND" envDefault:"unitconv-server"`
	ToolServerArgs      []string `env:"TOOL_SERVER_ARGS" envSeparator:","`
	ToolServerURL       string `env:"TOOL_SERVER_URL" envDefault:"http://localhost:8080/mcp"`
	ToolConnectAttempts int    `env:"TOOL_CONNECT_ATTEMPTS" envDefault:"3"`

	// Conversion
	UnitsFile        string `env:"UNITS_FILE"`
	DefaultPrecision int    `env:"DEFAULT_PRECISION" envDefault:"6"`

	// Server http mode
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// REPL line history; empty disables it.
	HistoryFile string `env:"HISTORY_FILE"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
