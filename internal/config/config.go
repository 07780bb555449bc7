package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

const defaultSystemPrompt = `You are a helpful, friendly, and knowledgeable assistant.
Your responses should be informative, engaging, and accurate.
If you're unsure about something, acknowledge your uncertainty rather than providing incorrect information.
Be respectful, avoid harmful content, and maintain a conversational tone.`

var ErrConfigurationMissing = errors.New("configuration missing")

// Generation holds the model parameters sent with every completion request.
type Generation struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

type Config struct {
	TelegramToken    string
	Provider         string
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	SystemPrompt     string
	HistoryExchanges int
	HistoryBackend   string
	Generation       Generation
	RequestTimeout   time.Duration
	MaxMessageLength int
	LogLevel         string
	// MetricsAddr is the listen address for /metrics; empty disables it.
	MetricsAddr string
}

// APIKey returns the key for the selected completion provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// Model returns the model name for the selected completion provider.
func (c Config) Model() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIModel
	}
	return c.GeminiModel
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("COMPLETION_PROVIDER", ProviderGemini)
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-pro")
	v.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	v.SetDefault("SYSTEM_PROMPT", defaultSystemPrompt)
	v.SetDefault("HISTORY_EXCHANGES", 10)
	v.SetDefault("HISTORY_BACKEND", BackendMemory)
	v.SetDefault("TEMPERATURE", 0.7)
	v.SetDefault("TOP_P", 0.95)
	v.SetDefault("TOP_K", 40)
	v.SetDefault("MAX_OUTPUT_TOKENS", 2048)
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("MAX_MESSAGE_LENGTH", 4096)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()
	return v
}

// Load reads configuration from envFile (KEY=value lines, optional) with the
// process environment taking precedence. It fails when a credential needed
// to serve traffic is missing.
func Load(envFile string) (Config, error) {
	cfg, err := read(envFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadCompletion is Load without the Telegram token requirement, for tools
// that only talk to the completion API.
func LoadCompletion(envFile string) (Config, error) {
	cfg, err := read(envFile)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.validateCompletion(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func read(envFile string) (Config, error) {
	v := newViper()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read %s: %w", envFile, err)
			}
		}
	}

	cfg := Config{
		TelegramToken:    strings.TrimSpace(v.GetString("TELEGRAM_TOKEN")),
		Provider:         strings.ToLower(strings.TrimSpace(v.GetString("COMPLETION_PROVIDER"))),
		GeminiAPIKey:     strings.TrimSpace(v.GetString("GEMINI_API_KEY")),
		GeminiModel:      v.GetString("GEMINI_MODEL"),
		OpenAIAPIKey:     strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		OpenAIModel:      v.GetString("OPENAI_MODEL"),
		OpenAIBaseURL:    v.GetString("OPENAI_BASE_URL"),
		SystemPrompt:     v.GetString("SYSTEM_PROMPT"),
		HistoryExchanges: v.GetInt("HISTORY_EXCHANGES"),
		HistoryBackend:   strings.ToLower(strings.TrimSpace(v.GetString("HISTORY_BACKEND"))),
		Generation: Generation{
			Temperature:     float32(v.GetFloat64("TEMPERATURE")),
			TopP:            float32(v.GetFloat64("TOP_P")),
			TopK:            v.GetInt("TOP_K"),
			MaxOutputTokens: v.GetInt("MAX_OUTPUT_TOKENS"),
		},
		RequestTimeout:   v.GetDuration("REQUEST_TIMEOUT"),
		MaxMessageLength: v.GetInt("MAX_MESSAGE_LENGTH"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		MetricsAddr:      strings.TrimSpace(v.GetString("METRICS_ADDR")),
	}
	return cfg, nil
}

// Validate checks everything the server needs before serving traffic.
func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("%w: TELEGRAM_TOKEN is required", ErrConfigurationMissing)
	}
	return c.validateCompletion()
}

func (c Config) validateCompletion() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY is required when COMPLETION_PROVIDER=%s", ErrConfigurationMissing, ProviderGemini)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required when COMPLETION_PROVIDER=%s", ErrConfigurationMissing, ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown COMPLETION_PROVIDER %q (want %s or %s)", c.Provider, ProviderGemini, ProviderOpenAI)
	}

	switch c.HistoryBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q (want %s or %s)", c.HistoryBackend, BackendMemory, BackendSQLite)
	}

	if c.HistoryExchanges <= 0 {
		return fmt.Errorf("HISTORY_EXCHANGES must be positive, got %d", c.HistoryExchanges)
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	return nil
}
