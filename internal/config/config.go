package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const DefaultSystemPrompt = `You are ALIRA, a strategic planning consultant. Help the user develop a personalized 90-day action plan through natural conversation.`

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string

	// AI provider
	AIProvider   string
	SystemPrompt string
	MaxTokens    int

	AnthropicBaseURL string
	AnthropicAPIKey  string
	AnthropicModel   string

	OllamaBaseURL string
	OllamaModel   string

	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterSiteURL string
	OpenRouterAppName string
}

// ProviderModel returns the configured model of the selected provider.
func (c Config) ProviderModel() string {
	switch strings.ToLower(c.AIProvider) {
	case "ollama":
		return c.OllamaModel
	case "openrouter":
		return c.OpenRouterModel
	default:
		return c.AnthropicModel
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("AI_PROVIDER", "anthropic")
	v.SetDefault("SYSTEM_PROMPT", DefaultSystemPrompt)
	v.SetDefault("MAX_TOKENS", 500)

	v.SetDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com")
	v.SetDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022")

	v.SetDefault("OLLAMA_BASE_URL", "http://localhost:11434")
	v.SetDefault("OLLAMA_MODEL", "llama3:latest")

	v.SetDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("OPENROUTER_MODEL", "openrouter/auto")
}

// Load reads the configuration from the environment. When CONFIG_FILE points
// to a file, its keys (same names as the environment variables) are read
// first and the environment still wins.
func Load() Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		// a missing or broken file leaves defaults + env in place
		_ = v.ReadInConfig()
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) Config {
	maxTokens := v.GetInt("MAX_TOKENS")
	if maxTokens <= 0 {
		maxTokens = 500
	}
	shutdown := v.GetDuration("SHUTDOWN_TIMEOUT")
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}

	return Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ShutdownTimeout: shutdown,

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		AIProvider:   strings.ToLower(strings.TrimSpace(v.GetString("AI_PROVIDER"))),
		SystemPrompt: v.GetString("SYSTEM_PROMPT"),
		MaxTokens:    maxTokens,

		AnthropicBaseURL: v.GetString("ANTHROPIC_BASE_URL"),
		AnthropicAPIKey:  v.GetString("ANTHROPIC_API_KEY"),
		AnthropicModel:   v.GetString("ANTHROPIC_MODEL"),

		OllamaBaseURL: v.GetString("OLLAMA_BASE_URL"),
		OllamaModel:   v.GetString("OLLAMA_MODEL"),

		OpenRouterBaseURL: v.GetString("OPENROUTER_BASE_URL"),
		OpenRouterAPIKey:  v.GetString("OPENROUTER_API_KEY"),
		OpenRouterModel:   v.GetString("OPENROUTER_MODEL"),
		OpenRouterSiteURL: v.GetString("OPENROUTER_SITE_URL"),
		OpenRouterAppName: v.GetString("OPENROUTER_APP_NAME"),
	}
}
