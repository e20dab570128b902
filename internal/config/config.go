// Package config handles Tinker configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/tinker/config.yaml, /etc/tinker/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "tinker", "config.yaml"))
	}

	paths = append(paths, "/etc/tinker/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Tinker configuration.
type Config struct {
	Listen   ListenConfig   `yaml:"listen"`
	Groq     GroqConfig     `yaml:"groq"`
	Agent    AgentConfig    `yaml:"agent"`
	Search   SearchConfig   `yaml:"search"`
	Discord  DiscordConfig  `yaml:"discord"`
	IMessage IMessageConfig `yaml:"imessage"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// GroqConfig defines the completion service settings.
type GroqConfig struct {
	// APIKey authenticates against the Groq API. Falls back to the
	// GROQ_API_KEY environment variable when empty.
	APIKey string `yaml:"api_key"`
	// BaseURL overrides the API endpoint (useful for tests and proxies).
	BaseURL string `yaml:"base_url"`
	// FastModel handles classification, small talk, and summaries.
	FastModel string `yaml:"fast_model"`
	// ReasoningModel drives the tool-use loop.
	ReasoningModel string `yaml:"reasoning_model"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	// MaxSteps bounds the think/act/observe iterations per request.
	MaxSteps int `yaml:"max_steps"`
	// RateLimit controls per-user admission.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines the sliding admission window.
type RateLimitConfig struct {
	MaxRequests   int `yaml:"max_requests"`
	PeriodSeconds int `yaml:"period_seconds"`
}

// SearchConfig selects the web search provider.
type SearchConfig struct {
	// Provider is the primary backend: "duckduckgo" (default, keyless)
	// or "brave" (requires BraveAPIKey).
	Provider    string `yaml:"provider"`
	BraveAPIKey string `yaml:"brave_api_key"`
}

// DiscordConfig defines the Discord chat surface.
type DiscordConfig struct {
	Enabled bool `yaml:"enabled"`
	// Token falls back to the DISCORD_TOKEN environment variable.
	Token string `yaml:"token"`
}

// IMessageConfig defines the local Messages database bridge.
type IMessageConfig struct {
	Enabled bool `yaml:"enabled"`
	// DBPath is the Messages sqlite database. Defaults to
	// ~/Library/Messages/chat.db.
	DBPath string `yaml:"db_path"`
	// Trigger is the mention token that wakes the bot (default "@tinker").
	Trigger string `yaml:"trigger"`
}

// LoadEnv loads a .env file from the working directory if one exists.
// Missing files are not an error; process environment values win over
// file values either way.
func LoadEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Groq: GroqConfig{
			FastModel:      "llama3-8b-8192",
			ReasoningModel: "llama3-70b-8192",
		},
		Agent: AgentConfig{
			MaxSteps: 5,
			RateLimit: RateLimitConfig{
				MaxRequests:   5,
				PeriodSeconds: 600,
			},
		},
		Search: SearchConfig{Provider: "duckduckgo"},
		IMessage: IMessageConfig{
			Trigger: "@tinker",
		},
		DataDir: "data",
	}
}

// applyEnv fills secrets from the environment when the config file
// leaves them blank. Secrets belong in the environment (or .env), not
// in a config file that tends to get committed.
func (c *Config) applyEnv() {
	if c.Groq.APIKey == "" {
		c.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.Discord.Token == "" {
		c.Discord.Token = os.Getenv("DISCORD_TOKEN")
	}
	if c.Search.BraveAPIKey == "" {
		c.Search.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
}
