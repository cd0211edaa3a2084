// Package config provides Viper-based configuration for commitstream,
// layering flags over environment variables over an optional YAML file
// over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MinInstructionLen is the shortest custom instruction worth sending; a
// non-empty instruction below it is rejected at load time.
const MinInstructionLen = 12

// Config is the complete commitstream configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Prompt  PromptConfig  `mapstructure:"prompt"`
	Files   FilesConfig   `mapstructure:"files"`
	History HistoryConfig `mapstructure:"history"`
}

// APIConfig describes the completion endpoint and request knobs.
type APIConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	Key            string  `mapstructure:"key"`
	Model          string  `mapstructure:"model"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// PromptConfig shapes the assembled messages.
type PromptConfig struct {
	Conventional       bool   `mapstructure:"conventional"`
	CustomInstructions string `mapstructure:"custom_instructions"`
	Template           string `mapstructure:"template"`
	MaxChars           int    `mapstructure:"max_chars"`
}

// FilesConfig controls which staged files reach the prompt.
type FilesConfig struct {
	Max       int      `mapstructure:"max"`
	Ignored   []string `mapstructure:"ignored"`
	Summarize bool     `mapstructure:"summarize"`
}

// HistoryConfig controls how much commit history seeds the prompt.
type HistoryConfig struct {
	Recent int `mapstructure:"recent"`
}

var models = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
	"gpt-4-turbo",
	"gpt-3.5-turbo",
}

// Models lists the accepted model names.
func Models() []string {
	return slices.Clone(models)
}

// flagKeys maps CLI flag names onto config keys for BindPFlag.
var flagKeys = map[string]string{
	"base-url":     "api.base_url",
	"model":        "api.model",
	"max-tokens":   "api.max_tokens",
	"temperature":  "api.temperature",
	"timeout":      "api.timeout_seconds",
	"conventional": "prompt.conventional",
	"instructions": "prompt.custom_instructions",
	"max-chars":    "prompt.max_chars",
	"max-files":    "files.max",
	"summarize":    "files.summarize",
	"recent":       "history.recent",
}

// fileUsed records the config file the most recent Load read, if any.
var fileUsed string

// FileUsed returns the path of the config file the last Load read, or
// the empty string when only defaults, env and flags applied.
func FileUsed() string {
	return fileUsed
}

// Load reads configuration from file, environment variables and bound
// flags. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		// Search paths for .commitstream.yaml
		v.SetConfigName(".commitstream")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		v.AddConfigPath("$HOME/.config/commitstream")
	}

	// Environment variables
	v.SetEnvPrefix("COMMITSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// OPENAI_API_KEY is honored as the conventional alias.
	if err := v.BindEnv("api.key", "COMMITSTREAM_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, err
	}

	setDefaults(v)

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}
	fileUsed = v.ConfigFileUsed()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.openai.com/v1")
	v.SetDefault("api.model", "gpt-4o-mini")
	v.SetDefault("api.max_tokens", 256)
	v.SetDefault("api.temperature", 0.2)
	v.SetDefault("api.timeout_seconds", 120)

	v.SetDefault("prompt.conventional", true)
	v.SetDefault("prompt.max_chars", 80000)

	v.SetDefault("files.max", 10)
	v.SetDefault("files.summarize", true)

	v.SetDefault("history.recent", 5)
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if !slices.Contains(models, cfg.API.Model) {
		return fmt.Errorf("invalid model: %s (must be one of %s)", cfg.API.Model, strings.Join(models, ", "))
	}
	if cfg.API.Temperature < 0 || cfg.API.Temperature > 2 {
		return fmt.Errorf("invalid temperature: %v (must be between 0 and 2)", cfg.API.Temperature)
	}
	if cfg.API.MaxTokens < 1 {
		return fmt.Errorf("invalid max_tokens: %d (must be at least 1)", cfg.API.MaxTokens)
	}
	if cfg.API.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid timeout_seconds: %d (must be at least 1)", cfg.API.TimeoutSeconds)
	}
	if s := strings.TrimSpace(cfg.Prompt.CustomInstructions); s != "" && utf8.RuneCountInString(s) < MinInstructionLen {
		return fmt.Errorf("custom instructions too short: %d characters (must be at least %d)", utf8.RuneCountInString(s), MinInstructionLen)
	}
	if cfg.Prompt.MaxChars < 1 {
		return fmt.Errorf("invalid max_chars: %d (must be at least 1)", cfg.Prompt.MaxChars)
	}
	if cfg.Files.Max < 1 {
		return fmt.Errorf("invalid files.max: %d (must be at least 1)", cfg.Files.Max)
	}
	if cfg.History.Recent < 0 {
		return fmt.Errorf("invalid history.recent: %d (must not be negative)", cfg.History.Recent)
	}
	return nil
}

// RequireAPIKey reports whether the configuration can open a completion
// session; commands that never talk to the provider skip this check.
func (c *Config) RequireAPIKey() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return fmt.Errorf("no API key configured: set COMMITSTREAM_API_KEY, OPENAI_API_KEY, or api.key in .commitstream.yaml")
	}
	return nil
}

// Timeout returns the whole-request ceiling as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// Save writes cfg as YAML. An empty path targets $HOME/.commitstream.yaml.
func Save(cfg *Config, path string) error {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		path = filepath.Join(home, ".commitstream.yaml")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.key", cfg.API.Key)
	v.Set("api.model", cfg.API.Model)
	v.Set("api.max_tokens", cfg.API.MaxTokens)
	v.Set("api.temperature", cfg.API.Temperature)
	v.Set("api.timeout_seconds", cfg.API.TimeoutSeconds)
	v.Set("prompt.conventional", cfg.Prompt.Conventional)
	v.Set("prompt.custom_instructions", cfg.Prompt.CustomInstructions)
	v.Set("prompt.template", cfg.Prompt.Template)
	v.Set("prompt.max_chars", cfg.Prompt.MaxChars)
	v.Set("files.max", cfg.Files.Max)
	v.Set("files.ignored", cfg.Files.Ignored)
	v.Set("files.summarize", cfg.Files.Summarize)
	v.Set("history.recent", cfg.History.Recent)
	return v.WriteConfigAs(path)
}
