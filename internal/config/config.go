// Package config defines the application configuration and its
// file/environment loader.
package config

import "fmt"

// Config represents the full application configuration.
type Config struct {
	Provider      ProviderConfig      `yaml:"provider"`
	HTTP          HTTPConfig          `yaml:"http"`
	GitHub        GitHubConfig        `yaml:"github"`
	Review        ReviewConfig        `yaml:"review"`
	Fix           FixConfig           `yaml:"fix"`
	Redaction     RedactionConfig     `yaml:"redaction"`
	Store         StoreConfig         `yaml:"store"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProviderConfig selects and configures the model provider.
type ProviderConfig struct {
	// Name selects the provider: openai, gemini, or static.
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"apiKey"`
	MaxTokens   int     `yaml:"maxTokens"`
	Temperature float64 `yaml:"temperature"`
}

// HTTPConfig holds global HTTP client settings.
type HTTPConfig struct {
	Timeout           string  `yaml:"timeout"`
	MaxRetries        int     `yaml:"maxRetries"`
	InitialBackoff    string  `yaml:"initialBackoff"`
	MaxBackoff        string  `yaml:"maxBackoff"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
}

// GitHubConfig identifies the repository under review.
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Repository string `yaml:"repository"` // owner/repo
}

// ReviewConfig configures the review pass.
type ReviewConfig struct {
	// Instructions are appended to every review prompt.
	Instructions string `yaml:"instructions"`

	// MaxConcurrentFiles bounds the per-file fan-out.
	MaxConcurrentFiles int `yaml:"maxConcurrentFiles"`

	// PromptMaxTokens bounds the patch portion of each prompt.
	PromptMaxTokens int `yaml:"promptMaxTokens"`

	// SkipTitlePatterns and SkipStatePatterns override the built-in
	// skip rules; empty keeps the defaults.
	SkipTitlePatterns []string `yaml:"skipTitlePatterns"`
	SkipStatePatterns []string `yaml:"skipStatePatterns"`
}

// FixConfig configures fix generation.
type FixConfig struct {
	Enabled bool `yaml:"enabled"`
}

// RedactionConfig configures secret redaction of outbound patches.
type RedactionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StoreConfig configures pass-history persistence.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Level         string `yaml:"level"`  // debug, info, error
	Format        string `yaml:"format"` // json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}

// Validate checks the invariants that cannot wait until first use.
func (c Config) Validate() error {
	switch c.Provider.Name {
	case "openai", "gemini", "ollama", "static":
	case "":
		return fmt.Errorf("provider.name is required")
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}

	// static is canned and ollama is a local server; neither needs a key.
	if c.Provider.Name != "static" && c.Provider.Name != "ollama" && c.Provider.APIKey == "" {
		return fmt.Errorf("provider.apiKey is required for provider %q", c.Provider.Name)
	}
	if c.GitHub.Repository == "" {
		return fmt.Errorf("github.repository is required")
	}
	return nil
}
