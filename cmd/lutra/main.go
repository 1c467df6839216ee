package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/lutradev/lutra/internal/adapter/cli"
	gitadapter "github.com/lutradev/lutra/internal/adapter/git"
	githubadapter "github.com/lutradev/lutra/internal/adapter/github"
	"github.com/lutradev/lutra/internal/adapter/llm"
	"github.com/lutradev/lutra/internal/adapter/llm/gemini"
	llmhttp "github.com/lutradev/lutra/internal/adapter/llm/http"
	"github.com/lutradev/lutra/internal/adapter/llm/ollama"
	"github.com/lutradev/lutra/internal/adapter/llm/openai"
	"github.com/lutradev/lutra/internal/adapter/llm/static"
	"github.com/lutradev/lutra/internal/adapter/observability"
	"github.com/lutradev/lutra/internal/adapter/store/sqlite"
	"github.com/lutradev/lutra/internal/config"
	"github.com/lutradev/lutra/internal/redaction"
	"github.com/lutradev/lutra/internal/usecase/fix"
	"github.com/lutradev/lutra/internal/usecase/review"
	"github.com/lutradev/lutra/internal/version"
)

// provider is the combined port every LLM adapter satisfies.
type provider interface {
	review.Provider
	fix.Provider
}

func main() {
	if err := run(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPaths: defaultConfigPaths(),
		FileName:    "lutra",
		EnvPrefix:   "LUTRA",
	})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}

	var appLogger *observability.Logger
	var httpLogger llmhttp.Logger
	if cfg.Observability.Logging.Enabled {
		appLogger = observability.NewLogger(
			observability.ParseLevel(cfg.Observability.Logging.Level),
			cfg.Observability.Logging.Format,
		)
		httpLogger = buildHTTPLogger(cfg.Observability.Logging)
	}

	llmProvider, err := buildProvider(cfg, httpLogger)
	if err != nil {
		return err
	}

	owner, repo, err := githubadapter.ParseRepoFullName(cfg.GitHub.Repository)
	if err != nil {
		return fmt.Errorf("github repository: %w", err)
	}
	platform := githubadapter.NewClient(cfg.GitHub.Token, owner, repo)

	var redactor review.Redactor
	if cfg.Redaction.Enabled {
		redactor = redaction.NewEngine()
	}

	skipPolicy, err := review.NewSkipPolicy(cfg.Review.SkipTitlePatterns, cfg.Review.SkipStatePatterns)
	if err != nil {
		return fmt.Errorf("skip patterns: %w", err)
	}

	var reviewStore review.Store
	if cfg.Store.Enabled {
		storeDir := filepath.Dir(cfg.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			log.Printf("warning: failed to create store directory: %v", err)
		} else {
			sqliteStore, err := sqlite.NewStore(cfg.Store.Path)
			if err != nil {
				log.Printf("warning: failed to initialize store: %v", err)
			} else {
				reviewStore = sqliteStore
				defer reviewStore.Close()
			}
		}
	}

	var reviewLogger review.Logger
	var fixLogger fix.Logger
	if appLogger != nil {
		reviewLogger = appLogger
		fixLogger = appLogger
	}

	var fixer cli.Fixer
	if cfg.Fix.Enabled {
		fixer = fix.NewGenerator(platform, llmProvider, fixLogger)
	}

	newPipeline := func(p review.PlatformClient, apply bool) cli.Reviewer {
		return review.NewPipeline(p, llmProvider, redactor, reviewLogger, llm.EstimateTokens, skipPolicy, review.Options{
			MaxConcurrentFiles: cfg.Review.MaxConcurrentFiles,
			Instructions:       cfg.Review.Instructions,
			PromptMaxTokens:    cfg.Review.PromptMaxTokens,
			Apply:              apply,
		})
	}

	root := cli.NewRootCommand(cli.Dependencies{
		Args: cli.Arguments{OutWriter: os.Stdout, ErrWriter: os.Stderr, InReader: os.Stdin},
		NewReviewer: func(apply bool) cli.Reviewer {
			return newPipeline(platform, apply)
		},
		NewLocalReviewer: func(repoDir, baseRef, targetRef string) cli.Reviewer {
			return newPipeline(gitadapter.NewLocalPlatform(repoDir, baseRef, targetRef), false)
		},
		Fixer:     fixer,
		Store:     reviewStore,
		ConfirmFD: int(os.Stdin.Fd()),
		Version:   version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

func buildProvider(cfg config.Config, httpLogger llmhttp.Logger) (provider, error) {
	timeout := llmhttp.ParseTimeout(cfg.HTTP.Timeout, 60*time.Second)
	retryConf := llmhttp.BuildRetryConfig(cfg.HTTP.MaxRetries, cfg.HTTP.InitialBackoff, cfg.HTTP.MaxBackoff, cfg.HTTP.BackoffMultiplier)

	switch cfg.Provider.Name {
	case "openai":
		client := openai.NewHTTPClient(cfg.Provider.APIKey, cfg.Provider.Model)
		client.SetTimeout(timeout)
		client.SetRetryConfig(retryConf)
		if httpLogger != nil {
			client.SetLogger(httpLogger)
		}
		return openai.NewProvider(client, cfg.Provider.MaxTokens, cfg.Provider.Temperature), nil
	case "gemini":
		client := gemini.NewHTTPClient(cfg.Provider.APIKey, cfg.Provider.Model)
		client.SetTimeout(timeout)
		client.SetRetryConfig(retryConf)
		if httpLogger != nil {
			client.SetLogger(httpLogger)
		}
		return gemini.NewProvider(client, cfg.Provider.MaxTokens, cfg.Provider.Temperature), nil
	case "ollama":
		host := os.Getenv("OLLAMA_HOST")
		if host == "" {
			host = "http://localhost:11434"
		}
		client := ollama.NewHTTPClient(host, cfg.Provider.Model)
		client.SetTimeout(llmhttp.ParseTimeout(cfg.HTTP.Timeout, 120*time.Second))
		client.SetRetryConfig(retryConf)
		if httpLogger != nil {
			client.SetLogger(httpLogger)
		}
		return ollama.NewProvider(client, cfg.Provider.Temperature), nil
	case "static":
		return static.NewProvider(""), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider.Name)
	}
}

func buildHTTPLogger(cfg config.LoggingConfig) llmhttp.Logger {
	level := llmhttp.LogLevelInfo
	switch cfg.Level {
	case "debug":
		level = llmhttp.LogLevelDebug
	case "error":
		level = llmhttp.LogLevelError
	}

	format := llmhttp.LogFormatHuman
	if cfg.Format == "json" {
		format = llmhttp.LogFormatJSON
	}

	return llmhttp.NewDefaultLogger(level, format, cfg.RedactAPIKeys)
}

func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lutra"))
	}
	return paths
}
