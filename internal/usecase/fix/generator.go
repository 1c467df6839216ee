package fix

import (
	"context"
	"fmt"

	"github.com/lutradev/lutra/internal/domain"
)

// Provider defines the outbound port for fix generation. It returns
// the complete regenerated file content as raw text.
type Provider interface {
	Fix(ctx context.Context, req Request) (string, error)
}

// Request carries the rendered fix prompt for one file.
type Request struct {
	Path   string
	Prompt string
}

// PlatformClient defines the hosting-platform operations the fix
// pipeline needs: reading originals and publishing the fix branch.
type PlatformClient interface {
	GetFileContent(ctx context.Context, path, ref string) (string, error)
	CreateBranch(ctx context.Context, branch, sha string) error
	CommitFile(ctx context.Context, branch, message string, fix domain.FileFix) error
	CreatePullRequest(ctx context.Context, title, body, head, base string) (int, error)
}

// Logger is the structured logging port.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Generator drives fix generation for the accepted comments of one
// review pass.
type Generator struct {
	platform PlatformClient
	provider Provider
	logger   Logger
}

// NewGenerator wires a Generator. logger may be nil.
func NewGenerator(platform PlatformClient, provider Provider, logger Logger) *Generator {
	return &Generator{platform: platform, provider: provider, logger: logger}
}

// Result reports what the fix pass changed.
type Result struct {
	Branch     string
	Fixed      []string
	Failed     []string
	PullNumber int
}

// BranchName returns the fix branch for a pull request.
func BranchName(prNumber int) string {
	return fmt.Sprintf("lutra/fixes-for-pr-%d", prNumber)
}

// Run generates and publishes fixes for the accepted comments of pr.
// Each file is one unit of work: a provider or platform failure for a
// file records it as failed and moves on, leaving its original content
// untouched. With nothing to fix or nothing changed, no branch or pull
// request is created.
func (g *Generator) Run(ctx context.Context, pr domain.PullRequest, accepted []domain.ReconciledComment) (Result, error) {
	plan := Plan(accepted)
	if len(plan) == 0 {
		return Result{}, nil
	}

	branch := BranchName(pr.Number)
	result := Result{Branch: branch}

	if err := g.platform.CreateBranch(ctx, branch, pr.HeadSHA); err != nil {
		return Result{}, fmt.Errorf("create branch %s: %w", branch, err)
	}

	for _, path := range sortedPaths(plan) {
		comments := plan[path]

		original, err := g.platform.GetFileContent(ctx, path, pr.HeadRef)
		if err != nil {
			g.logWarning(ctx, "fetch original failed, file not fixed", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			result.Failed = append(result.Failed, path)
			continue
		}
		if original == "" {
			result.Failed = append(result.Failed, path)
			continue
		}

		raw, err := g.provider.Fix(ctx, Request{
			Path:   path,
			Prompt: BuildFixPrompt(path, original, comments),
		})
		if err != nil {
			g.logWarning(ctx, "fix generation failed, file not fixed", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			result.Failed = append(result.Failed, path)
			continue
		}

		fixed := ExtractContent(raw)
		if fixed == "" || fixed == original {
			// Fail open to a no-op: the original stays as-is.
			continue
		}

		message := fmt.Sprintf("Fix %s based on review comments", path)
		if err := g.platform.CommitFile(ctx, branch, message, domain.FileFix{Path: path, Content: fixed}); err != nil {
			g.logWarning(ctx, "commit failed, file not fixed", map[string]interface{}{
				"path": path, "error": err.Error(),
			})
			result.Failed = append(result.Failed, path)
			continue
		}
		result.Fixed = append(result.Fixed, path)
	}

	if len(result.Fixed) == 0 {
		return result, nil
	}

	title := fmt.Sprintf("Automated fixes for PR #%d", pr.Number)
	body := fixPRBody(pr.Number, result.Fixed)
	number, err := g.platform.CreatePullRequest(ctx, title, body, branch, pr.HeadRef)
	if err != nil {
		return result, fmt.Errorf("create fix pull request: %w", err)
	}
	result.PullNumber = number

	g.logInfo(ctx, "fix pull request created", map[string]interface{}{
		"pr": number, "files": len(result.Fixed),
	})
	return result, nil
}

func fixPRBody(base int, fixed []string) string {
	body := fmt.Sprintf("Automated fixes addressing review comments on #%d.\n\nFiles changed:\n", base)
	for _, f := range fixed {
		body += "- " + f + "\n"
	}
	return body
}

func (g *Generator) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if g.logger != nil {
		g.logger.LogInfo(ctx, msg, fields)
	}
}

func (g *Generator) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if g.logger != nil {
		g.logger.LogWarning(ctx, msg, fields)
	}
}
