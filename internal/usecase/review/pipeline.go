package review

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/lutradev/lutra/internal/diff"
	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/sanitize"
)

const defaultMaxConcurrentFiles = 4

// Options configures a Pipeline.
type Options struct {
	// MaxConcurrentFiles bounds the per-file fan-out. Zero means the
	// default.
	MaxConcurrentFiles int

	// Instructions are extra review instructions appended to every
	// prompt.
	Instructions string

	// PromptMaxTokens bounds the patch portion of each prompt. Zero
	// disables budgeting.
	PromptMaxTokens int

	// Apply controls whether decisions are sent to the platform. When
	// false the pipeline is a dry run: reconciliation results are
	// computed and reported but nothing is created or deleted.
	Apply bool
}

// Pipeline runs one review pass over a pull request: per file it builds
// the diff index, asks the provider for comments, sanitizes and
// reconciles the response, and applies the resulting decisions.
//
// Files are processed concurrently up to a fan-out limit; a file's
// failure never aborts the others. All state is pass-scoped, so no
// locking is needed beyond the outcome slot each file owns.
type Pipeline struct {
	platform PlatformClient
	provider Provider
	redactor Redactor
	logger   Logger
	counter  TokenCounter
	skip     SkipPolicy
	opts     Options
}

// NewPipeline wires a Pipeline from its collaborators. redactor,
// logger, and counter may be nil to disable the respective concern.
func NewPipeline(platform PlatformClient, provider Provider, redactor Redactor, logger Logger, counter TokenCounter, skip SkipPolicy, opts Options) *Pipeline {
	if opts.MaxConcurrentFiles <= 0 {
		opts.MaxConcurrentFiles = defaultMaxConcurrentFiles
	}
	return &Pipeline{
		platform: platform,
		provider: provider,
		redactor: redactor,
		logger:   logger,
		counter:  counter,
		skip:     skip,
		opts:     opts,
	}
}

// FileOutcome is the per-file contribution to a pass.
type FileOutcome struct {
	Path    string
	Result  domain.ReconciliationResult
	Created int
	Deleted int

	// Err is set when the file was skipped (malformed patch, provider
	// failure, platform failure). A skipped file contributes nothing.
	Err error
}

// Result is the outcome of one full review pass.
type Result struct {
	PullRequest domain.PullRequest
	Skipped     bool
	SkipReason  string
	Files       []FileOutcome
}

// Accepted returns every comment accepted for creation across all
// files, in file order. The fix planner consumes this.
func (r Result) Accepted() []domain.ReconciledComment {
	var all []domain.ReconciledComment
	for _, f := range r.Files {
		all = append(all, f.Result.ToCreate...)
	}
	return all
}

// Rejections returns every per-item rejection across all files.
func (r Result) Rejections() []domain.Rejection {
	var all []domain.Rejection
	for _, f := range r.Files {
		all = append(all, f.Result.Rejected...)
	}
	return all
}

// Run executes one review pass over the given pull request.
func (p *Pipeline) Run(ctx context.Context, number int) (Result, error) {
	pr, err := p.platform.GetPullRequest(ctx, number)
	if err != nil {
		return Result{}, fmt.Errorf("get pull request %d: %w", number, err)
	}

	if skip, reason := p.skip.ShouldSkip(pr); skip {
		p.logInfo(ctx, "review skipped", map[string]interface{}{"pr": number, "reason": reason})
		return Result{PullRequest: pr, Skipped: true, SkipReason: reason}, nil
	}

	files, err := p.platform.ListFiles(ctx, number)
	if err != nil {
		return Result{}, fmt.Errorf("list files for pull request %d: %w", number, err)
	}

	outcomes := make([]FileOutcome, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrentFiles)
	for i, file := range files {
		g.Go(func() error {
			outcomes[i] = p.reviewFile(gctx, pr, file)
			return nil
		})
	}
	// Worker funcs always return nil; file failures land in outcomes.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	return Result{PullRequest: pr, Files: outcomes}, nil
}

// reviewFile runs the sequential per-file pipeline. Any collaborator
// failure turns the file into an empty contribution; a sanitizer
// failure only empties the proposed comments for this pass.
func (p *Pipeline) reviewFile(ctx context.Context, pr domain.PullRequest, file domain.FileDiff) FileOutcome {
	outcome := FileOutcome{Path: file.Path}

	if file.Patch == "" {
		// Binary or otherwise patchless file: nothing reviewable.
		return outcome
	}

	ix, err := diff.Build(file.Patch)
	if err != nil {
		var malformed *diff.MalformedPatchError
		if errors.As(err, &malformed) {
			p.logWarning(ctx, "malformed patch, file skipped", map[string]interface{}{
				"path":   file.Path,
				"header": malformed.Header,
			})
		}
		outcome.Err = err
		return outcome
	}

	legal := ix.LegalLines()
	if len(legal) == 0 {
		return outcome
	}

	existing, err := p.platform.ListFileComments(ctx, pr.Number, file.Path)
	if err != nil {
		outcome.Err = fmt.Errorf("list comments for %s: %w", file.Path, err)
		return outcome
	}

	patch := file.Patch
	if p.redactor != nil {
		redacted, err := p.redactor.Redact(patch)
		if err != nil {
			outcome.Err = fmt.Errorf("redact %s: %w", file.Path, err)
			return outcome
		}
		patch = redacted
	}

	prompt := BuildPrompt(PromptInput{
		Path:         file.Path,
		Patch:        patch,
		LegalLines:   legal,
		Existing:     existing,
		Instructions: p.opts.Instructions,
	}, p.counter, p.opts.PromptMaxTokens)

	raw, err := p.provider.Review(ctx, ProviderRequest{Path: file.Path, Prompt: prompt})
	if err != nil {
		outcome.Err = fmt.Errorf("provider review of %s: %w", file.Path, err)
		return outcome
	}

	resp, err := sanitize.Sanitize(raw)
	if err != nil {
		// No structured data recovered: this pass proposes nothing for
		// the file, but the pass itself continues.
		p.logWarning(ctx, "unrecoverable model response", map[string]interface{}{
			"path":  file.Path,
			"error": err.Error(),
		})
		resp = domain.ReviewResponse{}
	}

	outcome.Result = Reconcile(ix, file.Path, existing, resp)

	if !p.opts.Apply {
		return outcome
	}

	// Deletions go first so a later pass never re-proposes a comment
	// whose deletion is still pending.
	for _, id := range outcome.Result.ToDelete {
		if err := p.platform.DeleteComment(ctx, id); err != nil {
			p.logWarning(ctx, "delete comment failed", map[string]interface{}{
				"path": file.Path,
				"id":   id,
			})
			continue
		}
		outcome.Deleted++
	}
	for _, c := range outcome.Result.ToCreate {
		if err := p.platform.CreateComment(ctx, pr.Number, pr.HeadSHA, c); err != nil {
			p.logWarning(ctx, "create comment failed", map[string]interface{}{
				"path": c.Path,
				"line": c.Line,
			})
			continue
		}
		outcome.Created++
	}

	return outcome
}

func (p *Pipeline) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.LogInfo(ctx, msg, fields)
	}
}

func (p *Pipeline) logWarning(ctx context.Context, msg string, fields map[string]interface{}) {
	if p.logger != nil {
		p.logger.LogWarning(ctx, msg, fields)
	}
}
