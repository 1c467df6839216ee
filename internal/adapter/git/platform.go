package git

import (
	"context"
	"fmt"

	"github.com/lutradev/lutra/internal/domain"
)

// LocalPlatform adapts a local repository to the review pipeline's
// platform port. It serves diffs computed by the engine and carries no
// comment state, so it only supports dry-run passes.
type LocalPlatform struct {
	engine    *Engine
	baseRef   string
	targetRef string
}

// NewLocalPlatform builds a platform over the local repository at
// repoDir, reviewing targetRef against baseRef.
func NewLocalPlatform(repoDir, baseRef, targetRef string) *LocalPlatform {
	return &LocalPlatform{
		engine:    NewEngine(repoDir),
		baseRef:   baseRef,
		targetRef: targetRef,
	}
}

// GetPullRequest synthesizes pull request metadata from the two refs.
// The number is echoed back so pass records stay well-formed. The
// title is a fixed neutral string: ref names must never leak into it,
// or a branch called e.g. "wip-cache" would trip title skip patterns.
func (p *LocalPlatform) GetPullRequest(ctx context.Context, number int) (domain.PullRequest, error) {
	headSHA, err := p.engine.HeadSHA(ctx, p.targetRef)
	if err != nil {
		return domain.PullRequest{}, err
	}
	return domain.PullRequest{
		Number:  number,
		Title:   "Local review",
		State:   "open",
		HeadSHA: headSHA,
		HeadRef: p.targetRef,
		BaseRef: p.baseRef,
	}, nil
}

// ListFiles returns the per-file patches between the two refs.
func (p *LocalPlatform) ListFiles(ctx context.Context, number int) ([]domain.FileDiff, error) {
	return p.engine.Diff(ctx, p.baseRef, p.targetRef)
}

// ListFileComments always returns an empty set; a local repository has
// no review comments.
func (p *LocalPlatform) ListFileComments(ctx context.Context, number int, path string) ([]domain.ExistingComment, error) {
	return nil, nil
}

// CreateComment is unsupported; local reviews are dry-run only.
func (p *LocalPlatform) CreateComment(ctx context.Context, number int, commitSHA string, comment domain.ReconciledComment) error {
	return fmt.Errorf("local repository cannot hold review comments")
}

// DeleteComment is unsupported; local reviews are dry-run only.
func (p *LocalPlatform) DeleteComment(ctx context.Context, commentID int64) error {
	return fmt.Errorf("local repository cannot hold review comments")
}
