// Package git produces file diffs from a local repository so reviews
// can run against two refs without a hosting platform.
package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/lutradev/lutra/internal/domain"
)

// Engine computes diffs from a local repository using go-git.
type Engine struct {
	repoDir string
}

// NewEngine constructs an engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// Diff returns the per-file patches between baseRef and targetRef.
// Patches are trimmed to start at the first hunk header so line
// positions match the hosting platform's patch format. Binary files
// are returned with an empty patch.
func (e *Engine) Diff(ctx context.Context, baseRef, targetRef string) ([]domain.FileDiff, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return nil, fmt.Errorf("resolve base ref: %w", err)
	}

	targetCommit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return nil, fmt.Errorf("resolve target ref: %w", err)
	}

	patch, err := baseCommit.PatchContext(ctx, targetCommit)
	if err != nil {
		return nil, fmt.Errorf("compute patch: %w", err)
	}

	fileDiffs := make([]domain.FileDiff, 0, len(patch.FilePatches()))
	for _, fp := range patch.FilePatches() {
		path, status := pathAndStatus(fp)
		patchText := ""
		if !fp.IsBinary() {
			patchText, err = encodeFilePatch(fp)
			if err != nil {
				return nil, fmt.Errorf("encode patch for %s: %w", path, err)
			}
		}
		fileDiffs = append(fileDiffs, domain.FileDiff{
			Path:   path,
			Status: status,
			Patch:  trimFileHeader(patchText),
		})
	}
	return fileDiffs, nil
}

// HeadSHA returns the hash of the commit a ref points to.
func (e *Engine) HeadSHA(ctx context.Context, ref string) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	commit, err := resolveCommit(repo, ref)
	if err != nil {
		return "", fmt.Errorf("resolve ref: %w", err)
	}
	return commit.Hash.String(), nil
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

func pathAndStatus(fp formatdiff.FilePatch) (path, status string) {
	from, to := fp.Files()

	switch {
	case from == nil && to != nil:
		return to.Path(), domain.FileStatusAdded
	case from != nil && to == nil:
		return from.Path(), domain.FileStatusRemoved
	case from != nil && to != nil:
		if from.Path() != to.Path() {
			return to.Path(), domain.FileStatusRenamed
		}
		return to.Path(), domain.FileStatusModified
	default:
		return "", domain.FileStatusModified
	}
}

// trimFileHeader drops the "diff --git" / "---" / "+++" preamble so
// the patch starts at its first hunk header, matching the patch text
// the hosting platform serves.
func trimFileHeader(patchText string) string {
	if patchText == "" {
		return ""
	}
	idx := strings.Index(patchText, "@@")
	if idx < 0 {
		return ""
	}
	// Only trim when "@@" begins a line.
	if idx > 0 && patchText[idx-1] != '\n' {
		return patchText
	}
	return patchText[idx:]
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}
