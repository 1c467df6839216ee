package fix_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/usecase/fix"
)

type mockPlatform struct {
	getFileContent    func(ctx context.Context, path, ref string) (string, error)
	createBranch      func(ctx context.Context, branch, sha string) error
	commitFile        func(ctx context.Context, branch, message string, f domain.FileFix) error
	createPullRequest func(ctx context.Context, title, body, head, base string) (int, error)

	branches []string
	commits  []domain.FileFix
	prTitles []string
}

func (m *mockPlatform) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	if m.getFileContent != nil {
		return m.getFileContent(ctx, path, ref)
	}
	return "original content of " + path, nil
}

func (m *mockPlatform) CreateBranch(ctx context.Context, branch, sha string) error {
	if m.createBranch != nil {
		return m.createBranch(ctx, branch, sha)
	}
	m.branches = append(m.branches, branch)
	return nil
}

func (m *mockPlatform) CommitFile(ctx context.Context, branch, message string, f domain.FileFix) error {
	if m.commitFile != nil {
		return m.commitFile(ctx, branch, message, f)
	}
	m.commits = append(m.commits, f)
	return nil
}

func (m *mockPlatform) CreatePullRequest(ctx context.Context, title, body, head, base string) (int, error) {
	if m.createPullRequest != nil {
		return m.createPullRequest(ctx, title, body, head, base)
	}
	m.prTitles = append(m.prTitles, title)
	return 99, nil
}

type mockProvider struct {
	fix func(ctx context.Context, req fix.Request) (string, error)
}

func (m *mockProvider) Fix(ctx context.Context, req fix.Request) (string, error) {
	return m.fix(ctx, req)
}

var testPR = domain.PullRequest{Number: 7, HeadSHA: "abc123", HeadRef: "feature/retry"}

func TestGenerator_FixesAndOpensPullRequest(t *testing.T) {
	platform := &mockPlatform{}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) {
			return "fixed content of " + req.Path, nil
		},
	}

	gen := fix.NewGenerator(platform, provider, nil)
	result, err := gen.Run(context.Background(), testPR, []domain.ReconciledComment{
		{Path: "a.go", Line: 1, Body: "rename"},
		{Path: "b.go", Line: 2, Body: "check error"},
	})
	require.NoError(t, err)

	assert.Equal(t, "lutra/fixes-for-pr-7", result.Branch)
	assert.Equal(t, []string{"a.go", "b.go"}, result.Fixed)
	assert.Empty(t, result.Failed)
	assert.Equal(t, 99, result.PullNumber)
	assert.Equal(t, []string{"lutra/fixes-for-pr-7"}, platform.branches)
	require.Len(t, platform.commits, 2)
	assert.Equal(t, "fixed content of a.go", platform.commits[0].Content)
}

func TestGenerator_NothingAcceptedIsNoOp(t *testing.T) {
	platform := &mockPlatform{
		createBranch: func(ctx context.Context, branch, sha string) error {
			t.Fatal("branch must not be created with nothing to fix")
			return nil
		},
	}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) { return "", nil },
	}

	gen := fix.NewGenerator(platform, provider, nil)
	result, err := gen.Run(context.Background(), testPR, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Branch)
}

func TestGenerator_BranchFailureIsFatal(t *testing.T) {
	platform := &mockPlatform{
		createBranch: func(ctx context.Context, branch, sha string) error {
			return errors.New("ref exists")
		},
	}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) { return "x", nil },
	}

	gen := fix.NewGenerator(platform, provider, nil)
	_, err := gen.Run(context.Background(), testPR, []domain.ReconciledComment{{Path: "a.go", Line: 1, Body: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create branch")
}

func TestGenerator_PerFileFailureIsolated(t *testing.T) {
	platform := &mockPlatform{}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) {
			if req.Path == "bad.go" {
				return "", errors.New("model refused")
			}
			return "fixed " + req.Path, nil
		},
	}

	gen := fix.NewGenerator(platform, provider, nil)
	result, err := gen.Run(context.Background(), testPR, []domain.ReconciledComment{
		{Path: "bad.go", Line: 1, Body: "x"},
		{Path: "good.go", Line: 1, Body: "y"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"good.go"}, result.Fixed)
	assert.Equal(t, []string{"bad.go"}, result.Failed)
	assert.Equal(t, 99, result.PullNumber)
}

func TestGenerator_UnchangedContentIsNoOp(t *testing.T) {
	platform := &mockPlatform{
		getFileContent: func(ctx context.Context, path, ref string) (string, error) {
			return "same", nil
		},
		createPullRequest: func(ctx context.Context, title, body, head, base string) (int, error) {
			t.Fatal("pull request must not be created when nothing changed")
			return 0, nil
		},
	}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) {
			return "same", nil
		},
	}

	gen := fix.NewGenerator(platform, provider, nil)
	result, err := gen.Run(context.Background(), testPR, []domain.ReconciledComment{{Path: "a.go", Line: 1, Body: "b"}})
	require.NoError(t, err)

	assert.Empty(t, result.Fixed)
	assert.Empty(t, result.Failed)
	assert.Zero(t, result.PullNumber)
	assert.Empty(t, platform.commits)
}

func TestGenerator_EmptyOriginalMarkedFailed(t *testing.T) {
	platform := &mockPlatform{
		getFileContent: func(ctx context.Context, path, ref string) (string, error) {
			return "", nil
		},
	}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) {
			t.Fatal("provider must not be called without original content")
			return "", nil
		},
	}

	gen := fix.NewGenerator(platform, provider, nil)
	result, err := gen.Run(context.Background(), testPR, []domain.ReconciledComment{{Path: "gone.go", Line: 1, Body: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"gone.go"}, result.Failed)
}

func TestGenerator_CommitFailureMarkedFailed(t *testing.T) {
	platform := &mockPlatform{
		commitFile: func(ctx context.Context, branch, message string, f domain.FileFix) error {
			return errors.New("conflict")
		},
	}
	provider := &mockProvider{
		fix: func(ctx context.Context, req fix.Request) (string, error) {
			return "new content", nil
		},
	}

	gen := fix.NewGenerator(platform, provider, nil)
	result, err := gen.Run(context.Background(), testPR, []domain.ReconciledComment{{Path: "a.go", Line: 1, Body: "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go"}, result.Failed)
	assert.Zero(t, result.PullNumber)
}

func TestBranchName(t *testing.T) {
	assert.Equal(t, "lutra/fixes-for-pr-42", fix.BranchName(42))
}
