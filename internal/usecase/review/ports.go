package review

import (
	"context"

	"github.com/lutradev/lutra/internal/domain"
)

// Provider defines the outbound port for the generative-text
// collaborator. It receives a prompt describing one file's changes and
// returns raw text; no schema is enforced at this boundary.
type Provider interface {
	Review(ctx context.Context, req ProviderRequest) (string, error)
}

// ProviderRequest carries the rendered prompt for one file.
type ProviderRequest struct {
	Path   string
	Prompt string
}

// PlatformClient defines the outbound port for the hosting platform.
// Implementations perform the actual comment creation/deletion; the
// pipeline only decides what to apply.
type PlatformClient interface {
	GetPullRequest(ctx context.Context, number int) (domain.PullRequest, error)
	ListFiles(ctx context.Context, number int) ([]domain.FileDiff, error)
	ListFileComments(ctx context.Context, number int, path string) ([]domain.ExistingComment, error)
	CreateComment(ctx context.Context, number int, commitSHA string, comment domain.ReconciledComment) error
	DeleteComment(ctx context.Context, commentID int64) error
}

// Redactor strips secrets from patch text before it leaves the process.
type Redactor interface {
	Redact(input string) (string, error)
}

// Logger is the structured logging port used by the pipeline.
type Logger interface {
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
}

// Store persists pass history and rejection diagnostics. Optional; a
// nil store disables persistence.
type Store interface {
	RecordPass(ctx context.Context, pass PassRecord) error
	Close() error
}

// PassRecord summarizes one review pass for diagnostics.
type PassRecord struct {
	PullNumber int
	HeadSHA    string
	Created    int
	Deleted    int
	Rejections []domain.Rejection
}

// TokenCounter estimates the token footprint of a prompt fragment.
type TokenCounter func(text string) int
