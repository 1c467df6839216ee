// Package static is a canned provider for dry runs and tests. It
// answers every review with a fixed response and every fix with the
// original prompt content untouched, so the surrounding pipeline can
// be exercised without network access or credentials.
package static

import (
	"context"

	"github.com/lutradev/lutra/internal/usecase/fix"
	"github.com/lutradev/lutra/internal/usecase/review"
)

const defaultReviewResponse = `{"comments": [], "comments_to_delete": []}`

// Provider implements the review and fix provider ports with canned
// responses.
type Provider struct {
	reviewResponse string
}

// NewProvider constructs a static Provider. response overrides the
// canned review answer; empty means the no-comments default.
func NewProvider(response string) *Provider {
	if response == "" {
		response = defaultReviewResponse
	}
	return &Provider{reviewResponse: response}
}

// Review returns the canned response for every file.
func (p *Provider) Review(ctx context.Context, req review.ProviderRequest) (string, error) {
	return p.reviewResponse, nil
}

// Fix returns empty content, which the fix pipeline treats as a no-op
// for the file.
func (p *Provider) Fix(ctx context.Context, req fix.Request) (string, error) {
	return "", nil
}
