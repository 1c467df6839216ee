package static_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutradev/lutra/internal/adapter/llm/static"
	"github.com/lutradev/lutra/internal/sanitize"
	"github.com/lutradev/lutra/internal/usecase/fix"
	"github.com/lutradev/lutra/internal/usecase/review"
)

func TestProvider_DefaultReviewResponseIsSanitizable(t *testing.T) {
	provider := static.NewProvider("")

	raw, err := provider.Review(context.Background(), review.ProviderRequest{Path: "a.go", Prompt: "p"})
	require.NoError(t, err)

	resp, err := sanitize.Sanitize(raw)
	require.NoError(t, err)
	assert.Empty(t, resp.Comments)
	assert.Empty(t, resp.CommentsToDelete)
}

func TestProvider_CustomResponse(t *testing.T) {
	provider := static.NewProvider(`{"comments": [{"path": "a.go", "line": 1, "body": "x"}]}`)

	raw, err := provider.Review(context.Background(), review.ProviderRequest{Path: "a.go", Prompt: "p"})
	require.NoError(t, err)
	assert.Contains(t, raw, `"line": 1`)
}

func TestProvider_FixIsNoOp(t *testing.T) {
	provider := static.NewProvider("")

	content, err := provider.Fix(context.Background(), fix.Request{Path: "a.go", Prompt: "p"})
	require.NoError(t, err)
	assert.Empty(t, content)
}
