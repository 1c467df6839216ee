package sanitize_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/sanitize"
)

func TestSanitize_ValidJSON(t *testing.T) {
	raw := `{"comments": [{"path": "main.go", "line": 12, "body": "Check this error."}], "comments_to_delete": [7]}`

	resp, err := sanitize.Sanitize(raw)
	require.NoError(t, err)

	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "main.go", resp.Comments[0].Path)
	assert.Equal(t, 12, resp.Comments[0].Line)
	assert.Equal(t, "Check this error.", resp.Comments[0].Body)
	assert.Equal(t, []int64{7}, resp.CommentsToDelete)
}

func TestSanitize_MarkdownFences(t *testing.T) {
	raw := "```json\n{\"comments\": [], \"comments_to_delete\": []}\n```"

	resp, err := sanitize.Sanitize(raw)
	require.NoError(t, err)

	assert.Empty(t, resp.Comments)
	assert.Empty(t, resp.CommentsToDelete)
}

func TestSanitize_FenceWithoutLanguageTag(t *testing.T) {
	raw := "```\n{\"comments\": []}\n```"

	resp, err := sanitize.Sanitize(raw)
	require.NoError(t, err)
	assert.Empty(t, resp.Comments)
}

func TestSanitize_MissingObjectWrapper(t *testing.T) {
	resp, err := sanitize.Sanitize(`"comments": []`)
	require.NoError(t, err)

	assert.Empty(t, resp.Comments)
	assert.Empty(t, resp.CommentsToDelete)
}

func TestSanitize_LeadingWhitespaceBeforeQuotedKey(t *testing.T) {
	resp, err := sanitize.Sanitize("\n    \"comments\": []")
	require.NoError(t, err)
	assert.Empty(t, resp.Comments)
}

func TestSanitize_TruncatedTrailingArray(t *testing.T) {
	resp, err := sanitize.Sanitize(`{"comments": [], "comments_to_delete": [`)
	require.NoError(t, err)

	assert.Empty(t, resp.Comments)
	assert.Empty(t, resp.CommentsToDelete)
}

func TestSanitize_TruncatedNestedObject(t *testing.T) {
	resp, err := sanitize.Sanitize(`{"comments": [{"path": "a.go", "line": 3, "body": "x"}`)
	require.NoError(t, err)

	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "a.go", resp.Comments[0].Path)
}

func TestSanitize_Idempotent(t *testing.T) {
	original := domain.ReviewResponse{
		Comments: []domain.ProposedComment{
			{Path: "pkg/server.go", Line: 42, Body: "Close the response body."},
		},
		CommentsToDelete: []int64{101, 102},
	}

	serialized, err := json.Marshal(original)
	require.NoError(t, err)

	resp, err := sanitize.Sanitize(string(serialized))
	require.NoError(t, err)
	assert.Equal(t, original, resp)

	// Cleaning already-clean input changes nothing.
	assert.Equal(t, string(serialized), sanitize.Clean(string(serialized)))
}

func TestSanitize_BodyContainingBracesAndFencedCode(t *testing.T) {
	// Braces inside string literals must not confuse delimiter
	// balancing.
	raw := `{"comments": [{"path": "a.go", "line": 1, "body": "wrap in func() { ... } instead"}], "comments_to_delete": []}`

	resp, err := sanitize.Sanitize(raw)
	require.NoError(t, err)
	require.Len(t, resp.Comments, 1)
	assert.Contains(t, resp.Comments[0].Body, "{ ... }")
}

func TestSanitize_ProseIsUnrecoverable(t *testing.T) {
	_, err := sanitize.Sanitize("I could not find any issues with this change.")
	require.Error(t, err)

	var unrec *sanitize.UnrecoverableResponseError
	require.True(t, errors.As(err, &unrec))
	assert.NotEmpty(t, unrec.Cleaned)
}

func TestSanitize_TruncatedInsideString(t *testing.T) {
	// Truncation mid-string cannot be repaired without inventing
	// content; it must surface as an error, not a guessed value.
	_, err := sanitize.Sanitize(`{"comments": [{"path": "a.go", "line": 1, "body": "unterminat`)
	require.Error(t, err)

	var unrec *sanitize.UnrecoverableResponseError
	assert.True(t, errors.As(err, &unrec))
}

func TestSanitize_EmptyInput(t *testing.T) {
	resp, err := sanitize.Sanitize("")
	require.NoError(t, err)
	assert.Empty(t, resp.Comments)
	assert.Empty(t, resp.CommentsToDelete)
}
