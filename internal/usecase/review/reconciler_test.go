package review_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutradev/lutra/internal/diff"
	"github.com/lutradev/lutra/internal/domain"
	"github.com/lutradev/lutra/internal/usecase/review"
)

const testPatch = "@@ -1,3 +1,4 @@\n def test():\n+    print(\"test\")\n     return True"

func buildIndex(t *testing.T, patch string) *diff.Index {
	t.Helper()
	ix, err := diff.Build(patch)
	require.NoError(t, err)
	return ix
}

func TestReconcile_AcceptsLegalLine(t *testing.T) {
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{
		Comments: []domain.ProposedComment{{Path: "test.py", Line: 2, Body: "x"}},
	})

	require.Len(t, result.ToCreate, 1)
	assert.Equal(t, domain.ReconciledComment{Path: "test.py", Line: 2, Body: "x"}, result.ToCreate[0])
	assert.Empty(t, result.ToDelete)
	assert.Empty(t, result.Rejected)
}

func TestReconcile_RejectsLineNotInDiff(t *testing.T) {
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{
		Comments: []domain.ProposedComment{{Path: "test.py", Line: 999, Body: "x"}},
	})

	assert.Empty(t, result.ToCreate)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, domain.ReasonLineNotInDiff, result.Rejected[0].Reason)
	assert.Equal(t, 999, result.Rejected[0].Line)
}

func TestReconcile_NoFuzzyLineMatching(t *testing.T) {
	// Line 4 does not exist in the diff even though 3 does; nearby
	// misses must not be snapped to legal lines.
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{
		Comments: []domain.ProposedComment{{Line: 4, Body: "x"}},
	})

	assert.Empty(t, result.ToCreate)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, domain.ReasonLineNotInDiff, result.Rejected[0].Reason)
}

func TestReconcile_ForcesPathToCurrentFile(t *testing.T) {
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{
		Comments: []domain.ProposedComment{{Path: "../other.py", Line: 2, Body: "x"}},
	})

	require.Len(t, result.ToCreate, 1)
	assert.Equal(t, "test.py", result.ToCreate[0].Path)
}

func TestReconcile_DuplicateInBatchDropped(t *testing.T) {
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{
		Comments: []domain.ProposedComment{
			{Line: 2, Body: "first"},
			{Line: 2, Body: "second"},
			{Line: 3, Body: "third"},
		},
	})

	require.Len(t, result.ToCreate, 2)
	assert.Equal(t, "first", result.ToCreate[0].Body)
	assert.Equal(t, "third", result.ToCreate[1].Body)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, domain.ReasonDuplicateInBatch, result.Rejected[0].Reason)
}

func TestReconcile_ReplacementOfUnchangedExistingComment(t *testing.T) {
	ix := buildIndex(t, testPatch)
	existing := []domain.ExistingComment{
		{ID: 11, Path: "test.py", Line: 2, Body: "Needs a docstring.", Author: "lutra[bot]"},
	}

	result := review.Reconcile(ix, "test.py", existing, domain.ReviewResponse{
		Comments: []domain.ProposedComment{{Line: 2, Body: "Needs a docstring."}},
	})

	// Replacement semantics: old id deleted, new comment created.
	require.Len(t, result.ToCreate, 1)
	assert.Equal(t, []int64{11}, result.ToDelete)
	assert.Empty(t, result.Rejected)
}

func TestReconcile_SupersedesExistingScheduledForDeletion(t *testing.T) {
	ix := buildIndex(t, testPatch)
	existing := []domain.ExistingComment{
		{ID: 21, Path: "test.py", Line: 2, Body: "Old observation."},
	}

	result := review.Reconcile(ix, "test.py", existing, domain.ReviewResponse{
		Comments:         []domain.ProposedComment{{Line: 2, Body: "New observation."}},
		CommentsToDelete: []int64{21},
	})

	require.Len(t, result.ToCreate, 1)
	assert.Equal(t, "New observation.", result.ToCreate[0].Body)
	assert.Equal(t, []int64{21}, result.ToDelete)
}

func TestReconcile_ChangedExistingCommentNotDeleted(t *testing.T) {
	ix := buildIndex(t, testPatch)
	existing := []domain.ExistingComment{
		{ID: 31, Path: "test.py", Line: 2, Body: "Completely different point."},
	}

	result := review.Reconcile(ix, "test.py", existing, domain.ReviewResponse{
		Comments: []domain.ProposedComment{{Line: 2, Body: "A new point."}},
	})

	require.Len(t, result.ToCreate, 1)
	assert.Empty(t, result.ToDelete)
}

func TestReconcile_UnknownDeleteIDRejected(t *testing.T) {
	ix := buildIndex(t, testPatch)
	existing := []domain.ExistingComment{
		{ID: 41, Path: "test.py", Line: 2, Body: "keep me honest"},
	}

	result := review.Reconcile(ix, "test.py", existing, domain.ReviewResponse{
		CommentsToDelete: []int64{41, 999},
	})

	assert.Equal(t, []int64{41}, result.ToDelete)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, domain.ReasonUnknownCommentID, result.Rejected[0].Reason)
	assert.Equal(t, int64(999), result.Rejected[0].ID)
}

func TestReconcile_DeleteSetHasNoDuplicates(t *testing.T) {
	ix := buildIndex(t, testPatch)
	existing := []domain.ExistingComment{
		{ID: 51, Path: "test.py", Line: 2, Body: "same body"},
	}

	// Id 51 qualifies both via replacement and via explicit deletion.
	result := review.Reconcile(ix, "test.py", existing, domain.ReviewResponse{
		Comments:         []domain.ProposedComment{{Line: 2, Body: "same body"}},
		CommentsToDelete: []int64{51, 51},
	})

	assert.Equal(t, []int64{51}, result.ToDelete)
}

func TestReconcile_CreateOrderPreservesInputOrder(t *testing.T) {
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{
		Comments: []domain.ProposedComment{
			{Line: 3, Body: "later line first"},
			{Line: 1, Body: "earlier line second"},
			{Line: 2, Body: "middle line third"},
		},
	})

	require.Len(t, result.ToCreate, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{
		result.ToCreate[0].Line,
		result.ToCreate[1].Line,
		result.ToCreate[2].Line,
	})
}

func TestReconcile_EmptyResponse(t *testing.T) {
	ix := buildIndex(t, testPatch)

	result := review.Reconcile(ix, "test.py", nil, domain.ReviewResponse{})

	assert.Empty(t, result.ToCreate)
	assert.Empty(t, result.ToDelete)
	assert.Empty(t, result.Rejected)
}
