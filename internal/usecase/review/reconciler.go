package review

import (
	"sort"

	"github.com/lutradev/lutra/internal/diff"
	"github.com/lutradev/lutra/internal/domain"
)

// Reconcile turns the model's proposed comments plus the file's
// existing comments into disjoint create/delete sets. It never fails:
// unresolvable items are excluded and recorded with a reason.
//
// path is the file currently under review; proposed comments are bound
// to it regardless of what they claim, so a malformed response cannot
// leak comments across files.
func Reconcile(ix *diff.Index, path string, existing []domain.ExistingComment, resp domain.ReviewResponse) domain.ReconciliationResult {
	result := domain.ReconciliationResult{
		ToCreate: []domain.ReconciledComment{},
		ToDelete: []int64{},
		Rejected: []domain.Rejection{},
	}

	existingByLine := make(map[int][]domain.ExistingComment, len(existing))
	existingIDs := make(map[int64]bool, len(existing))
	for _, c := range existing {
		existingByLine[c.Line] = append(existingByLine[c.Line], c)
		existingIDs[c.ID] = true
	}

	requestedDeletes := make(map[int64]bool, len(resp.CommentsToDelete))
	for _, id := range resp.CommentsToDelete {
		requestedDeletes[id] = true
	}

	deletes := make(map[int64]bool)
	seenLines := make(map[int]bool)

	for _, prop := range resp.Comments {
		// Exact membership in the diff's legal lines; no fuzzy
		// matching, or the model could comment on unchanged code.
		if !ix.IsCommentable(prop.Line) {
			result.Rejected = append(result.Rejected, domain.Rejection{
				Path:   path,
				Line:   prop.Line,
				Reason: domain.ReasonLineNotInDiff,
			})
			continue
		}

		if seenLines[prop.Line] {
			result.Rejected = append(result.Rejected, domain.Rejection{
				Path:   path,
				Line:   prop.Line,
				Reason: domain.ReasonDuplicateInBatch,
			})
			continue
		}
		seenLines[prop.Line] = true

		// Replacement semantics: an existing comment on the same line
		// whose body is unchanged, or whose id the model separately
		// asked to delete, is superseded by the new comment.
		for _, old := range existingByLine[prop.Line] {
			if domain.EquivalentBodies(old.Body, prop.Body) || requestedDeletes[old.ID] {
				deletes[old.ID] = true
			}
		}

		result.ToCreate = append(result.ToCreate, domain.ReconciledComment{
			Path: path,
			Line: prop.Line,
			Body: prop.Body,
		})
	}

	for _, id := range resp.CommentsToDelete {
		if !existingIDs[id] {
			result.Rejected = append(result.Rejected, domain.Rejection{
				Path:   path,
				ID:     id,
				Reason: domain.ReasonUnknownCommentID,
			})
			continue
		}
		deletes[id] = true
	}

	result.ToDelete = make([]int64, 0, len(deletes))
	for id := range deletes {
		result.ToDelete = append(result.ToDelete, id)
	}
	// Deletions are an unordered set; sorted here so results are
	// deterministic for callers and tests.
	sort.Slice(result.ToDelete, func(i, j int) bool { return result.ToDelete[i] < result.ToDelete[j] })

	return result
}
