package domain

const (
	FileStatusAdded    = "added"
	FileStatusModified = "modified"
	FileStatusRemoved  = "removed"
	FileStatusRenamed  = "renamed"
)

// PullRequest holds the metadata needed to drive one review pass.
type PullRequest struct {
	Number  int
	Title   string
	Body    string
	State   string
	HeadSHA string
	HeadRef string
	BaseRef string
	Author  string
}

// FileDiff captures the change for a single file in a pull request.
type FileDiff struct {
	Path   string
	Status string
	Patch  string
}

// ProposedComment is a comment suggested by the model for one file.
// It has not been validated against the diff yet and is not trusted.
type ProposedComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// ReviewResponse is the structured output recovered from the model:
// new comments to add plus ids of existing comments to delete.
// Both fields are optional in the wire format and default to empty.
type ReviewResponse struct {
	Comments         []ProposedComment `json:"comments"`
	CommentsToDelete []int64           `json:"comments_to_delete"`
}

// ReconciledComment is a proposed comment that passed legality and
// de-duplication checks and is ready for creation.
type ReconciledComment struct {
	Path string
	Line int
	Body string
}

// ExistingComment is a review comment already present on the pull
// request. It is owned by the hosting platform; only its ID may be
// scheduled for deletion.
type ExistingComment struct {
	ID     int64
	Path   string
	Line   int
	Body   string
	Author string
}

// RejectionReason classifies why a proposed item was excluded from a
// reconciliation result. Rejections are reported, never raised.
type RejectionReason string

const (
	ReasonLineNotInDiff    RejectionReason = "line-not-in-diff"
	ReasonDuplicateInBatch RejectionReason = "duplicate-in-batch"
	ReasonUnknownCommentID RejectionReason = "unknown-comment-id"
)

// Rejection records one excluded item together with its reason.
type Rejection struct {
	Path   string
	Line   int
	ID     int64
	Reason RejectionReason
}

// ReconciliationResult is the disjoint create/delete decision for one
// file in one pass. It is produced fresh each pass and not persisted.
type ReconciliationResult struct {
	ToCreate []ReconciledComment
	ToDelete []int64
	Rejected []Rejection
}

// FileFix is the regenerated content for a single file produced by the
// fix pipeline. Content is the complete post-fix file body.
type FileFix struct {
	Path    string
	Content string
}
