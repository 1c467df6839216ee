package github

import (
	gogithub "github.com/google/go-github/v82/github"

	"github.com/lutradev/lutra/internal/domain"
)

func mapPullRequest(pr *gogithub.PullRequest) domain.PullRequest {
	state := pr.GetState()
	// GitHub reports merged pull requests as closed; the skip policy
	// distinguishes the two.
	if pr.GetMerged() {
		state = "merged"
	}
	return domain.PullRequest{
		Number:  pr.GetNumber(),
		Title:   pr.GetTitle(),
		Body:    pr.GetBody(),
		State:   state,
		HeadSHA: pr.GetHead().GetSHA(),
		HeadRef: pr.GetHead().GetRef(),
		BaseRef: pr.GetBase().GetRef(),
		Author:  pr.GetUser().GetLogin(),
	}
}

func mapFileDiff(f *gogithub.CommitFile) domain.FileDiff {
	return domain.FileDiff{
		Path:   f.GetFilename(),
		Status: f.GetStatus(),
		Patch:  f.GetPatch(),
	}
}

func mapComment(c *gogithub.PullRequestComment) domain.ExistingComment {
	line := c.GetLine()
	if line == 0 {
		line = c.GetOriginalLine()
	}
	return domain.ExistingComment{
		ID:     c.GetID(),
		Path:   c.GetPath(),
		Line:   line,
		Body:   c.GetBody(),
		Author: c.GetUser().GetLogin(),
	}
}
