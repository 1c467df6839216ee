// Package github adapts the GitHub API to the review and fix platform
// ports. One client is bound to a single owner/repo pair; callers
// never pass repository coordinates per operation.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gogithub "github.com/google/go-github/v82/github"

	"github.com/lutradev/lutra/internal/domain"
)

// Client wraps the GitHub API for a single repository.
type Client struct {
	gh    *gogithub.Client
	owner string
	repo  string
}

// NewClient creates a client bound to owner/repo, authenticating with
// token on every request.
func NewClient(token, owner, repo string) *Client {
	httpClient := &http.Client{
		Transport: &tokenTransport{token: token},
	}
	return &Client{
		gh:    gogithub.NewClient(httpClient),
		owner: owner,
		repo:  repo,
	}
}

// NewClientWithHTTP creates a client with a caller-supplied transport
// (for testing against a local server).
func NewClientWithHTTP(httpClient *http.Client, owner, repo string) *Client {
	return &Client{
		gh:    gogithub.NewClient(httpClient),
		owner: owner,
		repo:  repo,
	}
}

// SetBaseURL points the client at a different API root (for testing).
func (c *Client) SetBaseURL(baseURL string) error {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := c.gh.BaseURL.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	c.gh.BaseURL = u
	return nil
}

type tokenTransport struct {
	token string
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "token "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// GetPullRequest fetches pull request metadata.
func (c *Client) GetPullRequest(ctx context.Context, number int) (domain.PullRequest, error) {
	pr, _, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		return domain.PullRequest{}, fmt.Errorf("get pull request: %w", err)
	}
	return mapPullRequest(pr), nil
}

// ListFiles fetches every changed file in the pull request, following
// pagination.
func (c *Client) ListFiles(ctx context.Context, number int) ([]domain.FileDiff, error) {
	opts := &gogithub.ListOptions{PerPage: 100}
	var all []domain.FileDiff

	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list pull request files: %w", err)
		}
		for _, f := range files {
			all = append(all, mapFileDiff(f))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// ListFileComments fetches the review comments anchored to path,
// following pagination. Comments on other files are filtered out.
func (c *Client) ListFileComments(ctx context.Context, number int, path string) ([]domain.ExistingComment, error) {
	opts := &gogithub.PullRequestListCommentsOptions{
		ListOptions: gogithub.ListOptions{PerPage: 100},
	}
	var all []domain.ExistingComment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("list review comments: %w", err)
		}
		for _, cm := range comments {
			if cm.GetPath() != path {
				continue
			}
			all = append(all, mapComment(cm))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// CreateComment posts one inline review comment anchored by new-file
// line on the right side of the diff.
func (c *Client) CreateComment(ctx context.Context, number int, commitSHA string, comment domain.ReconciledComment) error {
	req := &gogithub.PullRequestComment{
		Body:     gogithub.Ptr(comment.Body),
		CommitID: gogithub.Ptr(commitSHA),
		Path:     gogithub.Ptr(comment.Path),
		Line:     gogithub.Ptr(comment.Line),
		Side:     gogithub.Ptr("RIGHT"),
	}
	if _, _, err := c.gh.PullRequests.CreateComment(ctx, c.owner, c.repo, number, req); err != nil {
		return fmt.Errorf("create review comment: %w", err)
	}
	return nil
}

// DeleteComment removes a review comment by id.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	if _, err := c.gh.PullRequests.DeleteComment(ctx, c.owner, c.repo, commentID); err != nil {
		return fmt.Errorf("delete review comment %d: %w", commentID, err)
	}
	return nil
}

// GetFileContent fetches and decodes a file at ref.
func (c *Client) GetFileContent(ctx context.Context, path, ref string) (string, error) {
	content, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, &gogithub.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return "", fmt.Errorf("get contents of %s: %w", path, err)
	}
	if content == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}
	decoded, err := content.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode contents of %s: %w", path, err)
	}
	return decoded, nil
}

// CreateBranch creates branch pointing at sha. An already existing
// branch is not an error; reruns reuse it.
func (c *Client) CreateBranch(ctx context.Context, branch, sha string) error {
	ref := gogithub.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: sha,
	}
	_, _, err := c.gh.Git.CreateRef(ctx, c.owner, c.repo, ref)
	if err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("create branch %s: %w", branch, err)
	}
	return nil
}

// CommitFile writes fix.Content to its path on branch, creating or
// updating the file as needed.
func (c *Client) CommitFile(ctx context.Context, branch, message string, fileFix domain.FileFix) error {
	opts := &gogithub.RepositoryContentFileOptions{
		Message: gogithub.Ptr(message),
		Content: []byte(fileFix.Content),
		Branch:  gogithub.Ptr(branch),
	}

	existing, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, fileFix.Path, &gogithub.RepositoryContentGetOptions{
		Ref: branch,
	})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		if _, _, err := c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, fileFix.Path, opts); err != nil {
			return fmt.Errorf("update %s on %s: %w", fileFix.Path, branch, err)
		}
	case isNotFound(err):
		if _, _, err := c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, fileFix.Path, opts); err != nil {
			return fmt.Errorf("create %s on %s: %w", fileFix.Path, branch, err)
		}
	default:
		return fmt.Errorf("stat %s on %s: %w", fileFix.Path, branch, err)
	}
	return nil
}

// CreatePullRequest opens a pull request from head into base and
// returns its number. When a pull request for head already exists its
// number is returned instead.
func (c *Client) CreatePullRequest(ctx context.Context, title, body, head, base string) (int, error) {
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &gogithub.NewPullRequest{
		Title: gogithub.Ptr(title),
		Body:  gogithub.Ptr(body),
		Head:  gogithub.Ptr(head),
		Base:  gogithub.Ptr(base),
	})
	if err == nil {
		return pr.GetNumber(), nil
	}
	if !isAlreadyExists(err) {
		return 0, fmt.Errorf("create pull request: %w", err)
	}

	existing, _, listErr := c.gh.PullRequests.List(ctx, c.owner, c.repo, &gogithub.PullRequestListOptions{
		Head:  c.owner + ":" + head,
		State: "open",
	})
	if listErr != nil || len(existing) == 0 {
		return 0, fmt.Errorf("create pull request: %w", err)
	}
	return existing[0].GetNumber(), nil
}

// isAlreadyExists detects the 422 validation failure GitHub returns
// for duplicate refs and duplicate pull requests.
func isAlreadyExists(err error) bool {
	var ghErr *gogithub.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	if strings.Contains(strings.ToLower(ghErr.Message), "already exists") {
		return true
	}
	for _, e := range ghErr.Errors {
		if strings.Contains(strings.ToLower(e.Message), "already exists") {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	var ghErr *gogithub.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}

// ParseRepoFullName splits "owner/repo" into its parts.
func ParseRepoFullName(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name: %s", fullName)
	}
	return parts[0], parts[1], nil
}
