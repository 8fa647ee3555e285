package board

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/farmer1st/farmer-code/internal/fault"
)

// TokenProvider supplies a valid API token for each request. Installation
// tokens expire hourly, so the provider is consulted per call rather than
// baked into the client.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenProvider for a fixed personal-access token.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// GitHubBoard implements IssueBoard against the GitHub REST API.
type GitHubBoard struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubBoard creates a board for owner/repo authenticating each request
// through tokens.
func NewGitHubBoard(owner, repo string, tokens TokenProvider) *GitHubBoard {
	httpClient := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &authTransport{tokens: tokens, base: http.DefaultTransport},
	}
	return &GitHubBoard{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
	}
}

// NewGitHubBoardWithClient creates a board over a pre-built go-github client.
// Tests use this to point the board at an httptest server.
func NewGitHubBoardWithClient(client *github.Client, owner, repo string) *GitHubBoard {
	return &GitHubBoard{client: client, owner: owner, repo: repo}
}

// authTransport injects the provider's current token into each request.
type authTransport struct {
	tokens TokenProvider
	base   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tokens.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}

// CreateIssue opens an issue on the repository.
func (b *GitHubBoard) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	req := &github.IssueRequest{Title: &title, Body: &body}
	if len(labels) > 0 {
		req.Labels = &labels
	}
	issue, _, err := b.client.Issues.Create(ctx, b.owner, b.repo, req)
	if err != nil {
		return nil, mapGitHubError(err, "create issue")
	}
	return convertIssue(issue), nil
}

// GetIssue fetches an issue by number.
func (b *GitHubBoard) GetIssue(ctx context.Context, number int) (*Issue, error) {
	issue, _, err := b.client.Issues.Get(ctx, b.owner, b.repo, number)
	if err != nil {
		return nil, mapGitHubError(err, "get issue")
	}
	return convertIssue(issue), nil
}

// ListCommentsSince lists comments created at or after since, oldest first.
func (b *GitHubBoard) ListCommentsSince(ctx context.Context, number int, since time.Time) ([]Comment, error) {
	opts := &github.IssueListCommentsOptions{
		Sort:        github.Ptr("created"),
		Direction:   github.Ptr("asc"),
		ListOptions: github.ListOptions{PerPage: 100},
	}
	if !since.IsZero() {
		opts.Since = &since
	}

	var all []Comment
	for {
		comments, resp, err := b.client.Issues.ListComments(ctx, b.owner, b.repo, number, opts)
		if err != nil {
			return nil, mapGitHubError(err, "list comments")
		}
		for _, c := range comments {
			all = append(all, convertComment(c))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// AddComment posts a comment on an issue.
func (b *GitHubBoard) AddComment(ctx context.Context, number int, body string) (*Comment, error) {
	comment, _, err := b.client.Issues.CreateComment(ctx, b.owner, b.repo, number, &github.IssueComment{Body: &body})
	if err != nil {
		return nil, mapGitHubError(err, "add comment")
	}
	c := convertComment(comment)
	return &c, nil
}

// AddLabels applies labels to an issue. Labels missing from the repository
// are created with a neutral color, then the add is retried once.
func (b *GitHubBoard) AddLabels(ctx context.Context, number int, labels []string) error {
	_, _, err := b.client.Issues.AddLabelsToIssue(ctx, b.owner, b.repo, number, labels)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return mapGitHubError(err, "add labels")
	}

	for _, label := range labels {
		if ensureErr := b.ensureLabelExists(ctx, label); ensureErr != nil {
			return ensureErr
		}
	}
	if _, _, err := b.client.Issues.AddLabelsToIssue(ctx, b.owner, b.repo, number, labels); err != nil {
		return mapGitHubError(err, "add labels after create")
	}
	return nil
}

// RemoveLabels removes labels from an issue, ignoring labels not present.
func (b *GitHubBoard) RemoveLabels(ctx context.Context, number int, labels []string) error {
	for _, label := range labels {
		_, err := b.client.Issues.RemoveLabelForIssue(ctx, b.owner, b.repo, number, label)
		if err != nil && !isNotFound(err) {
			return mapGitHubError(err, "remove label")
		}
	}
	return nil
}

// ensureLabelExists creates the label if the repository lacks it.
func (b *GitHubBoard) ensureLabelExists(ctx context.Context, name string) error {
	_, _, err := b.client.Issues.GetLabel(ctx, b.owner, b.repo, name)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return mapGitHubError(err, "get label")
	}
	_, _, err = b.client.Issues.CreateLabel(ctx, b.owner, b.repo, &github.Label{
		Name:  &name,
		Color: github.Ptr("ededed"),
	})
	if err != nil {
		return mapGitHubError(err, "create label")
	}
	return nil
}

// mapGitHubError converts go-github errors into the fault taxonomy.
// Rate limits carry the wait hint; everything else is wrapped with context.
func mapGitHubError(err error, op string) error {
	if rateErr, ok := err.(*github.RateLimitError); ok {
		wait := int(time.Until(rateErr.Rate.Reset.Time).Seconds()) + 1
		if wait < 1 {
			wait = 1
		}
		fe := fault.Wrap(fault.RateLimitExceeded, err, "github %s rate limited", op)
		fe.WaitSeconds = wait
		return fe
	}
	if abuseErr, ok := err.(*github.AbuseRateLimitError); ok {
		wait := 60
		if abuseErr.RetryAfter != nil {
			wait = int(abuseErr.RetryAfter.Seconds()) + 1
		}
		fe := fault.Wrap(fault.RateLimitExceeded, err, "github %s secondary rate limited", op)
		fe.WaitSeconds = wait
		return fe
	}
	return fmt.Errorf("github %s failed: %w", op, err)
}

// isNotFound reports whether err is a 404 from the API.
func isNotFound(err error) bool {
	if respErr, ok := err.(*github.ErrorResponse); ok {
		return respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound
	}
	return false
}

func convertIssue(issue *github.Issue) *Issue {
	out := &Issue{
		Number: issue.GetNumber(),
		Title:  issue.GetTitle(),
		Body:   issue.GetBody(),
	}
	if ts := issue.GetCreatedAt(); !ts.IsZero() {
		out.CreatedAt = ts.Time
	}
	for _, label := range issue.Labels {
		out.Labels = append(out.Labels, label.GetName())
	}
	return out
}

func convertComment(comment *github.IssueComment) Comment {
	out := Comment{
		ID:   comment.GetID(),
		Body: comment.GetBody(),
	}
	if user := comment.GetUser(); user != nil {
		out.Author = user.GetLogin()
	}
	if ts := comment.GetCreatedAt(); !ts.IsZero() {
		out.CreatedAt = ts.Time
	}
	return out
}

// StatusLabelPrefix namespaces the workflow-status labels the orchestrator
// synchronizes onto issues.
const StatusLabelPrefix = "status:"

// StatusLabel builds the issue label for a workflow status value.
func StatusLabel(status string) string {
	return StatusLabelPrefix + strings.ReplaceAll(status, "_", "-")
}
