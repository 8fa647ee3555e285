package board

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/farmer1st/farmer-code/internal/fault"
)

// Fake is an in-memory IssueBoard for tests. It is safe for concurrent use
// and can simulate rate limiting for a fixed number of calls.
type Fake struct {
	mu            sync.Mutex
	nextIssue     int
	nextComment   int64
	issues        map[int]*Issue
	comments      map[int][]Comment
	now           func() time.Time
	rateLimited   int // remaining calls that fail with RateLimitExceeded
	rateLimitWait int
}

// NewFake creates an empty fake board. now supplies comment timestamps; pass
// nil to use time.Now.
func NewFake(now func() time.Time) *Fake {
	if now == nil {
		now = time.Now
	}
	return &Fake{
		nextIssue: 1,
		issues:    make(map[int]*Issue),
		comments:  make(map[int][]Comment),
		now:       now,
	}
}

// FailWithRateLimit makes the next n calls fail with a rate-limit fault
// carrying waitSeconds.
func (f *Fake) FailWithRateLimit(n, waitSeconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rateLimited = n
	f.rateLimitWait = waitSeconds
}

func (f *Fake) checkRateLimit() error {
	if f.rateLimited > 0 {
		f.rateLimited--
		fe := fault.New(fault.RateLimitExceeded, "fake board rate limited")
		fe.WaitSeconds = f.rateLimitWait
		return fe
	}
	return nil
}

// CreateIssue records an issue and assigns the next number.
func (f *Fake) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkRateLimit(); err != nil {
		return nil, err
	}
	issue := &Issue{
		Number:    f.nextIssue,
		Title:     title,
		Body:      body,
		Labels:    append([]string(nil), labels...),
		CreatedAt: f.now(),
	}
	f.nextIssue++
	f.issues[issue.Number] = issue
	copied := *issue
	return &copied, nil
}

// GetIssue returns a stored issue.
func (f *Fake) GetIssue(ctx context.Context, number int) (*Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkRateLimit(); err != nil {
		return nil, err
	}
	issue, ok := f.issues[number]
	if !ok {
		return nil, fault.New(fault.WorkflowNotFound, "issue %d not found", number)
	}
	copied := *issue
	copied.Labels = append([]string(nil), issue.Labels...)
	return &copied, nil
}

// ListCommentsSince returns comments created at or after since, oldest first.
func (f *Fake) ListCommentsSince(ctx context.Context, number int, since time.Time) ([]Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkRateLimit(); err != nil {
		return nil, err
	}
	var out []Comment
	for _, c := range f.comments[number] {
		if since.IsZero() || !c.CreatedAt.Before(since) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AddComment appends a comment authored by "test-user".
func (f *Fake) AddComment(ctx context.Context, number int, body string) (*Comment, error) {
	return f.AddCommentAs(ctx, number, "test-user", body)
}

// AddCommentAs appends a comment with an explicit author, for seeding
// approval and completion signals in tests.
func (f *Fake) AddCommentAs(ctx context.Context, number int, author, body string) (*Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkRateLimit(); err != nil {
		return nil, err
	}
	f.nextComment++
	comment := Comment{
		ID:        f.nextComment,
		Author:    author,
		Body:      body,
		CreatedAt: f.now(),
	}
	f.comments[number] = append(f.comments[number], comment)
	return &comment, nil
}

// AddLabels applies labels, deduplicating against existing ones.
func (f *Fake) AddLabels(ctx context.Context, number int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkRateLimit(); err != nil {
		return err
	}
	issue, ok := f.issues[number]
	if !ok {
		return fault.New(fault.WorkflowNotFound, "issue %d not found", number)
	}
	for _, label := range labels {
		found := false
		for _, existing := range issue.Labels {
			if existing == label {
				found = true
				break
			}
		}
		if !found {
			issue.Labels = append(issue.Labels, label)
		}
	}
	return nil
}

// RemoveLabels removes labels, ignoring those not present.
func (f *Fake) RemoveLabels(ctx context.Context, number int, labels []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkRateLimit(); err != nil {
		return err
	}
	issue, ok := f.issues[number]
	if !ok {
		return fault.New(fault.WorkflowNotFound, "issue %d not found", number)
	}
	for _, label := range labels {
		for i, existing := range issue.Labels {
			if existing == label {
				issue.Labels = append(issue.Labels[:i], issue.Labels[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Labels returns the current labels on an issue, for test assertions.
func (f *Fake) Labels(number int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if issue, ok := f.issues[number]; ok {
		return append([]string(nil), issue.Labels...)
	}
	return nil
}
