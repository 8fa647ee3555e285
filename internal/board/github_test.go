package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/go-github/v68/github"

	"github.com/farmer1st/farmer-code/internal/fault"
)

const baseURLPath = "/api-v3"

// setup creates a test HTTP server and a GitHubBoard talking to it.
func setup(t *testing.T) (*GitHubBoard, *http.ServeMux) {
	t.Helper()

	mux := http.NewServeMux()
	apiHandler := http.NewServeMux()
	apiHandler.Handle(baseURLPath+"/", http.StripPrefix(baseURLPath, mux))

	server := httptest.NewServer(apiHandler)
	t.Cleanup(server.Close)

	ghClient := github.NewClient(nil)
	u, _ := url.Parse(server.URL + baseURLPath + "/")
	ghClient.BaseURL = u

	return NewGitHubBoardWithClient(ghClient, "farmer1st", "farmer-code"), mux
}

func TestCreateIssue(t *testing.T) {
	b, mux := setup(t)

	mux.HandleFunc("/repos/farmer1st/farmer-code/issues", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req github.IssueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.GetTitle() != "[specify] Add auth" {
			t.Errorf("unexpected title %q", req.GetTitle())
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprint(w, `{"number": 7, "title": "[specify] Add auth", "labels": [{"name": "status:in-progress"}]}`)
	})

	issue, err := b.CreateIssue(context.Background(), "[specify] Add auth", "body", []string{"status:in-progress"})
	if err != nil {
		t.Fatalf("CreateIssue failed: %v", err)
	}
	if issue.Number != 7 {
		t.Errorf("expected issue 7, got %d", issue.Number)
	}
	if len(issue.Labels) != 1 || issue.Labels[0] != "status:in-progress" {
		t.Errorf("labels lost: %v", issue.Labels)
	}
}

func TestListCommentsSincePaginates(t *testing.T) {
	b, mux := setup(t)

	mux.HandleFunc("/repos/farmer1st/farmer-code/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, r.URL.Path))
			_, _ = fmt.Fprint(w, `[{"id": 1, "body": "first", "user": {"login": "alice"}}]`)
		default:
			_, _ = fmt.Fprint(w, `[{"id": 2, "body": "second ✅", "user": {"login": "bot"}}]`)
		}
	})

	comments, err := b.ListCommentsSince(context.Background(), 7, time.Time{})
	if err != nil {
		t.Fatalf("ListCommentsSince failed: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments across pages, got %d", len(comments))
	}
	if comments[1].Author != "bot" || comments[1].ID != 2 {
		t.Errorf("comment fields lost: %+v", comments[1])
	}
}

func TestRateLimitMapsToFaultWithWaitHint(t *testing.T) {
	b, mux := setup(t)

	reset := time.Now().Add(90 * time.Second).Unix()
	mux.HandleFunc("/repos/farmer1st/farmer-code/issues/7", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Limit", "60")
		w.Header().Set("X-Ratelimit-Remaining", "0")
		w.Header().Set("X-Ratelimit-Reset", fmt.Sprintf("%d", reset))
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
	})

	_, err := b.GetIssue(context.Background(), 7)
	if !fault.IsKind(err, fault.RateLimitExceeded) {
		t.Fatalf("expected RATE_LIMIT_EXCEEDED, got %v", err)
	}

	var fe *fault.Error
	if !errors.As(err, &fe) {
		t.Fatal("expected a *fault.Error")
	}
	if fe.WaitSeconds < 1 || fe.WaitSeconds > 120 {
		t.Errorf("wait hint should reflect the reset window, got %d", fe.WaitSeconds)
	}
}

func TestAddLabelsCreatesMissingLabel(t *testing.T) {
	b, mux := setup(t)

	var addAttempts, created int
	mux.HandleFunc("/repos/farmer1st/farmer-code/issues/7/labels", func(w http.ResponseWriter, r *http.Request) {
		addAttempts++
		if addAttempts == 1 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprint(w, `{"message": "Label does not exist"}`)
			return
		}
		_, _ = fmt.Fprint(w, `[{"name": "status:completed"}]`)
	})
	mux.HandleFunc("/repos/farmer1st/farmer-code/labels", func(w http.ResponseWriter, r *http.Request) {
		created++
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprint(w, `{"name": "status:completed"}`)
	})
	mux.HandleFunc("/repos/farmer1st/farmer-code/labels/status:completed", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"message": "Not Found"}`)
	})

	if err := b.AddLabels(context.Background(), 7, []string{"status:completed"}); err != nil {
		t.Fatalf("AddLabels failed: %v", err)
	}
	if created != 1 {
		t.Errorf("missing label should be created once, got %d", created)
	}
	if addAttempts != 2 {
		t.Errorf("add should be retried after creation, got %d attempts", addAttempts)
	}
}

func TestRemoveLabelsIgnoresAbsent(t *testing.T) {
	b, mux := setup(t)

	mux.HandleFunc("/repos/farmer1st/farmer-code/issues/7/labels/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"message": "Label does not exist"}`)
	})

	if err := b.RemoveLabels(context.Background(), 7, []string{"gone"}); err != nil {
		t.Errorf("absent labels should be ignored, got %v", err)
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel("waiting_approval"); got != "status:waiting-approval" {
		t.Errorf("expected status:waiting-approval, got %s", got)
	}
}
