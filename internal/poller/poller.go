// Package poller watches an issue's comment feed for textual completion and
// approval signals, driving workflow transitions when one appears.
package poller

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/farmer1st/farmer-code/internal/board"
	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/fault"
)

// SignalType names a watched signal pattern.
type SignalType string

const (
	// AgentComplete fires on the check-mark glyph anywhere in a comment.
	AgentComplete SignalType = "AGENT_COMPLETE"
	// HumanApproval fires on the case-insensitive substring "approved".
	HumanApproval SignalType = "HUMAN_APPROVAL"
)

// agentCompleteGlyph is the completion marker agents post when done.
const agentCompleteGlyph = "✅"

// Request configures one poll.
type Request struct {
	IssueNumber int
	Signal      SignalType
	Timeout     time.Duration
	Interval    time.Duration
	// RaiseOnTimeout selects between a POLL_TIMEOUT error and a quiet
	// non-detected result when the timeout elapses.
	RaiseOnTimeout bool
}

// Result reports the outcome of a poll.
type Result struct {
	Detected  bool
	Signal    SignalType
	CommentID int64
	Author    string
	// PollCount is the number of ticks performed, detection or not.
	PollCount int
	// Cancelled marks a poll ended by external cancellation.
	Cancelled bool
}

// Poller watches issue comments for signals.
type Poller struct {
	board  board.IssueBoard
	clock  clockutil.Clock
	logger *log.Logger
}

// New creates a poller. logger may be nil for silence.
func New(b board.IssueBoard, clock clockutil.Clock, logger *log.Logger) *Poller {
	return &Poller{board: b, clock: clock, logger: logger}
}

// Poll ticks until the signal appears, the timeout elapses, or ctx is
// cancelled. Each tick fetches comments since the last-seen marker (all
// comments on the first tick), in creation order, and returns the first
// match. Rate-limit faults pause at least the board's wait hint.
func (p *Poller) Poll(ctx context.Context, req Request) (*Result, error) {
	start := p.clock.Now()
	result := &Result{Signal: req.Signal}

	var since time.Time
	seen := make(map[int64]bool)

	for {
		if ctx.Err() != nil {
			result.Cancelled = true
			return result, nil
		}

		result.PollCount++
		comments, err := p.board.ListCommentsSince(ctx, req.IssueNumber, since)
		if err != nil {
			var fe *fault.Error
			if errors.As(err, &fe) && fe.Kind == fault.RateLimitExceeded {
				wait := time.Duration(fe.WaitSeconds) * time.Second
				if wait < req.Interval {
					wait = req.Interval
				}
				p.logf("issue %d: rate limited, backing off %s", req.IssueNumber, wait)
				if sleepErr := p.clock.Sleep(ctx, wait); sleepErr != nil {
					result.Cancelled = true
					return result, nil
				}
				continue
			}
			return result, err
		}

		for _, comment := range comments {
			if seen[comment.ID] {
				continue
			}
			seen[comment.ID] = true
			if !comment.CreatedAt.IsZero() && comment.CreatedAt.After(since) {
				since = comment.CreatedAt
			}
			if Matches(req.Signal, comment.Body) {
				result.Detected = true
				result.CommentID = comment.ID
				result.Author = comment.Author
				p.logf("issue %d: detected %s in comment %d by %s",
					req.IssueNumber, req.Signal, comment.ID, comment.Author)
				return result, nil
			}
		}

		if p.clock.Now().Sub(start) >= req.Timeout {
			if req.RaiseOnTimeout {
				return result, fault.New(fault.PollTimeout,
					"no %s signal on issue %d within %s", req.Signal, req.IssueNumber, req.Timeout)
			}
			return result, nil
		}

		if err := p.clock.Sleep(ctx, req.Interval); err != nil {
			result.Cancelled = true
			return result, nil
		}
	}
}

// Matches reports whether a comment body carries the signal.
func Matches(signal SignalType, body string) bool {
	switch signal {
	case AgentComplete:
		return strings.Contains(body, agentCompleteGlyph)
	case HumanApproval:
		return strings.Contains(strings.ToLower(body), "approved")
	}
	return false
}

func (p *Poller) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
