package agentrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/farmer1st/farmer-code/internal/fault"
)

// DefaultDispatchTimeout bounds a CLI invocation when the request carries none.
const DefaultDispatchTimeout = 10 * time.Minute

// ClaudeCLI runs agents through the Claude Code CLI in non-interactive mode.
type ClaudeCLI struct {
	// Binary is the CLI executable (default "claude").
	Binary string
	// DefaultModel is used when the request does not name one.
	DefaultModel string
}

func init() {
	Register("claude-cli", func() Runner {
		return &ClaudeCLI{}
	})
}

// Name returns the runner identifier.
func (r *ClaudeCLI) Name() string {
	return "claude-cli"
}

// Dispatch invokes the CLI with the prompt on stdin and returns its output.
// Deadline expiry maps to AGENT_TIMEOUT, every other failure to
// AGENT_UNAVAILABLE.
func (r *ClaudeCLI) Dispatch(ctx context.Context, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{"--print"}
	if model := r.model(req); model != "" {
		args = append(args, "--model", model)
	}
	if req.SystemPrompt != "" {
		args = append(args, "--append-system-prompt", req.SystemPrompt)
	}
	if len(req.Tools) > 0 {
		args = append(args, "--allowedTools", strings.Join(req.Tools, ","))
	}

	binary := r.Binary
	if binary == "" {
		binary = "claude"
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(req.UserPrompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fault.Wrap(fault.AgentTimeout, err,
				"agent %s timed out after %s", req.AgentID, timeout)
		}
		return nil, fault.Wrap(fault.AgentUnavailable, err,
			"agent %s dispatch failed: %s", req.AgentID, truncate(stderr.String(), 500))
	}

	return &Result{
		Output:   stdout.String(),
		Duration: duration,
		Metadata: map[string]string{"runner": r.Name(), "model": r.model(req)},
	}, nil
}

func (r *ClaudeCLI) model(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return r.DefaultModel
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s... (%d bytes truncated)", s[:max], len(s)-max)
}
