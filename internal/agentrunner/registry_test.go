package agentrunner

import (
	"context"
	"testing"

	"github.com/farmer1st/farmer-code/internal/fault"
)

func TestRegistryRoundTrip(t *testing.T) {
	Register("test-runner", func() Runner {
		return NewFake(FakeResponse{Output: "ok"})
	})

	if !Exists("test-runner") {
		t.Fatal("test-runner should be registered")
	}

	runner, err := Get("test-runner")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if runner.Name() != "fake" {
		t.Errorf("expected fake, got %s", runner.Name())
	}
}

func TestGetUnknownRunner(t *testing.T) {
	if _, err := Get("no-such-runner"); err == nil {
		t.Error("unknown runner should error")
	}
}

func TestClaudeCLIRegistered(t *testing.T) {
	if !Exists("claude-cli") {
		t.Error("claude-cli should self-register")
	}
}

func TestFakeScriptOrderAndRepeat(t *testing.T) {
	f := NewFake(
		FakeResponse{Output: "first"},
		FakeResponse{Output: "second"},
	)

	ctx := context.Background()
	for i, want := range []string{"first", "second", "second"} {
		result, err := f.Dispatch(ctx, Request{AgentID: "architect"})
		if err != nil {
			t.Fatalf("dispatch %d failed: %v", i, err)
		}
		if result.Output != want {
			t.Errorf("dispatch %d: expected %q, got %q", i, want, result.Output)
		}
	}

	if len(f.Requests()) != 3 {
		t.Errorf("expected 3 recorded requests, got %d", len(f.Requests()))
	}
}

func TestFakeCancelledContext(t *testing.T) {
	f := NewFake(FakeResponse{Output: "never"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Dispatch(ctx, Request{})
	if !fault.IsKind(err, fault.AgentUnavailable) {
		t.Errorf("cancelled dispatch should map to AGENT_UNAVAILABLE, got %v", err)
	}
}
