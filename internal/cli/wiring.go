package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/farmer1st/farmer-code/internal/agentrunner"
	"github.com/farmer1st/farmer-code/internal/audit"
	"github.com/farmer1st/farmer-code/internal/board"
	"github.com/farmer1st/farmer-code/internal/board/auth"
	"github.com/farmer1st/farmer-code/internal/clockutil"
	"github.com/farmer1st/farmer-code/internal/cloudlog"
	"github.com/farmer1st/farmer-code/internal/config"
	"github.com/farmer1st/farmer-code/internal/hub"
	"github.com/farmer1st/farmer-code/internal/orchestrator"
	"github.com/farmer1st/farmer-code/internal/phase"
	"github.com/farmer1st/farmer-code/internal/poller"
	"github.com/farmer1st/farmer-code/internal/routing"
	"github.com/farmer1st/farmer-code/internal/workflow"
	"github.com/farmer1st/farmer-code/internal/workspace"
)

// buildService constructs the fully wired orchestrator service from the
// loaded configuration. Everything is created here, once, and threaded
// through explicitly; no package keeps hidden process-global state.
func buildService(ctx context.Context) (*orchestrator.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := log.New(os.Stderr, "farmer-code: ", log.LstdFlags)

	clock := clockutil.NewReal()

	store, err := workflow.NewStore(cfg.State.Dir)
	if err != nil {
		return nil, err
	}
	engine := workflow.NewEngine(store, clock, logger)

	sink, err := audit.NewSink(cfg.State.AuditDir)
	if err != nil {
		return nil, err
	}

	routingConfig, err := routing.LoadFile(cfg.Hub.RoutingFile)
	if err != nil {
		return nil, err
	}
	router := routing.NewRouter(routingConfig)

	issueBoard, err := buildBoard(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ws := workspace.NewGitManager(cfg.Project.RepoPath, workspace.WithMainBranch(cfg.Project.MainBranch))

	runner, err := agentrunner.Get(cfg.Hub.Runner)
	if err != nil {
		return nil, err
	}

	p := poller.New(issueBoard, clock, logger)

	executor := phase.New(engine, issueBoard, ws, runner, p, phase.Config{
		PollTimeout:  cfg.PollTimeout(),
		PollInterval: cfg.PollInterval(),
	}, logger)

	h := hub.New(router, runner, sink, clock, logger)

	var cloudLogger cloudlog.Writer
	if cfg.Cloud.LoggingEnabled {
		cloudLogger, err = cloudlog.NewGCPWriter(ctx, cfg.Cloud.Project)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cloud logging: %w", err)
		}
	}

	return orchestrator.New(engine, executor, h, p, issueBoard, logger, cloudLogger), nil
}

// buildBoard constructs the GitHub board with PAT or App authentication.
func buildBoard(ctx context.Context, cfg *config.Config) (board.IssueBoard, error) {
	owner, repo, err := cfg.RepoOwnerName()
	if err != nil {
		return nil, err
	}

	if cfg.GitHub.Token != "" {
		return board.NewGitHubBoard(owner, repo, board.StaticToken(cfg.GitHub.Token)), nil
	}

	key, err := auth.LoadPrivateKey(ctx, auth.KeySource{
		Path:       cfg.GitHub.PrivateKeyPath,
		SecretName: cfg.GitHub.PrivateKeySecret,
	})
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenManager(cfg.GitHub.AppID, cfg.GitHub.InstallationID, key)
	if err != nil {
		return nil, err
	}
	return board.NewGitHubBoard(owner, repo, tokens), nil
}
