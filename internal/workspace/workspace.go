// Package workspace provides the git workspace capability consumed by the
// phase executor: feature branches, sibling worktrees, the per-feature
// artifact tree, and commit/push of produced artifacts.
package workspace

import "context"

// Worktree describes a materialized working directory bound to a branch.
type Worktree struct {
	Path   string
	Branch string
}

// ArtifactTree describes the per-feature planning directory layout.
type ArtifactTree struct {
	Root     string
	SpecsDir string
	PlansDir string
	Reviews  string
	MetaPath string
}

// Manager is the workspace capability. Every operation is idempotent with
// respect to its observable result so phase steps can safely re-run after a
// crash: creations of things that must be fresh fail loudly when the target
// already exists, and the artifact tree treats existing directories as done.
type Manager interface {
	// CreateBranch creates branch off the main line. An existing branch is
	// an error so a resumed step never silently reuses stale work.
	CreateBranch(ctx context.Context, branch string) error

	// CreateWorktree materializes a sibling working directory bound to
	// branch and returns it. An existing target path is an error.
	CreateWorktree(ctx context.Context, branch string) (*Worktree, error)

	// InitArtifactTree creates .plans/<featureID>/{specs,plans,reviews} and
	// the metadata document inside the worktree. No-op when present.
	InitArtifactTree(ctx context.Context, worktreePath, featureID string) (*ArtifactTree, error)

	// CommitAndPush commits all changes in the worktree and pushes the
	// branch. A clean tree pushes without committing.
	CommitAndPush(ctx context.Context, worktreePath, message string) error

	// RemoveWorktree removes the worktree. Uncommitted changes abort the
	// removal unless force is set.
	RemoveWorktree(ctx context.Context, worktreePath string, force bool) error
}
