package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// Fake is an in-memory Manager for tests. It records calls and enforces the
// same exists-errors as the git implementation.
type Fake struct {
	mu        sync.Mutex
	branches  map[string]bool
	worktrees map[string]string // branch -> path
	trees     map[string]bool   // worktreePath/featureID
	pushes    []string
	removed   []string

	// FailNext, when non-empty, makes the next operation fail with this
	// message and then resets.
	FailNext string
}

// NewFake creates an empty fake workspace manager.
func NewFake() *Fake {
	return &Fake{
		branches:  make(map[string]bool),
		worktrees: make(map[string]string),
		trees:     make(map[string]bool),
	}
}

func (f *Fake) failNextLocked() error {
	if f.FailNext != "" {
		msg := f.FailNext
		f.FailNext = ""
		return fmt.Errorf("%s", msg)
	}
	return nil
}

// CreateBranch records the branch; duplicates error.
func (f *Fake) CreateBranch(ctx context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNextLocked(); err != nil {
		return err
	}
	if f.branches[branch] {
		return fmt.Errorf("branch %s already exists", branch)
	}
	f.branches[branch] = true
	return nil
}

// CreateWorktree records a worktree at a synthetic path; duplicates error.
func (f *Fake) CreateWorktree(ctx context.Context, branch string) (*Worktree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNextLocked(); err != nil {
		return nil, err
	}
	if _, ok := f.worktrees[branch]; ok {
		return nil, fmt.Errorf("worktree for %s already exists", branch)
	}
	path := filepath.Join("/work", "repo-"+branch)
	f.worktrees[branch] = path
	return &Worktree{Path: path, Branch: branch}, nil
}

// InitArtifactTree records the tree; re-running is a no-op like production.
func (f *Fake) InitArtifactTree(ctx context.Context, worktreePath, featureID string) (*ArtifactTree, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNextLocked(); err != nil {
		return nil, err
	}
	key := worktreePath + "/" + featureID
	f.trees[key] = true
	root := filepath.Join(worktreePath, ".plans", featureID)
	return &ArtifactTree{
		Root:     root,
		SpecsDir: filepath.Join(root, "specs"),
		PlansDir: filepath.Join(root, "plans"),
		Reviews:  filepath.Join(root, "reviews"),
		MetaPath: filepath.Join(root, "meta.json"),
	}, nil
}

// CommitAndPush records the push message.
func (f *Fake) CommitAndPush(ctx context.Context, worktreePath, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNextLocked(); err != nil {
		return err
	}
	f.pushes = append(f.pushes, message)
	return nil
}

// RemoveWorktree records the removal.
func (f *Fake) RemoveWorktree(ctx context.Context, worktreePath string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failNextLocked(); err != nil {
		return err
	}
	f.removed = append(f.removed, worktreePath)
	return nil
}

// HasBranch reports whether a branch was created.
func (f *Fake) HasBranch(branch string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[branch]
}

// BranchCount returns the number of created branches.
func (f *Fake) BranchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.branches)
}

// WorktreeFor returns the recorded worktree path for a branch.
func (f *Fake) WorktreeFor(branch string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.worktrees[branch]
}

// TreeCount returns the number of initialized artifact trees.
func (f *Fake) TreeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.trees)
}

// Pushes returns the recorded commit messages.
func (f *Fake) Pushes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.pushes...)
}
