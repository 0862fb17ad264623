package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"waterwatch-hq/healthimpact/pkg/healthrules"
)

// GitConfig configures a GitSource.
type GitConfig struct {
	// Repository is the clone URL or a local repository path.
	Repository string
	Branch     string
	// Path is the rule document's location inside the repository.
	Path string
	Auth GitAuth
	// Timeout bounds each clone and pull. Zero means no limit.
	Timeout time.Duration
	// Depth > 0 makes a shallow single-branch clone.
	Depth int
	// LocalPath is the checkout directory. Empty uses a directory under
	// os.TempDir.
	LocalPath    string
	CleanOnStart bool
}

// PullResult describes the outcome of a pull.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string
	HadChanges   bool
}

// GitSource serves the rule document from a Git checkout. The first Load
// clones the repository; later loads re-read the checkout. Pull advances
// the checkout to the remote branch head.
type GitSource struct {
	cfg       GitConfig
	rulesPath string
	localPath string
	auth      AuthProvider
	logger    *slog.Logger

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewGitSource validates cfg and returns a source that has not cloned yet.
func NewGitSource(cfg GitConfig, logger *slog.Logger) (*GitSource, error) {
	if cfg.Repository == "" {
		return nil, errors.New("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, errors.New("branch cannot be empty")
	}

	rulesPath := path.Clean(filepath.ToSlash(cfg.Path))
	if cfg.Path == "" || rulesPath == "." || path.IsAbs(rulesPath) || rulesPath == ".." || strings.HasPrefix(rulesPath, "../") {
		return nil, fmt.Errorf("rules path %q must be a file inside the repository", cfg.Path)
	}

	auth, err := NewAuthProvider(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	localPath := cfg.LocalPath
	if localPath == "" {
		localPath = filepath.Join(os.TempDir(), "healthimpact-rules")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &GitSource{
		cfg:       cfg,
		rulesPath: rulesPath,
		localPath: localPath,
		auth:      auth,
		logger:    logger.With("component", "rules.git"),
	}, nil
}

// Load clones the repository on first use and loads the rule document from
// the checkout. It does not contact the remote once the checkout exists.
func (s *GitSource) Load(ctx context.Context) (*healthrules.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCloned(ctx); err != nil {
		return nil, err
	}
	return healthrules.LoadFile(s.filePath())
}

// Pull fetches the tracked branch and fast-forwards the checkout. It clones
// first when needed.
func (s *GitSource) Pull(ctx context.Context) (*PullResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureCloned(ctx); err != nil {
		return nil, err
	}

	ref, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD: %w", err)
	}
	fromSHA := ref.Hash().String()

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	auth, err := s.auth.GetAuth()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth: %w", err)
	}

	pullCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = worktree.PullContext(pullCtx, &gogit.PullOptions{
		RemoteName:    gogit.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil, fmt.Errorf("failed to pull: %w", err)
	}

	newRef, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get new HEAD: %w", err)
	}

	result := &PullResult{
		FromSHA:    fromSHA,
		ToSHA:      newRef.Hash().String(),
		HadChanges: fromSHA != newRef.Hash().String(),
	}
	if result.HadChanges {
		files, err := s.changedFiles(ref.Hash(), newRef.Hash())
		if err != nil {
			return nil, fmt.Errorf("failed to get changed files: %w", err)
		}
		result.ChangedFiles = files
	}
	return result, nil
}

// Head returns the checked-out commit SHA, or "" before the first clone.
func (s *GitSource) Head() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == nil {
		return ""
	}
	ref, err := s.repo.Head()
	if err != nil {
		return ""
	}
	return ref.Hash().String()
}

// RulesPath returns the slash-separated path of the rule document inside
// the repository.
func (s *GitSource) RulesPath() string {
	return s.rulesPath
}

// LocalPath returns the checkout directory.
func (s *GitSource) LocalPath() string {
	return s.localPath
}

func (s *GitSource) Describe() string {
	return fmt.Sprintf("git:%s@%s/%s", s.cfg.Repository, s.cfg.Branch, s.rulesPath)
}

func (s *GitSource) filePath() string {
	return filepath.Join(s.localPath, filepath.FromSlash(s.rulesPath))
}

// ensureCloned opens an existing checkout or clones a new one. Callers hold
// s.mu.
func (s *GitSource) ensureCloned(ctx context.Context) error {
	if s.repo != nil {
		return nil
	}

	if s.cfg.CleanOnStart {
		if err := os.RemoveAll(s.localPath); err != nil {
			return fmt.Errorf("failed to clean existing checkout: %w", err)
		}
	}

	if _, err := os.Stat(filepath.Join(s.localPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(s.localPath)
		if err != nil {
			return fmt.Errorf("failed to open existing checkout: %w", err)
		}
		s.repo = repo
		s.logger.Info("opened existing rules checkout", "path", s.localPath)
		return nil
	}

	if err := os.MkdirAll(s.localPath, 0o755); err != nil {
		return fmt.Errorf("failed to create checkout directory: %w", err)
	}

	auth, err := s.auth.GetAuth()
	if err != nil {
		return fmt.Errorf("failed to get auth: %w", err)
	}

	cloneCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	repo, err := gogit.PlainCloneContext(cloneCtx, s.localPath, false, &gogit.CloneOptions{
		URL:           s.cfg.Repository,
		ReferenceName: plumbing.NewBranchReferenceName(s.cfg.Branch),
		SingleBranch:  s.cfg.Depth > 0,
		Depth:         s.cfg.Depth,
		Auth:          auth,
	})
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", s.cfg.Repository, err)
	}
	s.repo = repo

	s.logger.Info("cloned rules repository",
		"repository", s.cfg.Repository,
		"branch", s.cfg.Branch,
		"auth", s.auth.Type(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *GitSource) changedFiles(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := s.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := s.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}

	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		// Deletions only carry the old name.
		if change.To.Name != "" {
			files = append(files, change.To.Name)
		} else if change.From.Name != "" {
			files = append(files, change.From.Name)
		}
	}
	return files, nil
}

func (s *GitSource) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
