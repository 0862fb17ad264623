package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

const repoRulesPath = "rules/health_rules.yaml"

// createRulesRepo initialises a repository holding content at repoRulesPath.
// go-git names the initial branch "master".
func createRulesRepo(t *testing.T, dir, content string) *gogit.Repository {
	t.Helper()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	commitFile(t, repo, dir, repoRulesPath, content, "initial rules")
	return repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content, message string) string {
	t.Helper()

	full := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("failed to add %s: %v", name, err)
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

func newTestGitSource(t *testing.T, repoDir, localPath string) *GitSource {
	t.Helper()

	src, err := NewGitSource(GitConfig{
		Repository: repoDir,
		Branch:     "master",
		Path:       repoRulesPath,
		Timeout:    10 * time.Second,
		LocalPath:  localPath,
	}, nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}
	return src
}

func TestNewGitSource(t *testing.T) {
	valid := GitConfig{Repository: "https://example.com/rules.git", Branch: "main", Path: "health_rules.yaml"}

	tests := []struct {
		name    string
		mutate  func(c *GitConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*GitConfig) {}},
		{name: "nested path", mutate: func(c *GitConfig) { c.Path = "./rules/../rules/bis.yaml" }},
		{name: "empty repository", mutate: func(c *GitConfig) { c.Repository = "" }, wantErr: "repository"},
		{name: "empty branch", mutate: func(c *GitConfig) { c.Branch = "" }, wantErr: "branch"},
		{name: "empty path", mutate: func(c *GitConfig) { c.Path = "" }, wantErr: "inside the repository"},
		{name: "path escapes repository", mutate: func(c *GitConfig) { c.Path = "../secrets.yaml" }, wantErr: "inside the repository"},
		{name: "absolute path", mutate: func(c *GitConfig) { c.Path = "/etc/rules.yaml" }, wantErr: "inside the repository"},
		{name: "unknown auth", mutate: func(c *GitConfig) { c.Auth.Type = "kerberos" }, wantErr: "auth provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			src, err := NewGitSource(cfg, nil)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewGitSource() error = %v", err)
				}
				if src.LocalPath() == "" {
					t.Error("expected a default local path")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("NewGitSource() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestGitSource_LoadClonesRepository(t *testing.T) {
	repoDir := t.TempDir()
	repo := createRulesRepo(t, repoDir, rulesV1)
	ref, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to read HEAD: %v", err)
	}

	localPath := t.TempDir()
	src := newTestGitSource(t, repoDir, localPath)

	if src.Head() != "" {
		t.Error("Head() before clone should be empty")
	}

	store, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Version() != "v1" {
		t.Errorf("Version() = %q, want v1", store.Version())
	}
	if src.Head() != ref.Hash().String() {
		t.Errorf("Head() = %q, want %q", src.Head(), ref.Hash().String())
	}
	if want := "git:" + repoDir + "@master/" + repoRulesPath; src.Describe() != want {
		t.Errorf("Describe() = %q, want %q", src.Describe(), want)
	}

	// A second source on the same checkout opens it instead of cloning.
	reopened := newTestGitSource(t, repoDir, localPath)
	if _, err := reopened.Load(context.Background()); err != nil {
		t.Fatalf("Load() on existing checkout error = %v", err)
	}
}

func TestGitSource_CleanOnStart(t *testing.T) {
	repoDir := t.TempDir()
	createRulesRepo(t, repoDir, rulesV1)

	localPath := t.TempDir()
	stale := filepath.Join(localPath, "stale.txt")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewGitSource(GitConfig{
		Repository:   repoDir,
		Branch:       "master",
		Path:         repoRulesPath,
		LocalPath:    localPath,
		CleanOnStart: true,
	}, nil)
	if err != nil {
		t.Fatalf("NewGitSource() error = %v", err)
	}
	if _, err := src.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("expected stale file to be removed, stat error = %v", err)
	}
}

func TestGitSource_LoadErrors(t *testing.T) {
	t.Run("nonexistent repository", func(t *testing.T) {
		src := newTestGitSource(t, filepath.Join(t.TempDir(), "missing"), t.TempDir())
		if _, err := src.Load(context.Background()); err == nil {
			t.Fatal("expected clone of a missing repository to fail")
		}
	})

	t.Run("rules file missing", func(t *testing.T) {
		repoDir := t.TempDir()
		repo, err := gogit.PlainInit(repoDir, false)
		if err != nil {
			t.Fatal(err)
		}
		commitFile(t, repo, repoDir, "README.md", "rules live elsewhere", "readme")

		src := newTestGitSource(t, repoDir, t.TempDir())
		if _, err := src.Load(context.Background()); err == nil {
			t.Fatal("expected missing rules file to fail")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		src := newTestGitSource(t, t.TempDir(), t.TempDir())
		if _, err := src.Load(ctx); err == nil {
			t.Fatal("expected cancelled load to fail")
		}
	})
}

func TestGitSource_PullReportsChangedFiles(t *testing.T) {
	repoDir := t.TempDir()
	repo := createRulesRepo(t, repoDir, rulesV1)

	src := newTestGitSource(t, repoDir, t.TempDir())
	if _, err := src.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	result, err := src.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if result.HadChanges {
		t.Errorf("expected no changes, got %+v", result)
	}

	head := commitFile(t, repo, repoDir, repoRulesPath, rulesV2, "bump rules")

	result, err = src.Pull(context.Background())
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !result.HadChanges || result.ToSHA != head {
		t.Fatalf("expected pull to %s, got %+v", head, result)
	}
	if len(result.ChangedFiles) != 1 || result.ChangedFiles[0] != repoRulesPath {
		t.Errorf("ChangedFiles = %v, want [%s]", result.ChangedFiles, repoRulesPath)
	}
}

func TestGitWatcher_CheckNow(t *testing.T) {
	ctx := context.Background()
	repoDir := t.TempDir()
	repo := createRulesRepo(t, repoDir, rulesV1)

	src := newTestGitSource(t, repoDir, t.TempDir())
	target := &fakeTarget{}
	observer := &recordingObserver{}
	reloader, err := NewReloader(src, target, observer, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reloader.Reload(ctx); err != nil {
		t.Fatalf("initial Reload() error = %v", err)
	}

	watcher, err := NewGitWatcher(src, reloader, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Nothing new upstream.
	if swapped, err := watcher.CheckNow(ctx); err != nil || swapped {
		t.Fatalf("CheckNow() = %v, %v; want false, nil", swapped, err)
	}

	// A commit that leaves the rule document alone advances the checkout only.
	readme := commitFile(t, repo, repoDir, "README.md", "docs", "docs")
	if swapped, err := watcher.CheckNow(ctx); err != nil || swapped {
		t.Fatalf("CheckNow() after unrelated commit = %v, %v; want false, nil", swapped, err)
	}
	if src.Head() != readme {
		t.Errorf("Head() = %q, want %q", src.Head(), readme)
	}
	if got := target.swaps.Load(); got != 1 {
		t.Errorf("swaps = %d, want 1", got)
	}

	commitFile(t, repo, repoDir, repoRulesPath, rulesV2, "bump rules")
	swapped, err := watcher.CheckNow(ctx)
	if err != nil || !swapped {
		t.Fatalf("CheckNow() after rules commit = %v, %v; want true, nil", swapped, err)
	}
	if v := target.Rules().Version(); v != "v2" {
		t.Errorf("active version = %q, want v2", v)
	}

	// A broken document is pulled but never replaces the active rules.
	commitFile(t, repo, repoDir, repoRulesPath, "version: v3\nheavy_metals: [\n", "break rules")
	swapped, err = watcher.CheckNow(ctx)
	if err == nil || swapped {
		t.Fatalf("CheckNow() after broken commit = %v, %v; want false, error", swapped, err)
	}
	if v := target.Rules().Version(); v != "v2" {
		t.Errorf("active version after failed reload = %q, want v2", v)
	}
	if reloader.Status().LastError == nil {
		t.Error("expected reloader to record the failure")
	}

	observer.mu.Lock()
	statuses := append([]string(nil), observer.statuses...)
	observer.mu.Unlock()
	if want := []string{StatusSuccess, StatusSuccess, StatusFailure}; strings.Join(statuses, ",") != strings.Join(want, ",") {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}
}

func TestGitWatcher_StartStop(t *testing.T) {
	repoDir := t.TempDir()
	createRulesRepo(t, repoDir, rulesV1)
	src := newTestGitSource(t, repoDir, t.TempDir())

	reloader, err := NewReloader(src, &fakeTarget{}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewGitWatcher(nil, reloader, time.Second, nil); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewGitWatcher(src, nil, time.Second, nil); err == nil {
		t.Error("expected error for nil reloader")
	}
	if _, err := NewGitWatcher(src, reloader, 0, nil); err == nil {
		t.Error("expected error for zero interval")
	}

	watcher, err := NewGitWatcher(src, reloader, time.Hour, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !watcher.IsRunning() {
		t.Error("expected watcher to be running")
	}
	if err := watcher.Start(context.Background()); err == nil {
		t.Error("expected second Start() to fail")
	}

	watcher.Stop()
	watcher.Stop()
	if watcher.IsRunning() {
		t.Error("expected watcher to be stopped")
	}

	// Restart after stop.
	if err := watcher.Start(context.Background()); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	watcher.Stop()
}

func TestNewAuthProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      GitAuth
		wantType string
		wantErr  bool
	}{
		{name: "default", cfg: GitAuth{}, wantType: "none"},
		{name: "none", cfg: GitAuth{Type: "none"}, wantType: "none"},
		{name: "token", cfg: GitAuth{Type: "token", Token: "ghp_x"}, wantType: "token"},
		{name: "token missing", cfg: GitAuth{Type: "token"}, wantErr: true},
		{name: "ssh", cfg: GitAuth{Type: "ssh", SSHKeyPath: "/keys/id_ed25519"}, wantType: "ssh"},
		{name: "ssh missing key", cfg: GitAuth{Type: "ssh"}, wantErr: true},
		{name: "unknown", cfg: GitAuth{Type: "oauth"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewAuthProvider(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAuthProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && p.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", p.Type(), tt.wantType)
			}
		})
	}
}

func TestTokenAuth_GetAuth(t *testing.T) {
	auth, err := NewTokenAuth("ghp_secret").GetAuth()
	if err != nil {
		t.Fatalf("GetAuth() error = %v", err)
	}
	basic, ok := auth.(*http.BasicAuth)
	if !ok || basic.Password != "ghp_secret" {
		t.Errorf("GetAuth() = %#v, want basic auth carrying the token", auth)
	}

	if _, err := NewTokenAuth("").GetAuth(); err == nil {
		t.Error("expected empty token to fail")
	}
}

func TestSSHAuth_RejectsOpenPermissions(t *testing.T) {
	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(key, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewSSHAuth(key, "").GetAuth()
	if err == nil || !strings.Contains(err.Error(), "too open") {
		t.Fatalf("GetAuth() error = %v, want permissions error", err)
	}

	if _, err := NewSSHAuth(filepath.Join(t.TempDir(), "missing"), "").GetAuth(); err == nil {
		t.Error("expected missing key to fail")
	}
}
