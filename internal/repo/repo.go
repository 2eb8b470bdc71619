// Package repo provides local checkouts of plugin source repositories.
package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/phobologic/apiscan/internal/logging"
)

// DefaultGitTimeout bounds a single git invocation.
const DefaultGitTimeout = 10 * time.Minute

var unsafeNameRe = regexp.MustCompile(`[^\w.-]`)

// Git runs git subcommands in dir.
type Git interface {
	Run(ctx context.Context, dir string, args ...string) error
}

// ExecGit shells out to the git binary on PATH.
type ExecGit struct {
	Timeout time.Duration
}

// Run executes git with args in dir. stderr is folded into the error.
func (g ExecGit) Run(ctx context.Context, dir string, args ...string) error {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("git %s: %w", args[0], err)
		}
		return fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	return nil
}

// Provider clones or updates repositories under WorkDir.
type Provider struct {
	WorkDir string
	Logger  *log.Logger
	Git     Git
	// Limiter, when set, paces git operations that reach the network.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing perSecond git operations per second
// with a burst of one. perSecond <= 0 disables limiting and returns nil.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// NewProvider creates workDir. With clean set, any previous content of
// workDir is removed first.
func NewProvider(workDir string, clean bool, logger *log.Logger, git Git) (*Provider, error) {
	logger = logging.OrDiscard(logger)
	if git == nil {
		git = ExecGit{}
	}
	if clean {
		logger.Info("cleaning work directory", "dir", workDir)
		if err := os.RemoveAll(workDir); err != nil {
			return nil, fmt.Errorf("cleaning work directory: %w", err)
		}
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	return &Provider{WorkDir: workDir, Logger: logger, Git: git}, nil
}

// DirName derives the checkout directory name from a repository URL.
func DirName(repoURL string) string {
	name := strings.TrimRight(strings.TrimSpace(repoURL), "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".git")
	return unsafeNameRe.ReplaceAllString(name, "_")
}

// Fetch returns a local checkout of repoURL, preferring the tag or branch
// matching version when one exists.
func (p *Provider) Fetch(ctx context.Context, repoURL, version string) (string, error) {
	if strings.TrimSpace(repoURL) == "" {
		return "", errors.New("no repository URL")
	}
	logger := logging.OrDiscard(p.Logger)
	name := DirName(repoURL)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("cannot derive directory name from %q", repoURL)
	}
	dir := filepath.Join(p.WorkDir, name)

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		logger.Info("updating repository", "url", repoURL, "dir", dir)
		err := p.update(ctx, dir)
		if err == nil {
			return dir, nil
		}
		logger.Warn("failed to update repository, recloning", "url", repoURL, "err", err)
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("removing stale checkout %s: %w", dir, err)
		}
	}

	var lastErr error
	for _, ref := range candidateRefs(version) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		args := []string{"clone", "--depth", "1"}
		if ref != "" {
			args = append(args, "--branch", ref)
		}
		args = append(args, repoURL, dir)

		if err := p.wait(ctx); err != nil {
			return "", err
		}
		logger.Debug("cloning repository", "url", repoURL, "ref", ref)
		err := p.Git.Run(ctx, p.WorkDir, args...)
		if err == nil {
			logger.Info("cloned repository", "url", repoURL, "ref", refLabel(ref), "dir", dir)
			return dir, nil
		}
		lastErr = err
		_ = os.RemoveAll(dir)
	}
	return "", fmt.Errorf("cloning %s: %w", repoURL, lastErr)
}

func (p *Provider) update(ctx context.Context, dir string) error {
	if err := p.wait(ctx); err != nil {
		return err
	}
	if err := p.Git.Run(ctx, dir, "fetch", "--all", "--tags"); err != nil {
		return err
	}
	return p.Git.Run(ctx, dir, "reset", "--hard", "origin/HEAD")
}

func (p *Provider) wait(ctx context.Context) error {
	if p.Limiter == nil {
		return nil
	}
	return p.Limiter.Wait(ctx)
}

// candidateRefs lists the refs to try, ending with "" for the default branch.
func candidateRefs(version string) []string {
	version = strings.TrimSpace(version)
	if version == "" || version == "unknown" {
		return []string{""}
	}
	tagged := "v" + strings.TrimPrefix(version, "v")
	if tagged == version {
		return []string{version, ""}
	}
	return []string{tagged, version, ""}
}

func refLabel(ref string) string {
	if ref == "" {
		return "default"
	}
	return ref
}
