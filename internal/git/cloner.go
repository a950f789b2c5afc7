package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// TokenEnv is the environment variable holding an HTTPS access token
const TokenEnv = "GITHUB_TOKEN"

// goGitClient calls straight into go-git
type goGitClient struct{}

// NewClient returns the go-git backed Client
func NewClient() Client {
	return goGitClient{}
}

func (goGitClient) PlainCloneContext(ctx context.Context, path string, isBare bool, o *git.CloneOptions) (*git.Repository, error) {
	return git.PlainCloneContext(ctx, path, isBare, o)
}

// CloneResult describes a finished clone
type CloneResult struct {
	Dir    string
	Branch string
	Commit string
}

// Cloner clones repositories into a local working directory
type Cloner struct {
	client   Client
	logger   *utils.Logger
	retrier  *Retrier
	depth    int
	branch   string
	timeout  time.Duration
	token    string
	progress io.Writer
}

// ClonerOptions contains options for creating a Cloner
type ClonerOptions struct {
	Client     Client
	Logger     *utils.Logger
	Depth      int
	Branch     string
	MaxRetries int
	Timeout    time.Duration
	// Token overrides GITHUB_TOKEN for HTTPS basic auth
	Token string
	// Progress receives go-git's sideband output; nil discards it
	Progress io.Writer
	// Retry tunes backoff intervals; MaxRetries above always wins
	Retry *RetrierOptions
}

// NewCloner creates a new Cloner
func NewCloner(opts ClonerOptions) *Cloner {
	if opts.Client == nil {
		opts.Client = NewClient()
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Token == "" {
		opts.Token = os.Getenv(TokenEnv)
	}

	retry := DefaultRetrierOptions()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	retry.MaxRetries = opts.MaxRetries

	return &Cloner{
		client:   opts.Client,
		logger:   opts.Logger.WithComponent("clone"),
		retrier:  NewRetrier(retry),
		depth:    opts.Depth,
		branch:   opts.Branch,
		timeout:  opts.Timeout,
		token:    opts.Token,
		progress: opts.Progress,
	}
}

// Clone clones url into dest. An existing dest is deleted first so every run
// starts from a fresh checkout.
func (c *Cloner) Clone(ctx context.Context, url, dest string) (*CloneResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, domain.ErrNoRepoURL
	}

	if _, err := os.Stat(dest); err == nil {
		c.logger.Info().Str("dir", dest).Msg("Removing existing clone directory")
		if err := utils.RemoveAll(dest); err != nil {
			return nil, fmt.Errorf("failed to remove existing clone directory: %w", err)
		}
	}
	if err := utils.EnsureDir(filepath.Dir(dest)); err != nil {
		return nil, fmt.Errorf("failed to create clone parent directory: %w", err)
	}

	opts := c.cloneOptions(url)

	c.logger.Info().Str("url", url).Str("dir", dest).Int("depth", c.depth).Msg("Cloning repository")
	start := time.Now()

	var repo *git.Repository
	attempts, err := c.retrier.Retry(ctx, func() error {
		// a failed attempt may leave a half-written .git behind
		_ = utils.RemoveAll(dest)

		attemptCtx := ctx
		if c.timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
			defer cancel()
		}

		r, err := c.client.PlainCloneContext(attemptCtx, dest, false, opts)
		if err != nil {
			c.logger.Warn().Err(err).Str("url", url).Msg("Clone attempt failed")
			return classifyCloneError(err)
		}
		repo = r
		return nil
	})
	if err != nil {
		_ = utils.RemoveAll(dest)
		var transient *domain.TransientError
		if errors.As(err, &transient) {
			err = transient.Err
		}
		return nil, domain.NewCloneError(url, attempts, err)
	}

	result := &CloneResult{Dir: dest, Branch: c.branch}
	if repo != nil {
		if head, err := repo.Head(); err == nil {
			if head.Name().IsBranch() {
				result.Branch = head.Name().Short()
			}
			result.Commit = head.Hash().String()
		}
	}

	c.logger.Info().
		Str("branch", result.Branch).
		Str("commit", shortHash(result.Commit)).
		Int("attempts", attempts).
		Dur("duration", time.Since(start)).
		Msg("Clone complete")

	return result, nil
}

// Remove deletes a clone directory. A missing directory only logs a warning.
func (c *Cloner) Remove(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		c.logger.Warn().Str("dir", dir).Msg("Clone directory does not exist, nothing to remove")
		return nil
	}
	if err := utils.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove clone directory %s: %w", dir, err)
	}
	c.logger.Info().Str("dir", dir).Msg("Removed clone directory")
	return nil
}

func (c *Cloner) cloneOptions(url string) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:      url,
		Progress: c.progress,
		Tags:     git.NoTags,
	}
	if c.depth > 0 {
		opts.Depth = c.depth
	}
	if c.branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(c.branch)
		opts.SingleBranch = true
	}
	if c.token != "" && isHTTPURL(url) {
		opts.Auth = &githttp.BasicAuth{
			Username: "token",
			Password: c.token,
		}
	}
	return opts
}

// classifyCloneError marks network failures as retryable; auth, missing
// repositories, bad references and cancellation are permanent
func classifyCloneError(err error) error {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, transport.ErrEmptyRemoteRepository),
		errors.Is(err, transport.ErrInvalidAuthMethod),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, git.ErrRepositoryAlreadyExists):
		return err
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid") || strings.Contains(msg, "unsupported scheme") {
		return err
	}
	return &domain.TransientError{Err: err}
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "https://") || strings.HasPrefix(u, "http://")
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
