package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/git/mocks"
)

var fastRetry = &RetrierOptions{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	Multiplier:      1.5,
}

func newTestCloner(t *testing.T, client Client, maxRetries int) *Cloner {
	t.Helper()
	return NewCloner(ClonerOptions{
		Client:     client,
		MaxRetries: maxRetries,
		Token:      "-",
		Retry:      fastRetry,
	})
}

func TestCloner_Clone_EmptyURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	c := newTestCloner(t, client, 2)
	_, err := c.Clone(context.Background(), "  ", filepath.Join(t.TempDir(), "repo"))
	assert.ErrorIs(t, err, domain.ErrNoRepoURL)
}

func TestCloner_Clone_RemovesExistingDest(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	dest := filepath.Join(t.TempDir(), "cloned_repo")
	stale := filepath.Join(dest, "stale.txt")
	require.NoError(t, os.MkdirAll(dest, 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	client.EXPECT().
		PlainCloneContext(gomock.Any(), dest, false, gomock.Any()).
		DoAndReturn(func(_ context.Context, path string, _ bool, o *git.CloneOptions) (*git.Repository, error) {
			_, err := os.Stat(stale)
			assert.True(t, os.IsNotExist(err), "stale clone must be gone before cloning")
			assert.Equal(t, 1, o.Depth)
			assert.Equal(t, "https://example.com/acme/shop.git", o.URL)
			return nil, nil
		})

	c := NewCloner(ClonerOptions{Client: client, Depth: 1, Token: "-", Retry: fastRetry})
	res, err := c.Clone(context.Background(), "https://example.com/acme/shop.git", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, res.Dir)
}

func TestCloner_Clone_RetriesTransientErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	dest := filepath.Join(t.TempDir(), "repo")
	gomock.InOrder(
		client.EXPECT().PlainCloneContext(gomock.Any(), dest, false, gomock.Any()).
			Return(nil, errors.New("connection reset by peer")),
		client.EXPECT().PlainCloneContext(gomock.Any(), dest, false, gomock.Any()).
			Return(nil, nil),
	)

	c := newTestCloner(t, client, 2)
	_, err := c.Clone(context.Background(), "https://example.com/a.git", dest)
	require.NoError(t, err)
}

func TestCloner_Clone_GivesUpAfterMaxRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)

	dest := filepath.Join(t.TempDir(), "repo")
	client.EXPECT().PlainCloneContext(gomock.Any(), dest, false, gomock.Any()).
		Return(nil, errors.New("i/o timeout")).
		Times(3)

	c := newTestCloner(t, client, 2)
	_, err := c.Clone(context.Background(), "https://example.com/a.git", dest)
	require.Error(t, err)

	var cloneErr *domain.CloneError
	require.ErrorAs(t, err, &cloneErr)
	assert.Equal(t, 3, cloneErr.Attempts)
	assert.ErrorIs(t, err, domain.ErrCloneFailed)
	assert.False(t, domain.IsRetryable(err), "exhausted clone errors are not wrapped as transient")
}

func TestCloner_Clone_PermanentErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth required", transport.ErrAuthenticationRequired},
		{"not found", transport.ErrRepositoryNotFound},
		{"canceled", context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			client := mocks.NewMockClient(ctrl)

			dest := filepath.Join(t.TempDir(), "repo")
			client.EXPECT().PlainCloneContext(gomock.Any(), dest, false, gomock.Any()).
				Return(nil, tt.err).
				Times(1)

			c := newTestCloner(t, client, 3)
			_, err := c.Clone(context.Background(), "https://example.com/a.git", dest)
			assert.ErrorIs(t, err, tt.err)
			assert.ErrorIs(t, err, domain.ErrCloneFailed)
		})
	}
}

func TestCloner_CloneOptions(t *testing.T) {
	t.Run("token and branch", func(t *testing.T) {
		c := NewCloner(ClonerOptions{Token: "secret", Branch: "develop", Depth: 1})
		opts := c.cloneOptions("https://github.com/acme/shop.git")

		auth, ok := opts.Auth.(*githttp.BasicAuth)
		require.True(t, ok)
		assert.Equal(t, "secret", auth.Password)
		assert.Equal(t, "refs/heads/develop", opts.ReferenceName.String())
		assert.True(t, opts.SingleBranch)
		assert.Equal(t, 1, opts.Depth)
	})

	t.Run("token from environment", func(t *testing.T) {
		t.Setenv(TokenEnv, "env-token")
		c := NewCloner(ClonerOptions{})
		opts := c.cloneOptions("https://github.com/acme/shop.git")

		auth, ok := opts.Auth.(*githttp.BasicAuth)
		require.True(t, ok)
		assert.Equal(t, "env-token", auth.Password)
	})

	t.Run("no auth for ssh or local paths", func(t *testing.T) {
		c := NewCloner(ClonerOptions{Token: "secret"})
		assert.Nil(t, c.cloneOptions("git@github.com:acme/shop.git").Auth)
		assert.Nil(t, c.cloneOptions("/tmp/local/repo").Auth)
	})

	t.Run("zero depth means full history", func(t *testing.T) {
		c := NewCloner(ClonerOptions{Token: "-"})
		assert.Equal(t, 0, c.cloneOptions("https://x/y.git").Depth)
	})
}

func TestCloner_Clone_LocalRepository(t *testing.T) {
	src := initLocalRepo(t)
	dest := filepath.Join(t.TempDir(), "work", "cloned_repo")

	c := NewCloner(ClonerOptions{Token: "-", Retry: fastRetry})
	res, err := c.Clone(context.Background(), src, dest)
	require.NoError(t, err)

	assert.Equal(t, dest, res.Dir)
	assert.Len(t, res.Commit, 40)
	assert.FileExists(t, filepath.Join(dest, "src", "App.java"))

	require.NoError(t, c.Remove(dest))
	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
}

func TestCloner_Remove_MissingDir(t *testing.T) {
	c := NewCloner(ClonerOptions{})
	assert.NoError(t, c.Remove(filepath.Join(t.TempDir(), "never-cloned")))
}

func TestClassifyCloneError(t *testing.T) {
	assert.True(t, domain.IsRetryable(classifyCloneError(errors.New("unexpected EOF"))))
	assert.False(t, domain.IsRetryable(classifyCloneError(transport.ErrAuthorizationFailed)))
	assert.False(t, domain.IsRetryable(classifyCloneError(errors.New("invalid URL"))))
}

func initLocalRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "App.java"), []byte("class App {}\n"), 0644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("src/App.java")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}
