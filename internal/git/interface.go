package git

import (
	"context"

	"github.com/go-git/go-git/v5"
)

//go:generate mockgen -source=interface.go -destination=mocks/mock_client.go -package=mocks

// Client defines the interface for Git operations
type Client interface {
	PlainCloneContext(ctx context.Context, path string, isBare bool, o *git.CloneOptions) (*git.Repository, error)
}
