package domain

import (
	"context"
	"time"
)

// SourceParser extracts a FileRecord from one source file
type SourceParser interface {
	// ParseFile parses the file at path; root is used to compute the record path
	ParseFile(ctx context.Context, path, root string) (*FileRecord, error)
}

// Cache defines the interface for the parse cache
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Has checks if a key exists in cache
	Has(ctx context.Context, key string) bool
	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error
	// Close releases cache resources
	Close() error
}

// GraphExporter receives the finished code index (e.g. a graph database)
type GraphExporter interface {
	Export(ctx context.Context, ix *CodeIndex) error
	Close(ctx context.Context) error
}

// ArtifactPublisher uploads produced files somewhere durable
type ArtifactPublisher interface {
	Publish(ctx context.Context, runID string, files []string) ([]string, error)
}
