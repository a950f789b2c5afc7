package publish

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// DefaultRegion is used when none is configured
const DefaultRegion = "us-east-1"

// Bucket is the subset of object storage the publisher needs
type Bucket interface {
	Ensure(ctx context.Context) error
	Upload(ctx context.Context, key, file, contentType string) error
}

// Publisher uploads run artifacts to S3-compatible storage
type Publisher struct {
	bucket Bucket
	prefix string
	logger *utils.Logger
}

// Options contains options for creating a Publisher
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix is prepended to every object key
	Prefix string
	Logger *utils.Logger
	// Store replaces the minio client, for tests
	Store Bucket
}

var _ domain.ArtifactPublisher = (*Publisher)(nil)

// New creates a Publisher backed by minio-go
func New(opts Options) (*Publisher, error) {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	p := &Publisher{
		bucket: opts.Store,
		prefix: strings.Trim(strings.TrimSpace(opts.Prefix), "/"),
		logger: opts.Logger.WithComponent("publish"),
	}
	if p.bucket != nil {
		return p, nil
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, domain.NewValidationError("publish.endpoint", "is required")
	}
	name := strings.TrimSpace(opts.Bucket)
	if name == "" {
		return nil, domain.NewValidationError("publish.bucket", "is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = DefaultRegion
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	p.bucket = &minioBucket{client: client, name: name, region: region}
	return p, nil
}

// ObjectKey returns <prefix>/<runID>/<base name of file>
func (p *Publisher) ObjectKey(runID, file string) string {
	key := path.Join(strings.TrimSpace(runID), filepath.Base(file))
	if p.prefix != "" {
		key = path.Join(p.prefix, key)
	}
	return key
}

// Publish uploads files and returns the object keys written. Every file is
// attempted; failures are joined into the returned error.
func (p *Publisher) Publish(ctx context.Context, runID string, files []string) ([]string, error) {
	if strings.TrimSpace(runID) == "" {
		return nil, domain.NewValidationError("run_id", "is required")
	}
	if len(files) == 0 {
		return nil, nil
	}
	if err := p.bucket.Ensure(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	var keys []string
	var errs []error
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return keys, err
		}
		key := p.ObjectKey(runID, f)
		if err := p.bucket.Upload(ctx, key, f, contentType(f)); err != nil {
			p.logger.Warn().Err(err).Str("file", f).Msg("Upload failed")
			errs = append(errs, fmt.Errorf("upload %s: %w", filepath.Base(f), err))
			continue
		}
		keys = append(keys, key)
	}

	p.logger.Info().Int("uploaded", len(keys)).Int("failed", len(errs)).Msg("Artifacts published")
	return keys, errors.Join(errs...)
}

func contentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".dot":
		return "text/vnd.graphviz"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	if t := mime.TypeByExtension(filepath.Ext(file)); t != "" {
		return t
	}
	return "application/octet-stream"
}

type minioBucket struct {
	client   *minio.Client
	name     string
	region   string
	initOnce sync.Once
	initErr  error
}

func (b *minioBucket) Ensure(ctx context.Context) error {
	b.initOnce.Do(func() {
		exists, err := b.client.BucketExists(ctx, b.name)
		if err != nil {
			b.initErr = err
			return
		}
		if exists {
			return
		}
		b.initErr = b.client.MakeBucket(ctx, b.name, minio.MakeBucketOptions{Region: b.region})
	})
	return b.initErr
}

func (b *minioBucket) Upload(ctx context.Context, key, file, contentType string) error {
	_, err := b.client.FPutObject(ctx, b.name, key, file, minio.PutObjectOptions{ContentType: contentType})
	return err
}
