package index

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// Builder parses source files and assembles the code index
type Builder struct {
	parser   domain.SourceParser
	logger   *utils.Logger
	workers  int
	progress utils.ProgressOptions
}

// BuilderOptions contains options for creating a Builder
type BuilderOptions struct {
	Parser   domain.SourceParser
	Logger   *utils.Logger
	Workers  int
	Progress utils.ProgressOptions
}

// NewBuilder creates a new Builder
func NewBuilder(opts BuilderOptions) *Builder {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Builder{
		parser:   opts.Parser,
		logger:   opts.Logger.WithComponent("index"),
		workers:  opts.Workers,
		progress: opts.Progress,
	}
}

// BuildResult is a finished index plus the files that could not be parsed
type BuildResult struct {
	Index *domain.CodeIndex
	// ParseErrors aggregates one *domain.ParseError per failed file; nil when all parsed
	ParseErrors *multierror.Error
	Duration    time.Duration
}

// Failed returns the number of files that could not be parsed
func (r *BuildResult) Failed() int {
	if r.ParseErrors == nil {
		return 0
	}
	return len(r.ParseErrors.Errors)
}

// Build parses files below root and merges them into a new index. Parsing
// runs on a worker pool; records are merged in sorted path order so the
// index does not depend on scheduling. Parse failures are collected, not
// returned; only cancellation aborts the build.
func (b *Builder) Build(ctx context.Context, source, root string, files []string) (*BuildResult, error) {
	start := time.Now()

	sorted := append([]string(nil), files...)
	sort.Slice(sorted, func(i, j int) bool {
		return utils.RelSlash(root, sorted[i]) < utils.RelSlash(root, sorted[j])
	})

	b.logger.Info().Int("files", len(sorted)).Int("workers", b.workers).Msg("Indexing files")

	bar := utils.NewProgressBarWithOptions(len(sorted), utils.DescIndexing, b.progress)
	records, errs := utils.ParallelMap(ctx, sorted, b.workers, func(ctx context.Context, path string) (*domain.FileRecord, error) {
		defer func() { _ = bar.Add(1) }()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return b.parser.ParseFile(ctx, path, root)
	})
	_ = bar.Finish()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BuildResult{Index: domain.NewCodeIndex(source)}
	for i, rec := range records {
		if err := errs[i]; err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			var perr *domain.ParseError
			if !errors.As(err, &perr) {
				err = domain.NewParseError(utils.RelSlash(root, sorted[i]), err)
			}
			b.logger.Error().Err(err).Str("file", utils.RelSlash(root, sorted[i])).Msg("Failed to parse file")
			result.ParseErrors = multierror.Append(result.ParseErrors, err)
			continue
		}
		if rec == nil {
			continue
		}
		Add(result.Index, rec, b.logger)
	}

	result.Duration = time.Since(start)
	b.logger.Info().
		Int("files", len(result.Index.Files)).
		Int("classes", len(result.Index.Classes)).
		Int("failed", result.Failed()).
		Int("duplicates", result.Index.Duplicates).
		Dur("duration", result.Duration).
		Msg("Index built")

	return result, nil
}
