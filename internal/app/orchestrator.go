package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/quantmind-br/repodiagrams-go/internal/cache"
	"github.com/quantmind-br/repodiagrams-go/internal/config"
	"github.com/quantmind-br/repodiagrams-go/internal/diagram"
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/git"
	"github.com/quantmind-br/repodiagrams-go/internal/graphstore"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
	"github.com/quantmind-br/repodiagrams-go/internal/observability"
	"github.com/quantmind-br/repodiagrams-go/internal/parser"
	"github.com/quantmind-br/repodiagrams-go/internal/publish"
	"github.com/quantmind-br/repodiagrams-go/internal/render"
	"github.com/quantmind-br/repodiagrams-go/internal/scanner"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// Summary describes a finished run
type Summary struct {
	RunID       string
	Source      string
	Commit      string
	Files       int
	Classes     int
	ParseErrors int
	Duplicates  int
	CacheHits   int64
	// Cycles lists package dependency cycles, each sorted
	Cycles       [][]string
	RenderErrors int
	Artifacts    []string
	Published    int
	Duration     time.Duration
}

// Orchestrator runs the clone, index, render and export pipeline
type Orchestrator struct {
	config    *config.Config
	logger    *utils.Logger
	runID     string
	cloneOpts git.ClonerOptions
	cloner    *git.Cloner
	scanner   *scanner.Scanner
	parser    *parser.Parser
	records   *cache.RecordStore
	store     *index.Store
	renderer  *render.Renderer
	tracing   *observability.TracerProvider
	tracer    trace.Tracer
	progress  utils.ProgressOptions
	exporter  func(ctx context.Context) (domain.GraphExporter, error)
	publisher domain.ArtifactPublisher
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	Config  *config.Config
	Verbose bool
	// NoCache disables the parse cache regardless of config
	NoCache bool
	// LogOutput defaults to stderr
	LogOutput io.Writer
	Progress  utils.ProgressOptions

	// GitClient replaces go-git, for tests
	GitClient git.Client
	// Exporter replaces the Neo4j exporter built from config
	Exporter domain.GraphExporter
	// Publisher replaces the S3 publisher built from config
	Publisher domain.ArtifactPublisher
	// Tracer replaces the tracer built from config
	Tracer trace.Tracer
	// GraphvizBinary overrides the dot binary
	GraphvizBinary string
}

// NewOrchestrator creates a new orchestrator with the given configuration
func NewOrchestrator(ctx context.Context, opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logLevel := config.DefaultLogLevel
	logFormat := config.DefaultLogFormat
	if cfg.Logging.Level != "" {
		logLevel = cfg.Logging.Level
	}
	if cfg.Logging.Format != "" {
		logFormat = cfg.Logging.Format
	}

	runID := uuid.NewString()
	logger := utils.NewLogger(utils.LoggerOptions{
		Level:   logLevel,
		Format:  logFormat,
		Output:  opts.LogOutput,
		Verbose: opts.Verbose,
	}).WithRunID(runID)
	if cfg.RepoURL != "" {
		logger = logger.WithRepo(NormalizeRepoURL(cfg.RepoURL))
	}

	o := &Orchestrator{
		config:   cfg,
		logger:   logger,
		runID:    runID,
		progress: opts.Progress,
		scanner: scanner.New(scanner.Options{
			Logger:      logger,
			MaxFileSize: cfg.MaxFileSizeBytes(),
		}),
		store: index.NewStore(index.StoreOptions{
			Directory: cfg.Output.Directory,
			FileName:  cfg.Index.File,
			Logger:    logger,
		}),
		renderer: render.NewRenderer(render.RendererOptions{
			Directory: cfg.Output.Directory,
			Formats:   cfg.Output.Formats,
			Binary:    opts.GraphvizBinary,
			Logger:    logger,
		}),
		publisher: opts.Publisher,
	}

	o.cloneOpts = git.ClonerOptions{
		Client:     opts.GitClient,
		Logger:     logger,
		Depth:      cfg.Git.Depth,
		Branch:     cfg.Branch,
		MaxRetries: cfg.Git.MaxRetries,
		Timeout:    cfg.Git.Timeout,
	}
	o.cloner = git.NewCloner(o.cloneOpts)

	if cfg.Cache.Enabled && !opts.NoCache {
		records, err := openRecordStore(cfg, logger)
		if err != nil {
			// a locked or unreadable cache only costs speed
			logger.Warn().Err(err).Msg("Parse cache unavailable, continuing without it")
		} else {
			o.records = records
		}
	}
	parserOpts := parser.Options{Logger: logger}
	if o.records != nil {
		parserOpts.Cache = o.records
	}
	o.parser = parser.New(parserOpts)

	if opts.Tracer != nil {
		o.tracer = opts.Tracer
	} else {
		tp, err := observability.InitTracing(ctx, observability.TracingOptions{
			Endpoint:   cfg.Tracing.Endpoint,
			Insecure:   cfg.Tracing.Insecure,
			SampleRate: cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Tracing disabled")
		}
		o.tracing = tp
		o.tracer = tp.Tracer()
	}

	switch {
	case opts.Exporter != nil:
		o.exporter = func(context.Context) (domain.GraphExporter, error) { return opts.Exporter, nil }
	case cfg.Neo4j.Enabled():
		o.exporter = func(ctx context.Context) (domain.GraphExporter, error) {
			return graphstore.NewExporter(ctx, graphstore.ExporterOptions{
				URI:      cfg.Neo4j.URI,
				Username: cfg.Neo4j.Username,
				Password: cfg.Neo4j.Password,
				Database: cfg.Neo4j.Database,
				Clean:    cfg.Neo4j.Clean,
				Logger:   logger,
			})
		}
	}

	if o.publisher == nil && cfg.Publish.Enabled() {
		p, err := publish.New(publish.Options{
			Endpoint:  cfg.Publish.Endpoint,
			Region:    cfg.Publish.Region,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			Bucket:    cfg.Publish.Bucket,
			UseSSL:    cfg.Publish.UseSSL,
			Prefix:    cfg.Publish.Prefix,
			Logger:    logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Artifact publishing disabled")
		} else {
			o.publisher = p
		}
	}

	return o, nil
}

func openRecordStore(cfg *config.Config, logger *utils.Logger) (*cache.RecordStore, error) {
	dir := utils.ExpandPath(cfg.Cache.Directory)
	if dir == "" {
		dir = config.CacheDir()
	}
	if !utils.DirExists(dir) {
		logger.Debug().Str("dir", dir).Msg("Creating parse cache directory")
	}
	backend, err := cache.NewBadgerCache(cache.Options{Directory: dir})
	if err != nil {
		return nil, err
	}
	records, err := cache.NewRecordStore(cache.RecordStoreOptions{
		Backend: backend,
		Schema:  parser.SchemaVersion,
		TTL:     cfg.Cache.TTL,
		Logger:  logger,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return records, nil
}

// RunID returns the identifier attached to every log line and upload of this run
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run clones the configured repository, indexes it, renders the diagrams and
// removes the clone afterwards unless keep_clone is set
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	cfg := o.config
	url := NormalizeRepoURL(cfg.RepoURL)
	summary := &Summary{RunID: o.runID, Source: url}

	o.logger.Info().
		Str("repo", url).
		Str("clone_dir", cfg.CloneDir).
		Str("output", cfg.Output.Directory).
		Int("workers", cfg.Concurrency.Workers).
		Msg("Starting run")

	if url == "" {
		return summary, domain.ErrNoRepoURL
	}
	if err := o.resetOutput(); err != nil {
		return summary, err
	}

	clone, err := o.clone(ctx, url)
	if err != nil {
		return summary, err
	}
	summary.Commit = clone.Commit
	if !cfg.Output.KeepClone {
		defer o.cleanup(ctx, clone.Dir)
	}

	err = o.process(ctx, SystemName(url), url, clone.Dir, summary)
	summary.Duration = time.Since(start)
	o.logSummary(summary, err)
	return summary, err
}

// RunLocal indexes and renders a local directory; nothing is cloned or removed
func (o *Orchestrator) RunLocal(ctx context.Context, dir string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: o.runID, Source: dir}

	o.logger.Info().
		Str("dir", dir).
		Str("output", o.config.Output.Directory).
		Msg("Starting local run")

	if err := o.resetOutput(); err != nil {
		return summary, err
	}
	err := o.process(ctx, SystemName(dir), dir, dir, summary)
	summary.Duration = time.Since(start)
	o.logSummary(summary, err)
	return summary, err
}

func (o *Orchestrator) logSummary(s *Summary, err error) {
	if err != nil {
		o.logger.Error().Err(err).Dur("duration", s.Duration).Msg("Run failed")
		return
	}
	o.logger.Info().
		Int("files", s.Files).
		Int("classes", s.Classes).
		Int("parse_errors", s.ParseErrors).
		Int("duplicates", s.Duplicates).
		Int("cycles", len(s.Cycles)).
		Int("artifacts", len(s.Artifacts)).
		Dur("duration", s.Duration).
		Msg("Run completed")
}

// resetOutput recreates the output directory so no stale diagrams survive
func (o *Orchestrator) resetOutput() error {
	dir := o.config.Output.Directory
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if unsafeToClear(abs) {
		return domain.NewValidationError("output.directory", fmt.Sprintf("refusing to clear %s", abs))
	}
	if err := utils.ResetDir(dir); err != nil {
		return fmt.Errorf("failed to reset output directory: %w", err)
	}
	return nil
}

func unsafeToClear(abs string) bool {
	if abs == filepath.VolumeName(abs)+string(filepath.Separator) {
		return true
	}
	if wd, err := os.Getwd(); err == nil && wd == abs {
		return true
	}
	if home, err := os.UserHomeDir(); err == nil && home == abs {
		return true
	}
	return false
}

func (o *Orchestrator) clone(ctx context.Context, url string) (*git.CloneResult, error) {
	ctx, span := observability.StartStage(ctx, o.tracer, observability.StageClone,
		attribute.String("repo", url))

	// go-git's sideband output only drives the spinner
	bar := utils.NewProgressBarWithOptions(-1, utils.DescCloning, o.progress)
	opts := o.cloneOpts
	opts.Progress = bar
	o.cloner = git.NewCloner(opts)

	res, err := o.cloner.Clone(ctx, url, o.config.CloneDir)
	_ = bar.Finish()
	observability.EndStage(span, err)
	return res, err
}

func (o *Orchestrator) cleanup(ctx context.Context, dir string) {
	_, span := observability.StartStage(context.WithoutCancel(ctx), o.tracer, observability.StageCleanup)
	err := o.cloner.Remove(dir)
	if err != nil {
		o.logger.Error().Err(err).Str("dir", dir).Msg("Failed to remove clone directory")
	}
	observability.EndStage(span, err)
}

// process runs every stage after the source tree is on disk
func (o *Orchestrator) process(ctx context.Context, system, source, root string, s *Summary) error {
	files, err := o.scan(ctx, root)
	if errors.Is(err, domain.ErrNoJavaFiles) {
		o.logger.Warn().Str("dir", root).Msg("No Java files found, skipping index and diagrams")
		return nil
	}
	if err != nil {
		return err
	}

	ix, err := o.buildIndex(ctx, source, root, files, s)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := o.persist(ix, s); err != nil {
		return err
	}

	failed, err := o.renderAll(ctx, system, ix, s)
	if err != nil {
		return err
	}

	o.export(ctx, ix)
	o.publish(ctx, s)
	if err := ctx.Err(); err != nil {
		return err
	}
	return failed
}

func (o *Orchestrator) scan(ctx context.Context, root string) ([]string, error) {
	_, span := observability.StartStage(ctx, o.tracer, observability.StageScan,
		attribute.String("dir", root))
	files, err := o.scanner.FindJavaFiles(root)
	span.SetAttributes(attribute.Int("files", len(files)))
	observability.EndStage(span, err)
	return files, err
}

func (o *Orchestrator) buildIndex(ctx context.Context, source, root string, files []string, s *Summary) (*domain.CodeIndex, error) {
	ctx, span := observability.StartStage(ctx, o.tracer, observability.StageIndex,
		attribute.Int("files", len(files)))

	builder := index.NewBuilder(index.BuilderOptions{
		Parser:   o.parser,
		Logger:   o.logger,
		Workers:  o.config.Concurrency.Workers,
		Progress: o.progress,
	})
	res, err := builder.Build(ctx, source, root, files)
	if err != nil {
		observability.EndStage(span, err)
		return nil, err
	}

	ix := res.Index
	s.Files = len(ix.Files)
	s.Classes = len(ix.Classes)
	s.ParseErrors = res.Failed()
	s.Duplicates = ix.Duplicates
	if o.records != nil {
		s.CacheHits = o.records.Hits()
		o.logger.Debug().
			Int64("hits", s.CacheHits).
			Int64("misses", o.records.Misses()).
			Msg("Parse cache")
	}

	pg, err := index.BuildPackageGraph(ix, o.config.Diagrams.Exclude)
	if err == nil {
		s.Cycles, err = pg.Cycles()
	}
	if err != nil {
		o.logger.Warn().Err(err).Msg("Package cycle detection failed")
	}
	for _, c := range s.Cycles {
		o.logger.Warn().Strs("packages", c).Msg("Package dependency cycle")
	}

	span.SetAttributes(
		attribute.Int("classes", s.Classes),
		attribute.Int("parse_errors", s.ParseErrors),
	)
	observability.EndStage(span, nil)
	return ix, nil
}

func (o *Orchestrator) persist(ix *domain.CodeIndex, s *Summary) error {
	path, err := o.store.Save(ix)
	if err != nil {
		return err
	}
	s.Artifacts = append(s.Artifacts, path)

	if o.config.Index.ExportYAML {
		path, err := o.store.ExportYAML(ix)
		if err != nil {
			o.logger.Warn().Err(err).Msg("YAML export failed")
		} else {
			s.Artifacts = append(s.Artifacts, path)
		}
	}
	return nil
}

// renderAll renders the configured kinds in the fixed diagram order. A
// failing diagram is logged and counted, and the failures come back joined
// as failed; only cancellation stops the stage and is returned as err.
func (o *Orchestrator) renderAll(ctx context.Context, system string, ix *domain.CodeIndex, s *Summary) (failed error, err error) {
	ctx, span := observability.StartStage(ctx, o.tracer, observability.StageRender)

	wanted := make(map[diagram.Kind]bool, len(o.config.Diagrams.Kinds))
	for _, k := range o.config.Diagrams.Kinds {
		kind, err := diagram.ParseKind(k)
		if err != nil {
			o.logger.Warn().Err(err).Msg("Skipping diagram")
			continue
		}
		wanted[kind] = true
	}

	opts := diagram.OptionsFromConfig(o.config.Diagrams, system)
	bar := utils.NewProgressBarWithOptions(len(wanted), utils.DescRendering, o.progress)
	defer func() { _ = bar.Finish() }()

	var errs []error
	rendered := 0
	for _, kind := range diagram.Kinds {
		if !wanted[kind] {
			continue
		}
		if err := ctx.Err(); err != nil {
			observability.EndStage(span, err)
			return nil, err
		}

		d, err := diagram.Build(kind, ix, opts)
		if err != nil {
			o.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to build diagram")
			s.RenderErrors++
			errs = append(errs, domain.NewRenderError(string(kind), err))
			continue
		}
		if d.IsEmpty() {
			o.logger.Warn().Str("kind", string(kind)).Msg("Diagram has no nodes")
		}

		paths, err := o.renderer.Render(ctx, d)
		s.Artifacts = append(s.Artifacts, paths...)
		_ = bar.Add(1)
		switch {
		case err == nil:
			rendered++
		case render.IsGraphvizMissing(err):
			// DOT source is still written; the renderer warned once
		case ctx.Err() != nil:
			observability.EndStage(span, ctx.Err())
			return nil, ctx.Err()
		default:
			o.logger.Error().Err(err).Str("kind", string(kind)).Msg("Failed to render diagram")
			s.RenderErrors++
			errs = append(errs, err)
		}
	}

	failed = errors.Join(errs...)
	span.SetAttributes(attribute.Int("rendered", rendered), attribute.Int("failed", s.RenderErrors))
	observability.EndStage(span, failed)
	return failed, nil
}

func (o *Orchestrator) export(ctx context.Context, ix *domain.CodeIndex) {
	if o.exporter == nil || ctx.Err() != nil {
		return
	}
	ctx, span := observability.StartStage(ctx, o.tracer, observability.StageExport)

	exp, err := o.exporter(ctx)
	if err == nil {
		err = exp.Export(ctx, ix)
		if cerr := exp.Close(ctx); cerr != nil {
			o.logger.Warn().Err(cerr).Msg("Failed to close graph exporter")
		}
	}
	if err != nil {
		o.logger.Error().Err(err).Msg("Graph export failed")
	}
	observability.EndStage(span, err)
}

func (o *Orchestrator) publish(ctx context.Context, s *Summary) {
	if o.publisher == nil || ctx.Err() != nil || len(s.Artifacts) == 0 {
		return
	}
	ctx, span := observability.StartStage(ctx, o.tracer, observability.StagePublish,
		attribute.Int("files", len(s.Artifacts)))

	keys, err := o.publisher.Publish(ctx, o.runID, s.Artifacts)
	s.Published = len(keys)
	if err != nil {
		o.logger.Error().Err(err).Msg("Artifact publish failed")
	}
	observability.EndStage(span, err)
}

// Close releases the parse cache and flushes traces
func (o *Orchestrator) Close() error {
	var errs []error
	if o.records != nil {
		if err := o.records.Close(); err != nil {
			errs = append(errs, err)
		}
		o.records = nil
	}
	if o.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.tracing.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		o.tracing = nil
	}
	return errors.Join(errs...)
}

// DescribeKinds returns the configured diagram kinds in render order
func DescribeKinds(kinds []string) string {
	var out []string
	for _, k := range diagram.Kinds {
		for _, want := range kinds {
			if strings.EqualFold(strings.TrimSpace(want), string(k)) {
				out = append(out, string(k))
				break
			}
		}
	}
	return strings.Join(out, ", ")
}
