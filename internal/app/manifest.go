package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/quantmind-br/repodiagrams-go/internal/config"
	"github.com/quantmind-br/repodiagrams-go/internal/manifest"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// ManifestResult is the outcome of one manifest repository
type ManifestResult struct {
	Repository manifest.Repository
	Name       string
	Summary    *Summary
	Error      error
	Duration   time.Duration
}

// RunManifest runs the pipeline once per manifest repository. Each
// repository renders into <options.output>/<name> and clones into
// <clone_dir>/<name>. Repositories run one after another since they share
// the parse cache. Without continue_on_error the first failure stops the
// batch and is returned.
func RunManifest(ctx context.Context, m *manifest.Config, base OrchestratorOptions) ([]ManifestResult, error) {
	if base.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	logger := utils.NewLogger(utils.LoggerOptions{
		Level:   base.Config.Logging.Level,
		Format:  base.Config.Logging.Format,
		Output:  base.LogOutput,
		Verbose: base.Verbose,
	}).WithComponent("manifest")

	start := time.Now()
	names := manifestNames(m.Repositories)
	results := make([]ManifestResult, 0, len(m.Repositories))

	logger.Info().
		Int("repositories", len(m.Repositories)).
		Bool("continue_on_error", m.Options.ContinueOnError).
		Str("output", m.Options.Output).
		Msg("Starting manifest execution")

	failed := 0
	for i, repo := range m.Repositories {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		repoStart := time.Now()
		logger.Info().Int("idx", i).Str("repo", repo.URL).Str("name", names[i]).Msg("Processing repository")

		opts := base
		opts.Config = repositoryConfig(base.Config, m, repo, names[i])
		if i > 0 {
			// wiping the graph again would drop the repositories exported before
			opts.Config.Neo4j.Clean = false
		}
		summary, err := runOne(ctx, opts)

		res := ManifestResult{
			Repository: repo,
			Name:       names[i],
			Summary:    summary,
			Error:      err,
			Duration:   time.Since(repoStart),
		}
		results = append(results, res)

		if err != nil {
			failed++
			logger.Error().Err(err).Str("repo", repo.URL).Msg("Repository failed")
			if !m.Options.ContinueOnError {
				return results, fmt.Errorf("%s: %w", names[i], err)
			}
		}
	}

	logger.Info().
		Dur("total_duration", time.Since(start)).
		Int("total", len(results)).
		Int("success", len(results)-failed).
		Int("failed", failed).
		Msg("Manifest execution completed")

	return results, nil
}

func runOne(ctx context.Context, opts OrchestratorOptions) (*Summary, error) {
	orch, err := NewOrchestrator(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer orch.Close()
	return orch.Run(ctx)
}

// repositoryConfig derives one repository's config from the shared base
func repositoryConfig(base *config.Config, m *manifest.Config, repo manifest.Repository, name string) *config.Config {
	cfg := *base
	cfg.RepoURL = repo.URL
	if repo.Branch != "" {
		cfg.Branch = repo.Branch
	}
	cfg.CloneDir = filepath.Join(base.CloneDir, name)
	cfg.Output.Directory = filepath.Join(m.Options.Output, name)
	cfg.Output.Formats = append([]string(nil), base.Output.Formats...)
	cfg.Output.KeepClone = base.Output.KeepClone || m.Options.KeepClone

	cfg.Diagrams.Kinds = append([]string(nil), base.Diagrams.Kinds...)
	if len(repo.Kinds) > 0 {
		cfg.Diagrams.Kinds = append([]string(nil), repo.Kinds...)
	}
	cfg.Diagrams.Exclude = append(append([]string(nil), base.Diagrams.Exclude...), repo.Exclude...)

	// keep uploads of different repositories apart
	if cfg.Publish.Prefix != "" {
		cfg.Publish.Prefix = cfg.Publish.Prefix + "/" + name
	} else {
		cfg.Publish.Prefix = name
	}
	return &cfg
}

// manifestNames returns a unique output name per repository: the explicit
// name, else the URL's last segment, suffixed -2, -3... on collision
func manifestNames(repos []manifest.Repository) []string {
	names := make([]string, len(repos))
	used := make(map[string]bool, len(repos))
	for i, r := range repos {
		if r.Name != "" {
			names[i] = r.Name
			used[r.Name] = true
		}
	}
	for i, r := range repos {
		if names[i] != "" {
			continue
		}
		base := SystemName(r.URL)
		if !manifest.ValidName(base) {
			base = fmt.Sprintf("repo-%d", i+1)
		}
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		names[i] = name
		used[name] = true
	}
	return names
}
