package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/quantmind-br/repodiagrams-go/internal/app"
	"github.com/quantmind-br/repodiagrams-go/internal/config"
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/git"
	"github.com/quantmind-br/repodiagrams-go/internal/manifest"
	"github.com/quantmind-br/repodiagrams-go/internal/render"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
	"github.com/quantmind-br/repodiagrams-go/pkg/version"
)

var (
	cfgFile string
	verbose bool
	noCache bool
	log     *utils.Logger

	// Dependencies for testing
	osStat         = os.Stat
	lookupGraphviz = render.LookupGraphviz
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "repodiagrams",
	Short: "Generate architecture diagrams from a Java repository",
	Long: `repodiagrams clones a Java repository, builds a structural code index
(classes, methods, fields, imports and calls) and renders context, component,
container, class and sequence diagrams with Graphviz.

With no flags it reads everything from a config file and the REPODIAGRAMS_*
environment variables. The file is config/config.json by default; config.json,
config.yaml and ~/.repodiagrams/config.{json,yaml} are also searched, or pass
--config.`,
	Version:       version.Short(),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

var indexCmd = &cobra.Command{
	Use:   "index PATH",
	Short: "Index and render a local directory",
	Long:  "Builds the code index and diagrams for a local source tree. Nothing is cloned or removed.",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var batchCmd = &cobra.Command{
	Use:   "batch MANIFEST",
	Short: "Diagram every repository listed in a manifest",
	Long: `Runs the full pipeline once per repository listed in a YAML or JSON
manifest. Each repository renders into its own subdirectory of the
manifest's output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.repodiagrams/config.yaml)")
	flags.StringP("output", "o", "", "Output directory")
	flags.StringSlice("format", nil, "Image formats rendered by Graphviz (png, svg, pdf)")
	flags.StringSlice("kinds", nil, "Diagram kinds (context, component, container, class, sequence)")
	flags.IntP("workers", "j", 0, "Number of parser workers")
	flags.BoolVar(&noCache, "no-cache", false, "Disable the parse cache")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.Flags().String("repo", "", "Repository URL to clone")
	rootCmd.Flags().String("branch", "", "Branch to check out")
	rootCmd.Flags().String("clone-dir", "", "Clone destination directory")
	rootCmd.Flags().Bool("keep-clone", false, "Keep the cloned repository after the run")

	_ = viper.BindPFlag("output.directory", flags.Lookup("output"))
	_ = viper.BindPFlag("output.formats", flags.Lookup("format"))
	_ = viper.BindPFlag("diagrams.kinds", flags.Lookup("kinds"))
	_ = viper.BindPFlag("concurrency.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("repo_url", rootCmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("branch", rootCmd.Flags().Lookup("branch"))
	_ = viper.BindPFlag("clone_dir", rootCmd.Flags().Lookup("clone-dir"))
	_ = viper.BindPFlag("output.keep_clone", rootCmd.Flags().Lookup("keep-clone"))

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			if log != nil {
				log.Info().Msg("Shutting down gracefully...")
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func newOrchestrator(ctx context.Context) (*app.Orchestrator, *config.Config, error) {
	log = utils.NewLogger(utils.LoggerOptions{
		Level:   config.DefaultLogLevel,
		Format:  config.DefaultLogFormat,
		Verbose: verbose,
	})

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	orch, err := app.NewOrchestrator(ctx, app.OrchestratorOptions{
		Config:  cfg,
		Verbose: verbose,
		NoCache: noCache,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	return orch, cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	orch, cfg, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer orch.Close()

	summary, err := orch.Run(ctx)
	return report(cmd.OutOrStdout(), cfg, summary, err)
}

func runIndex(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := osStat(dir)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	ctx, cancel := signalContext()
	defer cancel()

	orch, cfg, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer orch.Close()

	summary, err := orch.RunLocal(ctx, dir)
	return report(cmd.OutOrStdout(), cfg, summary, err)
}

// report prints the summary of a run that got as far as rendering. A diagram
// failure still leaves the other artifacts, so it is summarised and returned.
func report(w io.Writer, cfg *config.Config, summary *app.Summary, err error) error {
	if err != nil && !errors.Is(err, domain.ErrRenderFailed) {
		return err
	}
	printSummary(w, cfg, summary)
	return err
}

func runBatch(cmd *cobra.Command, args []string) error {
	m, err := manifest.NewLoader().Load(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log = utils.NewLogger(utils.LoggerOptions{
		Level:   config.DefaultLogLevel,
		Format:  config.DefaultLogFormat,
		Verbose: verbose,
	})
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	results, err := app.RunManifest(ctx, m, app.OrchestratorOptions{
		Config:  cfg,
		Verbose: verbose,
		NoCache: noCache,
	})
	w := cmd.OutOrStdout()
	for _, r := range results {
		if r.Error != nil {
			fmt.Fprintf(w, "FAILED  %-24s %v\n", r.Name, r.Error)
			continue
		}
		fmt.Fprintf(w, "OK      %-24s %d classes, %d files written\n", r.Name, r.Summary.Classes, len(r.Summary.Artifacts))
	}
	return err
}

func printSummary(w io.Writer, cfg *config.Config, s *app.Summary) {
	fmt.Fprintf(w, "Run %s finished in %s\n", s.RunID, s.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Files:        %d (%d failed to parse)\n", s.Files, s.ParseErrors)
	fmt.Fprintf(w, "  Classes:      %d", s.Classes)
	if s.Duplicates > 0 {
		fmt.Fprintf(w, " (%d duplicate names)", s.Duplicates)
	}
	fmt.Fprintln(w)
	if s.CacheHits > 0 {
		fmt.Fprintf(w, "  Cache hits:   %d\n", s.CacheHits)
	}
	fmt.Fprintf(w, "  Diagrams:     %s", app.DescribeKinds(cfg.Diagrams.Kinds))
	if s.RenderErrors > 0 {
		fmt.Fprintf(w, " (%d failed)", s.RenderErrors)
	}
	fmt.Fprintln(w)
	for _, c := range s.Cycles {
		fmt.Fprintf(w, "  Cycle:        %s\n", strings.Join(c, " -> "))
	}
	fmt.Fprintf(w, "  Output:       %s (%d files)\n", cfg.Output.Directory, len(s.Artifacts))
	if s.Published > 0 {
		fmt.Fprintf(w, "  Published:    %d objects\n", s.Published)
	}
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system dependencies",
	Long:  "Verifies that Graphviz, the output directory, the config file and the cache are usable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Config error: %v\n", err)
			cfg = config.Default()
		}
		runDoctor(cmd.Context(), cmd.OutOrStdout(), cfg, err)
		return nil
	},
}

// runDoctor prints one line per check and reports whether every critical
// check passed
func runDoctor(ctx context.Context, w io.Writer, cfg *config.Config, loadErr error) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	fmt.Fprintln(w, "Checking system dependencies...")
	allPassed := true

	// Check 1: Graphviz
	fmt.Fprint(w, "  Graphviz dot: ")
	if path, ver, err := lookupGraphviz(ctx, render.DefaultBinary); err == nil {
		fmt.Fprintf(w, "OK (%s, %s)\n", path, ver)
	} else {
		fmt.Fprintln(w, "NOT FOUND (only .dot files will be written)")
	}

	// Check 2: repository settings
	fmt.Fprint(w, "  Repository: ")
	switch {
	case strings.TrimSpace(cfg.RepoURL) == "":
		fmt.Fprintln(w, "WARN (repo_url not set; use --repo or the index command)")
	case app.DetectSource(cfg.RepoURL) != app.SourceGit:
		fmt.Fprintf(w, "WARN (%s does not look like a git URL)\n", cfg.RepoURL)
	default:
		auth := "anonymous"
		if os.Getenv(git.TokenEnv) != "" {
			auth = "token from " + git.TokenEnv
		}
		fmt.Fprintf(w, "OK (%s, %s)\n", app.NormalizeRepoURL(cfg.RepoURL), auth)
	}

	// Check 3: Write permissions for output dir
	fmt.Fprint(w, "  Write permissions: ")
	if checkWritePermissions(cfg.Output.Directory) {
		fmt.Fprintf(w, "OK (%s)\n", cfg.Output.Directory)
	} else {
		fmt.Fprintln(w, "FAILED")
		allPassed = false
	}

	// Check 4: Config file
	fmt.Fprint(w, "  Config file: ")
	switch {
	case loadErr != nil:
		fmt.Fprintf(w, "FAILED (%v)\n", loadErr)
		allPassed = false
	case config.FoundConfigFile() == "" && cfgFile == "":
		fmt.Fprintln(w, "WARN (none found, using defaults)")
	default:
		fmt.Fprintln(w, "OK")
	}

	// Check 5: Cache directory
	fmt.Fprint(w, "  Cache directory: ")
	cacheDir := utils.ExpandPath(cfg.Cache.Directory)
	switch {
	case !cfg.Cache.Enabled:
		fmt.Fprintln(w, "DISABLED")
	case checkCacheDir(cacheDir):
		fmt.Fprintf(w, "OK (%s)\n", cacheDir)
	default:
		fmt.Fprintln(w, "WARN (will be created on first use)")
	}

	fmt.Fprintln(w)
	if allPassed {
		fmt.Fprintln(w, "All critical checks passed!")
	} else {
		fmt.Fprintln(w, "Some checks failed. Please resolve the issues above.")
	}
	return allPassed
}

// checkWritePermissions checks if we can write to the output directory or,
// when it does not exist yet, its nearest existing parent
func checkWritePermissions(dir string) bool {
	for {
		if info, err := osStat(dir); err == nil {
			if !info.IsDir() {
				return false
			}
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return false
		}
		dir = parent
	}

	f, err := os.CreateTemp(dir, ".repodiagrams_write_*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return true
}

// checkCacheDir checks if the cache directory exists
func checkCacheDir(path string) bool {
	info, err := osStat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Full())
	},
}
