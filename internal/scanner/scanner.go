package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// JavaExtension is the extension of indexed source files
const JavaExtension = ".java"

// IgnoreDirs are directories to skip during file discovery
var IgnoreDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	".idea":        true,
	".vscode":      true,
	".gradle":      true,
	".mvn":         true,
	"target":       true,
	"build":        true,
	"out":          true,
	"bin":          true,
	"node_modules": true,
}

// Scanner finds Java source files below a directory
type Scanner struct {
	logger      *utils.Logger
	maxFileSize int64
	ignoreDirs  map[string]bool
}

// Options contains options for creating a Scanner
type Options struct {
	Logger *utils.Logger
	// MaxFileSize skips larger files; 0 means no limit
	MaxFileSize int64
	// ExtraIgnoreDirs are skipped in addition to IgnoreDirs
	ExtraIgnoreDirs []string
}

// New creates a new Scanner
func New(opts Options) *Scanner {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	ignore := make(map[string]bool, len(IgnoreDirs)+len(opts.ExtraIgnoreDirs))
	for k, v := range IgnoreDirs {
		ignore[k] = v
	}
	for _, d := range opts.ExtraIgnoreDirs {
		ignore[d] = true
	}
	return &Scanner{
		logger:      opts.Logger.WithComponent("scan"),
		maxFileSize: opts.MaxFileSize,
		ignoreDirs:  ignore,
	}
}

// FindJavaFiles walks root and returns every .java file in lexical order.
// It returns domain.ErrNoJavaFiles when the walk finds none.
func (s *Scanner) FindJavaFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory does not exist: %s", root)
		}
		return nil, fmt.Errorf("failed to access directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var files []string
	skipped := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && s.ignoreDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(path), JavaExtension) {
			return nil
		}

		if s.maxFileSize > 0 {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if fi.Size() > s.maxFileSize {
				skipped++
				s.logger.Warn().
					Str("file", path).
					Int64("size", fi.Size()).
					Int64("max_size", s.maxFileSize).
					Msg("Skipping oversized file")
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}

	sort.Strings(files)

	s.logger.Info().Int("files", len(files)).Int("skipped", skipped).Str("root", root).Msg("Scan complete")

	if len(files) == 0 {
		return files, domain.ErrNoJavaFiles
	}
	return files, nil
}
