package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// FormatVersion is bumped when the index.json layout changes
const FormatVersion = 1

// document is the persisted form of a CodeIndex. It carries no timestamps
// so an unchanged tree always serializes to the same bytes.
type document struct {
	Version    int                           `json:"version" yaml:"version"`
	Source     string                        `json:"source" yaml:"source"`
	Duplicates int                           `json:"duplicates" yaml:"duplicates"`
	Files      map[string]*domain.FileRecord `json:"files" yaml:"files"`
}

// Store reads and writes the code index in an output directory
type Store struct {
	dir    string
	file   string
	logger *utils.Logger
}

// StoreOptions contains options for creating a Store
type StoreOptions struct {
	Directory string
	// FileName defaults to index.json
	FileName string
	Logger   *utils.Logger
}

// NewStore creates a new Store
func NewStore(opts StoreOptions) *Store {
	if opts.FileName == "" {
		opts.FileName = "index.json"
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Store{
		dir:    opts.Directory,
		file:   opts.FileName,
		logger: opts.Logger.WithComponent("store"),
	}
}

// Path returns the index.json location
func (s *Store) Path() string {
	return filepath.Join(s.dir, s.file)
}

// YAMLPath returns the location of the optional YAML export
func (s *Store) YAMLPath() string {
	return filepath.Join(s.dir, strings.TrimSuffix(s.file, filepath.Ext(s.file))+".yaml")
}

func toDocument(ix *domain.CodeIndex) document {
	files := ix.Files
	if files == nil {
		files = map[string]*domain.FileRecord{}
	}
	return document{
		Version:    FormatVersion,
		Source:     ix.Source,
		Duplicates: ix.Duplicates,
		Files:      files,
	}
}

// Save writes ix as indented JSON and returns the file path
func (s *Store) Save(ix *domain.CodeIndex) (string, error) {
	data, err := json.MarshalIndent(toDocument(ix), "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode index: %w", err)
	}
	data = append(data, '\n')

	if err := utils.EnsureDir(s.dir); err != nil {
		return "", err
	}
	path := s.Path()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write index: %w", err)
	}

	s.logger.Info().Str("path", path).Int("files", len(ix.Files)).Msg("Index saved")
	return path, nil
}

// ExportYAML writes the same document as YAML next to index.json
func (s *Store) ExportYAML(ix *domain.CodeIndex) (string, error) {
	data, err := yaml.Marshal(toDocument(ix))
	if err != nil {
		return "", fmt.Errorf("failed to encode index as yaml: %w", err)
	}
	if err := utils.EnsureDir(s.dir); err != nil {
		return "", err
	}
	path := s.YAMLPath()
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write yaml index: %w", err)
	}
	s.logger.Debug().Str("path", path).Msg("YAML index exported")
	return path, nil
}

// Load reads index.json. A missing file yields an empty index; unreadable
// content returns an error wrapping domain.ErrIndexCorrupted.
func (s *Store) Load() (*domain.CodeIndex, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.logger.Warn().Str("path", path).Msg("Index file not found, starting empty")
		return domain.NewCodeIndex(""), nil
	}
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrIndexCorrupted, path, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s has version %d, expected %d", domain.ErrIndexCorrupted, path, doc.Version, FormatVersion)
	}

	ix := domain.NewCodeIndex(doc.Source)
	if doc.Files != nil {
		ix.Files = doc.Files
	}
	Rebuild(ix, s.logger)
	return ix, nil
}
