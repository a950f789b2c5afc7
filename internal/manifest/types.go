package manifest

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultOutput is the base directory for batch output
const DefaultOutput = "./diagrams"

// Config represents the complete manifest configuration
type Config struct {
	Repositories []Repository `yaml:"repositories" json:"repositories"`
	Options      Options      `yaml:"options" json:"options"`
}

// Repository is one repository to clone and diagram
type Repository struct {
	URL string `yaml:"url" json:"url"`
	// Name is the output subdirectory and system name; derived from URL when empty
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	// Kinds overrides diagrams.kinds for this repository
	Kinds []string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
	// Exclude is appended to diagrams.exclude for this repository
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Options represents global manifest options
type Options struct {
	ContinueOnError bool   `yaml:"continue_on_error" json:"continue_on_error"`
	Output          string `yaml:"output,omitempty" json:"output,omitempty"`
	KeepClone       bool   `yaml:"keep_clone,omitempty" json:"keep_clone,omitempty"`
}

// Validate validates the manifest configuration
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return ErrNoRepositories
	}
	seen := make(map[string]int, len(c.Repositories))
	for i, repo := range c.Repositories {
		if strings.TrimSpace(repo.URL) == "" {
			return fmt.Errorf("repository %d: %w", i, ErrEmptyURL)
		}
		if repo.Name == "" {
			continue
		}
		if !ValidName(repo.Name) {
			return fmt.Errorf("repository %d: %w: %q", i, ErrInvalidName, repo.Name)
		}
		if j, ok := seen[repo.Name]; ok {
			return fmt.Errorf("repositories %d and %d: %w: %s", j, i, ErrDuplicateName, repo.Name)
		}
		seen[repo.Name] = i
	}
	return nil
}

// ValidName reports whether name can be joined under the output and clone
// directories without leaving them
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// DefaultOptions returns options with sensible defaults
func DefaultOptions() Options {
	return Options{
		ContinueOnError: false,
		Output:          DefaultOutput,
	}
}
