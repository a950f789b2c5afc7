package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values
const (
	DefaultCloneDir  = "./cloned_repo"
	DefaultOutputDir = "code_index"
	DefaultIndexFile = "index.json"

	DefaultWorkers = 4

	// Git defaults
	DefaultGitDepth       = 1
	DefaultGitMaxRetries  = 2
	DefaultGitTimeout     = 10 * time.Minute
	DefaultGitMaxFileSize = "2MB"

	// Cache defaults
	DefaultCacheEnabled = true
	DefaultCacheTTL     = 7 * 24 * time.Hour

	// Diagram defaults
	DefaultMaxAssociations = 30
	DefaultMaxLabelCalls   = 3

	// Logging defaults
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"

	DefaultNeo4jDatabase   = "neo4j"
	DefaultPublishPrefix   = "repodiagrams"
	DefaultTraceSampleRate = 1.0

	// EnvPrefix is the prefix of environment overrides
	EnvPrefix = "REPODIAGRAMS"
)

// Diagram kinds in render order
var DefaultDiagramKinds = []string{"context", "component", "container", "class", "sequence"}

// ValidFormats are the image formats the Graphviz binary is asked for
var ValidFormats = []string{"png", "svg", "pdf"}

// DefaultFormats is the image format list used when none is configured
var DefaultFormats = []string{"png"}

// DefaultExcludePrefixes lists library packages kept out of diagrams
var DefaultExcludePrefixes = []string{
	"java.",
	"javax.",
	"org.springframework",
	"junit",
	"org.junit",
	"org.assertj",
	"org.mockito",
	"org.slf4j",
	"lombok",
	"android.",
	"com.google.common",
}

// ConfigDir returns the config directory path
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repodiagrams"
	}
	return filepath.Join(home, ".repodiagrams")
}

// CacheDir returns the cache directory path
func CacheDir() string {
	return filepath.Join(ConfigDir(), "cache")
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		CloneDir: DefaultCloneDir,
		Output: OutputConfig{
			Directory: DefaultOutputDir,
			Formats:   append([]string(nil), DefaultFormats...),
		},
		Index: IndexConfig{
			File: DefaultIndexFile,
		},
		Concurrency: ConcurrencyConfig{
			Workers: DefaultWorkers,
		},
		Git: GitConfig{
			Depth:       DefaultGitDepth,
			MaxRetries:  DefaultGitMaxRetries,
			Timeout:     DefaultGitTimeout,
			MaxFileSize: DefaultGitMaxFileSize,
		},
		Cache: CacheConfig{
			Enabled:   DefaultCacheEnabled,
			TTL:       DefaultCacheTTL,
			Directory: CacheDir(),
		},
		Diagrams: DiagramsConfig{
			Kinds:           append([]string(nil), DefaultDiagramKinds...),
			Exclude:         append([]string(nil), DefaultExcludePrefixes...),
			MaxAssociations: DefaultMaxAssociations,
			MaxLabelCalls:   DefaultMaxLabelCalls,
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Neo4j: Neo4jConfig{
			Database: DefaultNeo4jDatabase,
		},
		Publish: PublishConfig{
			Prefix: DefaultPublishPrefix,
			UseSSL: true,
		},
		Tracing: TracingConfig{
			SampleRate: DefaultTraceSampleRate,
		},
	}
}
