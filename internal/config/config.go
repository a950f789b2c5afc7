package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	RepoURL     string            `mapstructure:"repo_url" yaml:"repo_url"`
	CloneDir    string            `mapstructure:"clone_dir" yaml:"clone_dir"`
	Branch      string            `mapstructure:"branch" yaml:"branch"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Index       IndexConfig       `mapstructure:"index" yaml:"index"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency" yaml:"concurrency"`
	Git         GitConfig         `mapstructure:"git" yaml:"git"`
	Cache       CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Diagrams    DiagramsConfig    `mapstructure:"diagrams" yaml:"diagrams"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Neo4j       Neo4jConfig       `mapstructure:"neo4j" yaml:"neo4j"`
	Publish     PublishConfig     `mapstructure:"publish" yaml:"publish"`
	Tracing     TracingConfig     `mapstructure:"tracing" yaml:"tracing"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	Directory string   `mapstructure:"directory" yaml:"directory"`
	Formats   []string `mapstructure:"formats" yaml:"formats"`
	KeepClone bool     `mapstructure:"keep_clone" yaml:"keep_clone"`
}

// IndexConfig controls index persistence
type IndexConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	ExportYAML bool   `mapstructure:"export_yaml" yaml:"export_yaml"`
}

// ConcurrencyConfig contains concurrency settings
type ConcurrencyConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// GitConfig contains clone settings
type GitConfig struct {
	Depth       int           `mapstructure:"depth" yaml:"depth"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxFileSize string        `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// CacheConfig contains cache settings
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Directory string        `mapstructure:"directory" yaml:"directory"`
}

// DiagramsConfig selects and tunes the diagram builders
type DiagramsConfig struct {
	Kinds           []string `mapstructure:"kinds" yaml:"kinds"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude"`
	MaxAssociations int      `mapstructure:"max_associations" yaml:"max_associations"`
	MaxLabelCalls   int      `mapstructure:"max_label_calls" yaml:"max_label_calls"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Neo4jConfig contains graph export settings; empty URI disables the export
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	Clean    bool   `mapstructure:"clean" yaml:"clean"`
}

// Enabled reports whether the graph export is configured
func (n Neo4jConfig) Enabled() bool {
	return n.URI != ""
}

// PublishConfig contains S3-compatible upload settings
type PublishConfig struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// Enabled reports whether artifact upload is configured
func (p PublishConfig) Enabled() bool {
	return p.Endpoint != "" && p.Bucket != ""
}

// TracingConfig contains OpenTelemetry settings
type TracingConfig struct {
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.CloneDir == "" {
		c.CloneDir = DefaultCloneDir
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = append([]string(nil), DefaultFormats...)
	}
	for i, f := range c.Output.Formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if !isValidFormat(f) {
			return fmt.Errorf("invalid output.formats entry %q (valid: %s)", f, strings.Join(ValidFormats, ", "))
		}
		c.Output.Formats[i] = f
	}
	if c.Index.File == "" {
		c.Index.File = DefaultIndexFile
	}
	if c.Concurrency.Workers < 1 {
		c.Concurrency.Workers = DefaultWorkers
	}
	if c.Git.Depth < 0 {
		c.Git.Depth = DefaultGitDepth
	}
	if c.Git.MaxRetries < 0 {
		c.Git.MaxRetries = DefaultGitMaxRetries
	}
	if c.Git.Timeout < time.Second {
		c.Git.Timeout = DefaultGitTimeout
	}
	if c.Git.MaxFileSize == "" {
		c.Git.MaxFileSize = DefaultGitMaxFileSize
	} else {
		if _, err := ParseSize(c.Git.MaxFileSize); err != nil {
			return fmt.Errorf("invalid git.max_file_size: %w", err)
		}
	}
	if c.Cache.TTL < time.Minute {
		c.Cache.TTL = DefaultCacheTTL
	}
	if len(c.Diagrams.Kinds) == 0 {
		c.Diagrams.Kinds = append([]string(nil), DefaultDiagramKinds...)
	}
	for i, k := range c.Diagrams.Kinds {
		k = strings.ToLower(strings.TrimSpace(k))
		if !isValidKind(k) {
			return fmt.Errorf("invalid diagrams.kinds entry %q (valid: %s)", k, strings.Join(DefaultDiagramKinds, ", "))
		}
		c.Diagrams.Kinds[i] = k
	}
	if c.Diagrams.Exclude == nil {
		c.Diagrams.Exclude = append([]string(nil), DefaultExcludePrefixes...)
	}
	if c.Diagrams.MaxAssociations < 1 {
		c.Diagrams.MaxAssociations = DefaultMaxAssociations
	}
	if c.Diagrams.MaxLabelCalls < 1 {
		c.Diagrams.MaxLabelCalls = DefaultMaxLabelCalls
	}
	if c.Tracing.SampleRate <= 0 || c.Tracing.SampleRate > 1 {
		c.Tracing.SampleRate = DefaultTraceSampleRate
	}
	if c.Publish.Prefix == "" {
		c.Publish.Prefix = DefaultPublishPrefix
	}
	return nil
}

// MaxFileSizeBytes returns git.max_file_size in bytes
func (c *Config) MaxFileSizeBytes() int64 {
	n, err := ParseSize(c.Git.MaxFileSize)
	if err != nil {
		n, _ = ParseSize(DefaultGitMaxFileSize)
	}
	return n
}

func isValidFormat(f string) bool {
	for _, v := range ValidFormats {
		if v == f {
			return true
		}
	}
	return false
}

func isValidKind(k string) bool {
	for _, v := range DefaultDiagramKinds {
		if v == k {
			return true
		}
	}
	return false
}

// ParseSize parses a human size string such as "2MB" or "512KB" into bytes
func ParseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	var multiplier int64 = 1
	if strings.HasSuffix(s, "GB") {
		multiplier = 1024 * 1024 * 1024
		s = strings.TrimSuffix(s, "GB")
	} else if strings.HasSuffix(s, "MB") {
		multiplier = 1024 * 1024
		s = strings.TrimSuffix(s, "MB")
	} else if strings.HasSuffix(s, "KB") {
		multiplier = 1024
		s = strings.TrimSuffix(s, "KB")
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("no numeric value in size string")
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value: %w", err)
	}

	if n < 0 {
		return 0, fmt.Errorf("negative size not allowed")
	}

	return n * multiplier, nil
}
