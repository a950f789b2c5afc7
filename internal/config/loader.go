package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults
// Uses the global viper instance to access CLI flag bindings
func Load() (*Config, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	setDefaults(v)

	// Config file settings; extension decides the format (json or yaml)
	v.SetConfigName("config")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.AddConfigPath(ConfigDir())

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// Environment variables (REPODIAGRAMS_*)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate and apply defaults for invalid values
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	v.SetDefault("repo_url", "")
	v.SetDefault("clone_dir", DefaultCloneDir)
	v.SetDefault("branch", "")

	// Output defaults
	v.SetDefault("output.directory", DefaultOutputDir)
	v.SetDefault("output.formats", DefaultFormats)
	v.SetDefault("output.keep_clone", false)

	v.SetDefault("index.file", DefaultIndexFile)
	v.SetDefault("index.export_yaml", false)

	v.SetDefault("concurrency.workers", DefaultWorkers)

	// Git defaults
	v.SetDefault("git.depth", DefaultGitDepth)
	v.SetDefault("git.max_retries", DefaultGitMaxRetries)
	v.SetDefault("git.timeout", DefaultGitTimeout)
	v.SetDefault("git.max_file_size", DefaultGitMaxFileSize)

	// Cache defaults
	v.SetDefault("cache.enabled", DefaultCacheEnabled)
	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.directory", CacheDir())

	// Diagram defaults
	v.SetDefault("diagrams.kinds", DefaultDiagramKinds)
	v.SetDefault("diagrams.exclude", DefaultExcludePrefixes)
	v.SetDefault("diagrams.max_associations", DefaultMaxAssociations)
	v.SetDefault("diagrams.max_label_calls", DefaultMaxLabelCalls)

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	// Optional integrations stay off until a URI/endpoint is set
	v.SetDefault("neo4j.uri", "")
	v.SetDefault("neo4j.username", "")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", DefaultNeo4jDatabase)
	v.SetDefault("neo4j.clean", false)

	v.SetDefault("publish.endpoint", "")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.access_key", "")
	v.SetDefault("publish.secret_key", "")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.use_ssl", true)
	v.SetDefault("publish.prefix", DefaultPublishPrefix)

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sample_rate", DefaultTraceSampleRate)
	v.SetDefault("tracing.insecure", false)
}

// FoundConfigFile returns the first config file present in the search paths,
// or "" when none exists
func FoundConfigFile() string {
	dirs := []string{"config", ".", ConfigDir()}
	for _, dir := range dirs {
		for _, ext := range viper.SupportedExts {
			p := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}
