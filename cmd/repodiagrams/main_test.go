package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/repodiagrams-go/internal/app"
	"github.com/quantmind-br/repodiagrams-go/internal/config"
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/pkg/version"
)

func stubGraphviz(t *testing.T, path, ver string, err error) {
	t.Helper()
	orig := lookupGraphviz
	lookupGraphviz = func(context.Context, string) (string, string, error) {
		return path, ver, err
	}
	t.Cleanup(func() { lookupGraphviz = orig })
}

func overrideViper(t *testing.T, values map[string]any) {
	t.Helper()
	for k, v := range values {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range values {
			viper.Set(k, nil)
		}
	})
}

func TestCheckWritePermissions(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T) string
		expected bool
	}{
		{
			name:     "existing directory",
			setup:    func(t *testing.T) string { return t.TempDir() },
			expected: true,
		},
		{
			name: "missing directory with writable parent",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "out", "nested")
			},
			expected: true,
		},
		{
			name: "path is a file",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "file")
				require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
				return p
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			assert.Equal(t, tt.expected, checkWritePermissions(dir))

			entries, _ := os.ReadDir(filepath.Dir(dir))
			for _, e := range entries {
				assert.NotContains(t, e.Name(), ".repodiagrams_write_", "probe file must be removed")
			}
		})
	}
}

func TestCheckCacheDir(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, checkCacheDir(dir))
	assert.False(t, checkCacheDir(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	assert.False(t, checkCacheDir(file))
}

func TestRunDoctor(t *testing.T) {
	t.Run("graphviz found", func(t *testing.T) {
		stubGraphviz(t, "/usr/bin/dot", "dot - graphviz version 9.0.0", nil)

		cfg := config.Default()
		cfg.RepoURL = "github.com/acme/shop"
		cfg.Output.Directory = t.TempDir()
		cfg.Cache.Directory = t.TempDir()

		var out bytes.Buffer
		ok := runDoctor(context.Background(), &out, cfg, nil)
		assert.True(t, ok)
		assert.Contains(t, out.String(), "Graphviz dot: OK (/usr/bin/dot, dot - graphviz version 9.0.0)")
		assert.Contains(t, out.String(), "Repository: OK (https://github.com/acme/shop")
		assert.Contains(t, out.String(), "Cache directory: OK")
		assert.Contains(t, out.String(), "All critical checks passed!")
	})

	t.Run("graphviz missing is not critical", func(t *testing.T) {
		stubGraphviz(t, "", "", errors.New("not found"))

		cfg := config.Default()
		cfg.Output.Directory = t.TempDir()
		cfg.Cache.Enabled = false

		var out bytes.Buffer
		ok := runDoctor(context.Background(), &out, cfg, nil)
		assert.True(t, ok)
		assert.Contains(t, out.String(), "NOT FOUND (only .dot files will be written)")
		assert.Contains(t, out.String(), "repo_url not set")
		assert.Contains(t, out.String(), "Cache directory: DISABLED")
	})

	t.Run("config error fails", func(t *testing.T) {
		stubGraphviz(t, "", "", errors.New("not found"))

		cfg := config.Default()
		cfg.Output.Directory = t.TempDir()

		var out bytes.Buffer
		ok := runDoctor(context.Background(), &out, cfg, errors.New("yaml: line 3"))
		assert.False(t, ok)
		assert.Contains(t, out.String(), "Config file: FAILED (yaml: line 3)")
		assert.Contains(t, out.String(), "Some checks failed")
	})
}

func TestPrintSummary(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Directory = "code_index"
	cfg.Diagrams.Kinds = []string{"class", "context"}

	var out bytes.Buffer
	printSummary(&out, cfg, &app.Summary{
		RunID:       "run-1",
		Files:       12,
		Classes:     15,
		ParseErrors: 1,
		Duplicates:  2,
		Cycles:      [][]string{{"com.a", "com.b"}},
		Artifacts:   []string{"a", "b", "c"},
		Published:   3,
		Duration:    1500 * time.Millisecond,
	})

	s := out.String()
	assert.Contains(t, s, "Run run-1 finished in 1.5s")
	assert.Contains(t, s, "Files:        12 (1 failed to parse)")
	assert.Contains(t, s, "Classes:      15 (2 duplicate names)")
	assert.Contains(t, s, "Diagrams:     context, class")
	assert.Contains(t, s, "Cycle:        com.a -> com.b")
	assert.Contains(t, s, "Output:       code_index (3 files)")
	assert.Contains(t, s, "Published:    3 objects")
}

func TestReport(t *testing.T) {
	cfg := config.Default()
	summary := &app.Summary{RunID: "run-2", Classes: 4, RenderErrors: 1}

	t.Run("render failure keeps the summary", func(t *testing.T) {
		var out bytes.Buffer
		renderErr := domain.NewRenderError("class", errors.New("dot exited 1"))
		err := report(&out, cfg, summary, renderErr)
		assert.ErrorIs(t, err, domain.ErrRenderFailed)
		assert.Contains(t, out.String(), "Run run-2 finished")
		assert.Contains(t, out.String(), "(1 failed)")
	})

	t.Run("other errors print nothing", func(t *testing.T) {
		var out bytes.Buffer
		err := report(&out, cfg, summary, domain.ErrNoRepoURL)
		assert.ErrorIs(t, err, domain.ErrNoRepoURL)
		assert.Empty(t, out.String())
	})

	t.Run("success", func(t *testing.T) {
		var out bytes.Buffer
		assert.NoError(t, report(&out, cfg, summary, nil))
		assert.Contains(t, out.String(), "Classes:      4")
	})
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	defer versionCmd.SetOut(nil)

	prev, prevCommit := version.Version, version.Commit
	version.Version, version.Commit = "0.4.0", "9f2c1ab"
	defer func() { version.Version, version.Commit = prev, prevCommit }()

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, version.Full()+"\n", out.String())
	assert.Contains(t, out.String(), "repodiagrams 0.4.0 (commit: 9f2c1ab")
}

func TestIndexCmd_RejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "Main.java")
	require.NoError(t, os.WriteFile(file, []byte("class Main {}"), 0644))

	err := runIndex(indexCmd, []string{file})
	assert.ErrorContains(t, err, "not a directory")

	err = runIndex(indexCmd, []string{filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "cannot read")
}

func TestIndexCmd(t *testing.T) {
	src := t.TempDir()
	javaFile := filepath.Join(src, "com", "acme", "Greeter.java")
	require.NoError(t, os.MkdirAll(filepath.Dir(javaFile), 0755))
	require.NoError(t, os.WriteFile(javaFile, []byte(`package com.acme;

public class Greeter {
    public String greet(String name) {
        return "hi " + name;
    }
}
`), 0644))

	out := filepath.Join(t.TempDir(), "diagrams")
	overrideViper(t, map[string]any{
		"output.directory": out,
		"output.formats":   []string{"svg"},
		"cache.enabled":    false,
		"logging.level":    "error",
	})

	var stdout bytes.Buffer
	indexCmd.SetOut(&stdout)
	defer indexCmd.SetOut(nil)

	require.NoError(t, runIndex(indexCmd, []string{src}))
	assert.FileExists(t, filepath.Join(out, "index.json"))
	assert.FileExists(t, filepath.Join(out, "class_diagram.dot"))
	assert.Contains(t, stdout.String(), "Classes:      1")
}

func TestRootCmd_HelpNamesConfigFormats(t *testing.T) {
	assert.Contains(t, rootCmd.Long, "config/config.json")
	assert.Contains(t, rootCmd.Long, "config.yaml")
}

func TestRootCmd_RejectsArgs(t *testing.T) {
	err := rootCmd.Args(rootCmd, []string{"https://github.com/acme/shop"})
	assert.Error(t, err)
	assert.Error(t, indexCmd.Args(indexCmd, nil))
}

func TestBatchCmd_InvalidManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repositories: []\n"), 0644))

	err := runBatch(batchCmd, []string{path})
	assert.ErrorContains(t, err, "at least one repository")

	err = runBatch(batchCmd, []string{filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, err, "manifest file not found")
}
