package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/quantmind-br/repodiagrams-go/internal/diagram"
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// DefaultBinary is the Graphviz layout program
const DefaultBinary = "dot"

// lookPath is a variable for testing
var lookPath = exec.LookPath

// Renderer writes diagrams as DOT source and images
type Renderer struct {
	dir     string
	formats []string
	binary  string
	logger  *utils.Logger

	warnOnce sync.Once
}

// RendererOptions contains options for creating a Renderer
type RendererOptions struct {
	Directory string
	// Formats are Graphviz output formats such as png, svg or pdf
	Formats []string
	// Binary defaults to DefaultBinary
	Binary string
	Logger *utils.Logger
}

// NewRenderer creates a new Renderer
func NewRenderer(opts RendererOptions) *Renderer {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Renderer{
		dir:     opts.Directory,
		formats: opts.Formats,
		binary:  opts.Binary,
		logger:  opts.Logger.WithComponent("render"),
	}
}

// LookupGraphviz returns the resolved path of the Graphviz binary and its
// version banner
func LookupGraphviz(ctx context.Context, binary string) (path, version string, err error) {
	if binary == "" {
		binary = DefaultBinary
	}
	path, err = lookPath(binary)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrGraphvizNotFound, err)
	}
	// dot -V prints to stderr
	out, err := exec.CommandContext(ctx, path, "-V").CombinedOutput()
	if err != nil {
		return path, "", fmt.Errorf("failed to run %s -V: %w", path, err)
	}
	return path, strings.TrimSpace(string(out)), nil
}

// Render writes <kind>_diagram.dot and one image per configured format into
// the output directory and returns the written paths. When the Graphviz
// binary is missing only the DOT file is produced and the returned error
// wraps domain.ErrGraphvizNotFound.
func (r *Renderer) Render(ctx context.Context, d *diagram.Diagram) ([]string, error) {
	if err := utils.EnsureDir(r.dir); err != nil {
		return nil, domain.NewRenderError(string(d.Kind), err)
	}

	base := filepath.Join(r.dir, d.Kind.FileBase())
	dotPath := base + ".dot"
	if err := os.WriteFile(dotPath, []byte(DOT(d)), 0644); err != nil {
		return nil, domain.NewRenderError(string(d.Kind), err)
	}
	paths := []string{dotPath}

	if len(r.formats) == 0 {
		return paths, nil
	}

	bin, err := lookPath(r.binary)
	if err != nil {
		r.warnOnce.Do(func() {
			r.logger.Warn().Str("binary", r.binary).Msg("Graphviz not found, writing .dot files only")
		})
		return paths, fmt.Errorf("%w: %v", domain.ErrGraphvizNotFound, err)
	}

	for _, format := range r.formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		out := base + "." + format
		if err := r.run(ctx, bin, format, dotPath, out); err != nil {
			return paths, domain.NewRenderError(string(d.Kind), err)
		}
		r.logger.Debug().Str("kind", string(d.Kind)).Str("file", out).Msg("Diagram rendered")
		paths = append(paths, out)
	}
	return paths, nil
}

func (r *Renderer) run(ctx context.Context, bin, format, in, out string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-T"+format, "-o", out, in)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return err
		}
		return fmt.Errorf("%s -T%s: %w: %s", filepath.Base(bin), format, err, msg)
	}
	return nil
}

// IsGraphvizMissing reports whether err came from a missing Graphviz binary
func IsGraphvizMissing(err error) bool {
	return errors.Is(err, domain.ErrGraphvizNotFound)
}
