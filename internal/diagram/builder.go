package diagram

import (
	"fmt"
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/config"
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
)

// Colors shared by the projections
const (
	colorBackground = "white"
	colorPackage    = "#ECECFC"
	colorComponent  = "#B5CAFB"
	colorExternal   = "#F0F0F0"
	colorEdge       = "#666666"

	colorClass       = "#F5F5F5"
	colorAbstract    = "#F5EEF8"
	colorInterface   = "#E8F8F5"
	colorInheritance = "#333333"
	colorComposition = "#E74C3C"
	colorAggregation = "#F39C12"
	colorAssociation = "#3498DB"

	colorParticipant       = "#E8F4F9"
	colorParticipantBorder = "#4682B4"
	colorSequenceText      = "#333333"
	colorSequenceLabel     = "#555555"

	fontName         = "Arial"
	fontNameSequence = "Helvetica"
)

// Options tunes the projections
type Options struct {
	// Exclude lists import/class prefixes treated as libraries
	Exclude []string
	// MaxAssociations caps association edges in the class diagram
	MaxAssociations int
	// MaxLabelCalls caps the calls listed in a sequence edge tooltip
	MaxLabelCalls int
	// SystemName labels the central node of the context diagram
	SystemName string
}

func (o Options) withDefaults() Options {
	if o.Exclude == nil {
		o.Exclude = config.DefaultExcludePrefixes
	}
	if o.MaxAssociations <= 0 {
		o.MaxAssociations = config.DefaultMaxAssociations
	}
	if o.MaxLabelCalls <= 0 {
		o.MaxLabelCalls = config.DefaultMaxLabelCalls
	}
	if o.SystemName == "" {
		o.SystemName = "System"
	}
	return o
}

// OptionsFromConfig maps the diagrams config section to Options
func OptionsFromConfig(cfg config.DiagramsConfig, systemName string) Options {
	return Options{
		Exclude:         cfg.Exclude,
		MaxAssociations: cfg.MaxAssociations,
		MaxLabelCalls:   cfg.MaxLabelCalls,
		SystemName:      systemName,
	}
}

// BuildFunc projects a code index into a diagram
type BuildFunc func(ix *domain.CodeIndex, opts Options) *Diagram

var builders = map[Kind]BuildFunc{
	KindContext:   Context,
	KindComponent: Component,
	KindContainer: Container,
	KindClass:     Class,
	KindSequence:  Sequence,
}

// ParseKind validates a kind name
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := builders[k]; !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownDiagram, s)
	}
	return k, nil
}

// Build runs the projection for kind
func Build(kind Kind, ix *domain.CodeIndex, opts Options) (*Diagram, error) {
	fn, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDiagram, kind)
	}
	if ix == nil {
		ix = domain.NewCodeIndex("")
	}
	return fn(ix, opts.withDefaults()), nil
}

func graphAttrs(title, rankdir string) Attrs {
	return Attrs{
		"bgcolor":  colorBackground,
		"label":    title,
		"labelloc": "t",
		"fontsize": "24",
		"fontname": fontName,
		"rankdir":  rankdir,
	}
}

func packageOf(c *domain.ClassRecord) string {
	if c.Package == "" {
		return domain.DefaultPackage
	}
	return c.Package
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
