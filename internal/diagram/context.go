package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

// SystemNodeID is the ID of the central node of the context diagram
const SystemNodeID = "system"

// ExternalGroup returns the external system an imported package belongs to:
// its first two segments, org.apache.kafka -> org.apache
func ExternalGroup(pkg string) string {
	parts := strings.SplitN(pkg, ".", 3)
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, ".")
}

// Context draws the analysed system as one node surrounded by the external
// systems its code imports
func Context(ix *domain.CodeIndex, opts Options) *Diagram {
	d := &Diagram{
		Kind:  KindContext,
		Title: "Context Diagram",
		Attrs: graphAttrs("Context Diagram", "LR"),
		NodeAttrs: Attrs{
			"fontname": fontName,
			"margin":   "0.3,0.1",
		},
		EdgeAttrs: Attrs{
			"color":     colorEdge,
			"fontcolor": colorEdge,
			"fontsize":  "10",
			"fontname":  fontName,
			"arrowhead": "vee",
		},
	}

	d.Nodes = append(d.Nodes, Node{
		ID: SystemNodeID,
		Label: fmt.Sprintf("%s\n[Software System]\n%s in %s",
			opts.SystemName, plural(len(ix.Classes), "class"), plural(len(ix.Packages()), "package")),
		Attrs: Attrs{
			"shape":     "box",
			"style":     "filled,rounded",
			"fillcolor": colorComponent,
			"fontsize":  "14",
			"height":    "1.2",
		},
	})

	internal := make(map[string]bool)
	for _, p := range ix.Packages() {
		internal[p] = true
	}

	importers := make(map[string]map[string]bool)
	for _, path := range ix.SortedPaths() {
		for _, dep := range ix.Files[path].Dependencies {
			if index.Excluded(dep, opts.Exclude) {
				continue
			}
			pkg := index.ImportPackage(dep)
			// static and nested-type imports name an indexed class as their package
			if pkg == "" || internal[pkg] || ix.Classes[pkg] != nil {
				continue
			}
			group := ExternalGroup(pkg)
			if importers[group] == nil {
				importers[group] = make(map[string]bool)
			}
			importers[group][path] = true
		}
	}

	groups := make([]string, 0, len(importers))
	for g := range importers {
		groups = append(groups, g)
	}
	sort.Strings(groups)

	for _, g := range groups {
		id := "ext_" + g
		d.Nodes = append(d.Nodes, Node{
			ID:    id,
			Label: g + "\n[External System]",
			Attrs: Attrs{
				"shape":     "box",
				"style":     "filled",
				"fillcolor": colorExternal,
				"color":     "#999999",
			},
		})
		d.Edges = append(d.Edges, Edge{
			From:  SystemNodeID,
			To:    id,
			Label: fmt.Sprintf("uses (%s)", plural(len(importers[g]), "file")),
		})
	}
	return d
}
