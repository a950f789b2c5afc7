package diagram

import (
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

// Component draws one cluster per package holding its classes, with a
// "uses" edge from every class of a file to every indexed class the file imports
func Component(ix *domain.CodeIndex, opts Options) *Diagram {
	d := &Diagram{
		Kind:  KindComponent,
		Title: "Component Diagram",
		Attrs: merge(graphAttrs("Component Diagram", "TB"), Attrs{"concentrate": "true"}),
		NodeAttrs: Attrs{
			"shape":     "box",
			"style":     "filled,rounded",
			"fillcolor": colorComponent,
			"fontname":  fontName,
			"margin":    "0.3,0.1",
			"height":    "0.8",
			"width":     "1.6",
		},
		EdgeAttrs: Attrs{
			"style":     "solid",
			"color":     colorEdge,
			"fontcolor": colorEdge,
			"fontsize":  "10",
			"fontname":  fontName,
			"arrowhead": "vee",
		},
	}

	known := make(map[string]bool)
	for _, pkg := range ix.Packages() {
		cl := Cluster{
			ID:    clusterID(pkg),
			Label: "Package: " + pkg,
			Attrs: Attrs{
				"style":     "filled",
				"fillcolor": colorPackage,
				"color":     "black",
				"fontsize":  "16",
				"fontname":  fontName,
				"margin":    "20",
			},
		}
		for _, c := range ix.ClassesInPackage(pkg) {
			name := c.FullName()
			if index.Excluded(name, opts.Exclude) {
				continue
			}
			known[name] = true
			cl.Nodes = append(cl.Nodes, Node{ID: name, Label: "[Component]\n" + c.Name})
		}
		if len(cl.Nodes) > 0 {
			d.Clusters = append(d.Clusters, cl)
		}
	}

	edges := newEdgeSet()
	for _, path := range ix.SortedPaths() {
		rec := ix.Files[path]
		for _, c := range rec.Classes {
			source := c.FullName()
			if !known[source] {
				continue
			}
			for _, dep := range rec.Dependencies {
				if index.Excluded(dep, opts.Exclude) || strings.HasSuffix(dep, ".*") {
					continue
				}
				target := dep
				if !strings.Contains(dep, ".") {
					target = domain.QualifiedName(rec.Package, dep)
				}
				if target == source || !known[target] {
					continue
				}
				edges.add(Edge{From: source, To: target, Label: "uses"})
			}
		}
	}
	d.Edges = edges.sorted()
	return d
}
