package diagram

import (
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

// Container draws one node per package and a "depends on" edge for every
// package-level import. Imported packages that are not part of the index
// appear as external nodes.
func Container(ix *domain.CodeIndex, opts Options) *Diagram {
	d := &Diagram{
		Kind:  KindContainer,
		Title: "Container Diagram",
		Attrs: graphAttrs("Container Diagram", "TB"),
		NodeAttrs: Attrs{
			"shape":    "box",
			"style":    "filled",
			"fontname": fontName,
		},
		EdgeAttrs: Attrs{
			"color":     colorEdge,
			"fontcolor": colorEdge,
			"fontsize":  "10",
			"fontname":  fontName,
		},
	}

	pg, err := index.BuildPackageGraph(ix, opts.Exclude)
	if err != nil {
		for _, p := range ix.Packages() {
			d.Nodes = append(d.Nodes, packageNode(p, true))
		}
		return d
	}

	for _, p := range pg.Packages() {
		d.Nodes = append(d.Nodes, packageNode(p, pg.IsInternal(p)))
	}
	for _, e := range pg.Edges() {
		d.Edges = append(d.Edges, Edge{From: e.From, To: e.To, Label: "depends on"})
	}
	return d
}

func packageNode(pkg string, internal bool) Node {
	if internal {
		return Node{ID: pkg, Label: pkg + " (Package)", Attrs: Attrs{"fillcolor": colorComponent}}
	}
	return Node{
		ID:    pkg,
		Label: pkg + " (External)",
		Attrs: Attrs{"fillcolor": colorExternal, "style": "filled,dashed"},
	}
}
