package render

import (
	"sort"
	"strings"

	"github.com/emicklei/dot"

	"github.com/quantmind-br/repodiagrams-go/internal/diagram"
)

// LegendNodeID is the ID of the legend node, when a diagram has one
const LegendNodeID = "legend"

// DOT converts a diagram to Graphviz source
func DOT(d *diagram.Diagram) string {
	g := dot.NewGraph(dot.Directed)
	setAttrs(g, d.Attrs)

	nodes := make(map[string]dot.Node)
	for _, cl := range d.Clusters {
		sub := g.Subgraph(cl.ID, dot.ClusterOption{})
		setAttrs(sub, cl.Attrs)
		sub.Attr("label", cl.Label)
		for _, n := range cl.Nodes {
			nodes[n.ID] = addNode(sub, n, d.NodeAttrs)
		}
	}
	for _, n := range d.Nodes {
		nodes[n.ID] = addNode(g, n, d.NodeAttrs)
	}

	for _, e := range d.Edges {
		from, ok := nodes[e.From]
		if !ok {
			continue
		}
		to, ok := nodes[e.To]
		if !ok {
			continue
		}
		edge := g.Edge(from, to)
		for _, k := range sortedKeys(d.EdgeAttrs) {
			edge.Attr(k, d.EdgeAttrs[k])
		}
		for _, k := range sortedKeys(e.Attrs) {
			edge.Attr(k, e.Attrs[k])
		}
		if e.Label != "" {
			edge.Attr("label", e.Label)
		}
		if e.Tooltip != "" {
			edge.Attr("tooltip", e.Tooltip)
		}
	}

	if d.Legend != "" {
		legend := g.Node(LegendNodeID)
		legend.Attr("shape", "none")
		legend.Attr("fontsize", "10")
		legend.Attr("fontname", "Arial")
		legend.Attr("label", dot.HTML(d.Legend))
	}

	return g.String()
}

func addNode(g *dot.Graph, n diagram.Node, defaults diagram.Attrs) dot.Node {
	node := g.Node(n.ID)
	for _, k := range sortedKeys(defaults) {
		node.Attr(k, defaults[k])
	}
	for _, k := range sortedKeys(n.Attrs) {
		node.Attr(k, n.Attrs[k])
	}
	if n.Record != nil {
		node.Attr("label", dot.Literal(recordLabel(n.Record)))
		return node
	}
	label := n.Label
	if label == "" {
		label = n.ID
	}
	node.Attr("label", label)
	return node
}

func setAttrs(g *dot.Graph, attrs diagram.Attrs) {
	for _, k := range sortedKeys(attrs) {
		g.Attr(k, attrs[k])
	}
}

func sortedKeys(m diagram.Attrs) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var recordEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	`{`, `\{`,
	`}`, `\}`,
	`|`, `\|`,
	`<`, `\<`,
	`>`, `\>`,
)

// recordLabel builds a quoted UML record label: header lines centred, one
// compartment per section with left-aligned lines
func recordLabel(r *diagram.Record) string {
	var b strings.Builder
	b.WriteString(`"{`)
	for i, h := range r.Header {
		if i > 0 {
			b.WriteString(`\n`)
		}
		b.WriteString(recordEscaper.Replace(h))
	}
	for _, section := range r.Sections {
		b.WriteString("|")
		for _, line := range section {
			b.WriteString(recordEscaper.Replace(line))
			b.WriteString(`\l`)
		}
	}
	b.WriteString(`}"`)
	return b.String()
}
