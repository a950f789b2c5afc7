package diagram

import (
	"sort"
	"strings"
)

// Kind identifies one of the diagram projections
type Kind string

const (
	KindContext   Kind = "context"
	KindComponent Kind = "component"
	KindContainer Kind = "container"
	KindClass     Kind = "class"
	KindSequence  Kind = "sequence"
)

// Kinds lists every projection in rendering order
var Kinds = []Kind{KindContext, KindComponent, KindContainer, KindClass, KindSequence}

// FileBase returns the artifact name without extension, e.g. class_diagram
func (k Kind) FileBase() string {
	return string(k) + "_diagram"
}

// Attrs are Graphviz attributes
type Attrs map[string]string

// Record is a UML compartment label: a header followed by sections of lines
type Record struct {
	Header   []string
	Sections [][]string
}

// Node is a diagram vertex
type Node struct {
	ID     string
	Label  string
	Record *Record
	Attrs  Attrs
}

// Edge connects two node IDs
type Edge struct {
	From    string
	To      string
	Label   string
	Tooltip string
	Attrs   Attrs
}

// Cluster groups nodes in a labelled box
type Cluster struct {
	ID    string
	Label string
	Attrs Attrs
	Nodes []Node
}

// Diagram is a format-neutral graph ready for rendering
type Diagram struct {
	Kind      Kind
	Title     string
	Attrs     Attrs
	NodeAttrs Attrs
	EdgeAttrs Attrs
	Clusters  []Cluster
	Nodes     []Node
	Edges     []Edge
	// Legend is a Graphviz HTML-like table, empty for none
	Legend string
}

// AllNodes returns the top-level nodes followed by clustered nodes
func (d *Diagram) AllNodes() []Node {
	out := append([]Node(nil), d.Nodes...)
	for _, c := range d.Clusters {
		out = append(out, c.Nodes...)
	}
	return out
}

// NodeIDs returns every node ID in lexical order
func (d *Diagram) NodeIDs() []string {
	nodes := d.AllNodes()
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

// FindNode looks a node up by ID
func (d *Diagram) FindNode(id string) (Node, bool) {
	for _, n := range d.AllNodes() {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// FindEdge returns the first edge between from and to
func (d *Diagram) FindEdge(from, to string) (Edge, bool) {
	for _, e := range d.Edges {
		if e.From == from && e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// IsEmpty reports whether the diagram has nothing to draw
func (d *Diagram) IsEmpty() bool {
	return len(d.Nodes) == 0 && len(d.Clusters) == 0
}

// edgeSet deduplicates edges while keeping insertion order
type edgeSet struct {
	seen  map[string]bool
	edges []Edge
}

func newEdgeSet() *edgeSet {
	return &edgeSet{seen: make(map[string]bool)}
}

func (s *edgeSet) add(e Edge) bool {
	key := e.From + "\x00" + e.To
	if s.seen[key] {
		return false
	}
	s.seen[key] = true
	s.edges = append(s.edges, e)
	return true
}

func (s *edgeSet) has(from, to string) bool {
	return s.seen[from+"\x00"+to]
}

func (s *edgeSet) sorted() []Edge {
	out := append([]Edge(nil), s.edges...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func clusterID(pkg string) string {
	return "pkg_" + strings.ReplaceAll(pkg, ".", "_")
}

func merge(base Attrs, extra Attrs) Attrs {
	out := make(Attrs, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
