package diagram

import (
	"fmt"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

const (
	maxFields  = 7
	maxMethods = 10
)

// Relation is a UML relationship kind between two classes
type Relation string

const (
	RelInheritance Relation = "inheritance"
	RelComposition Relation = "composition"
	RelAggregation Relation = "aggregation"
	RelAssociation Relation = "association"
)

var relationOrder = []Relation{RelInheritance, RelComposition, RelAggregation, RelAssociation}

var relationAttrs = map[Relation]Attrs{
	RelInheritance: {"arrowhead": "onormal", "style": "solid", "color": colorInheritance, "penwidth": "1.5"},
	RelComposition: {"arrowhead": "diamond", "style": "solid", "color": colorComposition, "penwidth": "1.5"},
	RelAggregation: {"arrowhead": "odiamond", "style": "solid", "color": colorAggregation, "penwidth": "1.5"},
	RelAssociation: {"arrowhead": "vee", "style": "dashed", "color": colorAssociation, "penwidth": "1.2"},
}

const classLegend = `<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">
<TR><TD COLSPAN="2"><B>Legend</B></TD></TR>
<TR><TD BGCOLOR="#F5F5F5">Class</TD><TD>Regular class</TD></TR>
<TR><TD BGCOLOR="#F5EEF8">Abstract</TD><TD>Abstract class</TD></TR>
<TR><TD BGCOLOR="#E8F8F5">Interface</TD><TD>Interface</TD></TR>
<TR><TD><FONT COLOR="#333333">→|&gt;</FONT></TD><TD>Inheritance/Implementation</TD></TR>
<TR><TD><FONT COLOR="#E74C3C">→♦</FONT></TD><TD>Composition</TD></TR>
<TR><TD><FONT COLOR="#F39C12">→◊</FONT></TD><TD>Aggregation</TD></TR>
<TR><TD><FONT COLOR="#3498DB">- - &gt;</FONT></TD><TD>Association</TD></TR>
</TABLE>`

// Class draws one UML record per indexed class and the inheritance,
// composition, aggregation and association edges between them
func Class(ix *domain.CodeIndex, opts Options) *Diagram {
	d := &Diagram{
		Kind:  KindClass,
		Title: "Class Diagram",
		Attrs: merge(graphAttrs("Class Diagram", "TB"), Attrs{
			"nodesep": "0.6",
			"ranksep": "1.2",
			"splines": "ortho",
		}),
		NodeAttrs: Attrs{"fontname": fontName, "fontsize": "10"},
		Legend:    classLegend,
	}

	known := make(map[string]bool)
	var classes []*domain.ClassRecord
	for _, name := range ix.SortedClassNames() {
		if index.Excluded(name, opts.Exclude) {
			continue
		}
		known[name] = true
		classes = append(classes, ix.Classes[name])
	}

	rels := make(map[Relation]*edgeSet, len(relationOrder))
	for _, r := range relationOrder {
		rels[r] = newEdgeSet()
	}

	for _, c := range classes {
		full := c.FullName()
		d.Nodes = append(d.Nodes, classNode(c))

		res := index.NewResolver(ix, ix.Files[c.File], func(name string) bool { return known[name] })
		link := func(r Relation, typ string) {
			target := res.Resolve(c.Package, typ)
			if target == "" || target == full {
				return
			}
			rels[r].add(Edge{From: full, To: target, Attrs: relationAttrs[r]})
		}

		if c.SuperClass != "" {
			link(RelInheritance, c.SuperClass)
		}
		for _, iface := range c.Interfaces {
			link(RelInheritance, iface)
		}
		for _, f := range c.Fields {
			switch {
			case isCollection(f.Type) || isArray(f.Type):
				link(RelAggregation, elementType(f.Type))
			case f.Final:
				link(RelComposition, f.Type)
			default:
				link(RelAssociation, f.Type)
			}
		}
	}

	for _, r := range relationOrder {
		edges := rels[r].sorted()
		if r == RelAssociation && len(edges) > opts.MaxAssociations {
			edges = edges[:opts.MaxAssociations]
		}
		d.Edges = append(d.Edges, edges...)
	}
	return d
}

// RelationOf returns the relation an edge of a class diagram draws
func RelationOf(e Edge) Relation {
	for r, a := range relationAttrs {
		if e.Attrs["arrowhead"] == a["arrowhead"] && e.Attrs["style"] == a["style"] {
			return r
		}
	}
	return ""
}

func classNode(c *domain.ClassRecord) Node {
	fill, border := colorClass, "#34495E"
	var header []string
	switch {
	case c.IsInterface():
		fill, border = colorInterface, "#16A085"
		header = append(header, "<<interface>>")
	case c.Abstract:
		fill, border = colorAbstract, "#8E44AD"
		header = append(header, "<<abstract>>")
	case c.Kind == domain.KindEnum:
		header = append(header, "<<enum>>")
	case c.Kind == domain.KindRecord:
		header = append(header, "<<record>>")
	}
	header = append(header, c.Name)

	return Node{
		ID:    c.FullName(),
		Label: c.Name,
		Record: &Record{
			Header:   header,
			Sections: [][]string{fieldLines(c.Fields), methodLines(c.Methods)},
		},
		Attrs: Attrs{
			"shape":     "record",
			"style":     "filled",
			"fillcolor": fill,
			"color":     border,
			"penwidth":  "1.5",
			"margin":    "0.3,0.1",
		},
	}
}

func fieldLines(fields []domain.FieldInfo) []string {
	var out []string
	for i, f := range fields {
		if i == maxFields {
			out = append(out, "...")
			break
		}
		out = append(out, fmt.Sprintf("%s %s: %s", f.Visibility.Symbol(), f.Name, f.Type))
	}
	return out
}

func methodLines(methods []domain.MethodInfo) []string {
	var out []string
	for i, m := range methods {
		if i == maxMethods {
			out = append(out, "...")
			break
		}
		params := "()"
		if m.ParamCount > 0 {
			params = fmt.Sprintf("(%d params)", m.ParamCount)
		}
		ret := m.ReturnType
		if ret == "" {
			ret = "void"
		}
		out = append(out, fmt.Sprintf("%s %s%s: %s", m.Visibility.Symbol(), m.Name, params, ret))
	}
	return out
}
