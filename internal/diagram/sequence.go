package diagram

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

// UtilityMethods are calls too common to say anything about the flow
var UtilityMethods = []string{
	"save", "print", "ifPresent", "orElse", "forEach", "map",
	"equals", "toString", "hashCode", "get", "set", "is",
	"build", "of", "from", "clone", "compareTo", "builder",
	"add", "remove", "clear", "put", "create", "find",
}

var utilitySet = func() map[string]bool {
	m := make(map[string]bool, len(UtilityMethods))
	for _, u := range UtilityMethods {
		m[strings.ToLower(u)] = true
	}
	return m
}()

func isUtility(method string) bool {
	return utilitySet[strings.ToLower(method)]
}

func isAccessor(method string) bool {
	return strings.HasPrefix(method, "get") || strings.HasPrefix(method, "set") || strings.HasPrefix(method, "is")
}

// Significant reports whether a call belongs in the sequence diagram
func Significant(call domain.CallInfo, exclude []string) bool {
	if call.CallerClass == "" || call.CalleeClass == "" || call.CallerMethod == "" || call.CalleeMethod == "" {
		return false
	}
	if index.Excluded(call.CallerClass, exclude) || index.Excluded(call.CalleeClass, exclude) {
		return false
	}
	if isUtility(call.CalleeMethod) || isUtility(call.CallerMethod) {
		return false
	}
	if call.CallerClass == call.CalleeClass && isAccessor(call.CalleeMethod) {
		return false
	}
	return true
}

// receivers maps field names of each class in a file to their declared type,
// so calls through a field are attributed to the field's class
func receivers(rec *domain.FileRecord) map[string]map[string]string {
	out := make(map[string]map[string]string, len(rec.Classes))
	for _, c := range rec.Classes {
		fields := make(map[string]string, len(c.Fields))
		for _, f := range c.Fields {
			fields[f.Name] = index.BaseType(f.Type)
		}
		out[c.Name] = fields
	}
	return out
}

type pair struct{ from, to string }

// Sequence draws the classes taking part in significant calls, with one
// edge per caller/callee pair
func Sequence(ix *domain.CodeIndex, opts Options) *Diagram {
	d := &Diagram{
		Kind:  KindSequence,
		Title: "Application Sequence Flow",
		Attrs: Attrs{
			"bgcolor":   colorBackground,
			"label":     "Application Sequence Flow",
			"labelloc":  "t",
			"labeljust": "c",
			"fontsize":  "22",
			"fontcolor": colorSequenceText,
			"fontname":  fontNameSequence,
			"rankdir":   "LR",
			"nodesep":   "0.8",
			"ranksep":   "1.2",
		},
		NodeAttrs: Attrs{
			"shape":     "box",
			"style":     "filled,rounded",
			"fillcolor": colorParticipant,
			"color":     colorParticipantBorder,
			"fontname":  fontNameSequence,
			"fontcolor": colorSequenceText,
			"height":    "0.7",
			"width":     "2.0",
			"penwidth":  "1.5",
		},
		EdgeAttrs: Attrs{
			"fontname":  fontNameSequence,
			"fontsize":  "10",
			"fontcolor": colorSequenceLabel,
			"color":     colorParticipantBorder,
			"penwidth":  "1.2",
			"style":     "solid",
			"arrowhead": "vee",
		},
	}

	participants := make(map[string]bool)
	calls := make(map[pair][]domain.CallInfo)
	var order []pair

	for _, path := range ix.SortedPaths() {
		rec := ix.Files[path]
		fields := receivers(rec)
		for _, call := range rec.CallGraph {
			if t, ok := fields[call.CallerClass][call.CalleeClass]; ok && t != "" {
				call.CalleeClass = t
			}
			if !Significant(call, opts.Exclude) {
				continue
			}
			participants[call.CallerClass] = true
			participants[call.CalleeClass] = true

			p := pair{call.CallerClass, call.CalleeClass}
			if _, ok := calls[p]; !ok {
				order = append(order, p)
			}
			calls[p] = append(calls[p], call)
		}
	}

	names := make([]string, 0, len(participants))
	for p := range participants {
		names = append(names, p)
	}
	sort.Strings(names)
	for _, p := range names {
		d.Nodes = append(d.Nodes, Node{ID: p, Label: domain.SimpleName(p)})
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].from != order[j].from {
			return order[i].from < order[j].from
		}
		return order[i].to < order[j].to
	})
	for _, p := range order {
		if p.from == p.to {
			continue
		}
		cs := calls[p]
		d.Edges = append(d.Edges, Edge{
			From:    p.from,
			To:      p.to,
			Label:   callLabel(cs),
			Tooltip: callTooltip(cs, opts.MaxLabelCalls),
		})
	}
	return d
}

func callLabel(calls []domain.CallInfo) string {
	if len(calls) == 1 {
		return calls[0].CallerMethod + " -> " + calls[0].CalleeMethod
	}
	return fmt.Sprintf("%d calls", len(calls))
}

func callTooltip(calls []domain.CallInfo, limit int) string {
	var lines []string
	for i, c := range calls {
		if i == limit {
			lines = append(lines, fmt.Sprintf("... %d more", len(calls)-limit))
			break
		}
		lines = append(lines, c.CallerMethod+" -> "+c.CalleeMethod)
	}
	return strings.Join(lines, "\n")
}
