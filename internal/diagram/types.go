package diagram

import (
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

var collections = map[string]bool{
	"List": true, "Set": true, "Map": true, "Collection": true,
	"ArrayList": true, "LinkedList": true, "HashSet": true, "TreeSet": true,
	"HashMap": true, "TreeMap": true, "LinkedHashMap": true, "Queue": true, "Deque": true,
	"Iterable": true,
}

// typeArgs returns the top-level generic arguments of t
func typeArgs(t string) []string {
	start := strings.Index(t, "<")
	end := strings.LastIndex(t, ">")
	if start < 0 || end < start {
		return nil
	}
	inner := t[start+1 : end]
	var args []string
	depth, from := 0, 0
	for i, r := range inner {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(inner[from:i]))
				from = i + 1
			}
		}
	}
	return append(args, strings.TrimSpace(inner[from:]))
}

func isArray(t string) bool {
	return strings.HasSuffix(strings.TrimSpace(t), "[]")
}

// isCollection reports whether t is a generic collection type
func isCollection(t string) bool {
	return collections[domain.SimpleName(index.BaseType(t))] && len(typeArgs(t)) > 0
}

// elementType is the aggregated type of a collection or array field. Maps
// aggregate their values.
func elementType(t string) string {
	if isArray(t) {
		return index.BaseType(t)
	}
	args := typeArgs(t)
	if len(args) == 0 {
		return ""
	}
	return index.BaseType(args[len(args)-1])
}
