package index

import (
	"strings"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
)

var builtinTypes = map[string]bool{
	"byte": true, "short": true, "int": true, "long": true, "float": true, "double": true,
	"boolean": true, "char": true, "void": true, "var": true,
	"String": true, "Integer": true, "Long": true, "Boolean": true, "Double": true,
	"Float": true, "Short": true, "Byte": true, "Character": true, "Object": true,
}

// BaseType drops generic arguments and array brackets: Map<K, V>[] -> Map
func BaseType(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.Index(t, "<"); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(strings.TrimRight(t, "[] "))
}

// IsBuiltin reports whether t is a primitive or java.lang value type
func IsBuiltin(t string) bool {
	return builtinTypes[BaseType(t)]
}

// Resolver maps type names written in one file to fully-qualified names of
// indexed classes: same package first, then the file's single-type imports
type Resolver struct {
	known   func(string) bool
	imports map[string]string
}

// NewResolver creates a Resolver for rec. known decides which fully-qualified
// names count as resolvable; nil means every class in ix.
func NewResolver(ix *domain.CodeIndex, rec *domain.FileRecord, known func(string) bool) *Resolver {
	if known == nil {
		known = func(name string) bool { return ix.Classes[name] != nil }
	}
	r := &Resolver{known: known, imports: make(map[string]string)}
	if rec != nil {
		for _, dep := range rec.Dependencies {
			if strings.HasSuffix(dep, ".*") {
				continue
			}
			r.imports[domain.SimpleName(dep)] = dep
		}
	}
	return r
}

// Resolve returns the class a type name refers to from pkg, or ""
func (r *Resolver) Resolve(pkg, name string) string {
	name = BaseType(name)
	if name == "" || builtinTypes[name] {
		return ""
	}
	if strings.Contains(name, ".") {
		if r.known(name) {
			return name
		}
		return ""
	}
	if full := domain.QualifiedName(pkg, name); r.known(full) {
		return full
	}
	if full, ok := r.imports[name]; ok && r.known(full) {
		return full
	}
	return ""
}
