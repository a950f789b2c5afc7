package graphstore

import (
	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

// Statement is one parameterised Cypher query
type Statement struct {
	Cypher string
	Params map[string]any
}

var cleanStatements = []string{
	"MATCH (n:JavaMethod) DETACH DELETE n",
	"MATCH (n:JavaClass) DETACH DELETE n",
	"MATCH (n:JavaPackage) DETACH DELETE n",
}

var indexStatements = []string{
	"CREATE INDEX java_package_name IF NOT EXISTS FOR (n:JavaPackage) ON (n.name)",
	"CREATE INDEX java_class_full_name IF NOT EXISTS FOR (n:JavaClass) ON (n.full_name)",
	"CREATE INDEX java_method_key IF NOT EXISTS FOR (n:JavaMethod) ON (n.key)",
}

const (
	cypherPackages = `UNWIND $batch AS row
MERGE (p:JavaPackage {name: row.name})
SET p.internal = row.internal`

	cypherClasses = `UNWIND $batch AS row
MERGE (c:JavaClass {full_name: row.full_name})
SET c.name = row.name, c.package = row.package, c.kind = row.kind,
    c.abstract = row.abstract, c.file = row.file
WITH c, row
MATCH (p:JavaPackage {name: row.package})
MERGE (c)-[:IN_PACKAGE]->(p)`

	cypherMethods = `UNWIND $batch AS row
MERGE (m:JavaMethod {key: row.key})
SET m.name = row.name, m.class = row.class, m.signature = row.signature,
    m.return_type = row.return_type, m.visibility = row.visibility,
    m.static = row.static, m.param_count = row.param_count
WITH m, row
MATCH (c:JavaClass {full_name: row.class})
MERGE (c)-[:HAS_METHOD]->(m)`

	cypherExtends = `UNWIND $batch AS row
MATCH (a:JavaClass {full_name: row.from}), (b:JavaClass {full_name: row.to})
MERGE (a)-[:EXTENDS]->(b)`

	cypherImplements = `UNWIND $batch AS row
MATCH (a:JavaClass {full_name: row.from}), (b:JavaClass {full_name: row.to})
MERGE (a)-[:IMPLEMENTS]->(b)`

	cypherImports = `UNWIND $batch AS row
MATCH (c:JavaClass {full_name: row.from})
MERGE (p:JavaPackage {name: row.to})
ON CREATE SET p.internal = false
MERGE (c)-[:IMPORTS]->(p)`

	cypherCalls = `UNWIND $batch AS row
MERGE (a:JavaMethod {key: row.from})
ON CREATE SET a.name = row.caller_method, a.class = row.caller_class
MERGE (b:JavaMethod {key: row.to})
ON CREATE SET b.name = row.callee_method, b.class = row.callee_class
MERGE (a)-[r:CALLS]->(b)
SET r.count = row.count, r.first_sequence = row.sequence`
)

// MethodKey identifies a method node: overloads share one node
func MethodKey(class, method string) string {
	return class + "#" + method
}

// Statements converts the index into batched UNWIND statements. Each batch
// holds at most batchSize rows; rows are emitted in sorted order.
func Statements(ix *domain.CodeIndex, batchSize int) []Statement {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}

	var packages, classes, methods, extends, implements, imports, calls []map[string]any

	internal := make(map[string]bool)
	for _, p := range ix.Packages() {
		internal[p] = true
		packages = append(packages, map[string]any{"name": p, "internal": true})
	}

	for _, name := range ix.SortedClassNames() {
		c := ix.Classes[name]
		pkg := c.Package
		if pkg == "" {
			pkg = domain.DefaultPackage
		}
		classes = append(classes, map[string]any{
			"full_name": name,
			"name":      c.Name,
			"package":   pkg,
			"kind":      string(c.Kind),
			"abstract":  c.Abstract,
			"file":      c.File,
		})
		for _, m := range c.Methods {
			methods = append(methods, map[string]any{
				"key":         MethodKey(name, m.Name),
				"name":        m.Name,
				"class":       name,
				"signature":   m.Signature,
				"return_type": m.ReturnType,
				"visibility":  string(m.Visibility),
				"static":      m.Static,
				"param_count": m.ParamCount,
			})
		}

		res := index.NewResolver(ix, ix.Files[c.File], nil)
		if target := res.Resolve(c.Package, c.SuperClass); target != "" && target != name {
			extends = append(extends, map[string]any{"from": name, "to": target})
		}
		for _, iface := range c.Interfaces {
			if target := res.Resolve(c.Package, iface); target != "" && target != name {
				implements = append(implements, map[string]any{"from": name, "to": target})
			}
		}
	}

	for _, path := range ix.SortedPaths() {
		rec := ix.Files[path]
		seen := make(map[string]bool)
		for _, dep := range rec.Dependencies {
			pkg := index.ImportPackage(dep)
			if pkg == "" || seen[pkg] {
				continue
			}
			seen[pkg] = true
			for _, c := range rec.Classes {
				imports = append(imports, map[string]any{"from": c.FullName(), "to": pkg})
			}
		}
		calls = append(calls, callRows(ix, rec)...)
	}

	var out []Statement
	out = appendBatches(out, cypherPackages, packages, batchSize)
	out = appendBatches(out, cypherClasses, classes, batchSize)
	out = appendBatches(out, cypherMethods, methods, batchSize)
	out = appendBatches(out, cypherExtends, extends, batchSize)
	out = appendBatches(out, cypherImplements, implements, batchSize)
	out = appendBatches(out, cypherImports, imports, batchSize)
	out = appendBatches(out, cypherCalls, calls, batchSize)
	return out
}

type callKey struct{ from, to string }

// callRows aggregates the calls of one file whose receiver resolves to an
// indexed class. Receivers naming a field of the caller use the field type.
func callRows(ix *domain.CodeIndex, rec *domain.FileRecord) []map[string]any {
	res := index.NewResolver(ix, rec, nil)
	fields := make(map[string]map[string]string)
	for _, c := range rec.Classes {
		f := make(map[string]string)
		for _, fi := range c.Fields {
			f[fi.Name] = fi.Type
		}
		fields[c.Name] = f
	}

	counts := make(map[callKey]int)
	var rows []map[string]any
	for _, call := range rec.CallGraph {
		receiver := call.CalleeClass
		if t, ok := fields[call.CallerClass][receiver]; ok {
			receiver = t
		}
		callee := res.Resolve(rec.Package, receiver)
		caller := res.Resolve(rec.Package, call.CallerClass)
		if callee == "" || caller == "" {
			continue
		}
		k := callKey{MethodKey(caller, call.CallerMethod), MethodKey(callee, call.CalleeMethod)}
		counts[k]++
		if counts[k] > 1 {
			continue
		}
		rows = append(rows, map[string]any{
			"from":          k.from,
			"to":            k.to,
			"caller_class":  caller,
			"caller_method": call.CallerMethod,
			"callee_class":  callee,
			"callee_method": call.CalleeMethod,
			"sequence":      call.Sequence,
		})
	}
	for _, row := range rows {
		row["count"] = counts[callKey{row["from"].(string), row["to"].(string)}]
	}
	return rows
}

func appendBatches(out []Statement, cypher string, rows []map[string]any, size int) []Statement {
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, Statement{Cypher: cypher, Params: map[string]any{"batch": rows[start:end]}})
	}
	return out
}
