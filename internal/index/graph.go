package index

import (
	"errors"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
)

// PackageEdge is a dependency from one package to another
type PackageEdge struct {
	From string
	To   string
}

// PackageGraph is the package dependency graph derived from imports
type PackageGraph struct {
	g        graph.Graph[string, string]
	internal map[string]bool
}

// Excluded reports whether name starts with any of prefixes
func Excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// ImportPackage returns the package part of an import path (a.b.C -> a.b),
// or "" for unqualified imports
func ImportPackage(dep string) string {
	pkg, _ := domain.SplitQualified(dep)
	return pkg
}

// BuildPackageGraph links each indexed package to the packages its files
// import, skipping self edges and excluded prefixes
func BuildPackageGraph(ix *domain.CodeIndex, exclude []string) (*PackageGraph, error) {
	pg := &PackageGraph{
		g:        graph.New(graph.StringHash, graph.Directed()),
		internal: make(map[string]bool),
	}

	for _, p := range ix.Packages() {
		pg.internal[p] = true
		if err := pg.addVertex(p); err != nil {
			return nil, err
		}
	}

	for _, path := range ix.SortedPaths() {
		rec := ix.Files[path]
		from := rec.PackageOrDefault()
		for _, dep := range rec.Dependencies {
			if Excluded(dep, exclude) {
				continue
			}
			to := ImportPackage(dep)
			// static and nested-type imports name a class, not a package
			if c := ix.Classes[to]; c != nil {
				to = c.Package
				if to == "" {
					to = domain.DefaultPackage
				}
			}
			if to == "" || to == from {
				continue
			}
			if err := pg.addVertex(to); err != nil {
				return nil, err
			}
			if err := pg.g.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, err
			}
		}
	}

	return pg, nil
}

func (pg *PackageGraph) addVertex(p string) error {
	if err := pg.g.AddVertex(p); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
		return err
	}
	return nil
}

// IsInternal reports whether pkg is declared by an indexed file
func (pg *PackageGraph) IsInternal(pkg string) bool {
	return pg.internal[pkg]
}

// Packages returns every vertex in lexical order
func (pg *PackageGraph) Packages() []string {
	adj, err := pg.g.AdjacencyMap()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(adj))
	for p := range adj {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Edges returns every dependency sorted by (From, To)
func (pg *PackageGraph) Edges() []PackageEdge {
	edges, err := pg.g.Edges()
	if err != nil {
		return nil
	}
	out := make([]PackageEdge, 0, len(edges))
	for _, e := range edges {
		out = append(out, PackageEdge{From: e.Source, To: e.Target})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Cycles returns the groups of packages that depend on each other, each
// group sorted and the list ordered by its first member
func (pg *PackageGraph) Cycles() ([][]string, error) {
	sccs, err := graph.StronglyConnectedComponents(pg.g)
	if err != nil {
		return nil, err
	}
	var cycles [][]string
	for _, c := range sccs {
		if len(c) < 2 {
			continue
		}
		sort.Strings(c)
		cycles = append(cycles, c)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles, nil
}
