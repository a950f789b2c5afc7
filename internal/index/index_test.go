package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/parser"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

var quiet = utils.ProgressOptions{Quiet: true}

func writeSources(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	root := t.TempDir()
	var paths []string
	for rel, src := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(src), 0644))
		paths = append(paths, p)
	}
	return root, paths
}

var shopSources = map[string]string{
	"src/com/acme/shop/OrderService.java": `package com.acme.shop;
import com.acme.repo.OrderRepository;
import org.slf4j.Logger;
public class OrderService {
    private final OrderRepository repo;
    public void place(Order o) { repo.store(o); }
}`,
	"src/com/acme/shop/Order.java": `package com.acme.shop;
public class Order { private long id; }`,
	"src/com/acme/repo/OrderRepository.java": `package com.acme.repo;
import com.acme.shop.Order;
public interface OrderRepository { void store(Order o); }`,
	"src/com/acme/Broken.java": `package com.acme;
public class Broken { void x( { }`,
}

func buildReal(t *testing.T, files map[string]string, workers int) (*BuildResult, string) {
	t.Helper()
	root, paths := writeSources(t, files)
	b := NewBuilder(BuilderOptions{
		Parser:   parser.New(parser.Options{}),
		Workers:  workers,
		Progress: quiet,
	})
	res, err := b.Build(context.Background(), "shop", root, paths)
	require.NoError(t, err)
	return res, root
}

func TestBuild_OneRecordPerClassAndSkipsMalformed(t *testing.T) {
	res, _ := buildReal(t, shopSources, 4)

	assert.Equal(t, 1, res.Failed())
	var perr *domain.ParseError
	require.ErrorAs(t, res.ParseErrors.Errors[0], &perr)
	assert.Equal(t, "src/com/acme/Broken.java", perr.File)

	ix := res.Index
	assert.Len(t, ix.Files, 3)
	assert.Equal(t, []string{
		"com.acme.repo.OrderRepository",
		"com.acme.shop.Order",
		"com.acme.shop.OrderService",
	}, ix.SortedClassNames())

	svc := ix.Classes["com.acme.shop.OrderService"]
	require.Len(t, svc.Calls, 1)
	assert.Equal(t, "store", svc.Calls[0].CalleeMethod)
	assert.Equal(t, "src/com/acme/shop/OrderService.java", svc.File)
}

func TestBuild_Deterministic(t *testing.T) {
	first, _ := buildReal(t, shopSources, 1)
	second, _ := buildReal(t, shopSources, 8)

	assert.Equal(t, first.Index.Files, second.Index.Files)
	assert.Equal(t, first.Index.Classes, second.Index.Classes)

	dir1, dir2 := t.TempDir(), t.TempDir()
	p1, err := NewStore(StoreOptions{Directory: dir1}).Save(first.Index)
	require.NoError(t, err)
	p2, err := NewStore(StoreOptions{Directory: dir2}).Save(second.Index)
	require.NoError(t, err)

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, string(b1), string(b2))
}

func TestBuild_DuplicateClassLastWriteWins(t *testing.T) {
	res, _ := buildReal(t, map[string]string{
		"a/Util.java": "package com.acme; public class Util { void first() {} }",
		"b/Util.java": "package com.acme; public class Util { void second() {} }",
	}, 2)

	ix := res.Index
	assert.Equal(t, 1, ix.Duplicates)
	require.Contains(t, ix.Classes, "com.acme.Util")
	util := ix.Classes["com.acme.Util"]
	assert.Equal(t, "b/Util.java", util.File)
	assert.Equal(t, "second", util.Methods[0].Name)
}

type stubParser struct {
	records map[string]*domain.FileRecord
	errs    map[string]error
}

func (s *stubParser) ParseFile(_ context.Context, path, root string) (*domain.FileRecord, error) {
	rel := utils.RelSlash(root, path)
	if err, ok := s.errs[rel]; ok {
		return nil, err
	}
	return s.records[rel], nil
}

func TestBuild_WrapsForeignErrors(t *testing.T) {
	p := &stubParser{
		records: map[string]*domain.FileRecord{"A.java": {Path: "A.java", Classes: []domain.ClassInfo{{Name: "A"}}}},
		errs:    map[string]error{"B.java": errors.New("disk on fire")},
	}
	root := t.TempDir()
	b := NewBuilder(BuilderOptions{Parser: p, Workers: 2, Progress: quiet})

	res, err := b.Build(context.Background(), "x", root, []string{filepath.Join(root, "B.java"), filepath.Join(root, "A.java")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed())

	var perr *domain.ParseError
	require.ErrorAs(t, res.ParseErrors, &perr)
	assert.Equal(t, "B.java", perr.File)
	assert.Contains(t, res.Index.Classes, "A")
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(BuilderOptions{Parser: &stubParser{}, Progress: quiet})
	_, err := b.Build(ctx, "x", "/tmp", []string{"/tmp/A.java"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_SaveLoad(t *testing.T) {
	res, _ := buildReal(t, shopSources, 2)
	store := NewStore(StoreOptions{Directory: filepath.Join(t.TempDir(), "code_index")})

	path, err := store.Save(res.Index)
	require.NoError(t, err)
	assert.Equal(t, "index.json", filepath.Base(path))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, res.Index.Files, loaded.Files)
	assert.Equal(t, res.Index.Classes, loaded.Classes)
	assert.Equal(t, "shop", loaded.Source)
}

func TestStore_LoadMissing(t *testing.T) {
	ix, err := NewStore(StoreOptions{Directory: t.TempDir()}).Load()
	require.NoError(t, err)
	assert.True(t, ix.IsEmpty())
}

func TestStore_LoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("{oops"), 0644))

	_, err := NewStore(StoreOptions{Directory: dir}).Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte(`{"version": 99}`), 0644))
	_, err = NewStore(StoreOptions{Directory: dir}).Load()
	assert.ErrorIs(t, err, domain.ErrIndexCorrupted)
}

func TestStore_ExportYAML(t *testing.T) {
	res, _ := buildReal(t, shopSources, 2)
	store := NewStore(StoreOptions{Directory: t.TempDir()})

	path, err := store.ExportYAML(res.Index)
	require.NoError(t, err)
	assert.Equal(t, "index.yaml", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "src/com/acme/shop/OrderService.java:")
	assert.Contains(t, string(data), "caller_class: OrderService")
}

func TestPackageGraph(t *testing.T) {
	ix := domain.NewCodeIndex("x")
	add := func(path, pkg string, deps ...string) {
		ix.Files[path] = &domain.FileRecord{Path: path, Package: pkg, Dependencies: deps}
	}
	add("a/A.java", "com.a", "com.b.B", "org.slf4j.Logger", "com.a.Other")
	add("b/B.java", "com.b", "com.c.C")
	add("c/C.java", "com.c", "com.a.A", "org.apache.kafka.Producer")
	add("D.java", "")

	pg, err := BuildPackageGraph(ix, []string{"org.slf4j"})
	require.NoError(t, err)

	assert.Equal(t, []string{"com.a", "com.b", "com.c", "default", "org.apache.kafka"}, pg.Packages())
	assert.Equal(t, []PackageEdge{
		{From: "com.a", To: "com.b"},
		{From: "com.b", To: "com.c"},
		{From: "com.c", To: "com.a"},
		{From: "com.c", To: "org.apache.kafka"},
	}, pg.Edges())
	assert.True(t, pg.IsInternal("com.a"))
	assert.False(t, pg.IsInternal("org.apache.kafka"))

	cycles, err := pg.Cycles()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"com.a", "com.b", "com.c"}}, cycles)
}

func TestExcludedAndImportPackage(t *testing.T) {
	assert.True(t, Excluded("org.junit.Test", []string{"junit", "org.junit"}))
	assert.False(t, Excluded("com.acme.X", []string{"org."}))
	assert.Equal(t, "a.b", ImportPackage("a.b.C"))
	assert.Equal(t, "", ImportPackage("C"))
}

func TestResolver(t *testing.T) {
	ix := domain.NewCodeIndex("shop")
	for _, full := range []string{"com.acme.shop.Order", "com.acme.repo.OrderRepository", "com.acme.util.Clock"} {
		pkg, name := full[:strings.LastIndex(full, ".")], full[strings.LastIndex(full, ".")+1:]
		ix.Classes[full] = &domain.ClassRecord{ClassInfo: domain.ClassInfo{Name: name, Package: pkg}}
	}
	rec := &domain.FileRecord{
		Package:      "com.acme.shop",
		Dependencies: []string{"com.acme.repo.OrderRepository", "com.acme.util.*"},
	}
	r := NewResolver(ix, rec, nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"same package", "Order", "com.acme.shop.Order"},
		{"generic and array", "List<Order>[]", ""},
		{"single type import", "OrderRepository", "com.acme.repo.OrderRepository"},
		{"wildcard import not followed", "Clock", ""},
		{"qualified", "com.acme.util.Clock", "com.acme.util.Clock"},
		{"qualified unknown", "com.other.Clock", ""},
		{"builtin", "String", ""},
		{"unknown", "Invoice", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve("com.acme.shop", tt.in))
		})
	}

	t.Run("custom known set", func(t *testing.T) {
		r := NewResolver(ix, rec, func(name string) bool { return name == "com.acme.shop.Order" })
		assert.Equal(t, "com.acme.shop.Order", r.Resolve("com.acme.shop", "Order"))
		assert.Empty(t, r.Resolve("com.acme.shop", "OrderRepository"))
	})
}

func TestBaseType(t *testing.T) {
	assert.Equal(t, "Map", BaseType("Map<String, List<Order>>"))
	assert.Equal(t, "Order", BaseType(" Order[] "))
	assert.True(t, IsBuiltin("int[]"))
	assert.False(t, IsBuiltin("Order"))
}
