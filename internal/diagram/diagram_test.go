package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/index"
)

func fixture() *domain.CodeIndex {
	ix := domain.NewCodeIndex("shop")
	files := []*domain.FileRecord{
		{
			Path:    "src/com/acme/shop/OrderService.java",
			Package: "com.acme.shop",
			Classes: []domain.ClassInfo{{
				Name:       "OrderService",
				Kind:       domain.KindClass,
				SuperClass: "BaseService",
				Interfaces: []string{"Service"},
				Fields: []domain.FieldInfo{
					{Name: "repo", Type: "OrderRepository", Visibility: domain.VisibilityPrivate, Final: true},
					{Name: "orders", Type: "List<Order>", Visibility: domain.VisibilityPrivate},
					{Name: "current", Type: "Order", Visibility: domain.VisibilityPrivate},
					{Name: "log", Type: "Logger", Visibility: domain.VisibilityPrivate, Final: true},
					{Name: "count", Type: "int", Visibility: domain.VisibilityPrivate},
				},
				Methods: []domain.MethodInfo{
					{Name: "place", ReturnType: "void", Visibility: domain.VisibilityPublic, ParamCount: 1},
					{Name: "total", ReturnType: "long", Visibility: domain.VisibilityProtected},
				},
			}},
			Dependencies: []string{"com.acme.repo.OrderRepository", "org.slf4j.Logger", "org.apache.kafka.clients.Producer", "com.fasterxml.jackson.databind.ObjectMapper"},
			CallGraph: []domain.CallInfo{
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "repo", CalleeMethod: "store", Sequence: 1},
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "repo", CalleeMethod: "flush", Sequence: 2},
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "Order", CalleeMethod: "validate", Sequence: 3},
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "orders", CalleeMethod: "add", Sequence: 4},
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "OrderService", CalleeMethod: "getTotal", Sequence: 5},
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "java.util.Objects", CalleeMethod: "requireNonNull", Sequence: 6},
				{CallerClass: "OrderService", CallerMethod: "place", CalleeClass: "Order", CalleeMethod: "ToString", Sequence: 7},
			},
		},
		{
			Path:    "src/com/acme/shop/Order.java",
			Package: "com.acme.shop",
			Classes: []domain.ClassInfo{{
				Name: "Order", Kind: domain.KindClass,
				Fields: []domain.FieldInfo{{Name: "lines", Type: "OrderLine[]", Visibility: domain.VisibilityPrivate}},
			}},
		},
		{
			Path:    "src/com/acme/shop/OrderLine.java",
			Package: "com.acme.shop",
			Classes: []domain.ClassInfo{{Name: "OrderLine", Kind: domain.KindRecord}},
		},
		{
			Path:    "src/com/acme/shop/BaseService.java",
			Package: "com.acme.shop",
			Classes: []domain.ClassInfo{{Name: "BaseService", Kind: domain.KindClass, Abstract: true}},
		},
		{
			Path:         "src/com/acme/shop/Service.java",
			Package:      "com.acme.shop",
			Classes:      []domain.ClassInfo{{Name: "Service", Kind: domain.KindInterface}},
			Dependencies: []string{"com.acme.shop.Order.Status"},
		},
		{
			Path:         "src/com/acme/repo/OrderRepository.java",
			Package:      "com.acme.repo",
			Classes:      []domain.ClassInfo{{Name: "OrderRepository", Kind: domain.KindInterface}},
			Dependencies: []string{"com.acme.shop.Order", "org.apache.kafka.common.Serde"},
			CallGraph: []domain.CallInfo{
				{CallerClass: "OrderRepository", CallerMethod: "store", CalleeClass: "Order", CalleeMethod: "validate", Sequence: 1},
			},
		},
		{
			Path:    "Main.java",
			Classes: []domain.ClassInfo{{Name: "Main", Kind: domain.KindClass}},
		},
	}
	for _, f := range files {
		for i := range f.Classes {
			f.Classes[i].Package = f.Package
			f.Classes[i].File = f.Path
		}
		index.Add(ix, f, nil)
	}
	return ix
}

func build(t *testing.T, kind Kind, opts Options) *Diagram {
	t.Helper()
	d, err := Build(kind, fixture(), opts)
	require.NoError(t, err)
	require.Equal(t, kind, d.Kind)
	return d
}

func edgePairs(d *Diagram) [][2]string {
	var out [][2]string
	for _, e := range d.Edges {
		out = append(out, [2]string{e.From, e.To})
	}
	return out
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(" " + string(k) + " ")
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("deployment")
	assert.ErrorIs(t, err, domain.ErrUnknownDiagram)

	_, err = Build(Kind("deployment"), fixture(), Options{})
	assert.ErrorIs(t, err, domain.ErrUnknownDiagram)
	assert.Equal(t, "sequence_diagram", KindSequence.FileBase())
}

func TestClass_NodesAndRelations(t *testing.T) {
	d := build(t, KindClass, Options{})

	assert.Equal(t, []string{
		"Main",
		"com.acme.repo.OrderRepository",
		"com.acme.shop.BaseService",
		"com.acme.shop.Order",
		"com.acme.shop.OrderLine",
		"com.acme.shop.OrderService",
		"com.acme.shop.Service",
	}, d.NodeIDs())
	assert.NotEmpty(t, d.Legend)

	rel := func(r Relation) [][2]string {
		var out [][2]string
		for _, e := range d.Edges {
			if RelationOf(e) == r {
				out = append(out, [2]string{e.From, e.To})
			}
		}
		return out
	}

	assert.Equal(t, [][2]string{
		{"com.acme.shop.OrderService", "com.acme.shop.BaseService"},
		{"com.acme.shop.OrderService", "com.acme.shop.Service"},
	}, rel(RelInheritance))
	assert.Equal(t, [][2]string{{"com.acme.shop.OrderService", "com.acme.repo.OrderRepository"}}, rel(RelComposition))
	assert.Equal(t, [][2]string{
		{"com.acme.shop.Order", "com.acme.shop.OrderLine"},
		{"com.acme.shop.OrderService", "com.acme.shop.Order"},
	}, rel(RelAggregation))
	assert.Equal(t, [][2]string{{"com.acme.shop.OrderService", "com.acme.shop.Order"}}, rel(RelAssociation))
}

func TestClass_RecordLabel(t *testing.T) {
	d := build(t, KindClass, Options{})

	svc, ok := d.FindNode("com.acme.shop.OrderService")
	require.True(t, ok)
	require.NotNil(t, svc.Record)
	assert.Equal(t, []string{"OrderService"}, svc.Record.Header)
	assert.Equal(t, []string{
		"- repo: OrderRepository",
		"- orders: List<Order>",
		"- current: Order",
		"- log: Logger",
		"- count: int",
	}, svc.Record.Sections[0])
	assert.Equal(t, []string{"+ place(1 params): void", "# total(): long"}, svc.Record.Sections[1])
	assert.Equal(t, colorClass, svc.Attrs["fillcolor"])

	iface, _ := d.FindNode("com.acme.shop.Service")
	assert.Equal(t, []string{"<<interface>>", "Service"}, iface.Record.Header)
	assert.Equal(t, colorInterface, iface.Attrs["fillcolor"])

	base, _ := d.FindNode("com.acme.shop.BaseService")
	assert.Equal(t, colorAbstract, base.Attrs["fillcolor"])
}

func TestClass_Truncation(t *testing.T) {
	var fields []domain.FieldInfo
	var methods []domain.MethodInfo
	for i := 0; i < 12; i++ {
		fields = append(fields, domain.FieldInfo{Name: "f", Type: "int"})
		methods = append(methods, domain.MethodInfo{Name: "m"})
	}
	f := fieldLines(fields)
	m := methodLines(methods)
	assert.Len(t, f, maxFields+1)
	assert.Equal(t, "...", f[maxFields])
	assert.Len(t, m, maxMethods+1)
	assert.Equal(t, "~ m(): void", m[0])
}

func TestClass_AssociationCap(t *testing.T) {
	ix := domain.NewCodeIndex("x")
	hub := domain.ClassInfo{Name: "Hub", Package: "p", File: "p/Hub.java"}
	add := func(c domain.ClassInfo) {
		index.Add(ix, &domain.FileRecord{Path: c.File, Package: "p", Classes: []domain.ClassInfo{c}}, nil)
	}
	for _, n := range []string{"A", "B", "C", "D"} {
		hub.Fields = append(hub.Fields, domain.FieldInfo{Name: "x" + n, Type: n})
		add(domain.ClassInfo{Name: n, Package: "p", File: "p/" + n + ".java"})
	}
	add(hub)

	d, err := Build(KindClass, ix, Options{MaxAssociations: 2})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"p.Hub", "p.A"}, {"p.Hub", "p.B"}}, edgePairs(d))
}

func TestClass_ExcludedClasses(t *testing.T) {
	d := build(t, KindClass, Options{Exclude: []string{"com.acme.repo"}})
	_, ok := d.FindNode("com.acme.repo.OrderRepository")
	assert.False(t, ok)
	for _, e := range d.Edges {
		assert.NotEqual(t, "com.acme.repo.OrderRepository", e.To)
	}
}

func TestComponent(t *testing.T) {
	d := build(t, KindComponent, Options{})

	require.Len(t, d.Clusters, 3)
	assert.Equal(t, "Package: com.acme.repo", d.Clusters[0].Label)
	assert.Equal(t, "Package: com.acme.shop", d.Clusters[1].Label)
	assert.Equal(t, "Package: default", d.Clusters[2].Label)

	n, ok := d.FindNode("com.acme.shop.Order")
	require.True(t, ok)
	assert.Equal(t, "[Component]\nOrder", n.Label)

	assert.Equal(t, [][2]string{
		{"com.acme.repo.OrderRepository", "com.acme.shop.Order"},
		{"com.acme.shop.OrderService", "com.acme.repo.OrderRepository"},
	}, edgePairs(d))
	for _, e := range d.Edges {
		assert.Equal(t, "uses", e.Label)
	}
}

func TestComponent_UnqualifiedImportResolvesToSamePackage(t *testing.T) {
	ix := domain.NewCodeIndex("x")
	index.Add(ix, &domain.FileRecord{Path: "A.java", Package: "p",
		Classes: []domain.ClassInfo{{Name: "A", Package: "p"}}, Dependencies: []string{"B", "A"}}, nil)
	index.Add(ix, &domain.FileRecord{Path: "B.java", Package: "p",
		Classes: []domain.ClassInfo{{Name: "B", Package: "p"}}}, nil)

	d, err := Build(KindComponent, ix, Options{})
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"p.A", "p.B"}}, edgePairs(d))
}

func TestContainer(t *testing.T) {
	d := build(t, KindContainer, Options{})

	assert.Equal(t, []string{
		"com.acme.repo",
		"com.acme.shop",
		"com.fasterxml.jackson.databind",
		"default",
		"org.apache.kafka.clients",
		"org.apache.kafka.common",
	}, d.NodeIDs())

	shop, _ := d.FindNode("com.acme.shop")
	assert.Equal(t, "com.acme.shop (Package)", shop.Label)
	kafka, _ := d.FindNode("org.apache.kafka.common")
	assert.Equal(t, "org.apache.kafka.common (External)", kafka.Label)

	e, ok := d.FindEdge("com.acme.shop", "com.acme.repo")
	require.True(t, ok)
	assert.Equal(t, "depends on", e.Label)
	_, ok = d.FindEdge("com.acme.repo", "com.acme.shop")
	assert.True(t, ok)
	for _, e := range d.Edges {
		assert.NotEqual(t, e.From, e.To)
		assert.NotContains(t, e.To, "slf4j")
	}
}

func TestContext(t *testing.T) {
	d := build(t, KindContext, Options{SystemName: "shop"})

	sys, ok := d.FindNode(SystemNodeID)
	require.True(t, ok)
	assert.Equal(t, "shop\n[Software System]\n7 classes in 3 packages", sys.Label)

	assert.Equal(t, []string{"ext_com.fasterxml", "ext_org.apache", "system"}, d.NodeIDs())

	kafka, ok := d.FindEdge(SystemNodeID, "ext_org.apache")
	require.True(t, ok)
	assert.Equal(t, "uses (2 files)", kafka.Label)
	jackson, _ := d.FindEdge(SystemNodeID, "ext_com.fasterxml")
	assert.Equal(t, "uses (1 file)", jackson.Label)
}

func TestExternalGroup(t *testing.T) {
	assert.Equal(t, "org.apache", ExternalGroup("org.apache.kafka.clients"))
	assert.Equal(t, "io.grpc", ExternalGroup("io.grpc"))
	assert.Equal(t, "lib", ExternalGroup("lib"))
}

func TestSequence(t *testing.T) {
	d := build(t, KindSequence, Options{MaxLabelCalls: 1})

	assert.Equal(t, []string{"Order", "OrderRepository", "OrderService"}, d.NodeIDs())
	assert.Equal(t, [][2]string{
		{"OrderRepository", "Order"},
		{"OrderService", "Order"},
		{"OrderService", "OrderRepository"},
	}, edgePairs(d))

	single, _ := d.FindEdge("OrderService", "Order")
	assert.Equal(t, "place -> validate", single.Label)

	multi, _ := d.FindEdge("OrderService", "OrderRepository")
	assert.Equal(t, "2 calls", multi.Label)
	assert.Equal(t, "place -> store\n... 1 more", multi.Tooltip)
}

func TestSignificant(t *testing.T) {
	call := func(caller, cm, callee, ce string) domain.CallInfo {
		return domain.CallInfo{CallerClass: caller, CallerMethod: cm, CalleeClass: callee, CalleeMethod: ce}
	}
	exclude := []string{"java."}

	tests := []struct {
		name string
		call domain.CallInfo
		want bool
	}{
		{"plain", call("A", "run", "B", "process"), true},
		{"utility callee", call("A", "run", "B", "save"), false},
		{"utility case-insensitive", call("A", "run", "B", "IFPRESENT"), false},
		{"utility caller", call("A", "toString", "B", "process"), false},
		{"excluded callee", call("A", "run", "java.util.List", "process"), false},
		{"self getter", call("A", "run", "A", "getName"), false},
		{"self other", call("A", "run", "A", "process"), true},
		{"missing method", call("A", "", "B", "process"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Significant(tt.call, exclude))
		})
	}
}

func TestBuild_EmptyIndex(t *testing.T) {
	for _, k := range Kinds {
		d, err := Build(k, domain.NewCodeIndex(""), Options{})
		require.NoError(t, err)
		if k == KindContext {
			assert.Len(t, d.Nodes, 1)
			continue
		}
		assert.True(t, d.IsEmpty(), k)
	}
}

func TestTypeHelpers(t *testing.T) {
	assert.Equal(t, "Map", index.BaseType("Map<String, List<Order>>"))
	assert.Equal(t, "Order", index.BaseType("Order[]"))
	assert.Equal(t, []string{"String", "List<Order>"}, typeArgs("Map<String, List<Order>>"))
	assert.Equal(t, "List", elementType("Map<String, List<Order>>"))
	assert.Equal(t, "Order", elementType("Order[]"))
	assert.True(t, isCollection("java.util.Set<Order>"))
	assert.False(t, isCollection("Optional<Order>"))
}
