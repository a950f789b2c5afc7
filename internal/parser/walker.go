package parser

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
)

// scope is the lexical context of a node during the walk
type scope struct {
	// owner receives member declarations; nil inside anonymous class bodies
	owner *domain.ClassInfo
	// class is the innermost enclosing named type
	class string
	// super is the superclass of class, used to resolve super.m() calls
	super string
	// method is the innermost enclosing method or constructor
	method string
}

type walker struct {
	src     []byte
	rec     *domain.FileRecord
	classes []*domain.ClassInfo
}

func newWalker(src []byte, rec *domain.FileRecord) *walker {
	return &walker{src: src, rec: rec}
}

func (w *walker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(w.src)
}

func (w *walker) visit(n *sitter.Node, sc scope) {
	switch n.Type() {
	case "package_declaration":
		w.rec.Package = w.qualifiedChild(n)
		return
	case "import_declaration":
		w.addImport(n)
		return
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration":
		ci := w.declareType(n)
		sc = scope{owner: ci, class: ci.Name, super: ci.SuperClass}
	case "class_body":
		if p := n.Parent(); p != nil && p.Type() == "object_creation_expression" {
			sc.owner = nil
		}
	case "method_declaration":
		name := w.text(n.ChildByFieldName("name"))
		if sc.owner != nil {
			w.addMethod(n, sc.owner)
		}
		sc.method = name
	case "constructor_declaration", "compact_constructor_declaration":
		sc.method = w.text(n.ChildByFieldName("name"))
	case "field_declaration", "constant_declaration":
		if sc.owner != nil {
			w.addFields(n, sc.owner)
		}
	case "method_invocation":
		w.addCall(n, sc)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil {
			w.visit(c, sc)
		}
	}
}

// finish copies the collected types into the record in declaration order
func (w *walker) finish() {
	for _, ci := range w.classes {
		ci.Package = w.rec.Package
		ci.File = w.rec.Path
		for i := range ci.Methods {
			ci.Methods[i].Class = ci.Name
		}
		w.rec.Classes = append(w.rec.Classes, *ci)
	}
}

// qualifiedChild returns the dotted name of a package or import declaration
func (w *walker) qualifiedChild(n *sitter.Node) string {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "scoped_identifier", "identifier":
			return w.text(c)
		}
	}
	return ""
}

func (w *walker) addImport(n *sitter.Node) {
	path := w.qualifiedChild(n)
	if path == "" || strings.HasPrefix(path, "java.") {
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "asterisk" {
			path += ".*"
			break
		}
	}
	w.rec.Dependencies = append(w.rec.Dependencies, path)
}

func (w *walker) declareType(n *sitter.Node) *domain.ClassInfo {
	mods := w.modifiers(n)
	ci := &domain.ClassInfo{
		Name:     w.text(n.ChildByFieldName("name")),
		Abstract: mods["abstract"],
	}

	switch n.Type() {
	case "class_declaration":
		ci.Kind = domain.KindClass
		if sup := n.ChildByFieldName("superclass"); sup != nil && sup.NamedChildCount() > 0 {
			ci.SuperClass = stripGenerics(w.text(sup.NamedChild(0)))
		}
		ci.Interfaces = w.typeList(n.ChildByFieldName("interfaces"))
	case "interface_declaration":
		ci.Kind = domain.KindInterface
		ci.Abstract = true
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "extends_interfaces" {
				ci.Interfaces = w.typeList(c)
			}
		}
	case "enum_declaration":
		ci.Kind = domain.KindEnum
		ci.Interfaces = w.typeList(n.ChildByFieldName("interfaces"))
	case "record_declaration":
		ci.Kind = domain.KindRecord
		ci.Interfaces = w.typeList(n.ChildByFieldName("interfaces"))
		w.addRecordComponents(n.ChildByFieldName("parameters"), ci)
	}

	w.classes = append(w.classes, ci)
	return ci
}

// typeList collects the type names below a super_interfaces or
// extends_interfaces node
func (w *walker) typeList(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "type_list" {
			for j := 0; j < int(c.NamedChildCount()); j++ {
				out = append(out, stripGenerics(w.text(c.NamedChild(j))))
			}
		}
	}
	return out
}

// modifiers returns the keyword modifiers of a declaration
func (w *walker) modifiers(n *sitter.Node) map[string]bool {
	mods := make(map[string]bool)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(c.ChildCount()); j++ {
			mods[c.Child(j).Type()] = true
		}
	}
	return mods
}

func visibility(mods map[string]bool, inInterface bool) domain.Visibility {
	switch {
	case mods["public"]:
		return domain.VisibilityPublic
	case mods["protected"]:
		return domain.VisibilityProtected
	case mods["private"]:
		return domain.VisibilityPrivate
	case inInterface:
		return domain.VisibilityPublic
	default:
		return domain.VisibilityPackage
	}
}

func (w *walker) addMethod(n *sitter.Node, owner *domain.ClassInfo) {
	mods := w.modifiers(n)
	inInterface := owner.Kind == domain.KindInterface
	name := w.text(n.ChildByFieldName("name"))

	ret := "void"
	if t := n.ChildByFieldName("type"); t != nil {
		ret = w.text(t)
	}

	params := w.paramTypes(n.ChildByFieldName("parameters"))
	hasBody := n.ChildByFieldName("body") != nil

	m := domain.MethodInfo{
		Name:       name,
		Class:      owner.Name,
		Signature:  name + "(" + strings.Join(params, ", ") + ")",
		ReturnType: ret,
		Visibility: visibility(mods, inInterface),
		Static:     mods["static"],
		Abstract:   mods["abstract"] || (inInterface && !hasBody && !mods["static"] && !mods["default"]),
		ParamCount: len(params),
	}

	owner.Methods = append(owner.Methods, m)
	w.rec.Methods = append(w.rec.Methods, m)
}

// paramTypes returns the simple type names of a formal_parameters node
func (w *walker) paramTypes(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "formal_parameter":
			t := simpleTypeName(w.text(c.ChildByFieldName("type")))
			if d := c.ChildByFieldName("dimensions"); d != nil {
				t += w.text(d)
			}
			out = append(out, t)
		case "spread_parameter":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				tc := c.NamedChild(j)
				if tc.Type() == "modifiers" || tc.Type() == "variable_declarator" {
					continue
				}
				out = append(out, simpleTypeName(w.text(tc))+"...")
				break
			}
		}
	}
	return out
}

func (w *walker) addFields(n *sitter.Node, owner *domain.ClassInfo) {
	mods := w.modifiers(n)
	inInterface := owner.Kind == domain.KindInterface
	typ := w.text(n.ChildByFieldName("type"))

	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() != "variable_declarator" {
			continue
		}
		t := typ
		if dims := d.ChildByFieldName("dimensions"); dims != nil {
			t += w.text(dims)
		}
		owner.Fields = append(owner.Fields, domain.FieldInfo{
			Name:       w.text(d.ChildByFieldName("name")),
			Type:       t,
			Visibility: visibility(mods, inInterface),
			Final:      mods["final"] || inInterface,
			Static:     mods["static"] || inInterface,
		})
	}
}

// addRecordComponents turns record header parameters into private final fields
func (w *walker) addRecordComponents(n *sitter.Node, owner *domain.ClassInfo) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "formal_parameter" {
			continue
		}
		owner.Fields = append(owner.Fields, domain.FieldInfo{
			Name:       w.text(c.ChildByFieldName("name")),
			Type:       w.text(c.ChildByFieldName("type")),
			Visibility: domain.VisibilityPrivate,
			Final:      true,
		})
	}
}

func (w *walker) addCall(n *sitter.Node, sc scope) {
	caller := sc.class
	if caller == "" {
		caller = w.rec.BaseName()
	}
	method := sc.method
	if method == "" {
		method = domain.UnknownMethod
	}

	callee := caller
	if obj := n.ChildByFieldName("object"); obj != nil {
		callee = w.calleeClass(obj, caller, sc.super)
	}

	w.rec.CallGraph = append(w.rec.CallGraph, domain.CallInfo{
		CallerClass:  caller,
		CallerMethod: method,
		CalleeClass:  callee,
		CalleeMethod: w.text(n.ChildByFieldName("name")),
		Sequence:     len(w.rec.CallGraph) + 1,
	})
}

// calleeClass resolves the receiver of a qualified invocation. Plain names
// and field chains keep their text; receivers that are themselves
// expressions (chained calls, literals) are attributed to the caller.
func (w *walker) calleeClass(obj *sitter.Node, caller, super string) string {
	switch obj.Type() {
	case "identifier", "type_identifier", "scoped_identifier":
		return w.text(obj)
	case "field_access":
		return strings.TrimPrefix(w.text(obj), "this.")
	case "this":
		return caller
	case "super":
		if super != "" {
			return super
		}
		return caller
	case "object_creation_expression":
		if t := obj.ChildByFieldName("type"); t != nil {
			return stripGenerics(w.text(t))
		}
	}
	return caller
}

// stripGenerics removes every <...> section from a type name
func stripGenerics(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// simpleTypeName reduces a type to its unqualified raw name: java.util.List<String> -> List
func simpleTypeName(s string) string {
	s = stripGenerics(s)
	suffix := ""
	for strings.HasSuffix(s, "[]") {
		suffix += "[]"
		s = strings.TrimSpace(strings.TrimSuffix(s, "[]"))
	}
	if idx := strings.LastIndex(s, "."); idx >= 0 {
		s = s[idx+1:]
	}
	return s + suffix
}
