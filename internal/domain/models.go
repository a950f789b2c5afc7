package domain

import (
	"path"
	"sort"
	"strings"
)

// DefaultPackage is the package name used for files without a package declaration
const DefaultPackage = "default"

// UnknownMethod is the caller method recorded for calls outside any method body
const UnknownMethod = "unknown"

// TypeKind classifies a Java type declaration
type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindInterface TypeKind = "interface"
	KindEnum      TypeKind = "enum"
	KindRecord    TypeKind = "record"
)

// Visibility is a Java access level
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityProtected Visibility = "protected"
	VisibilityPrivate   Visibility = "private"
	VisibilityPackage   Visibility = "package"
)

// Symbol returns the UML visibility marker
func (v Visibility) Symbol() string {
	switch v {
	case VisibilityPublic:
		return "+"
	case VisibilityProtected:
		return "#"
	case VisibilityPrivate:
		return "-"
	default:
		return "~"
	}
}

// MethodInfo describes a method declared inside a type
type MethodInfo struct {
	Name       string     `json:"name" yaml:"name"`
	Class      string     `json:"class" yaml:"class"`
	Signature  string     `json:"signature" yaml:"signature"`
	ReturnType string     `json:"return_type" yaml:"return_type"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
	Static     bool       `json:"static,omitempty" yaml:"static,omitempty"`
	Abstract   bool       `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	ParamCount int        `json:"param_count" yaml:"param_count"`
}

// FieldInfo describes a field declared inside a type
type FieldInfo struct {
	Name       string     `json:"name" yaml:"name"`
	Type       string     `json:"type" yaml:"type"`
	Visibility Visibility `json:"visibility" yaml:"visibility"`
	Final      bool       `json:"final,omitempty" yaml:"final,omitempty"`
	Static     bool       `json:"static,omitempty" yaml:"static,omitempty"`
}

// CallInfo is one observed method invocation
type CallInfo struct {
	CallerClass  string `json:"caller_class" yaml:"caller_class"`
	CallerMethod string `json:"caller_method" yaml:"caller_method"`
	CalleeClass  string `json:"callee_class" yaml:"callee_class"`
	CalleeMethod string `json:"callee_method" yaml:"callee_method"`
	Sequence     int    `json:"sequence" yaml:"sequence"`
}

// ClassInfo describes a type declaration
type ClassInfo struct {
	Name       string       `json:"name" yaml:"name"`
	Package    string       `json:"package" yaml:"package"`
	Kind       TypeKind     `json:"kind" yaml:"kind"`
	Abstract   bool         `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	SuperClass string       `json:"super_class,omitempty" yaml:"super_class,omitempty"`
	Interfaces []string     `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Fields     []FieldInfo  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Methods    []MethodInfo `json:"methods,omitempty" yaml:"methods,omitempty"`
	File       string       `json:"file" yaml:"file"`
}

// FullName returns the package-qualified class name
func (c *ClassInfo) FullName() string {
	return QualifiedName(c.Package, c.Name)
}

// IsInterface reports whether the type is an interface
func (c *ClassInfo) IsInterface() bool {
	return c.Kind == KindInterface
}

// FileRecord is everything extracted from one Java source file
type FileRecord struct {
	Path         string       `json:"path" yaml:"path"`
	Package      string       `json:"package" yaml:"package"`
	Classes      []ClassInfo  `json:"classes" yaml:"classes"`
	Methods      []MethodInfo `json:"methods" yaml:"methods"`
	Dependencies []string     `json:"dependencies" yaml:"dependencies"`
	CallGraph    []CallInfo   `json:"call_graph" yaml:"call_graph"`
	ContentHash  string       `json:"content_hash" yaml:"content_hash"`
}

// PackageOrDefault returns the declared package or DefaultPackage
func (f *FileRecord) PackageOrDefault() string {
	if f.Package == "" {
		return DefaultPackage
	}
	return f.Package
}

// ClassNames returns the simple names of the declared classes in source order
func (f *FileRecord) ClassNames() []string {
	names := make([]string, 0, len(f.Classes))
	for _, c := range f.Classes {
		names = append(names, c.Name)
	}
	return names
}

// BaseName returns the file name without the .java extension
func (f *FileRecord) BaseName() string {
	return strings.TrimSuffix(path.Base(f.Path), ".java")
}

// ClassRecord is a class entry of the code index: its declaration plus the
// call edges leaving it
type ClassRecord struct {
	ClassInfo
	Calls []CallInfo `json:"calls,omitempty" yaml:"calls,omitempty"`
}

// CodeIndex maps files and classes to their extracted structure
type CodeIndex struct {
	// Source names the analysed repository or directory
	Source string `json:"source" yaml:"source"`
	// Files is keyed by slash-separated path relative to the repository root
	Files map[string]*FileRecord `json:"files" yaml:"files"`
	// Classes is keyed by fully-qualified class name
	Classes map[string]*ClassRecord `json:"-" yaml:"-"`
	// Duplicates counts class names that were overwritten by a later file
	Duplicates int `json:"duplicates" yaml:"duplicates"`
}

// NewCodeIndex creates an empty index
func NewCodeIndex(source string) *CodeIndex {
	return &CodeIndex{
		Source:  source,
		Files:   make(map[string]*FileRecord),
		Classes: make(map[string]*ClassRecord),
	}
}

// IsEmpty reports whether the index holds no files
func (ix *CodeIndex) IsEmpty() bool {
	return ix == nil || len(ix.Files) == 0
}

// SortedPaths returns the file paths in lexical order
func (ix *CodeIndex) SortedPaths() []string {
	paths := make([]string, 0, len(ix.Files))
	for p := range ix.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SortedClassNames returns the fully-qualified class names in lexical order
func (ix *CodeIndex) SortedClassNames() []string {
	names := make([]string, 0, len(ix.Classes))
	for n := range ix.Classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Packages returns the distinct package names (DefaultPackage for none) in order
func (ix *CodeIndex) Packages() []string {
	seen := make(map[string]bool)
	var pkgs []string
	for _, f := range ix.Files {
		p := f.PackageOrDefault()
		if !seen[p] {
			seen[p] = true
			pkgs = append(pkgs, p)
		}
	}
	sort.Strings(pkgs)
	return pkgs
}

// HasPackage reports whether any indexed file declares pkg
func (ix *CodeIndex) HasPackage(pkg string) bool {
	for _, f := range ix.Files {
		if f.PackageOrDefault() == pkg {
			return true
		}
	}
	return false
}

// QualifiedName joins a package and a simple name
func QualifiedName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// SplitQualified splits a.b.C into ("a.b", "C"); unqualified names return ("", name)
func SplitQualified(name string) (pkg, simple string) {
	idx := strings.LastIndex(name, ".")
	if idx < 0 {
		return "", name
	}
	return name[:idx], name[idx+1:]
}

// SimpleName returns the last dot-separated segment
func SimpleName(name string) string {
	_, s := SplitQualified(name)
	return s
}

// ClassesInPackage returns the class records of pkg sorted by name
func (ix *CodeIndex) ClassesInPackage(pkg string) []*ClassRecord {
	var out []*ClassRecord
	for _, name := range ix.SortedClassNames() {
		c := ix.Classes[name]
		p := c.Package
		if p == "" {
			p = DefaultPackage
		}
		if p == pkg {
			out = append(out, c)
		}
	}
	return out
}
