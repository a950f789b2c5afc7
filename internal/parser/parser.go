package parser

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/quantmind-br/repodiagrams-go/internal/domain"
	"github.com/quantmind-br/repodiagrams-go/internal/utils"
)

// SchemaVersion changes whenever the shape of an extracted FileRecord
// changes, so cached records from older builds are not reused
const SchemaVersion = 3

// RecordCache stores parsed records by content hash
type RecordCache interface {
	GetRecord(ctx context.Context, hash string) (*domain.FileRecord, bool)
	PutRecord(ctx context.Context, hash string, rec *domain.FileRecord)
}

// Parser extracts structure from Java source files using tree-sitter
type Parser struct {
	logger *utils.Logger
	cache  RecordCache
}

// Options contains options for creating a Parser
type Options struct {
	Logger *utils.Logger
	// Cache is optional; nil parses every file
	Cache RecordCache
}

// New creates a new Parser
func New(opts Options) *Parser {
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}
	return &Parser{
		logger: opts.Logger.WithComponent("parse"),
		cache:  opts.Cache,
	}
}

// ParseFile parses the Java file at path. The record path is path relative
// to root with forward slashes.
func (p *Parser) ParseFile(ctx context.Context, path, root string) (*domain.FileRecord, error) {
	rel := utils.RelSlash(root, path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewParseError(rel, err)
	}

	hash := ContentHash(content)
	if p.cache != nil {
		if rec, ok := p.cache.GetRecord(ctx, hash); ok {
			// identical content may live at another path
			rec.Path = rel
			for i := range rec.Classes {
				rec.Classes[i].File = rel
			}
			p.logger.Debug().Str("file", rel).Msg("Cache hit")
			return rec, nil
		}
	}

	rec, err := p.ParseSource(ctx, rel, content)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		p.cache.PutRecord(ctx, hash, rec)
	}
	return rec, nil
}

// ParseSource parses Java source held in memory; rel names the file in the record
func (p *Parser) ParseSource(ctx context.Context, rel string, content []byte) (*domain.FileRecord, error) {
	src, enc, err := ToUTF8(content)
	if err != nil {
		return nil, domain.NewParseError(rel, fmt.Errorf("decode %s source: %w", enc, err))
	}
	if enc != "utf-8" {
		p.logger.Debug().Str("file", rel).Str("encoding", enc).Msg("Decoded non UTF-8 source")
	}

	// tree-sitter parsers are not safe for concurrent use
	ts := sitter.NewParser()
	defer ts.Close()
	ts.SetLanguage(java.GetLanguage())

	tree, err := ts.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, domain.NewParseError(rel, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, domain.NewParseError(rel, syntaxError(root))
	}

	rec := &domain.FileRecord{
		Path:         rel,
		Classes:      []domain.ClassInfo{},
		Methods:      []domain.MethodInfo{},
		Dependencies: []string{},
		CallGraph:    []domain.CallInfo{},
		ContentHash:  ContentHash(content),
	}

	w := newWalker(src, rec)
	w.visit(root, scope{})
	w.finish()

	return rec, nil
}

// ContentHash returns the hex sha256 of content
func ContentHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}

// syntaxError locates the first error or missing node below n
func syntaxError(n *sitter.Node) error {
	if bad := firstErrorNode(n); bad != nil {
		pt := bad.StartPoint()
		return fmt.Errorf("%w: syntax error at line %d, column %d", domain.ErrParseFailed, pt.Row+1, pt.Column+1)
	}
	return fmt.Errorf("%w: syntax error", domain.ErrParseFailed)
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.IsError() || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || !(c.HasError() || c.IsMissing()) {
			continue
		}
		if bad := firstErrorNode(c); bad != nil {
			return bad
		}
	}
	return nil
}
