// Package xquery is the document query-and-update engine: it parses and
// serializes XML trees, evaluates read-only path expressions against them and
// turns update expressions into pending change lists that take effect only
// when applied.
package xquery

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultPathCacheSize = 256

// Engine evaluates path and update expressions. Compiled paths are kept in a
// bounded LRU cache.
type Engine struct {
	paths *lru.Cache[string, etree.Path]
}

// NewEngine creates an engine with the default path cache size.
func NewEngine() *Engine {
	engine, err := NewEngineWithCacheSize(defaultPathCacheSize)
	if err != nil {
		panic(err)
	}
	return engine
}

// NewEngineWithCacheSize creates an engine caching at most size compiled paths.
func NewEngineWithCacheSize(size int) (*Engine, error) {
	cache, err := lru.New[string, etree.Path](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create path cache: %w", err)
	}
	return &Engine{paths: cache}, nil
}

// Parse reads text into a tree.
func (e *Engine) Parse(text string) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromString(text); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}
	return doc, nil
}

// Serialize writes a tree back to well-formed text.
func (e *Engine) Serialize(doc *etree.Document) (string, error) {
	if doc == nil {
		return "", errors.New("cannot serialize a nil document")
	}
	return doc.WriteToString()
}

// Find evaluates a path expression relative to node.
func (e *Engine) Find(node *etree.Element, expr string) ([]*etree.Element, error) {
	p, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	return node.FindElementsPath(p), nil
}

// FindOne returns the first element expr selects, or nil.
func (e *Engine) FindOne(node *etree.Element, expr string) (*etree.Element, error) {
	p, err := e.compile(expr)
	if err != nil {
		return nil, err
	}
	return node.FindElementPath(p), nil
}

// Has reports whether expr selects anything relative to node.
func (e *Engine) Has(node *etree.Element, expr string) (bool, error) {
	found, err := e.FindOne(node, expr)
	if err != nil {
		return false, err
	}
	return found != nil, nil
}

// Evaluate runs an update expression against doc. Nothing is modified until
// the returned list is applied.
func (e *Engine) Evaluate(doc *etree.Document, update Update) (*PendingList, error) {
	if doc == nil {
		return nil, errors.New("cannot evaluate an update against a nil document")
	}
	changes, err := update.Pending(doc)
	if err != nil {
		return nil, err
	}
	return &PendingList{changes: changes}, nil
}

func (e *Engine) compile(expr string) (etree.Path, error) {
	if p, ok := e.paths.Get(expr); ok {
		return p, nil
	}
	p, err := etree.CompilePath(expr)
	if err != nil {
		return etree.Path{}, fmt.Errorf("invalid path expression %q: %w", expr, err)
	}
	e.paths.Add(expr, p)
	return p, nil
}
