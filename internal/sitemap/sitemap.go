// Package sitemap reads the navigation structure of a root map: the maps it
// pulls in, the flat list of navigable items and their nesting.
package sitemap

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/beevik/etree"

	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/store"
	"github.com/ditaref/ditaref/internal/xquery"
)

// Node is one navigable item of a map.
type Node struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Target       string `json:"target,omitempty"`
	ResourceOnly bool   `json:"resourceOnly"`
}

// TreeNode is a Node placed in the hierarchy.
type TreeNode struct {
	Node
	Children []*TreeNode `json:"children,omitempty"`
}

// StructuralError reports a map structure the hierarchy cannot be built from.
type StructuralError struct {
	Map    string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("sitemap %s: %s", e.Map, e.Reason)
}

// Sitemap is the navigation structure below one root map. Results are
// memoized; pass refresh to re-read the map documents.
type Sitemap struct {
	store *store.Store
	root  string

	mu    sync.Mutex
	maps  []string
	nodes []Node
}

// New creates a sitemap for the map stored under root.
func New(st *store.Store, root string) *Sitemap {
	return &Sitemap{store: st, root: refpath.Normalize(root)}
}

// Root returns the key of the root map.
func (s *Sitemap) Root() string {
	return s.root
}

// Maps returns the root map and every map it reaches through mapref, in
// visitation order. Newly found maps are queued in front of the ones already
// waiting and each map is visited once.
func (s *Sitemap) Maps(ctx context.Context, refresh bool) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapsLocked(ctx, refresh)
}

func (s *Sitemap) mapsLocked(ctx context.Context, refresh bool) ([]string, error) {
	if s.maps != nil && !refresh {
		return slices.Clone(s.maps), nil
	}
	s.maps = nil
	s.nodes = nil

	var visited []string
	queue := []string{s.root}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		visited = append(visited, key)

		if refresh {
			s.store.Bust(key)
		}
		doc, err := s.store.Tree(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load map %s: %w", key, err)
		}
		refs, err := s.store.Engine().Find(&doc.Element, "//mapref[@href]")
		if err != nil {
			return nil, err
		}

		var found []string
		for _, ref := range refs {
			next := refpath.ResolveDocument(key, ref.SelectAttrValue("href", ""))
			if next == "" || refpath.IsExternal(next) {
				continue
			}
			if slices.Contains(visited, next) || slices.Contains(queue, next) || slices.Contains(found, next) {
				continue
			}
			found = append(found, next)
		}
		queue = append(found, queue...)
	}

	s.maps = visited
	return slices.Clone(visited), nil
}

// Nodes returns every topicref and topichead of every map, map by map in
// Maps order. Duplicate ids are kept; lookups use the first one.
func (s *Sitemap) Nodes(ctx context.Context, refresh bool) ([]Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nodesLocked(ctx, refresh)
}

func (s *Sitemap) nodesLocked(ctx context.Context, refresh bool) ([]Node, error) {
	if s.nodes != nil && !refresh {
		return slices.Clone(s.nodes), nil
	}
	maps, err := s.mapsLocked(ctx, refresh)
	if err != nil {
		return nil, err
	}

	nodes := make([]Node, 0, 64)
	for _, key := range maps {
		doc, err := s.store.Tree(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to load map %s: %w", key, err)
		}
		items, err := s.extract(key, doc)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, items...)
	}

	s.nodes = nodes
	return slices.Clone(nodes), nil
}

func (s *Sitemap) extract(key string, doc *etree.Document) ([]Node, error) {
	engine := s.store.Engine()
	elements := xquery.Select(doc.Root(), xquery.ByTag("topicref", "topichead"))
	items := make([]Node, 0, len(elements))
	for _, el := range elements {
		node := Node{
			ID:           el.SelectAttrValue("id", ""),
			ResourceOnly: el.SelectAttrValue("processing-role", "") == "resource-only",
		}
		navtitle, err := engine.FindOne(el, "topicmeta/navtitle")
		if err != nil {
			return nil, err
		}
		node.Title = xquery.StringValue(navtitle)
		if href := el.SelectAttrValue("href", ""); href != "" {
			node.Target = refpath.Resolve(key, href)
		}
		items = append(items, node)
	}
	return items, nil
}

// Targets returns the set of documents the navigation points at.
func (s *Sitemap) Targets(ctx context.Context) (map[string]bool, error) {
	nodes, err := s.Nodes(ctx, false)
	if err != nil {
		return nil, err
	}
	targets := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if node.Target == "" || refpath.IsExternal(node.Target) {
			continue
		}
		doc, _ := refpath.Split(node.Target)
		targets[doc] = true
	}
	return targets, nil
}
