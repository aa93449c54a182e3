package sitemap

import (
	"context"
	"fmt"

	"github.com/beevik/etree"

	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/xquery"
)

// placement is one visible item of the flattened map structure.
type placement struct {
	index int
	depth int
}

type chain struct {
	key    string
	parent *chain
}

func (c *chain) contains(key string) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur.key == key {
			return true
		}
	}
	return false
}

type frame struct {
	el     *etree.Element
	mapKey string
	depth  int
	chain  *chain
}

var structural = xquery.ByTag("topicref", "topichead", "mapref")

// Tree returns the items of the root map nested the way the maps nest them.
func (s *Sitemap) Tree(ctx context.Context) ([]*TreeNode, error) {
	nodes, placements, err := s.flatten(ctx)
	if err != nil {
		return nil, err
	}

	var roots []*TreeNode
	var stack []*TreeNode
	for _, p := range placements {
		node := &TreeNode{Node: nodes[p.index]}
		stack = stack[:p.depth]
		if p.depth == 0 {
			roots = append(roots, node)
		} else {
			parent := stack[p.depth-1]
			parent.Children = append(parent.Children, node)
		}
		stack = append(stack, node)
	}
	return roots, nil
}

// Compressed returns the hierarchy with every item replaced by its index into
// Nodes. An index is followed by a nested list when the item has children.
func (s *Sitemap) Compressed(ctx context.Context) ([]any, error) {
	_, placements, err := s.flatten(ctx)
	if err != nil {
		return nil, err
	}

	levels := [][]any{{}}
	closeLevel := func() {
		last := levels[len(levels)-1]
		levels = levels[:len(levels)-1]
		parent := len(levels) - 1
		levels[parent] = append(levels[parent], last)
	}
	for _, p := range placements {
		for len(levels)-1 > p.depth {
			closeLevel()
		}
		if len(levels)-1 < p.depth {
			levels = append(levels, []any{})
		}
		levels[p.depth] = append(levels[p.depth], p.index)
	}
	for len(levels) > 1 {
		closeLevel()
	}
	return levels[0], nil
}

// Extract decodes a compressed hierarchy against the flat node list.
func Extract(compressed []any, nodes []Node) ([]*TreeNode, error) {
	var out []*TreeNode
	for i := 0; i < len(compressed); i++ {
		index, ok := asIndex(compressed[i])
		if !ok {
			return nil, fmt.Errorf("expected node index at position %d, got %T", i, compressed[i])
		}
		if index < 0 || index >= len(nodes) {
			return nil, fmt.Errorf("node index %d out of range", index)
		}
		node := &TreeNode{Node: nodes[index]}
		if i+1 < len(compressed) {
			if children, ok := compressed[i+1].([]any); ok {
				decoded, err := Extract(children, nodes)
				if err != nil {
					return nil, err
				}
				node.Children = decoded
				i++
			}
		}
		out = append(out, node)
	}
	return out, nil
}

func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		// JSON numbers
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// flatten walks the root map element by element, replacing each mapref with
// the root of the map it references. Map document elements are invisible and
// do not add a level.
func (s *Sitemap) flatten(ctx context.Context) ([]Node, []placement, error) {
	nodes, err := s.Nodes(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	index := make(map[string]int, len(nodes))
	for i, node := range nodes {
		if _, seen := index[node.ID]; !seen && node.ID != "" {
			index[node.ID] = i
		}
	}

	rootDoc, err := s.store.Tree(ctx, s.root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load map %s: %w", s.root, err)
	}

	var placements []placement
	stack := []frame{{el: rootDoc.Root(), mapKey: s.root, chain: &chain{key: s.root}}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.el.Tag == "mapref" {
			target := refpath.ResolveDocument(f.mapKey, f.el.SelectAttrValue("href", ""))
			if target == "" || refpath.IsExternal(target) {
				continue
			}
			if f.chain.contains(target) {
				return nil, nil, &StructuralError{Map: f.mapKey, Reason: fmt.Sprintf("mapref cycle through %s", target)}
			}
			doc, err := s.store.Tree(ctx, target)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to load map %s: %w", target, err)
			}
			stack = append(stack, frame{
				el:     doc.Root(),
				mapKey: target,
				depth:  f.depth,
				chain:  &chain{key: target, parent: f.chain},
			})
			continue
		}

		childDepth := f.depth
		if f.el.Tag == "topicref" || f.el.Tag == "topichead" {
			id := f.el.SelectAttrValue("id", "")
			if id == "" {
				return nil, nil, &StructuralError{Map: f.mapKey, Reason: fmt.Sprintf("<%s> at %s has no id", f.el.Tag, f.el.GetPath())}
			}
			i, ok := index[id]
			if !ok {
				return nil, nil, &StructuralError{Map: f.mapKey, Reason: fmt.Sprintf("node %q was not indexed before building the hierarchy", id)}
			}
			placements = append(placements, placement{index: i, depth: f.depth})
			childDepth++
		}

		children := f.el.ChildElements()
		for i := len(children) - 1; i >= 0; i-- {
			if !structural(children[i]) {
				continue
			}
			stack = append(stack, frame{el: children[i], mapKey: f.mapKey, depth: childDepth, chain: f.chain})
		}
	}
	return nodes, placements, nil
}
