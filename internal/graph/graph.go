// Package graph holds the reference graph between project documents.
package graph

import (
	"cmp"
	"slices"

	"github.com/ditaref/ditaref/internal/fileutil"
)

// Node is a document in the reference graph.
type Node struct {
	ID       string   // document key
	OutEdges []string // documents this one references
	InEdges  []string // documents referencing this one
	Dangling []string // referenced keys that are not project documents
	PageRank float64
}

// Graph is the document reference graph of a project.
type Graph struct {
	Nodes map[string]*Node
}

// NewGraph creates a new empty graph
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// Build creates the graph from each document's outbound targets. Every key of
// outbound becomes a node; targets outside that set are recorded as dangling.
func Build(outbound map[string][]string) *Graph {
	g := NewGraph()
	for key := range outbound {
		g.Nodes[key] = &Node{ID: key}
	}

	for key, targets := range outbound {
		src := g.Nodes[key]
		for _, target := range targets {
			if target == key {
				continue
			}
			dst, ok := g.Nodes[target]
			if !ok {
				src.Dangling = append(src.Dangling, target)
				continue
			}
			src.OutEdges = append(src.OutEdges, target)
			dst.InEdges = append(dst.InEdges, key)
		}
	}

	g.normalizeEdges()
	g.calculatePageRank(20, 0.85)
	return g
}

// calculatePageRank scores documents by how they are referenced. Documents
// without outbound edges spread their rank evenly so the total stays 1.
func (g *Graph) calculatePageRank(iterations int, damping float64) {
	keys := g.Keys()
	count := len(keys)
	if count == 0 {
		return
	}
	index := make(map[string]int, count)
	for i, key := range keys {
		index[key] = i
	}

	n := float64(count)
	ranks := make([]float64, count)
	for i := range ranks {
		ranks[i] = 1 / n
	}
	next := make([]float64, count)
	for range iterations {
		sink := 0.0
		for i, key := range keys {
			if len(g.Nodes[key].OutEdges) == 0 {
				sink += ranks[i]
			}
		}
		base := (1-damping)/n + damping*sink/n
		for i, key := range keys {
			rank := base
			for _, referrer := range g.Nodes[key].InEdges {
				from := index[referrer]
				rank += damping * ranks[from] / float64(len(g.Nodes[referrer].OutEdges))
			}
			next[i] = rank
		}
		ranks, next = next, ranks
	}
	for i, key := range keys {
		g.Nodes[key].PageRank = ranks[i]
	}
}

// TopNodes returns up to n referenced documents, highest rank first.
func (g *Graph) TopNodes(n int) []*Node {
	var nodes []*Node
	for _, key := range g.Keys() {
		if node := g.Nodes[key]; len(node.InEdges) > 0 {
			nodes = append(nodes, node)
		}
	}
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return cmp.Compare(b.PageRank, a.PageRank)
	})
	return nodes[:min(max(n, 0), len(nodes))]
}

// Referrers returns the documents referencing key.
func (g *Graph) Referrers(key string) []string {
	node, ok := g.Nodes[key]
	if !ok {
		return nil
	}
	return node.InEdges
}

// Keys returns every document in sorted order.
func (g *Graph) Keys() []string {
	return fileutil.SortedKeys(g.Nodes)
}

func (g *Graph) normalizeEdges() {
	for _, node := range g.Nodes {
		node.OutEdges = sortedSet(node.OutEdges)
		node.InEdges = sortedSet(node.InEdges)
		node.Dangling = sortedSet(node.Dangling)
	}
}

func sortedSet(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := fileutil.DedupeStrings(values)
	slices.Sort(out)
	return out
}
