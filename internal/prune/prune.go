// Package prune reports documents that look obsolete: nothing references
// them, or only the navigation does, or only topics do. It never modifies
// anything.
package prune

import (
	"context"
	"fmt"
	"slices"

	"github.com/beevik/etree"
	"golang.org/x/sync/errgroup"

	"github.com/ditaref/ditaref/internal/fileutil"
	"github.com/ditaref/ditaref/internal/graph"
	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/sitemap"
	"github.com/ditaref/ditaref/internal/store"
	"github.com/ditaref/ditaref/internal/xquery"
)

// Bucket is a prune classification. The rules are provisional.
type Bucket string

const (
	Unreferenced   Bucket = "unreferenced"
	Orphaned       Bucket = "orphaned"
	NavigationOnly Bucket = "navigation-only"
	Referenced     Bucket = "referenced"
)

// Buckets lists every bucket in report order.
var Buckets = []Bucket{Unreferenced, Orphaned, NavigationOnly, Referenced}

const (
	defaultConcurrency = 8
	defaultTop         = 10
)

type Options struct {
	// Sitemap enables the orphaned and navigation-only buckets.
	Sitemap     *sitemap.Sitemap
	Concurrency int
	// Top is how many documents to list by reference rank.
	Top int
}

type Document struct {
	Key       string   `json:"key"`
	Bucket    Bucket   `json:"bucket"`
	Referrers []string `json:"referrers,omitempty"`
}

type Ranked struct {
	Key       string  `json:"key"`
	Rank      float64 `json:"rank"`
	Referrers int     `json:"referrers"`
}

type Report struct {
	Documents []Document     `json:"documents"`
	Counts    map[Bucket]int `json:"counts"`
	Top       []Ranked       `json:"top,omitempty"`
}

// In returns the documents of one bucket.
func (r *Report) In(bucket Bucket) []string {
	var out []string
	for _, doc := range r.Documents {
		if doc.Bucket == bucket {
			out = append(out, doc.Key)
		}
	}
	return out
}

// Classify sorts every known document into a bucket by who references it.
func Classify(ctx context.Context, st *store.Store, opts Options) (*Report, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Top <= 0 {
		opts.Top = defaultTop
	}

	var maps map[string]bool
	if opts.Sitemap != nil {
		keys, err := opts.Sitemap.Maps(ctx, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read root map: %w", err)
		}
		maps = fileutil.ToSet(keys)
	}

	outbound, err := Collect(ctx, st, opts.Concurrency)
	if err != nil {
		return nil, err
	}
	g := graph.Build(outbound)

	report := &Report{Counts: make(map[Bucket]int, len(Buckets))}
	for _, key := range g.Keys() {
		referrers := g.Referrers(key)
		bucket := classify(referrers, maps)
		report.Counts[bucket]++
		report.Documents = append(report.Documents, Document{Key: key, Bucket: bucket, Referrers: referrers})
	}
	for _, node := range g.TopNodes(opts.Top) {
		report.Top = append(report.Top, Ranked{Key: node.ID, Rank: node.PageRank, Referrers: len(node.InEdges)})
	}
	return report, nil
}

func classify(referrers []string, maps map[string]bool) Bucket {
	if len(referrers) == 0 {
		return Unreferenced
	}
	if maps == nil {
		return Referenced
	}
	fromMaps := 0
	for _, referrer := range referrers {
		if maps[referrer] {
			fromMaps++
		}
	}
	switch fromMaps {
	case 0:
		return Orphaned
	case len(referrers):
		return NavigationOnly
	default:
		return Referenced
	}
}

// Collect loads every known document concurrently and returns its
// deduplicated, sorted, fragment-free href targets.
func Collect(ctx context.Context, st *store.Store, concurrency int) (map[string][]string, error) {
	keys := st.Keys()
	targets := make([][]string, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, key := range keys {
		g.Go(func() error {
			doc, err := st.Tree(gctx, key)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", key, err)
			}
			targets[i] = hrefTargets(doc, key)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(keys))
	for i, key := range keys {
		out[key] = targets[i]
	}
	return out, nil
}

func hrefTargets(doc *etree.Document, referrer string) []string {
	var out []string
	xquery.Walk(doc.Root(), func(el *etree.Element) bool {
		href := el.SelectAttrValue("href", "")
		if href == "" || refpath.IsExternal(href) {
			return true
		}
		if target := refpath.ResolveDocument(referrer, href); target != "" {
			out = append(out, target)
		}
		return true
	})
	out = fileutil.DedupeStrings(out)
	slices.Sort(out)
	return out
}
