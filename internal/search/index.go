// Package search orders document keys by how closely their paths resemble a
// path that could not be found. Path tokens are scored with BM25.
package search

import (
	"cmp"
	"math"
	"path"
	"regexp"
	"slices"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

const (
	nameWeight = 3
	dirWeight  = 1

	bm25K1 = 1.2
	bm25B  = 0.75
)

type posting struct {
	doc int
	tf  int
}

type document struct {
	key    string
	length int
}

// Index is an in-memory BM25 index over document keys.
type Index struct {
	docs     []document
	postings map[string][]posting
	avgLen   float64
}

type result struct {
	key   string
	score float64
}

// Build indexes keys by the tokens of their file name and, with less weight,
// their directory.
func Build(keys []string) *Index {
	keys = slices.Clone(keys)
	slices.Sort(keys)

	index := &Index{postings: make(map[string][]posting)}
	total := 0
	for _, key := range keys {
		dir, name := splitKey(key)
		terms := make(map[string]int)
		for _, token := range tokenize(name) {
			terms[token] += nameWeight
		}
		for _, token := range tokenize(dir) {
			terms[token] += dirWeight
		}
		id := len(index.docs)
		length := 0
		for term, tf := range terms {
			index.postings[term] = append(index.postings[term], posting{doc: id, tf: tf})
			length += tf
		}
		index.docs = append(index.docs, document{key: key, length: length})
		total += length
	}
	if len(index.docs) > 0 {
		index.avgLen = float64(total) / float64(len(index.docs))
	}
	return index
}

// Rank returns every indexed key, those sharing the most file name and
// directory tokens with query first. Ties are broken by key.
func (index *Index) Rank(query string) []string {
	if index == nil || len(index.docs) == 0 {
		return nil
	}
	dir, name := splitKey(query)
	terms := append(tokenize(name), tokenize(dir)...)

	scores := make([]float64, len(index.docs))
	n := float64(len(index.docs))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		postings := index.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := float64(p.tf)
			norm := 1 - bm25B + bm25B*float64(index.docs[p.doc].length)/max(index.avgLen, 1)
			scores[p.doc] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}

	results := make([]result, len(index.docs))
	for i, doc := range index.docs {
		results[i] = result{key: doc.key, score: scores[i]}
	}
	slices.SortFunc(results, func(x, y result) int {
		if c := cmp.Compare(y.score, x.score); c != 0 {
			return c
		}
		return cmp.Compare(x.key, y.key)
	})
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.key
	}
	return keys
}

// splitKey returns the directory and the extension-free file name of key.
func splitKey(key string) (string, string) {
	dir, file := path.Split(strings.ToLower(key))
	return dir, strings.TrimSuffix(file, path.Ext(file))
}

func tokenize(value string) []string {
	return tokenPattern.FindAllString(strings.ToLower(value), -1)
}
