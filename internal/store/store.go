// Package store caches project documents for the length of one run. Each entry
// holds serialized text, a parsed tree, or both; once a tree has been handed
// out it is the authoritative representation.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/beevik/etree"

	"github.com/ditaref/ditaref/internal/refpath"
	"github.com/ditaref/ditaref/internal/storage"
	"github.com/ditaref/ditaref/internal/xquery"
)

// State describes what the store knows about a key.
type State int

const (
	StateUnknown State = iota
	StateDiscovered
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateLoaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// ErrReentrantCommit is returned when a transaction is committed twice.
var ErrReentrantCommit = errors.New("transaction already committed")

// NotFoundError is returned when a document cannot be loaded.
type NotFoundError struct {
	Key string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %s not found: %v", e.Key, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

type entry struct {
	mu   sync.Mutex
	text *string
	tree *etree.Document
}

// Store is the document cache shared by every operation of a run.
type Store struct {
	provider storage.Provider
	engine   *xquery.Engine

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
}

// New creates an empty store over provider.
func New(provider storage.Provider, engine *xquery.Engine) *Store {
	if engine == nil {
		engine = xquery.NewEngine()
	}
	return &Store{
		provider: provider,
		engine:   engine,
		entries:  make(map[string]*entry),
	}
}

// Engine returns the query engine used to parse documents.
func (s *Store) Engine() *xquery.Engine {
	return s.engine
}

// Discover registers key as part of the project without loading it.
func (s *Store) Discover(key string) {
	s.lookup(refpath.Normalize(key), true)
}

// Keys returns discovered and loaded keys in the order they were first seen.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Knows reports whether key has been discovered or loaded.
func (s *Store) Knows(key string) bool {
	return s.State(key) != StateUnknown
}

func (s *Store) State(key string) State {
	e := s.lookup(refpath.Normalize(key), false)
	if e == nil {
		return StateUnknown
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.text != nil || e.tree != nil {
		return StateLoaded
	}
	return StateDiscovered
}

// Inject caches text for key as if it had been fetched.
func (s *Store) Inject(key, text string) {
	e := s.lookup(refpath.Normalize(key), true)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = &text
	e.tree = nil
}

// Bust drops both cached representations of key. The key stays known.
func (s *Store) Bust(key string) {
	e := s.lookup(refpath.Normalize(key), false)
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.text = nil
	e.tree = nil
}

// Text returns the serialized document. A cached tree is serialized so the
// result always reflects committed changes.
func (s *Store) Text(ctx context.Context, key string) (string, error) {
	key = refpath.Normalize(key)
	e, created := s.load(key, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tree != nil {
		text, err := s.engine.Serialize(e.tree)
		if err != nil {
			return "", &storage.CollaboratorError{Op: "serialize", Location: key, Err: err}
		}
		return text, nil
	}
	if e.text != nil {
		return *e.text, nil
	}

	text, err := s.fetch(ctx, key)
	if err != nil {
		if created {
			s.forget(key, e)
		}
		return "", err
	}
	e.text = &text
	return text, nil
}

// Tree returns the parsed document. Callers may mutate the tree; the cached
// text is dropped as soon as the tree exists.
func (s *Store) Tree(ctx context.Context, key string) (*etree.Document, error) {
	key = refpath.Normalize(key)
	e, created := s.load(key, true)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tree != nil {
		return e.tree, nil
	}

	var text string
	if e.text != nil {
		text = *e.text
	} else {
		fetched, err := s.fetch(ctx, key)
		if err != nil {
			if created {
				s.forget(key, e)
			}
			return nil, err
		}
		text = fetched
	}

	doc, err := s.engine.Parse(text)
	if err != nil {
		if created {
			s.forget(key, e)
		}
		return nil, &storage.CollaboratorError{Op: "parse", Location: key, Err: err}
	}
	e.tree = doc
	e.text = nil
	return doc, nil
}

// ApplyUpdate evaluates update against the tree of key. Nothing changes until
// the returned transaction is committed.
func (s *Store) ApplyUpdate(ctx context.Context, key string, update xquery.Update) (*Transaction, error) {
	key = refpath.Normalize(key)
	doc, err := s.Tree(ctx, key)
	if err != nil {
		return nil, err
	}
	pending, err := s.engine.Evaluate(doc, update)
	if err != nil {
		return nil, &storage.CollaboratorError{Op: "update", Location: key, Err: err}
	}
	return &Transaction{store: s, key: key, pending: pending}, nil
}

// Write pushes the current representation of key to storage.
func (s *Store) Write(ctx context.Context, key string) error {
	key = refpath.Normalize(key)
	text, err := s.Text(ctx, key)
	if err != nil {
		return err
	}
	return s.provider.Push(ctx, s.provider.Resolve(key), text)
}

// Exists reports whether key is present in storage.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.provider.Exists(ctx, s.provider.Resolve(refpath.Normalize(key)))
}

// Move relocates key in storage and re-keys its cache entry. The old key is
// forgotten; the entry keeps its position in Keys.
func (s *Store) Move(ctx context.Context, key, newKey string) error {
	key = refpath.Normalize(key)
	newKey = refpath.Normalize(newKey)
	if err := s.provider.Move(ctx, s.provider.Resolve(key), s.provider.Resolve(newKey)); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
	}
	delete(s.entries, key)
	s.entries[newKey] = e

	replaced := false
	order := s.order[:0]
	for _, existing := range s.order {
		switch existing {
		case key:
			if !replaced {
				order = append(order, newKey)
				replaced = true
			}
		case newKey:
		default:
			order = append(order, existing)
		}
	}
	if !replaced {
		order = append(order, newKey)
	}
	s.order = order
	return nil
}

func (s *Store) fetch(ctx context.Context, key string) (string, error) {
	text, err := s.provider.Fetch(ctx, s.provider.Resolve(key))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &NotFoundError{Key: key, Err: err}
	}
	return text, nil
}

func (s *Store) lookup(key string, create bool) *entry {
	e, _ := s.load(key, create)
	return e
}

func (s *Store) load(key string, create bool) (*entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return e, false
	}
	if !create {
		return nil, false
	}
	e := &entry{}
	s.entries[key] = e
	s.order = append(s.order, key)
	return e, true
}

// forget removes an entry that was created by a failed load, so a missing or
// unparseable reference target does not show up in Keys.
func (s *Store) forget(key string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[key] != e {
		return
	}
	delete(s.entries, key)
	for i, existing := range s.order {
		if existing == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Transaction is a pending update of one document.
type Transaction struct {
	store     *Store
	key       string
	pending   *xquery.PendingList
	committed atomic.Bool
}

// Key returns the document the transaction updates.
func (t *Transaction) Key() string {
	return t.key
}

// Len returns the number of pending changes.
func (t *Transaction) Len() int {
	return t.pending.Len()
}

func (t *Transaction) Changes() []xquery.Change {
	return t.pending.Changes()
}

// Commit applies the pending changes. It may run once.
func (t *Transaction) Commit() error {
	if !t.committed.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrReentrantCommit, t.key)
	}
	e := t.store.lookup(t.key, true)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := t.pending.Apply(); err != nil {
		return &storage.CollaboratorError{Op: "commit", Location: t.key, Err: err}
	}
	e.text = nil
	return nil
}
