package storage

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"sync"
)

// Memory keeps documents in a map. Locations equal keys. It counts fetches so
// callers can check caching behaviour.
type Memory struct {
	mu      sync.Mutex
	files   map[string]string
	fetches map[string]int
	pushes  map[string]int
}

// NewMemory creates a provider holding files.
func NewMemory(files map[string]string) *Memory {
	m := &Memory{
		files:   make(map[string]string, len(files)),
		fetches: make(map[string]int),
		pushes:  make(map[string]int),
	}
	for key, text := range files {
		m.files[key] = text
	}
	return m
}

func (m *Memory) Resolve(key string) string {
	return key
}

func (m *Memory) Fetch(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[location]++
	text, ok := m.files[location]
	if !ok {
		return "", wrap("fetch", location, ErrNotExist)
	}
	return text, nil
}

func (m *Memory) Push(ctx context.Context, location, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[location] = text
	m.pushes[location]++
	return nil
}

func (m *Memory) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[location]
	return ok, nil
}

func (m *Memory) Move(ctx context.Context, location, newLocation string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.files[location]
	if !ok {
		return wrap("move", location, ErrNotExist)
	}
	if _, exists := m.files[newLocation]; exists {
		return wrap("move", newLocation, fs.ErrExist)
	}
	m.files[newLocation] = text
	delete(m.files, location)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.files))
	for key := range m.files {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Text returns the stored text of location.
func (m *Memory) Text(location string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.files[location]
	return text, ok
}

// Fetches returns how many times location was fetched.
func (m *Memory) Fetches(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches[location]
}

// Pushes returns how many times location was written.
func (m *Memory) Pushes(location string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes[location]
}

func (m *Memory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("memory(%d documents)", len(m.files))
}
