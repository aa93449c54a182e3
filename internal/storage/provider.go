// Package storage is the physical I/O layer under the document store. A
// provider maps document keys to locations and moves text in and out of them.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotExist is returned (wrapped) when a location holds no document.
var ErrNotExist = errors.New("document does not exist")

// Provider fetches and persists document text.
type Provider interface {
	Resolve(key string) string
	Fetch(ctx context.Context, location string) (string, error)
	Push(ctx context.Context, location, text string) error
	Exists(ctx context.Context, location string) (bool, error)
	Move(ctx context.Context, location, newLocation string) error
}

// Lister is implemented by providers that can enumerate their own documents,
// for backends without a walkable filesystem.
type Lister interface {
	List(ctx context.Context) ([]string, error)
}

// CollaboratorError wraps a failure of the storage provider or query engine.
type CollaboratorError struct {
	Op       string
	Location string
	Err      error
}

func (e *CollaboratorError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Location, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Excerpt returns the underlying message cut to max runes, for display.
func (e *CollaboratorError) Excerpt(max int) string {
	msg := "unknown error"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return Truncate(msg, max)
}

// Truncate cuts s to max runes and marks the cut with an ellipsis.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if max <= 0 || len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

func wrap(op, location string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Op: op, Location: location, Err: err}
}
