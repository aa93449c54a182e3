package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Filesystem stores documents as files below Root.
type Filesystem struct {
	Root string
}

// NewFilesystem returns a provider rooted at root.
func NewFilesystem(root string) *Filesystem {
	return &Filesystem{Root: root}
}

func (f *Filesystem) Resolve(key string) string {
	return filepath.Join(f.Root, filepath.FromSlash(key))
}

func (f *Filesystem) Fetch(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", wrap("fetch", location, fmt.Errorf("%w: %v", ErrNotExist, err))
		}
		return "", wrap("fetch", location, err)
	}
	return string(data), nil
}

func (f *Filesystem) Push(ctx context.Context, location, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(location), 0755); err != nil {
		return wrap("push", location, err)
	}
	return wrap("push", location, os.WriteFile(location, []byte(text), 0644))
}

func (f *Filesystem) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := os.Stat(location)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, wrap("stat", location, err)
}

// Move renames location to newLocation, refusing to overwrite.
func (f *Filesystem) Move(ctx context.Context, location, newLocation string) error {
	exists, err := f.Exists(ctx, newLocation)
	if err != nil {
		return err
	}
	if exists {
		return wrap("move", newLocation, fs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(newLocation), 0755); err != nil {
		return wrap("move", newLocation, err)
	}
	return wrap("move", location, os.Rename(location, newLocation))
}
