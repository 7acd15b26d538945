// Package memory keeps protocol analysis artifacts in process memory.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"deckhistory/internal/blob/core"
)

type entry struct {
	obj  core.Object
	data []byte
}

// Store implements core.Store over a guarded map.
type Store struct {
	mu      sync.RWMutex
	objects map[string]entry
	now     func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{objects: make(map[string]entry), now: func() time.Time { return time.Now().UTC() }}
}

// Driver reports core.DriverMemory.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Write stores the contents of r at key.
func (s *Store) Write(_ context.Context, key string, r io.Reader, opts core.WriteOptions) (core.Object, error) {
	if strings.TrimSpace(key) == "" {
		return core.Object{}, fmt.Errorf("empty artifact key")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return core.Object{}, fmt.Errorf("read artifact %s: %w", key, err)
	}
	sum := sha256.Sum256(data)
	obj := core.Object{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		ETag:        hex.EncodeToString(sum[:]),
		Labels:      core.CloneLabels(opts.Labels),
		UpdatedAt:   s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists && !opts.Overwrite {
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	s.objects[key] = entry{obj: obj, data: data}
	return copyObject(obj), nil
}

// Open returns the artifact at key and a reader over a private copy of it.
func (s *Store) Open(_ context.Context, key string) (core.Object, io.ReadCloser, error) {
	s.mu.RLock()
	e, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Object{}, nil, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	data := append([]byte(nil), e.data...)
	return copyObject(e.obj), io.NopCloser(bytes.NewReader(data)), nil
}

// Stat returns the artifact metadata at key.
func (s *Store) Stat(_ context.Context, key string) (core.Object, error) {
	s.mu.RLock()
	e, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return copyObject(e.obj), nil
}

// Remove deletes key, reporting whether it existed.
func (s *Store) Remove(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return false, nil
	}
	delete(s.objects, key)
	return true, nil
}

// List returns the artifacts under prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Object, 0, len(s.objects))
	for key, e := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, copyObject(e.obj))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func copyObject(obj core.Object) core.Object {
	obj.Labels = core.CloneLabels(obj.Labels)
	return obj
}
