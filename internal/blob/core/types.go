// Package core defines the artifact store port that protocol analyses are
// imported from.
package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete artifact store backend.
type Driver string

const (
	// DriverFilesystem stores artifacts under a local directory.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores artifacts in an S3 or MinIO bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps artifacts in process memory.
	DriverMemory Driver = "memory"
)

// WriteOptions tunes Write.
type WriteOptions struct {
	ContentType string
	Labels      map[string]string
	// Overwrite replaces an existing artifact instead of failing.
	Overwrite bool
}

// Object describes a stored artifact.
type Object struct {
	Key         string            `json:"key"`
	Size        int64             `json:"size_bytes"`
	ContentType string            `json:"content_type,omitempty"`
	ETag        string            `json:"etag,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Store is a flat key/value artifact store.
type Store interface {
	Write(ctx context.Context, key string, r io.Reader, opts WriteOptions) (Object, error)
	Open(ctx context.Context, key string) (Object, io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Object, error)
	Remove(ctx context.Context, key string) (bool, error)
	// List returns objects under prefix ordered by key.
	List(ctx context.Context, prefix string) ([]Object, error)
	Driver() Driver
}

var (
	// ErrNotFound is returned when no artifact exists at a key.
	ErrNotFound = errors.New("artifact not found")
	// ErrExists is returned by a non-overwriting Write to an occupied key.
	ErrExists = errors.New("artifact already exists")
)

// CloneLabels copies a label map.
func CloneLabels(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
