// Package blob is the entry point to the artifact stores protocol analyses
// are imported from. Callers depend on Store; the infra drivers stay behind
// Open.
package blob

import (
	"deckhistory/internal/blob/core"
)

type (
	// Driver identifies an artifact store backend.
	Driver = core.Driver
	// WriteOptions tunes a write.
	WriteOptions = core.WriteOptions
	// Object describes a stored artifact.
	Object = core.Object
	// Store is the artifact store port.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	// ErrNotFound reports a missing artifact.
	ErrNotFound = core.ErrNotFound
	// ErrExists reports a write to an occupied key.
	ErrExists = core.ErrExists
)
