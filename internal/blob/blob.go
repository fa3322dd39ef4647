// Package blob selects the object store that receives dump chunks and
// re-exports its core abstractions.
package blob

import (
	"context"
	"fmt"

	"rnaindex/internal/blob/core"
	"rnaindex/internal/infra/blob/fs"
	memorystore "rnaindex/internal/infra/blob/memory"
	infraS3 "rnaindex/internal/infra/blob/s3"
)

type (
	// Driver identifies a backend.
	Driver = core.Driver
	// PutOptions configures a write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored object metadata.
	Info = core.Info
	// Store is the interface for object store backends.
	Store = core.Store
	// S3Config configures the S3 backend.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrUnsupported = core.ErrUnsupported
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the configured backend; an empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMockS3ForTests exposes the in-memory S3 transport for cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
