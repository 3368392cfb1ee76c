package domain

import (
	"context"
	"io"
)

// BlobWriter uploads objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader downloads objects from blob storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

// Archiver persists scan snapshots to cold storage.
type Archiver interface {
	ArchiveScan(ctx context.Context, result ScanResult) (path string, err error)
}
