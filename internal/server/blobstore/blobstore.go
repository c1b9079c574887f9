// Package blobstore wraps the S3-compatible object store holding PDF
// binaries. Rows in the relational store reference objects here by URL.
package blobstore

import "context"

// Store is the blob-store contract used by the project workflow. Upload
// returns an opaque locator (URL) that Download and Delete accept back.
type Store interface {
	Upload(ctx context.Context, name, contentType string, body []byte) (string, error)
	Download(ctx context.Context, fileURL string) ([]byte, error)
	Delete(ctx context.Context, fileURL string) error
}
