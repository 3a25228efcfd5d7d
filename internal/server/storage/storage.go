// Package storage is the blob store behind video uploads: presigned PUT URLs,
// public URL mapping, and object deletion on an S3-compatible backend.
package storage

import (
	"context"
	"time"
)

// BlobStore is what the video service needs from object storage.
type BlobStore interface {
	// PresignPut returns a URL that accepts a single PUT of key with the given
	// Content-Type (and Cache-Control, when non-empty) until ttl elapses.
	PresignPut(ctx context.Context, key, contentType, cacheControl string, ttl time.Duration) (string, error)
	PublicURL(key string) string
	KeyFromURL(rawURL string) string
	Delete(ctx context.Context, key string) error
	// URI returns the s3://bucket/key form used by the transcoder.
	URI(key string) string
}
