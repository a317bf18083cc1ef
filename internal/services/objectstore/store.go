// Package objectstore provides the remote storage surface used by the transfer
// pipeline: streaming puts, prefix listing, and existence checks against an
// S3-compatible bucket, plus the hierarchical key layout for media artifacts.
package objectstore

import (
	"context"
	"io"
)

// Object describes one remote object returned by List.
type Object struct {
	Key  string
	Size int64
}

// Store is the narrow object-store contract the pipeline depends on. Segment
// keys are immutable once written; re-putting the same key is safe because
// segment content is deterministic per ordinal.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType, cacheControl string) error
	List(ctx context.Context, prefix string) ([]Object, error)
	Head(ctx context.Context, key string) (bool, error)
}

// Content types for the artifacts this worker publishes.
const (
	ContentTypeSegment  = "video/mp2t"
	ContentTypePlaylist = "application/vnd.apple.mpegurl"
	ContentTypeCaption  = "text/vtt"
)

// CacheControlImmutable suits segment objects, which never change once written.
const CacheControlImmutable = "public, max-age=31536000, immutable"

// CacheControlRevalidate suits playlists, which are republished in place while
// a transfer is in flight.
const CacheControlRevalidate = "no-cache"
