// Package storage defines the object-storage backend contract consumed by the
// copy engine, together with the metadata record shared by all implementations.
package storage

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Log implement Logrus logger for debug logging.
var Log = logrus.New()

// ListDelimiter is the key separator used for non-recursive (direct children)
// listings. An empty delimiter lists the full subtree.
const ListDelimiter = "/"

// ObjectInfo describes one stored object or, when IsPrefix is set, a
// directory-like common prefix produced by a delimited listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	Mtime        time.Time
	ContentType  string
	StorageClass string
	Metadata     map[string]string
	IsPrefix     bool
}

// ObjectStore is the minimal backend interface required by the copy engine.
//
// List returns objects under prefix in the backend's listing order, which must
// be deterministic per call. With a non-empty delimiter the listing stops at
// the first delimiter past the prefix and reports deeper groupings as entries
// with IsPrefix set, appended after the objects in sorted order.
//
// Stat and Get on a missing key return an error recognized by IsErrNotExist.
type ObjectStore interface {
	List(ctx context.Context, bucket, prefix, delimiter string) ([]ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, info *ObjectInfo) error
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error
	Delete(ctx context.Context, bucket, key string) error
	Stat(ctx context.Context, bucket, key string) (*ObjectInfo, error)
}
