package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/objcp/objcp/storage"
)

// Item is one resolved leaf produced by listing a container endpoint.
// Items are immutable once produced.
type Item struct {
	Endpoint Endpoint

	// Rel is the item's path relative to the listed container, slash
	// separated. Empty for the container's own prefix marker.
	Rel string

	// PrefixMarker flags a directory-like placeholder (a remote common
	// prefix or zero-byte directory object, or a local subdirectory).
	PrefixMarker bool

	Size     int64
	ETag     string
	Mtime    time.Time
	Metadata map[string]string
}

// resolve lists the leaf items under a container endpoint. Non-recursive
// listings return direct children only, with child containers reported as
// prefix markers. Recursive listings return the full subtree in the
// backend's deterministic listing order, excluding the container's own
// prefix marker unless it is the sole object.
func (c *Client) resolve(ctx context.Context, ep Endpoint, recursive bool) ([]Item, error) {
	if ep.Remote {
		return c.resolveRemote(ctx, ep, recursive)
	}
	return c.resolveLocal(ep, recursive)
}

func (c *Client) resolveRemote(ctx context.Context, ep Endpoint, recursive bool) ([]Item, error) {
	prefix := ep.Key
	if prefix != "" {
		prefix += "/"
	}

	delimiter := storage.ListDelimiter
	if recursive {
		delimiter = ""
	}

	infos, err := c.store.List(ctx, ep.Bucket, prefix, delimiter)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(infos))
	for _, info := range infos {
		rel := strings.TrimPrefix(info.Key, prefix)
		child := Endpoint{
			Scheme: ep.Scheme,
			Bucket: ep.Bucket,
			Key:    strings.TrimSuffix(info.Key, "/"),
			Remote: true,
		}
		// A zero-byte object at the prefix itself is the directory marker;
		// keep it only when nothing else matched.
		if rel == "" && len(infos) > 1 {
			continue
		}
		items = append(items, Item{
			Endpoint:     child,
			Rel:          strings.TrimSuffix(rel, "/"),
			PrefixMarker: info.IsPrefix || strings.HasSuffix(info.Key, "/"),
			Size:         info.Size,
			ETag:         info.ETag,
			Mtime:        info.Mtime,
			Metadata:     info.Metadata,
		})
	}
	return items, nil
}

func (c *Client) resolveLocal(ep Endpoint, recursive bool) ([]Item, error) {
	entries, err := c.local.List(ep.Path, recursive)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", ep.Path, ErrNotFound)
		}
		return nil, err
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, Item{
			Endpoint:     Endpoint{Path: e.Path},
			Rel:          e.Rel,
			PrefixMarker: e.IsDir,
			Size:         e.Size,
			Mtime:        time.Unix(e.Mtime, 0),
		})
	}
	return items, nil
}
