package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/objcp/objcp/storage"
)

// CopyPair is one concrete transfer: a resolved source item and its effective
// destination. Pairs are created by expansion, consumed exactly once by the
// executor and never mutated after creation.
type CopyPair struct {
	Src  Item
	Dst  Endpoint
	Kind CopyKind
	Opts Options
}

// expand applies the gsutil destination-path rules to one logical (src, dst,
// options) request and returns the concrete copy pairs, in resolver order.
//
// The trailing-slash asymmetry on the destination is preserved exactly:
// "dst/" nests the source container's own name under the destination, plain
// "dst" drops it so only the container's contents land under dst. An existing
// local destination directory behaves like a trailing slash.
func (c *Client) expand(ctx context.Context, src, dst Endpoint, opts Options) ([]CopyPair, error) {
	kind, err := Classify(src, dst)
	if err != nil {
		return nil, err
	}

	if src.Remote {
		return c.expandRemote(ctx, src, dst, kind, opts)
	}
	return c.expandLocal(ctx, src, dst, kind, opts)
}

func (c *Client) expandRemote(ctx context.Context, src, dst Endpoint, kind CopyKind, opts Options) ([]CopyPair, error) {
	if !src.TrailingSlash && src.Key != "" {
		info, err := c.store.Stat(ctx, src.Bucket, src.Key)
		if err == nil {
			item := Item{
				Endpoint: src,
				Size:     info.Size,
				ETag:     info.ETag,
				Mtime:    info.Mtime,
				Metadata: info.Metadata,
			}
			return []CopyPair{{Src: item, Dst: c.singleDst(ctx, src, dst), Kind: kind, Opts: opts}}, nil
		}
		if !storage.IsErrNotExist(err) {
			return nil, err
		}
	}

	if !opts.Recursive {
		items, err := c.resolve(ctx, src, false)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("%s: %w", src, ErrNotFound)
		}
		return nil, fmt.Errorf("cannot copy %s to %s (did you mean to do cp recursive?): %w", src, dst, ErrNoMatch)
	}

	items, err := c.resolve(ctx, src, true)
	if err != nil {
		return nil, err
	}
	return c.containerPairs(ctx, src, dst, kind, opts, items)
}

func (c *Client) expandLocal(ctx context.Context, src, dst Endpoint, kind CopyKind, opts Options) ([]CopyPair, error) {
	fi, err := os.Stat(src.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", src.Path, ErrNotFound)
		}
		return nil, err
	}

	if !fi.IsDir() {
		item := Item{
			Endpoint: src,
			Size:     fi.Size(),
			Mtime:    fi.ModTime(),
		}
		return []CopyPair{{Src: item, Dst: c.singleDst(ctx, src, dst), Kind: kind, Opts: opts}}, nil
	}

	if !opts.Recursive {
		return nil, fmt.Errorf("cannot copy %s to %s (did you mean to do cp recursive?): %w", src, dst, ErrNoMatch)
	}

	items, err := c.resolve(ctx, src, true)
	if err != nil {
		return nil, err
	}
	return c.containerPairs(ctx, src, dst, kind, opts, items)
}

// containerPairs builds one pair per resolved leaf, applying the
// destination-path rule. Destination keys are unique per call by
// construction: relative paths under one container never collide.
func (c *Client) containerPairs(ctx context.Context, src, dst Endpoint, kind CopyKind, opts Options, items []Item) ([]CopyPair, error) {
	leaves := items[:0:0]
	for _, it := range items {
		if it.PrefixMarker && !(len(items) == 1 && it.Rel == "") {
			continue
		}
		leaves = append(leaves, it)
	}
	if len(leaves) == 0 {
		return nil, fmt.Errorf("%s: %w", src, ErrNoMatch)
	}

	// Container sources nest on the trailing slash alone. Existence of the
	// destination must not influence nesting or a repeated copy would land
	// in a different place than the first one.
	nest := dst.TrailingSlash
	base := src.Base()

	pairs := make([]CopyPair, 0, len(leaves))
	for _, it := range leaves {
		var target Endpoint
		switch {
		case it.Rel == "" && nest:
			// sole prefix marker of an empty container
			target = dst.child(base)
		case it.Rel == "":
			target = dst
			target.TrailingSlash = false
		case nest:
			target = dst.child(base + "/" + it.Rel)
		default:
			target = dst.child(it.Rel)
		}
		pairs = append(pairs, CopyPair{Src: it, Dst: target, Kind: kind, Opts: opts})
	}
	return pairs, nil
}

// singleDst resolves the effective destination of a single concrete object:
// container-like destinations get the source basename appended, anything else
// is used verbatim as the full destination key.
func (c *Client) singleDst(ctx context.Context, src, dst Endpoint) Endpoint {
	if c.containerLike(ctx, dst) {
		return dst.child(src.Base())
	}
	out := dst
	out.TrailingSlash = false
	return out
}

// containerLike reports whether the destination behaves like a directory: a
// trailing slash, a bucket root, a remote prefix with at least one entry
// under it, or an existing local directory.
func (c *Client) containerLike(ctx context.Context, dst Endpoint) bool {
	if dst.TrailingSlash {
		return true
	}
	if dst.Remote {
		if dst.Key == "" {
			return true
		}
		infos, err := c.store.List(ctx, dst.Bucket, dst.Key+"/", storage.ListDelimiter)
		return err == nil && len(infos) > 0
	}
	fi, err := os.Stat(dst.Path)
	return err == nil && fi.IsDir()
}
