package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/objcp/objcp/storage"
)

// execute performs one concrete copy pair and captures its outcome. A failed
// pair never aborts its siblings; the error is wrapped into the outcome.
func (c *Client) execute(ctx context.Context, pair CopyPair) Outcome {
	out := Outcome{Pair: pair}

	skipped, err := c.executePair(ctx, pair)
	out.Skipped = skipped
	if err != nil {
		out.Err = &TransferError{
			Src: pair.Src.Endpoint.String(),
			Dst: pair.Dst.String(),
			Err: err,
		}
		Log.Debugf("Transfer %s -> %s failed: %s", pair.Src.Endpoint, pair.Dst, err)
	}
	return out
}

func (c *Client) executePair(ctx context.Context, pair CopyPair) (skipped bool, err error) {
	switch pair.Kind {
	case RemoteToRemote:
		return c.copyRemote(ctx, pair)
	case RemoteToLocal:
		return c.download(ctx, pair)
	case LocalToRemote:
		return c.upload(ctx, pair)
	case LocalToLocal:
		return c.copyLocal(ctx, pair)
	}
	return false, fmt.Errorf("unsupported copy kind %v", pair.Kind)
}

// copyRemote is a backend-side copy: content never materializes locally and
// object metadata is carried through by the backend itself.
func (c *Client) copyRemote(ctx context.Context, pair CopyPair) (bool, error) {
	srcKey := pair.Src.Endpoint.Key
	dstKey := pair.Dst.Key
	if pair.Src.PrefixMarker {
		// zero-byte directory placeholder keeps its trailing slash
		srcKey += "/"
		dstKey += "/"
	}

	if pair.Opts.NoClobber {
		if _, err := c.store.Stat(ctx, pair.Dst.Bucket, dstKey); err == nil {
			return true, nil
		} else if !storage.IsErrNotExist(err) {
			return false, err
		}
	}

	return false, c.store.Copy(ctx, pair.Src.Endpoint.Bucket, srcKey, pair.Dst.Bucket, dstKey)
}

func (c *Client) download(ctx context.Context, pair CopyPair) (bool, error) {
	if pair.Src.PrefixMarker {
		return false, c.local.MkdirAll(pair.Dst.Path)
	}

	if pair.Opts.NoClobber {
		if _, err := os.Stat(pair.Dst.Path); err == nil {
			return true, nil
		} else if !os.IsNotExist(err) {
			return false, err
		}
	}

	rc, err := c.store.Get(ctx, pair.Src.Endpoint.Bucket, pair.Src.Endpoint.Key)
	if err != nil {
		return false, err
	}
	defer rc.Close()

	if err := c.local.WriteFile(pair.Dst.Path, rc); err != nil {
		return false, err
	}

	info := &storage.ObjectInfo{
		Key:      pair.Src.Endpoint.Key,
		Size:     pair.Src.Size,
		ETag:     pair.Src.ETag,
		Mtime:    pair.Src.Mtime,
		Metadata: pair.Src.Metadata,
	}
	if pair.Opts.PreserveMetadata && info.Metadata == nil {
		// listings don't carry custom metadata, fetch it
		full, err := c.store.Stat(ctx, pair.Src.Endpoint.Bucket, pair.Src.Endpoint.Key)
		if err != nil {
			return false, err
		}
		info = full
	}
	if err := c.local.SetObjectMeta(pair.Dst.Path, info); err != nil {
		return false, err
	}
	if pair.Opts.PreserveMetadata {
		if err := applyPosixMetadata(pair.Dst.Path, info.Metadata); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (c *Client) upload(ctx context.Context, pair CopyPair) (bool, error) {
	if pair.Opts.NoClobber {
		if _, err := c.store.Stat(ctx, pair.Dst.Bucket, pair.Dst.Key); err == nil {
			return true, nil
		} else if !storage.IsErrNotExist(err) {
			return false, err
		}
	}

	fi, err := os.Stat(pair.Src.Endpoint.Path)
	if err != nil {
		return false, err
	}
	data, err := c.local.ReadFile(pair.Src.Endpoint.Path)
	if err != nil {
		return false, err
	}

	info := &storage.ObjectInfo{
		ContentType: mime.TypeByExtension(filepath.Ext(pair.Src.Endpoint.Path)),
		Metadata: map[string]string{
			metaCRC32C: hex.EncodeToString(crc32cSum(data)),
		},
	}
	// custom metadata captured as xattr side metadata at download time
	// survives a re-upload; freshly computed values win
	if side, err := c.local.GetObjectMeta(pair.Src.Endpoint.Path); err == nil && side != nil {
		if info.ContentType == "" {
			info.ContentType = side.ContentType
		}
		for k, v := range side.Metadata {
			if _, ok := info.Metadata[k]; !ok {
				info.Metadata[k] = v
			}
		}
	}
	if pair.Opts.PreserveMetadata {
		for k, v := range posixMetadata(fi) {
			info.Metadata[k] = v
		}
	}

	return false, c.store.Put(ctx, pair.Dst.Bucket, pair.Dst.Key, bytes.NewReader(data), info)
}

func (c *Client) copyLocal(ctx context.Context, pair CopyPair) (bool, error) {
	if pair.Opts.NoClobber {
		if _, err := os.Stat(pair.Dst.Path); err == nil {
			return true, nil
		} else if !os.IsNotExist(err) {
			return false, err
		}
	}

	// mode bits and timestamps travel with the file, no flag needed
	return false, c.local.CopyFile(pair.Src.Endpoint.Path, pair.Dst.Path)
}
