// Package engine is the copy orchestration core: it classifies source and
// destination endpoints, expands logical copy requests into concrete
// transfer pairs with gsutil-compatible destination-path semantics, and fans
// the pairs out across a bounded worker pool against one object-storage
// backend.
package engine

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/objcp/objcp/storage"
	"github.com/objcp/objcp/storage/fs"
)

// Log implement Logrus logger for debug logging.
var Log = logrus.New()

func init() {
	storage.Log = Log
}

// Client exposes the caller surface of the engine: ls, cp, rm, read/write
// and hash comparison over one object-storage backend plus the local
// filesystem.
type Client struct {
	store    storage.ObjectStore
	local    *fs.Local
	progress Progress
}

// NewClient return new client for the given backend. A nil local collaborator
// gets a default configuration (0644 files, 0755 dirs, atomic writes, no
// xattr side metadata).
func NewClient(store storage.ObjectStore, local *fs.Local) *Client {
	if local == nil {
		local = fs.NewLocal(0644, 0755, 0, false, true)
	}
	return &Client{store: store, local: local}
}

// Request is one caller-issued logical copy intent. It may expand into many
// concrete transfers.
type Request struct {
	Src string
	Dst string
}

// Cp copies src to dst applying gsutil destination-path rules. The request
// is expanded synchronously (expansion errors fail fast), then all resulting
// pairs run on the worker pool; per-pair failures are aggregated into a
// *PartialFailureError after the batch completes.
func (c *Client) Cp(ctx context.Context, src, dst string, opts Options) error {
	srcEp, err := ParseEndpoint(src)
	if err != nil {
		return err
	}
	dstEp, err := ParseEndpoint(dst)
	if err != nil {
		return err
	}

	pairs, err := c.expand(ctx, srcEp, dstEp, opts)
	if err != nil {
		return err
	}

	c.prepareLocalDirs(pairs)
	outcomes := c.runPairs(ctx, pairs, opts.workerCount())
	return outcomesError(outcomes)
}

// CpManyToMany expands N independent logical requests and submits the union
// of their pairs to a single pool run, giving cross-request parallelism. A
// request that fails to expand (for example, a missing source) is reported
// as one failed transfer in the aggregate result instead of aborting the
// whole batch.
func (c *Client) CpManyToMany(ctx context.Context, reqs []Request, opts Options) error {
	var pairs []CopyPair
	var expandFailed []*TransferError

	for _, r := range reqs {
		rp, err := c.expandRequest(ctx, r, opts)
		if err != nil {
			expandFailed = append(expandFailed, &TransferError{Src: r.Src, Dst: r.Dst, Err: err})
			continue
		}
		pairs = append(pairs, rp...)
	}

	c.prepareLocalDirs(pairs)
	outcomes := c.runPairs(ctx, pairs, opts.workerCount())

	failed := append(expandFailed, outcomesFailed(outcomes)...)
	if len(failed) == 0 {
		return nil
	}
	return &PartialFailureError{Total: len(pairs) + len(expandFailed), Failed: failed}
}

func (c *Client) expandRequest(ctx context.Context, r Request, opts Options) ([]CopyPair, error) {
	srcEp, err := ParseEndpoint(r.Src)
	if err != nil {
		return nil, err
	}
	dstEp, err := ParseEndpoint(r.Dst)
	if err != nil {
		return nil, err
	}
	return c.expand(ctx, srcEp, dstEp, opts)
}

// prepareLocalDirs pre-creates the destination parent directories of local
// writes so workers don't race on the same mkdir chains. Best effort: the
// executor creates parents again and reports real failures per pair.
func (c *Client) prepareLocalDirs(pairs []CopyPair) {
	dirSet := make(map[string]struct{})
	for _, p := range pairs {
		if p.Dst.Remote {
			continue
		}
		dirSet[filepath.Dir(p.Dst.Path)] = struct{}{}
	}

	dirs := make([]string, 0, len(dirSet))
	for d := range dirSet {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	for _, d := range dirs {
		if err := c.local.MkdirAll(d); err != nil {
			Log.Debugf("mkdir %s failed: %s", d, err)
		}
	}
}

// Ls lists the objects under an object-storage URL. Non-recursive listings
// show direct children with subdirectories reported once, after the objects;
// recursive listings show every object under the prefix.
func (c *Client) Ls(ctx context.Context, url string, recursive bool) ([]string, error) {
	ep, err := parseRemote(url)
	if err != nil {
		return nil, err
	}

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

	urls := make([]string, 0, len(infos))
	for _, info := range infos {
		urls = append(urls, remoteURL(ep, info.Key))
	}
	return urls, nil
}

// Rm removes the object at url, or the whole subtree under it when
// recursive. A non-recursive rm of a missing object is ErrNoMatch, mirroring
// the "no URLs matched" policy; a recursive rm of an empty prefix is a
// silent no-op.
func (c *Client) Rm(ctx context.Context, url string, opts Options) error {
	ep, err := parseRemote(url)
	if err != nil {
		return err
	}

	if !opts.Recursive {
		if _, err := c.store.Stat(ctx, ep.Bucket, ep.Key); err != nil {
			if storage.IsErrNotExist(err) {
				return fmt.Errorf("no URL matched %s (did you mean to do rm recursive?): %w", url, ErrNoMatch)
			}
			return err
		}
		return c.store.Delete(ctx, ep.Bucket, ep.Key)
	}

	prefix := ep.Key
	if prefix != "" {
		prefix += "/"
	}
	infos, err := c.store.List(ctx, ep.Bucket, prefix, "")
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(infos)+1)
	for _, info := range infos {
		keys = append(keys, info.Key)
	}
	if ep.Key != "" {
		// the bare object at the prefix itself goes too
		if _, err := c.store.Stat(ctx, ep.Bucket, ep.Key); err == nil {
			keys = append(keys, ep.Key)
		} else if !storage.IsErrNotExist(err) {
			return err
		}
	}
	if len(keys) == 0 {
		return nil
	}

	failures := make([]*TransferError, len(keys))
	runIndexed(ctx, len(keys), opts.workerCount(), func(i int) {
		if err := c.store.Delete(ctx, ep.Bucket, keys[i]); err != nil {
			failures[i] = &TransferError{Src: remoteURL(ep, keys[i]), Err: err}
		}
	})

	var failed []*TransferError
	for _, f := range failures {
		if f != nil {
			failed = append(failed, f)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &PartialFailureError{Total: len(keys), Failed: failed}
}

// ReadBytes returns the full content of a single object.
func (c *Client) ReadBytes(ctx context.Context, url string) ([]byte, error) {
	ep, err := parseSingleRemote(url)
	if err != nil {
		return nil, err
	}

	rc, err := c.store.Get(ctx, ep.Bucket, ep.Key)
	if err != nil {
		if storage.IsErrNotExist(err) {
			return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
		}
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// WriteBytes stores data as a single object, content type inferred from the
// key extension.
func (c *Client) WriteBytes(ctx context.Context, url string, data []byte) error {
	ep, err := parseSingleRemote(url)
	if err != nil {
		return err
	}

	info := &storage.ObjectInfo{
		ContentType: mime.TypeByExtension(path.Ext(ep.Key)),
		Metadata: map[string]string{
			metaCRC32C: hex.EncodeToString(crc32cSum(data)),
		},
	}
	return c.store.Put(ctx, ep.Bucket, ep.Key, bytes.NewReader(data), info)
}

// ReadText reads a single object as a UTF-8 string.
func (c *Client) ReadText(ctx context.Context, url string) (string, error) {
	data, err := c.ReadBytes(ctx, url)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteText stores a UTF-8 string as a single object.
func (c *Client) WriteText(ctx context.Context, url, text string) error {
	return c.WriteBytes(ctx, url, []byte(text))
}

// Stat returns the metadata record of a single object, ErrNotFound when it
// does not exist.
func (c *Client) Stat(ctx context.Context, url string) (*Stat, error) {
	ep, err := parseSingleRemote(url)
	if err != nil {
		return nil, err
	}

	info, err := c.store.Stat(ctx, ep.Bucket, ep.Key)
	if err != nil {
		if storage.IsErrNotExist(err) {
			return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
		}
		return nil, err
	}
	return newStat(info), nil
}

// SameModtime reports whether the local file and the remote object share the
// same modification time, truncated to whole seconds. A missing object or
// absent mtime metadata compares unequal without error.
func (c *Client) SameModtime(ctx context.Context, localPath, url string) (bool, error) {
	fi, err := os.Stat(localPath)
	if err != nil {
		return false, err
	}

	ep, err := parseSingleRemote(url)
	if err != nil {
		return false, err
	}
	info, err := c.store.Stat(ctx, ep.Bucket, ep.Key)
	if err != nil {
		if storage.IsErrNotExist(err) {
			return false, nil
		}
		return false, err
	}

	mt, ok := parseUnixTime(info.Metadata[metaFileMtime])
	if !ok {
		return false, nil
	}
	return fi.ModTime().Unix() == mt.Unix(), nil
}

// SameMD5 reports whether the local file content hashes to the same MD5 as
// the remote object. A missing object compares unequal without error.
func (c *Client) SameMD5(ctx context.Context, localPath, url string) (bool, error) {
	localSum, err := LocalMD5(localPath)
	if err != nil {
		return false, err
	}

	ep, err := parseSingleRemote(url)
	if err != nil {
		return false, err
	}
	info, err := c.store.Stat(ctx, ep.Bucket, ep.Key)
	if err != nil {
		if storage.IsErrNotExist(err) {
			return false, nil
		}
		return false, err
	}

	remoteSum := md5FromETag(info.ETag)
	if remoteSum == nil {
		return false, nil
	}
	return bytes.Equal(localSum, remoteSum), nil
}

// MD5Hexdigests returns one hex digest per URL, aligned with the input
// order, empty string for objects that do not exist. Worker count only
// affects wall-clock time, never the result.
func (c *Client) MD5Hexdigests(ctx context.Context, urls []string, workers int) ([]string, error) {
	eps := make([]Endpoint, len(urls))
	for i, u := range urls {
		ep, err := parseSingleRemote(u)
		if err != nil {
			return nil, err
		}
		eps[i] = ep
	}

	digests := make([]string, len(urls))
	runIndexed(ctx, len(urls), workers, func(i int) {
		info, err := c.store.Stat(ctx, eps[i].Bucket, eps[i].Key)
		if err != nil {
			if !storage.IsErrNotExist(err) {
				Log.Debugf("stat %s failed: %s", urls[i], err)
			}
			return
		}
		if sum := md5FromETag(info.ETag); sum != nil {
			digests[i] = hex.EncodeToString(sum)
		}
	})
	return digests, nil
}

func parseRemote(raw string) (Endpoint, error) {
	ep, err := ParseEndpoint(raw)
	if err != nil {
		return ep, err
	}
	if !ep.Remote {
		return ep, fmt.Errorf("%q is not an object storage URL: %w", raw, ErrInvalidEndpoint)
	}
	return ep, nil
}

func parseSingleRemote(raw string) (Endpoint, error) {
	ep, err := parseRemote(raw)
	if err != nil {
		return ep, err
	}
	if ep.Key == "" || ep.TrailingSlash {
		return ep, fmt.Errorf("%q does not denote a single object: %w", raw, ErrInvalidEndpoint)
	}
	return ep, nil
}

func remoteURL(ep Endpoint, key string) string {
	return ep.Scheme + "://" + ep.Bucket + "/" + key
}

func outcomesFailed(outcomes []Outcome) []*TransferError {
	var failed []*TransferError
	for _, o := range outcomes {
		if o.Failed() {
			failed = append(failed, o.Err)
		}
	}
	return failed
}
