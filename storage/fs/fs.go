// Package fs is the local filesystem collaborator of the copy engine: listing,
// atomic writes, metadata-preserving copies and optional xattr side metadata.
package fs

import (
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/larrabee/ratelimit"
	"github.com/pkg/xattr"

	"github.com/objcp/objcp/storage"
)

const tempFileSuffixLen = 8

const xattrMetaKey = "user.objcp.meta"

const randChars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Entry is one filesystem item produced by List.
type Entry struct {
	Path  string // absolute path
	Rel   string // slash-separated path relative to the listed root
	Size  int64
	Mtime int64 // unix seconds
	IsDir bool
}

// Local holds the filesystem configuration shared by all local operations.
type Local struct {
	filePerm    os.FileMode
	dirPerm     os.FileMode
	bufSize     int
	xattr       bool
	atomicWrite bool
	rlBucket    ratelimit.Bucket
}

// NewLocal return new configured filesystem collaborator.
//
// You should always create it with this constructor.
func NewLocal(filePerm, dirPerm os.FileMode, bufSize int, extendedMeta bool, atomicWrite bool) *Local {
	l := Local{
		filePerm:    filePerm,
		dirPerm:     dirPerm,
		xattr:       extendedMeta && isXattrSupported(),
		atomicWrite: atomicWrite,
		rlBucket:    ratelimit.NewFakeBucket(),
	}

	if extendedMeta && !isXattrSupported() {
		storage.Log.Warnf("Xattr switch enabled, but your system does not support xattr, it will be disabled.")
	}

	if bufSize < godirwalk.MinimumScratchBufferSize {
		l.bufSize = godirwalk.MinimumScratchBufferSize
	} else {
		l.bufSize = bufSize
	}
	return &l
}

// WithRateLimit set rate limit (bytes/sec) for file reads and writes.
func (l *Local) WithRateLimit(limit int) error {
	bucket, err := ratelimit.NewBucketWithRate(float64(limit), int64(limit))
	if err != nil {
		return err
	}
	l.rlBucket = bucket
	return nil
}

// List returns the entries under root. Non-recursive listings return direct
// children with subdirectories reported as IsDir entries; recursive listings
// return every regular file in the subtree. Order is deterministic
// (lexicographic walk order).
func (l *Local) List(root string, recursive bool) ([]Entry, error) {
	root = filepath.Clean(root)

	if !recursive {
		dirents, err := os.ReadDir(root)
		if err != nil {
			return nil, err
		}
		entries := make([]Entry, 0, len(dirents))
		for _, de := range dirents {
			e := Entry{
				Path:  filepath.Join(root, de.Name()),
				Rel:   de.Name(),
				IsDir: de.IsDir(),
			}
			if fi, err := de.Info(); err == nil && !de.IsDir() {
				e.Size = fi.Size()
				e.Mtime = fi.ModTime().Unix()
			}
			entries = append(entries, e)
		}
		return entries, nil
	}

	var entries []Entry
	walkFn := func(path string, de *godirwalk.Dirent) error {
		regular := de.IsRegular()
		if de.IsSymlink() {
			pathTarget, err := filepath.EvalSymlinks(path)
			if err != nil {
				return err
			}
			symStat, err := os.Stat(pathTarget)
			if err != nil {
				return err
			}
			regular = !symStat.IsDir()
		}
		if !regular {
			return nil
		}

		rel := strings.TrimPrefix(path, root+string(filepath.Separator))
		e := Entry{Path: path, Rel: filepath.ToSlash(rel)}
		if fi, err := os.Stat(path); err == nil {
			e.Size = fi.Size()
			e.Mtime = fi.ModTime().Unix()
		}
		entries = append(entries, e)
		return nil
	}

	err := godirwalk.Walk(root, &godirwalk.Options{
		FollowSymbolicLinks: true,
		Unsorted:            false,
		ScratchBuffer:       make([]byte, l.bufSize),
		Callback:            walkFn,
		AllowNonDirectory:   true,
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Rel < entries[j].Rel })
	return entries, nil
}

// MkdirAll creates the directory chain with the configured dir permissions.
func (l *Local) MkdirAll(dir string) error {
	return os.MkdirAll(dir, l.dirPerm)
}

// WriteFile streams r into path, creating parent directories as needed.
func (l *Local) WriteFile(path string, r io.Reader) error {
	destPath := path
	if l.atomicWrite {
		destPath += ".temp." + insecureRandString(tempFileSuffixLen)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), l.dirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, l.filePerm)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, ratelimit.NewReader(r, l.rlBucket)); err != nil {
		return err
	}

	if l.atomicWrite {
		if err := os.Rename(destPath, path); err != nil {
			return err
		}
	}

	return nil
}

// ReadFile reads the whole file through the rate limit bucket.
func (l *Local) ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(ratelimit.NewReader(f, l.rlBucket))
}

// CopyFile copies src to dst, carrying over mode bits and timestamps. The
// filesystem preserves these natively on local copies, no flag needed.
func (l *Local) CopyFile(src, dst string) error {
	srcStat, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), l.dirPerm); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcStat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, ratelimit.NewReader(in, l.rlBucket)); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := os.Chmod(dst, srcStat.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, srcStat.ModTime(), srcStat.ModTime())
}

// SetObjectMeta stores the remote object record as xattr side metadata on the
// downloaded file. No-op when xattr support is disabled.
func (l *Local) SetObjectMeta(path string, info *storage.ObjectInfo) error {
	if !l.xattr || info == nil {
		return nil
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return xattr.Set(path, xattrMetaKey, data)
}

// GetObjectMeta reads back the xattr side metadata, nil when absent.
func (l *Local) GetObjectMeta(path string) (*storage.ObjectInfo, error) {
	if !l.xattr {
		return nil, nil
	}
	data, err := xattr.Get(path, xattrMetaKey)
	if err != nil {
		if isNoXattrData(err) {
			return nil, nil
		}
		return nil, err
	}
	info := &storage.ObjectInfo{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, err
	}
	return info, nil
}

func insecureRandString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = randChars[rand.Intn(len(randChars))]
	}
	return string(b)
}
