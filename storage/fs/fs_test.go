package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objcp/objcp/storage"
)

func newTestLocal() *Local {
	return NewLocal(0644, 0755, 0, false, true)
}

func seedTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("bb"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "c.txt"), []byte("ccc"), 0644))
	return root
}

func TestListNonRecursive(t *testing.T) {
	l := newTestLocal()
	root := seedTree(t)

	entries, err := l.List(root, false)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byRel := map[string]Entry{}
	for _, e := range entries {
		byRel[e.Rel] = e
	}
	require.Contains(t, byRel, "a.txt")
	require.Contains(t, byRel, "sub")
	assert.False(t, byRel["a.txt"].IsDir)
	assert.Equal(t, int64(1), byRel["a.txt"].Size)
	assert.True(t, byRel["sub"].IsDir)
}

func TestListRecursive(t *testing.T) {
	l := newTestLocal()
	root := seedTree(t)

	entries, err := l.List(root, true)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	rels := make([]string, len(entries))
	for i, e := range entries {
		rels[i] = e.Rel
	}
	assert.Equal(t, []string{"a.txt", "sub/b.txt", "sub/deep/c.txt"}, rels)
	for _, e := range entries {
		assert.False(t, e.IsDir)
		assert.True(t, filepath.IsAbs(e.Path))
	}
}

func TestListMissingRoot(t *testing.T) {
	l := newTestLocal()
	_, err := l.List(filepath.Join(t.TempDir(), "absent"), false)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFileCreatesParents(t *testing.T) {
	l := newTestLocal()
	path := filepath.Join(t.TempDir(), "x", "y", "z.txt")

	require.NoError(t, l.WriteFile(path, strings.NewReader("content")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	// no temp leftovers next to the final file
	dirents, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, dirents, 1)
	assert.Equal(t, "z.txt", dirents[0].Name())
}

func TestWriteFileNonAtomic(t *testing.T) {
	l := NewLocal(0644, 0755, 0, false, false)
	path := filepath.Join(t.TempDir(), "plain.txt")

	require.NoError(t, l.WriteFile(path, strings.NewReader("data")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestReadFile(t *testing.T) {
	l := newTestLocal()
	path := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(path, []byte("read me"), 0644))

	data, err := l.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "read me", string(data))
}

func TestCopyFilePreservesModeAndTimes(t *testing.T) {
	l := newTestLocal()
	tmp := t.TempDir()

	src := filepath.Join(tmp, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("copy me"), 0600))
	mtime := time.Date(2022, 11, 12, 13, 14, 15, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	dst := filepath.Join(tmp, "nested", "dst.txt")
	require.NoError(t, l.CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "copy me", string(data))

	fi, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), fi.Mode().Perm())
	assert.Equal(t, mtime.Unix(), fi.ModTime().Unix())
}

func TestObjectMetaRoundTrip(t *testing.T) {
	l := NewLocal(0644, 0755, 0, true, true)
	if !l.xattr {
		t.Skip("xattr not supported on this system")
	}
	path := filepath.Join(t.TempDir(), "m.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	info := &storage.ObjectInfo{
		Key:      "remote/m.txt",
		ETag:     "d41d8cd98f00b204e9800998ecf8427e",
		Metadata: map[string]string{"crc32c": "e3069283"},
	}
	if err := l.SetObjectMeta(path, info); err != nil {
		t.Skipf("xattr not supported on this filesystem: %s", err)
	}

	got, err := l.GetObjectMeta(path)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, info.Key, got.Key)
	assert.Equal(t, info.ETag, got.ETag)
	assert.Equal(t, "e3069283", got.Metadata["crc32c"])

	// a file without side metadata reads back as nil
	plain := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(plain, []byte("y"), 0644))
	got, err = l.GetObjectMeta(plain)
	require.NoError(t, err)
	assert.Nil(t, got)

	// disabled xattr support is a silent no-op
	off := NewLocal(0644, 0755, 0, false, true)
	require.NoError(t, off.SetObjectMeta(path, info))
	got, err = off.GetObjectMeta(path)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMkdirAll(t *testing.T) {
	l := newTestLocal()
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, l.MkdirAll(dir))
	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}
