package engine

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCpUploadDownloadRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	tmp := t.TempDir()

	for name, content := range map[string][]byte{
		"empty.bin": {},
		"tiny.bin":  {0x42},
		"big.bin":   bytes.Repeat([]byte("0123456789abcdef"), 1<<16),
	} {
		src := filepath.Join(tmp, name)
		require.NoError(t, os.WriteFile(src, content, 0644))
		require.NoError(t, c.Cp(ctx, src, "s3://b/up/"+name, Options{}))

		dst := filepath.Join(tmp, "back-"+name)
		require.NoError(t, c.Cp(ctx, "s3://b/up/"+name, dst, Options{}))

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, content, got, name)
	}
}

func TestCpDirectoryRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub", "deep"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("aaa"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("bbb"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep", "c.txt"), []byte("ccc"), 0644))

	require.NoError(t, c.Cp(ctx, src, "s3://b/tree", Options{Recursive: true}))

	urls, err := c.Ls(ctx, "s3://b/tree", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://b/tree/a.txt",
		"s3://b/tree/sub/b.txt",
		"s3://b/tree/sub/deep/c.txt",
	}, urls)

	dst := filepath.Join(t.TempDir(), "out")
	require.NoError(t, c.Cp(ctx, "s3://b/tree", dst, Options{Recursive: true}))

	got, err := os.ReadFile(filepath.Join(dst, "sub", "deep", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, []byte("ccc"), got)
}

func TestCpRemoteToRemote(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	seedObjects(t, store, "b", "src/one.txt", "src/nested/two.txt")

	require.NoError(t, c.Cp(ctx, "s3://b/src", "s3://b2/dst/", Options{Recursive: true}))

	urls, err := c.Ls(ctx, "s3://b2/dst", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://b2/dst/src/nested/two.txt",
		"s3://b2/dst/src/one.txt",
	}, urls)
}

func TestCpNoClobberSkipsSecondRun(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("aaa"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("bbb"), 0644))

	opts := Options{Recursive: true, NoClobber: true}
	require.NoError(t, c.Cp(ctx, src, "s3://b/dst", opts))
	puts := store.PutCount()
	assert.Equal(t, uint64(2), puts)

	// second run finds everything in place and uploads nothing
	require.NoError(t, c.Cp(ctx, src, "s3://b/dst", opts))
	assert.Equal(t, puts, store.PutCount())
	assert.Equal(t, uint64(2), c.Progress().Skipped.Load())
}

func TestCpPreservePosixMetadata(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	tmp := t.TempDir()

	src := filepath.Join(tmp, "orig.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0640))
	mtime := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, mtime, mtime))

	opts := Options{PreserveMetadata: true}
	require.NoError(t, c.Cp(ctx, src, "s3://b/meta/orig.txt", opts))

	stat, err := c.Stat(ctx, "s3://b/meta/orig.txt")
	require.NoError(t, err)
	assert.Equal(t, "640", stat.PosixMode)
	assert.Equal(t, mtime.Unix(), stat.FileMtime.Unix())

	dst := filepath.Join(tmp, "restored.txt")
	require.NoError(t, c.Cp(ctx, "s3://b/meta/orig.txt", dst, opts))

	fi, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), fi.Mode().Perm())
	assert.Equal(t, mtime.Unix(), fi.ModTime().Unix())
}

func TestCpManyToManyIsolatesFailures(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	seedObjects(t, store, "b", "good/one.txt", "good/two.txt")

	err := c.CpManyToMany(ctx, []Request{
		{Src: "s3://b/good", Dst: "s3://b/out/"},
		{Src: "s3://b/missing.txt", Dst: "s3://b/out/missing.txt"},
	}, Options{Recursive: true})

	var pf *PartialFailureError
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, 3, pf.Total)
	require.Len(t, pf.Failed, 1)
	assert.Equal(t, "s3://b/missing.txt", pf.Failed[0].Src)
	assert.ErrorIs(t, pf.Failed[0], ErrNoMatch)

	// the healthy request still landed in full
	urls, lsErr := c.Ls(ctx, "s3://b/out", true)
	require.NoError(t, lsErr)
	assert.Len(t, urls, 2)
}

func TestCpManyToManyAllHealthy(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	seedObjects(t, store, "b", "x/a.txt", "y/b.txt")

	err := c.CpManyToMany(ctx, []Request{
		{Src: "s3://b/x/a.txt", Dst: "s3://b/z/a.txt"},
		{Src: "s3://b/y/b.txt", Dst: "s3://b/z/b.txt"},
	}, Options{})
	require.NoError(t, err)

	_, err = store.Stat(ctx, "b", "z/a.txt")
	require.NoError(t, err)
	_, err = store.Stat(ctx, "b", "z/b.txt")
	require.NoError(t, err)
}

func TestLsNonRecursive(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	seedObjects(t, store, "b", "a/1.txt", "a/2.txt", "a/sub/3.txt", "unrelated.txt")

	urls, err := c.Ls(ctx, "s3://b/a", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"s3://b/a/1.txt",
		"s3://b/a/2.txt",
		"s3://b/a/sub/",
	}, urls)
}

func TestRmSingle(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	seedObjects(t, store, "b", "doomed.txt")

	require.NoError(t, c.Rm(ctx, "s3://b/doomed.txt", Options{}))
	_, err := store.Stat(ctx, "b", "doomed.txt")
	require.Error(t, err)

	err = c.Rm(ctx, "s3://b/doomed.txt", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Contains(t, err.Error(), "rm recursive")
}

func TestRmRecursive(t *testing.T) {
	c, store := newTestClient(t)
	ctx := context.Background()
	seedObjects(t, store, "b", "pfx", "pfx/a.txt", "pfx/sub/b.txt", "pfxother.txt")

	require.NoError(t, c.Rm(ctx, "s3://b/pfx", Options{Recursive: true}))

	urls, err := c.Ls(ctx, "s3://b", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"s3://b/pfxother.txt"}, urls)

	// recursive rm of nothing is a silent no-op
	require.NoError(t, c.Rm(ctx, "s3://b/pfx", Options{Recursive: true}))
}

func TestReadWriteTextAndBytes(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.WriteText(ctx, "s3://b/notes/hello.txt", "hello world"))
	text, err := c.ReadText(ctx, "s3://b/notes/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)

	payload := []byte{0x00, 0xff, 0x10}
	require.NoError(t, c.WriteBytes(ctx, "s3://b/notes/raw.bin", payload))
	got, err := c.ReadBytes(ctx, "s3://b/notes/raw.bin")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = c.ReadBytes(ctx, "s3://b/notes/absent.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStat(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	content := []byte("stat me")
	require.NoError(t, c.WriteBytes(ctx, "s3://b/s/file.txt", content))

	stat, err := c.Stat(ctx, "s3://b/s/file.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), stat.ContentLength)
	sum := md5.Sum(content)
	assert.Equal(t, sum[:], stat.MD5)
	assert.NotEmpty(t, stat.CRC32C)

	_, err = c.Stat(ctx, "s3://b/s/absent.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSameMD5(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	tmp := t.TempDir()

	local := filepath.Join(tmp, "file.txt")
	require.NoError(t, os.WriteFile(local, []byte("same content"), 0644))
	require.NoError(t, c.WriteBytes(ctx, "s3://b/cmp/file.txt", []byte("same content")))

	same, err := c.SameMD5(ctx, local, "s3://b/cmp/file.txt")
	require.NoError(t, err)
	assert.True(t, same)

	require.NoError(t, os.WriteFile(local, []byte("different"), 0644))
	same, err = c.SameMD5(ctx, local, "s3://b/cmp/file.txt")
	require.NoError(t, err)
	assert.False(t, same)

	// missing object compares unequal without error
	same, err = c.SameMD5(ctx, local, "s3://b/cmp/absent.txt")
	require.NoError(t, err)
	assert.False(t, same)
}

func TestSameModtime(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	tmp := t.TempDir()

	local := filepath.Join(tmp, "file.txt")
	require.NoError(t, os.WriteFile(local, []byte("content"), 0644))
	mtime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(local, mtime, mtime))

	require.NoError(t, c.Cp(ctx, local, "s3://b/mt/file.txt", Options{PreserveMetadata: true}))

	same, err := c.SameModtime(ctx, local, "s3://b/mt/file.txt")
	require.NoError(t, err)
	assert.True(t, same)

	require.NoError(t, os.Chtimes(local, mtime.Add(time.Hour), mtime.Add(time.Hour)))
	same, err = c.SameModtime(ctx, local, "s3://b/mt/file.txt")
	require.NoError(t, err)
	assert.False(t, same)

	// object without preserved mtime metadata never matches
	require.NoError(t, c.WriteBytes(ctx, "s3://b/mt/plain.txt", []byte("content")))
	same, err = c.SameModtime(ctx, local, "s3://b/mt/plain.txt")
	require.NoError(t, err)
	assert.False(t, same)
}

func TestMD5Hexdigests(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	first := []byte("first")
	second := []byte("second")
	require.NoError(t, c.WriteBytes(ctx, "s3://b/h/first.txt", first))
	require.NoError(t, c.WriteBytes(ctx, "s3://b/h/second.txt", second))

	sumFirst := md5.Sum(first)
	sumSecond := md5.Sum(second)

	for _, workers := range []int{1, 8} {
		digests, err := c.MD5Hexdigests(ctx, []string{
			"s3://b/h/second.txt",
			"s3://b/h/absent.txt",
			"s3://b/h/first.txt",
		}, workers)
		require.NoError(t, err)
		assert.Equal(t, []string{
			hex.EncodeToString(sumSecond[:]),
			"",
			hex.EncodeToString(sumFirst[:]),
		}, digests, "workers=%d", workers)
	}
}
