package engine

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpointRemote(t *testing.T) {
	ep, err := ParseEndpoint("s3://bucket/dir/file.txt")
	require.NoError(t, err)
	assert.True(t, ep.Remote)
	assert.Equal(t, "s3", ep.Scheme)
	assert.Equal(t, "bucket", ep.Bucket)
	assert.Equal(t, "dir/file.txt", ep.Key)
	assert.False(t, ep.TrailingSlash)
	assert.Equal(t, "s3://bucket/dir/file.txt", ep.String())
}

func TestParseEndpointRemoteTrailingSlash(t *testing.T) {
	ep, err := ParseEndpoint("gs://bucket/dir/")
	require.NoError(t, err)
	assert.True(t, ep.Remote)
	assert.Equal(t, "gs", ep.Scheme)
	assert.Equal(t, "dir", ep.Key)
	assert.True(t, ep.TrailingSlash)
	assert.Equal(t, "gs://bucket/dir/", ep.String())
}

func TestParseEndpointBucketRoot(t *testing.T) {
	ep, err := ParseEndpoint("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "", ep.Key)
	assert.False(t, ep.TrailingSlash)
	assert.Equal(t, "bucket", ep.Base())

	ep, err = ParseEndpoint("s3://bucket/")
	require.NoError(t, err)
	assert.Equal(t, "", ep.Key)
	assert.True(t, ep.TrailingSlash)
	assert.Equal(t, "s3://bucket/", ep.String())
}

func TestParseEndpointLocal(t *testing.T) {
	ep, err := ParseEndpoint("/tmp/some/dir/")
	require.NoError(t, err)
	assert.False(t, ep.Remote)
	assert.Equal(t, filepath.Clean("/tmp/some/dir"), ep.Path)
	assert.True(t, ep.TrailingSlash)
	assert.Equal(t, "dir", ep.Base())
}

func TestParseEndpointRejected(t *testing.T) {
	for _, raw := range []string{
		"",
		"s3://bucket/dir/*.txt",
		"s3://bucket/dir/**",
		"s3://bucket/file?.txt",
		"s3://bucket/[ab]/file",
		"s3://",
	} {
		_, err := ParseEndpoint(raw)
		assert.ErrorIs(t, err, ErrInvalidEndpoint, "raw=%q", raw)
	}
}

func TestEndpointChild(t *testing.T) {
	ep, err := ParseEndpoint("s3://bucket/dir/")
	require.NoError(t, err)
	child := ep.child("sub/file.txt")
	assert.Equal(t, "dir/sub/file.txt", child.Key)
	assert.False(t, child.TrailingSlash)

	root, err := ParseEndpoint("s3://bucket")
	require.NoError(t, err)
	assert.Equal(t, "file.txt", root.child("file.txt").Key)

	local, err := ParseEndpoint("/tmp/dst")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/dst", "sub", "file.txt"), local.child("sub/file.txt").Path)
}

func TestClassify(t *testing.T) {
	remote, err := ParseEndpoint("s3://bucket/key")
	require.NoError(t, err)
	local, err := ParseEndpoint("/tmp/file")
	require.NoError(t, err)

	cases := []struct {
		src, dst Endpoint
		want     CopyKind
	}{
		{remote, remote, RemoteToRemote},
		{remote, local, RemoteToLocal},
		{local, remote, LocalToRemote},
		{local, local, LocalToLocal},
	}
	for _, c := range cases {
		kind, err := Classify(c.src, c.dst)
		require.NoError(t, err)
		assert.Equal(t, c.want, kind)
	}
}

func TestClassifyInvalid(t *testing.T) {
	_, err := Classify(Endpoint{Remote: true}, Endpoint{Path: "/tmp"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidEndpoint))
}
