package storage

import (
	"bytes"
	"io"
	"strings"

	"github.com/larrabee/ratelimit"
)

// StrongEtag remove "W/" prefix and surrounding quotes from ETag.
// In some cases the backend return ETag with "W/" prefix which mean that it
// not strong ETag. For easier compare we remove this prefix.
func StrongEtag(s string) string {
	etag := strings.TrimPrefix(s, "W/")
	etag = strings.Trim(etag, "\"")
	return etag
}

type rateLimitedBody struct {
	io.Reader
	io.Closer
}

// RateLimitedBody wraps a content stream with a rate limit bucket while
// keeping the underlying Close.
func RateLimitedBody(rc io.ReadCloser, bucket ratelimit.Bucket) io.ReadCloser {
	return &rateLimitedBody{Reader: ratelimit.NewReader(rc, bucket), Closer: rc}
}

// SeekableBody returns body as an io.ReadSeeker, buffering it in memory when
// the reader cannot seek. Backends need seekable bodies for request signing
// and retries.
func SeekableBody(body io.Reader) (io.ReadSeeker, error) {
	if rs, ok := body.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// CloneMetadata returns a copy of the metadata map, nil in nil out.
func CloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
