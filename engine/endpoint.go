package engine

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// Remote URL schemes recognized by ParseEndpoint. Everything else is a local
// filesystem path.
var remoteSchemes = map[string]bool{
	"s3": true,
	"gs": true,
}

var wildcardRe = regexp.MustCompile(`(\*\*|\*|\?|\[[^]]+\])`)

// Endpoint is one side of a copy request: either an object-storage location
// (bucket and key) or a local filesystem path.
//
// TrailingSlash records whether the original string ended in a path separator.
// The distinction is load-bearing: it decides whether a container copy nests
// the source directory under the destination or flattens its contents.
type Endpoint struct {
	Scheme        string // remote URL scheme, empty for local endpoints
	Bucket        string
	Key           string // remote object key, never begins with "/"
	Path          string // local filesystem path
	Remote        bool
	TrailingSlash bool
}

// ParseEndpoint parses a raw URL or filesystem path. Wildcard patterns are
// rejected: glob expansion is out of scope.
func ParseEndpoint(raw string) (Endpoint, error) {
	if raw == "" {
		return Endpoint{}, fmt.Errorf("empty location: %w", ErrInvalidEndpoint)
	}
	if wildcardRe.MatchString(raw) {
		return Endpoint{}, fmt.Errorf("%q contains wildcards: %w", raw, ErrInvalidEndpoint)
	}

	u, err := url.Parse(raw)
	if err == nil && remoteSchemes[u.Scheme] {
		if u.Host == "" {
			return Endpoint{}, fmt.Errorf("%q has no bucket: %w", raw, ErrInvalidEndpoint)
		}
		key := strings.TrimPrefix(u.Path, "/")
		trailing := strings.HasSuffix(u.Path, "/")
		key = strings.TrimSuffix(key, "/")
		return Endpoint{
			Scheme:        u.Scheme,
			Bucket:        u.Host,
			Key:           key,
			Remote:        true,
			TrailingSlash: trailing,
		}, nil
	}

	trailing := strings.HasSuffix(raw, "/") && raw != "/"
	return Endpoint{
		Path:          filepath.Clean(raw),
		TrailingSlash: trailing,
	}, nil
}

// String reproduces the endpoint in URL or path form, trailing slash included.
func (e Endpoint) String() string {
	if e.Remote {
		s := e.Scheme + "://" + e.Bucket
		if e.Key != "" {
			s += "/" + e.Key
		}
		if e.TrailingSlash {
			s += "/"
		}
		return s
	}
	if e.TrailingSlash {
		return e.Path + "/"
	}
	return e.Path
}

// Base returns the last path segment of the endpoint. For a bucket root the
// bucket name itself is the base.
func (e Endpoint) Base() string {
	if e.Remote {
		if e.Key == "" {
			return e.Bucket
		}
		return path.Base(e.Key)
	}
	return filepath.Base(e.Path)
}

// child derives the endpoint rel path segments below e, dropping the
// trailing-slash marker.
func (e Endpoint) child(rel string) Endpoint {
	out := e
	out.TrailingSlash = false
	if e.Remote {
		if out.Key == "" {
			out.Key = rel
		} else {
			out.Key = out.Key + "/" + rel
		}
		return out
	}
	out.Path = filepath.Join(e.Path, filepath.FromSlash(rel))
	return out
}

// CopyKind classifies a (source, destination) endpoint pair.
type CopyKind int

// Copy kinds.
const (
	RemoteToRemote CopyKind = iota + 1
	RemoteToLocal
	LocalToRemote
	LocalToLocal
)

func (k CopyKind) String() string {
	switch k {
	case RemoteToRemote:
		return "remote->remote"
	case RemoteToLocal:
		return "remote->local"
	case LocalToRemote:
		return "local->remote"
	case LocalToLocal:
		return "local->local"
	}
	return "unknown"
}

// Classify determines the provenance of a copy request. It is a pure
// function: no I/O is performed.
func Classify(src, dst Endpoint) (CopyKind, error) {
	if err := validEndpoint(src); err != nil {
		return 0, fmt.Errorf("source: %w", err)
	}
	if err := validEndpoint(dst); err != nil {
		return 0, fmt.Errorf("destination: %w", err)
	}

	switch {
	case src.Remote && dst.Remote:
		return RemoteToRemote, nil
	case src.Remote:
		return RemoteToLocal, nil
	case dst.Remote:
		return LocalToRemote, nil
	default:
		return LocalToLocal, nil
	}
}

func validEndpoint(e Endpoint) error {
	if e.Remote {
		if e.Bucket == "" {
			return fmt.Errorf("missing bucket: %w", ErrInvalidEndpoint)
		}
		if strings.HasPrefix(e.Key, "/") {
			return fmt.Errorf("key %q begins with /: %w", e.Key, ErrInvalidEndpoint)
		}
		return nil
	}
	if e.Path == "" {
		return fmt.Errorf("missing path: %w", ErrInvalidEndpoint)
	}
	return nil
}
