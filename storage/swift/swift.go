// Package swift implements the storage.ObjectStore contract on top of
// OpenStack Swift. Buckets map to Swift containers.
package swift

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"sort"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/gophercloud/openstack/objectstorage/v1/objects"
	"github.com/gophercloud/gophercloud/pagination"
	"github.com/larrabee/ratelimit"

	"github.com/objcp/objcp/storage"
)

// Store is a Swift-backed object store.
type Store struct {
	conn     *gophercloud.ServiceClient
	rlBucket ratelimit.Bucket
}

// NewStore return new configured Swift object store.
//
// You should always create new store with this constructor.
func NewStore(user, key, tenant, domain, authURL string, skipSSLVerify bool) (*Store, error) {
	st := &Store{
		rlBucket: ratelimit.NewFakeBucket(),
	}

	auth := gophercloud.AuthOptions{
		IdentityEndpoint: authURL,
		Username:         user,
		Password:         key,
		TenantName:       tenant,
		DomainName:       domain,
	}

	provider, err := openstack.AuthenticatedClient(auth)
	if err != nil {
		return nil, err
	}

	if skipSSLVerify {
		tr := &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
		provider.HTTPClient = http.Client{Transport: tr}
	}

	client, err := openstack.NewObjectStorageV1(provider, gophercloud.EndpointOpts{})
	if err != nil {
		return nil, err
	}

	st.conn = client

	return st, nil
}

// WithRateLimit set rate limit (bytes/sec) for the store.
func (st *Store) WithRateLimit(limit int) error {
	bucket, err := ratelimit.NewBucketWithRate(float64(limit), int64(limit))
	if err != nil {
		return err
	}
	st.rlBucket = bucket
	return nil
}

// List container contents under prefix. With a delimiter Swift reports deeper
// groupings as subdir entries, surfaced here as sorted prefix entries after
// the objects.
func (st *Store) List(ctx context.Context, bucket, prefix, delimiter string) ([]storage.ObjectInfo, error) {
	st.conn.Context = ctx
	opts := &objects.ListOpts{Full: true, Prefix: prefix, Delimiter: delimiter}
	pager := objects.List(st.conn, bucket, opts)

	var infos []storage.ObjectInfo
	var prefixes []string
	err := pager.EachPage(func(page pagination.Page) (bool, error) {
		objectList, err := objects.ExtractInfo(page)
		if err != nil {
			return false, err
		}
		for _, n := range objectList {
			if n.Subdir != "" {
				prefixes = append(prefixes, n.Subdir)
				continue
			}
			infos = append(infos, storage.ObjectInfo{
				Key:         n.Name,
				Size:        n.Bytes,
				ETag:        storage.StrongEtag(n.Hash),
				Mtime:       n.LastModified,
				ContentType: n.ContentType,
			})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(prefixes)
	for _, pfx := range prefixes {
		infos = append(infos, storage.ObjectInfo{Key: pfx, IsPrefix: true})
	}
	storage.Log.Debugf("Listing container finished")
	return infos, nil
}

// Get returns the object content stream.
func (st *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	st.conn.Context = ctx
	res := objects.Download(st.conn, bucket, key, objects.DownloadOpts{})
	if res.Err != nil {
		return nil, res.Err
	}
	return storage.RateLimitedBody(res.Body, st.rlBucket), nil
}

// Put saves body under the given key together with the info metadata.
func (st *Store) Put(ctx context.Context, bucket, key string, body io.Reader, info *storage.ObjectInfo) error {
	st.conn.Context = ctx
	opts := objects.CreateOpts{
		Content: ratelimit.NewReader(body, st.rlBucket),
	}
	if info != nil {
		opts.ContentType = info.ContentType
		if len(info.Metadata) > 0 {
			opts.Metadata = storage.CloneMetadata(info.Metadata)
		}
	}

	res := objects.Create(st.conn, bucket, key, opts)
	return res.Err
}

// Copy performs a backend-side copy, carrying object metadata through.
func (st *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	st.conn.Context = ctx
	opts := objects.CopyOpts{Destination: "/" + dstBucket + "/" + dstKey}
	res := objects.Copy(st.conn, srcBucket, srcKey, opts)
	return res.Err
}

// Delete removes the object.
func (st *Store) Delete(ctx context.Context, bucket, key string) error {
	st.conn.Context = ctx
	res := objects.Delete(st.conn, bucket, key, objects.DeleteOpts{})
	return res.Err
}

// Stat returns object metadata without fetching content.
func (st *Store) Stat(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	st.conn.Context = ctx
	res := objects.Get(st.conn, bucket, key, objects.GetOpts{})
	if res.Err != nil {
		return nil, res.Err
	}

	header, err := res.Extract()
	if err != nil {
		return nil, err
	}

	meta, err := res.ExtractMetadata()
	if err != nil {
		return nil, err
	}

	info := storage.ObjectInfo{
		Key:         key,
		Size:        header.ContentLength,
		ETag:        storage.StrongEtag(header.ETag),
		Mtime:       header.LastModified,
		ContentType: header.ContentType,
	}
	if len(meta) > 0 {
		info.Metadata = meta
	}
	return &info, nil
}
