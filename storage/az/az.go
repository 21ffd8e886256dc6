// Package az implements the storage.ObjectStore contract on top of Azure Blob
// Storage. Buckets map to blob containers.
package az

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/larrabee/ratelimit"

	"github.com/objcp/objcp/storage"
)

// Store is an Azure Blob backed object store.
type Store struct {
	client     *azblob.Client
	keysPerReq int32
	rlBucket   ratelimit.Bucket
}

// NewStore return new configured AZ object store.
//
// You should always create new store with this constructor.
func NewStore(accountKey, accountSecret, endpoint string, keysPerReq int32) (*Store, error) {
	credential, err := azblob.NewSharedKeyCredential(accountKey, accountSecret)
	if err != nil {
		return nil, err
	}
	cl, err := azblob.NewClientWithSharedKeyCredential(endpoint, credential, nil)
	if err != nil {
		return nil, err
	}

	st := Store{
		client:     cl,
		keysPerReq: keysPerReq,
		rlBucket:   ratelimit.NewFakeBucket(),
	}

	return &st, nil
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

func blobToInfo(it *container.BlobItem) storage.ObjectInfo {
	info := storage.ObjectInfo{}
	if it.Name != nil {
		info.Key = *it.Name
	}
	if it.Properties != nil {
		if it.Properties.ContentLength != nil {
			info.Size = *it.Properties.ContentLength
		}
		if it.Properties.ETag != nil {
			info.ETag = storage.StrongEtag(string(*it.Properties.ETag))
		}
		if it.Properties.LastModified != nil {
			info.Mtime = *it.Properties.LastModified
		}
		if it.Properties.ContentType != nil {
			info.ContentType = *it.Properties.ContentType
		}
		if it.Properties.AccessTier != nil {
			info.StorageClass = string(*it.Properties.AccessTier)
		}
	}
	if len(it.Metadata) > 0 {
		info.Metadata = make(map[string]string, len(it.Metadata))
		for k, v := range it.Metadata {
			if v != nil {
				info.Metadata[k] = *v
			}
		}
	}
	return info
}

// List container contents under prefix. A non-empty delimiter lists the
// hierarchy one level deep, appending sorted blob prefixes after the objects.
func (st *Store) List(ctx context.Context, bucket, prefix, delimiter string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo

	if delimiter == "" {
		pager := st.client.NewListBlobsFlatPager(bucket, &azblob.ListBlobsFlatOptions{
			Prefix:     &prefix,
			MaxResults: &st.keysPerReq,
		})
		for pager.More() {
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			for _, it := range page.Segment.BlobItems {
				objects = append(objects, blobToInfo(it))
			}
		}
		storage.Log.Debugf("Listing container finished")
		return objects, nil
	}

	var prefixes []string
	pager := st.client.ServiceClient().NewContainerClient(bucket).NewListBlobsHierarchyPager(delimiter, &container.ListBlobsHierarchyOptions{
		Prefix:     &prefix,
		MaxResults: &st.keysPerReq,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, it := range page.Segment.BlobItems {
			objects = append(objects, blobToInfo(it))
		}
		for _, p := range page.Segment.BlobPrefixes {
			if p.Name != nil {
				prefixes = append(prefixes, *p.Name)
			}
		}
	}

	sort.Strings(prefixes)
	for _, pfx := range prefixes {
		objects = append(objects, storage.ObjectInfo{Key: pfx, IsPrefix: true})
	}
	storage.Log.Debugf("Listing container finished")
	return objects, nil
}

// Get returns the blob content stream.
func (st *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	stream, err := st.client.DownloadStream(ctx, bucket, key, &azblob.DownloadStreamOptions{})
	if err != nil {
		return nil, err
	}
	return storage.RateLimitedBody(stream.Body, st.rlBucket), nil
}

// Put saves body under the given key together with the info metadata.
func (st *Store) Put(ctx context.Context, bucket, key string, body io.Reader, info *storage.ObjectInfo) error {
	options := azblob.UploadStreamOptions{}
	if info != nil {
		if info.ContentType != "" {
			ct := info.ContentType
			options.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &ct}
		}
		if len(info.Metadata) > 0 {
			options.Metadata = make(map[string]*string, len(info.Metadata))
			for k, v := range info.Metadata {
				v := v
				options.Metadata[k] = &v
			}
		}
	}

	rlReader := ratelimit.NewReader(body, st.rlBucket)
	_, err := st.client.UploadStream(ctx, bucket, key, rlReader, &options)
	return err
}

// Copy performs a server-side copy and waits for it to settle.
func (st *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	srcURL := st.client.ServiceClient().NewContainerClient(srcBucket).NewBlobClient(srcKey).URL()
	dstClient := st.client.ServiceClient().NewContainerClient(dstBucket).NewBlobClient(dstKey)

	if _, err := dstClient.StartCopyFromURL(ctx, srcURL, nil); err != nil {
		return err
	}

	// The copy is asynchronous on the service side, poll until it leaves the
	// pending state.
	for {
		props, err := dstClient.GetProperties(ctx, nil)
		if err != nil {
			return err
		}
		if props.CopyStatus == nil || *props.CopyStatus != blob.CopyStatusTypePending {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// Delete removes the blob.
func (st *Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := st.client.DeleteBlob(ctx, bucket, key, nil)
	return err
}

// Stat returns blob metadata without fetching content.
func (st *Store) Stat(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	props, err := st.client.ServiceClient().NewContainerClient(bucket).NewBlobClient(key).GetProperties(ctx, &blob.GetPropertiesOptions{})
	if err != nil {
		return nil, err
	}

	info := storage.ObjectInfo{Key: key}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.ETag != nil {
		info.ETag = storage.StrongEtag(string(*props.ETag))
	}
	if props.LastModified != nil {
		info.Mtime = *props.LastModified
	}
	if props.ContentType != nil {
		info.ContentType = *props.ContentType
	}
	if props.AccessTier != nil {
		info.StorageClass = *props.AccessTier
	}
	if len(props.Metadata) > 0 {
		info.Metadata = make(map[string]string, len(props.Metadata))
		for k, v := range props.Metadata {
			if v != nil {
				info.Metadata[k] = *v
			}
		}
	}
	return &info, nil
}
