// Package mem implements an in-memory storage.ObjectStore. It is used by the
// test suites and is handy as a scratch backend; listings are lexicographic,
// so a given store state always lists in the same order.
package mem

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/objcp/objcp/storage"
)

type memObject struct {
	data []byte
	info storage.ObjectInfo
}

// Store is a thread-safe in-memory object store.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memObject

	puts    uint64
	gets    uint64
	deletes uint64
}

// NewStore return new empty in-memory store.
func NewStore() *Store {
	return &Store{buckets: make(map[string]map[string]memObject)}
}

// PutCount reports how many Put calls the store has served.
func (st *Store) PutCount() uint64 { return atomic.LoadUint64(&st.puts) }

// GetCount reports how many Get calls the store has served.
func (st *Store) GetCount() uint64 { return atomic.LoadUint64(&st.gets) }

// DeleteCount reports how many Delete calls the store has served.
func (st *Store) DeleteCount() uint64 { return atomic.LoadUint64(&st.deletes) }

func (st *Store) bucket(name string) map[string]memObject {
	b, ok := st.buckets[name]
	if !ok {
		b = make(map[string]memObject)
		st.buckets[name] = b
	}
	return b
}

// List bucket contents under prefix in lexicographic key order. A non-empty
// delimiter stops at direct children and appends sorted prefix entries after
// the objects.
func (st *Store) List(ctx context.Context, bucket, prefix, delimiter string) ([]storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	var keys []string
	for key := range st.buckets[bucket] {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var infos []storage.ObjectInfo
	prefixSet := make(map[string]struct{})
	for _, key := range keys {
		if delimiter != "" {
			rest := key[len(prefix):]
			if idx := strings.Index(rest, delimiter); idx >= 0 {
				prefixSet[prefix+rest[:idx+len(delimiter)]] = struct{}{}
				continue
			}
		}
		info := st.buckets[bucket][key].info
		info.Metadata = storage.CloneMetadata(info.Metadata)
		infos = append(infos, info)
	}

	prefixes := make([]string, 0, len(prefixSet))
	for pfx := range prefixSet {
		prefixes = append(prefixes, pfx)
	}
	sort.Strings(prefixes)
	for _, pfx := range prefixes {
		infos = append(infos, storage.ObjectInfo{Key: pfx, IsPrefix: true})
	}
	return infos, nil
}

// Get returns the object content stream.
func (st *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.RLock()
	obj, ok := st.buckets[bucket][key]
	st.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mem: get %s/%s: %w", bucket, key, os.ErrNotExist)
	}
	atomic.AddUint64(&st.gets, 1)
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Put saves body under the given key together with the info metadata.
func (st *Store) Put(ctx context.Context, bucket, key string, body io.Reader, info *storage.ObjectInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	sum := md5.Sum(data)
	stored := storage.ObjectInfo{
		Key:   key,
		Size:  int64(len(data)),
		ETag:  hex.EncodeToString(sum[:]),
		Mtime: time.Now(),
	}
	if info != nil {
		stored.ContentType = info.ContentType
		stored.StorageClass = info.StorageClass
		stored.Metadata = storage.CloneMetadata(info.Metadata)
	}

	st.mu.Lock()
	st.bucket(bucket)[key] = memObject{data: data, info: stored}
	st.mu.Unlock()
	atomic.AddUint64(&st.puts, 1)
	return nil
}

// Copy duplicates an object inside the store, metadata included.
func (st *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	obj, ok := st.buckets[srcBucket][srcKey]
	if !ok {
		return fmt.Errorf("mem: copy %s/%s: %w", srcBucket, srcKey, os.ErrNotExist)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	info := obj.info
	info.Key = dstKey
	info.Mtime = time.Now()
	info.Metadata = storage.CloneMetadata(info.Metadata)
	st.bucket(dstBucket)[dstKey] = memObject{data: data, info: info}
	return nil
}

// Delete removes the object.
func (st *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.buckets[bucket][key]; !ok {
		return fmt.Errorf("mem: delete %s/%s: %w", bucket, key, os.ErrNotExist)
	}
	delete(st.buckets[bucket], key)
	atomic.AddUint64(&st.deletes, 1)
	return nil
}

// Stat returns object metadata without fetching content.
func (st *Store) Stat(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.RLock()
	defer st.mu.RUnlock()

	obj, ok := st.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("mem: stat %s/%s: %w", bucket, key, os.ErrNotExist)
	}
	info := obj.info
	info.Metadata = storage.CloneMetadata(info.Metadata)
	return &info, nil
}
