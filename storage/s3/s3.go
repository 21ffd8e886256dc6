// Package s3 implements the storage.ObjectStore contract on top of the AWS S3
// API (and S3-compatible endpoints).
package s3

import (
	"context"
	"io"
	"net/url"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/credentials/ec2rolecreds"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/larrabee/ratelimit"

	"github.com/objcp/objcp/storage"
)

// Store is an S3-backed object store.
type Store struct {
	awsSvc        *s3.S3
	awsSession    *session.Session
	keysPerReq    int64
	retryCnt      uint
	retryInterval time.Duration
	rlBucket      ratelimit.Bucket
}

// NewStore return new configured S3 object store.
//
// You should always create new store with this constructor.
func NewStore(awsAccessKey, awsSecretKey, awsRegion, endpoint string, keysPerReq int64, retryCnt uint, retryInterval time.Duration) *Store {
	sess := session.Must(session.NewSession())

	sess.Config.S3ForcePathStyle = aws.Bool(true)
	sess.Config.CredentialsChainVerboseErrors = aws.Bool(true)
	sess.Config.Region = aws.String(awsRegion)

	if awsAccessKey != "" && awsSecretKey != "" {
		cred := credentials.NewStaticCredentials(awsAccessKey, awsSecretKey, "")
		sess.Config.WithCredentials(cred)
	} else {
		cred := credentials.NewChainCredentials(
			[]credentials.Provider{
				&credentials.EnvProvider{},
				&credentials.SharedCredentialsProvider{},
				&ec2rolecreds.EC2RoleProvider{
					Client: ec2metadata.New(sess),
				},
			})
		sess.Config.WithCredentials(cred)
	}

	if endpoint != "" {
		sess.Config.Endpoint = aws.String(endpoint)
	}

	sess.Config.Retryer = Retryer{RetryCnt: retryCnt, RetryDelay: retryInterval}

	st := Store{
		awsSession:    sess,
		awsSvc:        s3.New(sess),
		keysPerReq:    keysPerReq,
		retryCnt:      retryCnt,
		retryInterval: retryInterval,
		rlBucket:      ratelimit.NewFakeBucket(),
	}

	return &st
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

// List bucket contents under prefix. A "/" delimiter stops at direct children
// and reports deeper groupings as sorted prefix entries after the objects.
func (st *Store) List(ctx context.Context, bucket, prefix, delimiter string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo
	var prefixes []string

	listObjectsFn := func(p *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, o := range p.Contents {
			key, _ := url.QueryUnescape(aws.StringValue(o.Key))
			objects = append(objects, storage.ObjectInfo{
				Key:          key,
				Size:         aws.Int64Value(o.Size),
				ETag:         storage.StrongEtag(aws.StringValue(o.ETag)),
				Mtime:        aws.TimeValue(o.LastModified),
				StorageClass: aws.StringValue(o.StorageClass),
			})
		}
		for _, p := range p.CommonPrefixes {
			pfx, _ := url.QueryUnescape(aws.StringValue(p.Prefix))
			prefixes = append(prefixes, pfx)
		}
		return !lastPage // continue paging
	}

	input := &s3.ListObjectsV2Input{
		Bucket:       aws.String(bucket),
		Prefix:       aws.String(prefix),
		MaxKeys:      aws.Int64(st.keysPerReq),
		EncodingType: aws.String(s3.EncodingTypeUrl),
	}
	if delimiter != "" {
		input.Delimiter = aws.String(delimiter)
	}

	for i := uint(0); ; i++ {
		err := st.awsSvc.ListObjectsV2PagesWithContext(ctx, input, listObjectsFn)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 listing failed with error: %s", err)
			time.Sleep(st.retryInterval)
			objects = objects[:0]
			prefixes = prefixes[:0]
			continue
		} else if err != nil {
			return nil, err
		}
		break
	}

	sort.Strings(prefixes)
	for _, pfx := range prefixes {
		objects = append(objects, storage.ObjectInfo{Key: pfx, IsPrefix: true})
	}
	return objects, nil
}

// Get returns the object content stream.
func (st *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	for i := uint(0); ; i++ {
		result, err := st.awsSvc.GetObjectWithContext(ctx, input)
		if (err != nil) && (i < st.retryCnt) && !storage.IsErrNotExist(err) {
			storage.Log.Debugf("S3 obj downloading request failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if err != nil {
			return nil, err
		}
		return storage.RateLimitedBody(result.Body, st.rlBucket), nil
	}
}

// Put saves body under the given key together with the info metadata.
func (st *Store) Put(ctx context.Context, bucket, key string, body io.Reader, info *storage.ObjectInfo) error {
	objReader, err := storage.SeekableBody(body)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   ratelimit.NewReadSeeker(objReader, st.rlBucket),
	}
	if info != nil {
		if info.ContentType != "" {
			input.ContentType = aws.String(info.ContentType)
		}
		if info.StorageClass != "" {
			input.StorageClass = aws.String(info.StorageClass)
		}
		if len(info.Metadata) > 0 {
			input.Metadata = make(map[string]*string, len(info.Metadata))
			for k, v := range info.Metadata {
				input.Metadata[k] = aws.String(v)
			}
		}
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.PutObjectWithContext(ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj uploading failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if err != nil {
			return err
		}
		return nil
	}
}

// Copy performs a backend-side copy, carrying object metadata through.
func (st *Store) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(url.QueryEscape(srcBucket + "/" + srcKey)),
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.CopyObjectWithContext(ctx, input)
		if (err != nil) && (i < st.retryCnt) && !storage.IsErrNotExist(err) {
			storage.Log.Debugf("S3 obj copying failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if err != nil {
			return err
		}
		return nil
	}
}

// Delete removes the object.
func (st *Store) Delete(ctx context.Context, bucket, key string) error {
	input := &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	for i := uint(0); ; i++ {
		_, err := st.awsSvc.DeleteObjectWithContext(ctx, input)
		if (err != nil) && (i < st.retryCnt) {
			storage.Log.Debugf("S3 obj removing failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if err != nil {
			return err
		}
		return nil
	}
}

// Stat returns object metadata without fetching content.
func (st *Store) Stat(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	input := &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	for i := uint(0); ; i++ {
		result, err := st.awsSvc.HeadObjectWithContext(ctx, input)
		if (err != nil) && (i < st.retryCnt) && !storage.IsErrNotExist(err) {
			storage.Log.Debugf("S3 obj meta request failed with error: %s", err)
			time.Sleep(st.retryInterval)
			continue
		} else if err != nil {
			return nil, err
		}

		info := storage.ObjectInfo{
			Key:          key,
			Size:         aws.Int64Value(result.ContentLength),
			ETag:         storage.StrongEtag(aws.StringValue(result.ETag)),
			Mtime:        aws.TimeValue(result.LastModified),
			ContentType:  aws.StringValue(result.ContentType),
			StorageClass: aws.StringValue(result.StorageClass),
		}
		if len(result.Metadata) > 0 {
			info.Metadata = make(map[string]string, len(result.Metadata))
			for k, v := range result.Metadata {
				info.Metadata[k] = aws.StringValue(v)
			}
		}
		return &info, nil
	}
}
