package s3

import (
	"time"

	"github.com/aws/aws-sdk-go/aws/request"
)

// Retryer implements the request.Retryer interface with a fixed delay
// between attempts. With RetryCnt zero the SDK performs no transport-level
// retries and every failure surfaces to the caller's own retry loop.
type Retryer struct {
	RetryCnt   uint
	RetryDelay time.Duration
}

// MaxRetries returns the number of maximum retries the service will use to make
// an individual API request.
func (d Retryer) MaxRetries() int {
	return int(d.RetryCnt)
}

// RetryRules returns the delay duration before retrying this request again
func (d Retryer) RetryRules(r *request.Request) time.Duration {
	if d.RetryCnt == 0 {
		return 0
	}
	return d.RetryDelay
}

// ShouldRetry returns true if the request should be retried.
func (d Retryer) ShouldRetry(r *request.Request) bool {
	if d.RetryCnt == 0 {
		return false
	}

	// If one of the other handlers already set the retry state
	// we don't want to override it based on the service's state
	if r.Retryable != nil {
		return *r.Retryable
	}

	return r.IsErrorRetryable() || r.IsErrorThrottle()
}
