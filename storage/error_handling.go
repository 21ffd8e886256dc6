package storage

import (
	"context"
	"errors"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gophercloud/gophercloud"
)

// IsErrNotExist reports whether err denotes a missing object or file,
// regardless of which backend produced it.
func IsErrNotExist(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		if (aErr.Code() == s3.ErrCodeNoSuchKey) || (aErr.Code() == "NotFound") {
			return true
		}
	}

	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return true
	}

	var gErr gophercloud.ErrDefault404
	if errors.As(err, &gErr) {
		return true
	}

	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	return false
}

// IsErrPermission reports whether err denotes an access-denied condition.
func IsErrPermission(err error) bool {
	var aErr awserr.Error
	if errors.As(err, &aErr) {
		if aErr.Code() == "AccessDenied" {
			return true
		}
	}

	if bloberror.HasCode(err, bloberror.AuthorizationFailure) {
		return true
	}

	if errors.Is(err, os.ErrPermission) {
		return true
	}
	return false
}

// IsErrContextCanceled unwraps backend-specific cancellation wrappers.
func IsErrContextCanceled(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return true
	}

	var aErr awserr.Error
	if ok := errors.As(err, &aErr); ok && aErr.OrigErr() == context.Canceled {
		return true
	} else if ok && aErr.Code() == request.CanceledErrorCode {
		return true
	}

	return false
}
