//go:build linux || darwin || netbsd
// +build linux darwin netbsd

package fs

import (
	"syscall"

	"github.com/pkg/xattr"
)

func isNoXattrData(err error) bool {
	if xErr, ok := err.(*xattr.Error); ok {
		return xErr.Err == syscall.ENODATA
	}
	return false
}

func isXattrSupported() bool {
	return true
}
