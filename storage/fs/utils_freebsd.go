//go:build freebsd
// +build freebsd

package fs

import (
	"syscall"

	"github.com/pkg/xattr"
)

func isNoXattrData(err error) bool {
	if xErr, ok := err.(*xattr.Error); ok {
		return xErr.Err == syscall.ENOATTR
	}
	return false
}

func isXattrSupported() bool {
	return true
}
