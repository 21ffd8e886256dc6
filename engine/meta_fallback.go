//go:build !linux && !darwin && !freebsd && !netbsd
// +build !linux,!darwin,!freebsd,!netbsd

package engine

import (
	"os"
)

func statOwner(fi os.FileInfo) (uid, gid int, ok bool) {
	return 0, 0, false
}

func statAtime(fi os.FileInfo) (int64, bool) {
	return 0, false
}
