package engine

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Custom-metadata keys used to carry POSIX attributes on remote objects,
// following the gsutil reserved-key convention. Absent attributes are left
// unset, never zeroed.
const (
	metaPosixUID  = "posix-uid"
	metaPosixGID  = "posix-gid"
	metaPosixMode = "posix-mode"
	metaFileAtime = "file-atime"
	metaFileMtime = "file-mtime"
	metaCRC32C    = "crc32c"
)

// posixMetadata maps the local stat structure to remote custom metadata.
func posixMetadata(fi os.FileInfo) map[string]string {
	m := map[string]string{
		metaPosixMode: fmt.Sprintf("%03o", fi.Mode().Perm()),
		metaFileMtime: strconv.FormatInt(fi.ModTime().Unix(), 10),
	}
	if uid, gid, ok := statOwner(fi); ok {
		m[metaPosixUID] = strconv.Itoa(uid)
		m[metaPosixGID] = strconv.Itoa(gid)
	}
	if atime, ok := statAtime(fi); ok {
		m[metaFileAtime] = strconv.FormatInt(atime, 10)
	}
	return m
}

// applyPosixMetadata applies remote custom metadata back onto a local file.
// Ownership changes are best effort: without privileges chown fails and the
// transfer is still considered successful.
func applyPosixMetadata(path string, meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}

	if mode, ok := meta[metaPosixMode]; ok {
		bits, err := strconv.ParseUint(mode, 8, 32)
		if err != nil {
			return fmt.Errorf("bad %s %q: %w", metaPosixMode, mode, err)
		}
		if err := os.Chmod(path, os.FileMode(bits)); err != nil {
			return err
		}
	}

	mtime, hasMtime := parseUnixTime(meta[metaFileMtime])
	atime, hasAtime := parseUnixTime(meta[metaFileAtime])
	if hasMtime || hasAtime {
		if !hasAtime {
			atime = mtime
		}
		if !hasMtime {
			fi, err := os.Stat(path)
			if err != nil {
				return err
			}
			mtime = fi.ModTime()
		}
		if err := os.Chtimes(path, atime, mtime); err != nil {
			return err
		}
	}

	uid, hasUID := meta[metaPosixUID]
	gid, hasGID := meta[metaPosixGID]
	if hasUID && hasGID {
		u, uErr := strconv.Atoi(uid)
		g, gErr := strconv.Atoi(gid)
		if uErr == nil && gErr == nil {
			if err := os.Chown(path, u, g); err != nil {
				Log.Debugf("chown %s to %d:%d failed: %s", path, u, g, err)
			}
		}
	}

	return nil
}

func parseUnixTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(sec, 0), true
}
