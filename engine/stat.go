package engine

import (
	"encoding/hex"
	"time"

	"github.com/objcp/objcp/storage"
)

// Stat is the metadata record of one remote object, including the POSIX
// attributes carried in custom metadata when the object was uploaded with
// metadata preservation. Attribute fields are zero when unset.
type Stat struct {
	ContentLength int64
	ContentType   string
	StorageClass  string
	UpdateTime    time.Time

	FileAtime time.Time
	FileMtime time.Time
	PosixUID  string
	PosixGID  string
	PosixMode string

	MD5      []byte
	CRC32C   []byte
	Metadata map[string]string
}

func newStat(info *storage.ObjectInfo) *Stat {
	s := &Stat{
		ContentLength: info.Size,
		ContentType:   info.ContentType,
		StorageClass:  info.StorageClass,
		UpdateTime:    info.Mtime,
		MD5:           md5FromETag(info.ETag),
		Metadata:      info.Metadata,
	}
	if m := info.Metadata; m != nil {
		s.PosixUID = m[metaPosixUID]
		s.PosixGID = m[metaPosixGID]
		s.PosixMode = m[metaPosixMode]
		if t, ok := parseUnixTime(m[metaFileMtime]); ok {
			s.FileMtime = t
		}
		if t, ok := parseUnixTime(m[metaFileAtime]); ok {
			s.FileAtime = t
		}
		if crc := m[metaCRC32C]; crc != "" {
			if sum, err := hex.DecodeString(crc); err == nil {
				s.CRC32C = sum
			}
		}
	}
	return s
}
