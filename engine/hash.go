package engine

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"hash/crc32"
	"io"
	"os"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// LocalMD5 computes the MD5 digest of a local file, streaming.
func LocalMD5(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// crc32cSum returns the big-endian CRC32C (Castagnoli) checksum bytes.
func crc32cSum(data []byte) []byte {
	sum := make([]byte, 4)
	binary.BigEndian.PutUint32(sum, crc32.Checksum(data, castagnoli))
	return sum
}

// md5FromETag decodes a backend ETag into MD5 bytes. Multipart uploads and
// non-MD5 backends produce ETags that are not plain digests; those yield nil.
func md5FromETag(etag string) []byte {
	if len(etag) != 2*md5.Size {
		return nil
	}
	sum, err := hex.DecodeString(etag)
	if err != nil {
		return nil
	}
	return sum
}
