package hash

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash"
	"hash/crc32"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, castagnoli)
}

// NewCRC32C returns a streaming Castagnoli hash.
func NewCRC32C() hash.Hash32 {
	return crc32.New(castagnoli)
}

// Base64CRC32C encodes the checksum of data the way S3 expects it in
// x-amz-checksum-crc32c: four big-endian bytes, standard base64.
func Base64CRC32C(data []byte) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], CRC32C(data))
	return base64.StdEncoding.EncodeToString(b[:])
}

// MismatchError reports a payload whose checksum differs from the recorded one.
type MismatchError struct {
	Want, Got uint32
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("crc32c mismatch: want %08x, got %08x", e.Want, e.Got)
}

// Verify compares the running sum of h against want.
func Verify(h hash.Hash32, want uint32) error {
	if got := h.Sum32(); got != want {
		return &MismatchError{Want: want, Got: got}
	}
	return nil
}
