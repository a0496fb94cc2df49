// Package hash provides the checksum used to guard archive payloads.
//
// All checksums are CRC32-Castagnoli (CRC32C): hardware accelerated on x86
// (SSE4.2) and ARM, and the same polynomial S3 uses for its own integrity
// checks.
//
//	sum := hash.CRC32C(payload)
//
//	h := hash.NewCRC32C()
//	h.Write(block1)
//	h.Write(block2)
//	sum = h.Sum32()
package hash
