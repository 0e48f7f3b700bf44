package xdstemplate

import (
	"fmt"
	"hash/fnv"
)

// checksum returns a stable FNV-64a fingerprint of b, used as a template's
// Checksum(). spec.md §9 recommends FNV over the reference implementation's
// Adler-32-over-repr() scheme; internal/fingerprint reuses the same
// algorithm for request/response version_info.
func checksum(b []byte) string {
	h := fnv.New64a()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum64())
}
