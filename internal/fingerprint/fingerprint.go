// Package fingerprint computes the version_info strings served in discovery
// responses.
//
// spec.md's design notes call out that the reference implementation's
// zlib.adler32(repr(args)) is not guaranteed to be stable across language
// versions, and that any explicit, documented hash is a safe substitution as
// long as it is stable for the life of one process (callers only ever compare
// fingerprints for equality, never persist them). We use FNV-64a over a
// canonical JSON encoding of the argument tuple.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
)

// Of returns a deterministic, process-stable fingerprint for the given
// arguments. Arguments are marshaled with encoding/json (which sorts map
// keys), concatenated, and hashed with FNV-64a.
//
// Of must never be called with arguments that fail to marshal; callers pass
// already-validated, JSON-safe values (contexts, node.common, resource name
// lists, raw bytes wrapped as strings).
func Of(args ...any) string {
	h := fnv.New64a()
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			// Arguments here are always internally constructed (context maps,
			// byte slices, string slices) so this only fires on a programming
			// error; fall back to a type-tagged representation rather than
			// silently hashing nothing.
			b = []byte(fmt.Sprintf("%T:%v", arg, arg))
		}
		h.Write(b)
		// Separator avoids {"a":1}{"b":2} colliding with {"a":1,"b":2}-shaped
		// concatenations across different argument boundaries.
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum64())
}

// OfBytes fingerprints raw rendered bytes directly, used by the "content"
// cache strategy (spec.md §4.4 step 3).
func OfBytes(b []byte) string {
	h := fnv.New64a()
	h.Write(b)
	return fmt.Sprintf("%x", h.Sum64())
}
