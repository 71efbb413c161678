package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// MaxKeyLen is the longest owner key embedded verbatim in a storage key.
const MaxKeyLen = 200

// StorageKey joins prefix and key. Keys longer than MaxKeyLen are replaced by
// "#" and the first 16 bytes of their SHA-256, hex encoded.
func StorageKey(prefix, key string) string {
	if len(key) <= MaxKeyLen {
		return prefix + ":" + key
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + ":#" + hex.EncodeToString(sum[:16])
}
