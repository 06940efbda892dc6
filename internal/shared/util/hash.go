package util

import (
	"crypto/sha256"
	"encoding/hex"
)

const ownerPrefixLen = 32

// OwnerPrefix returns a stable, path-safe directory name for an owner id.
// Guest ids ("guest:<uuid>") and JWT subjects map into the same hex space.
func OwnerPrefix(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])[:ownerPrefixLen]
}
