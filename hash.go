package translatex

import (
	"crypto/md5" // #nosec G501 - page keys are content-addressing, not security
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashText computes the SHA-256 hash of a string. This is the dictionary
// key for one translatable string (64-hex).
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HashTextIndexed computes a synthetic hash for a string whose plain hash
// collided with a different string. Including the chunk index guarantees a
// distinct dictionary key without ever merging unequal strings.
func HashTextIndexed(text string, index int) string {
	sum := sha256.Sum256([]byte(text + "|" + strconv.Itoa(index)))
	return hex.EncodeToString(sum[:])
}

// PageKey computes the content-addressed page-cache key over a normalized
// URL and a language (32-hex).
func PageKey(url, lang string) string {
	sum := md5.Sum([]byte(lang + "|" + url)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
