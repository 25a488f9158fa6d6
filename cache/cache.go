// Package cache provides TTL-bounded key/value caching implementations
// used for detection results and the failure negative cache.
package cache

import "time"

// TTLCache is the interface for short-lived key/value caching.
type TTLCache interface {
	// Get retrieves a cached value. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Put stores a value with a per-entry TTL. A ttl of 0 or less means no expiration.
	Put(key string, value string, ttl time.Duration) error

	// Contains reports whether a non-expired entry exists for key.
	Contains(key string) bool

	// Delete removes an entry, expired or not.
	Delete(key string) error
}
