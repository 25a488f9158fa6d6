package cache

import (
	"encoding/json"
	"strconv"
	"time"

	translatex "github.com/translatex/translatex-go"
)

// Failure TTLs per status class. A heavier failure earns a longer
// back-off before the same page is retried.
const (
	failureTTLDefault     = 5 * time.Minute
	failureTTLTooLarge    = 10 * time.Minute // 413
	failureTTLRateLimited = 6 * time.Minute  // 429
	failureTTLServer      = 2 * time.Minute  // 5xx
	failureTTLClient      = 4 * time.Minute  // other 4xx
	failureTTLTransport   = 2 * time.Minute  // no HTTP response at all
	failureTTLChunk       = 3 * time.Minute  // chunk pipeline failures
)

// FailureTTL maps a failure status label to its negative-cache lifetime.
func FailureTTL(status string) time.Duration {
	switch status {
	case translatex.KindTransport:
		return failureTTLTransport
	case translatex.KindBatchMismatch, translatex.KindReassembly, translatex.KindInvalidPayload:
		return failureTTLChunk
	}

	code, err := strconv.Atoi(status)
	if err != nil {
		return failureTTLDefault
	}
	switch {
	case code == 413:
		return failureTTLTooLarge
	case code == 429:
		return failureTTLRateLimited
	case code >= 500:
		return failureTTLServer
	case code >= 400:
		return failureTTLClient
	default:
		return failureTTLDefault
	}
}

// FailureTracker is a negative cache over page-cache keys. A registered
// failure suppresses remote translation for that page until its TTL
// lapses, so a struggling backend is not hammered on every page view.
type FailureTracker struct {
	cache TTLCache
	now   func() time.Time
}

// NewFailureTracker creates a tracker over the given TTL cache.
func NewFailureTracker(c TTLCache) *FailureTracker {
	return &FailureTracker{cache: c, now: time.Now}
}

// Register records a failure for a page-cache key and returns the stored
// record. The TTL is derived from the status label.
func (t *FailureTracker) Register(key, status, body string) translatex.FailureRecord {
	record := translatex.FailureRecord{
		Status: status,
		Time:   t.now().Unix(),
		Body:   body,
		TTL:    FailureTTL(status),
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return record
	}
	_ = t.cache.Put(t.failureKey(key), string(raw), record.TTL)
	return record
}

// ShouldSkip reports whether a page still sits inside its failure window.
func (t *FailureTracker) ShouldSkip(key string) bool {
	return t.cache.Contains(t.failureKey(key))
}

// Last returns the active failure record for a key, if any.
func (t *FailureTracker) Last(key string) (translatex.FailureRecord, bool) {
	raw, ok := t.cache.Get(t.failureKey(key))
	if !ok {
		return translatex.FailureRecord{}, false
	}
	var record translatex.FailureRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return translatex.FailureRecord{}, false
	}
	return record, true
}

// Clear drops the failure record for a key after a successful translation.
func (t *FailureTracker) Clear(key string) {
	_ = t.cache.Delete(t.failureKey(key))
}

func (t *FailureTracker) failureKey(key string) string {
	return "fail:" + key
}
