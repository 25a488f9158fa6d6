package translatex

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"regexp"
	"strings"
)

// volatileBlockRes match whole elements whose contents churn on every
// request without the visible page changing.
var volatileBlockRes = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`),
	regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`),
	regexp.MustCompile(`(?is)<noscript\b[^>]*>.*?</noscript>`),
	regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe>`),
	regexp.MustCompile(`(?is)<template\b[^>]*>.*?</template>`),
}

// CSRF-nonce-like attributes are blanked so per-request token churn does
// not change the fingerprint. RE2 has no backreferences, so quoted values
// get one pattern per quote style.
var (
	nonceAttrDoubleRe  = regexp.MustCompile(`(?i)\b(_wpnonce|nonce|data-wpnonce|data-nonce)\s*=\s*"[^"]*"`)
	nonceAttrSingleRe  = regexp.MustCompile(`(?i)\b(_wpnonce|nonce|data-wpnonce|data-nonce)\s*=\s*'[^']*'`)
	nonceInputDoubleRe = regexp.MustCompile(`(?i)(<input[^>]+name=["']?_wpnonce["']?[^>]*value=)"[^"]*"`)
	nonceInputSingleRe = regexp.MustCompile(`(?i)(<input[^>]+name=["']?_wpnonce["']?[^>]*value=)'[^']*'`)
	whitespaceRe       = regexp.MustCompile(`\s+`)
)

// ComputeSourceHash fingerprints the ORIGINAL (pre-translation) HTML:
// volatile blocks stripped, nonce values blanked, whitespace collapsed,
// then SHA-256. Two snapshots of the same logical page differing only in
// nonces or script bodies fingerprint identically; a visible content edit
// does not.
func ComputeSourceHash(html string) string {
	if html == "" {
		return ""
	}

	normalized := html
	for _, re := range volatileBlockRes {
		normalized = re.ReplaceAllString(normalized, "")
	}

	normalized = nonceAttrDoubleRe.ReplaceAllString(normalized, `$1=""`)
	normalized = nonceAttrSingleRe.ReplaceAllString(normalized, `$1=''`)
	normalized = nonceInputDoubleRe.ReplaceAllString(normalized, `$1""`)
	normalized = nonceInputSingleRe.ReplaceAllString(normalized, `$1''`)

	normalized = strings.TrimSpace(whitespaceRe.ReplaceAllString(normalized, " "))

	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// MatchesSourceHash reports whether a cached entry's fingerprint equals the
// expected one. Empty fingerprints never match, so legacy entries without
// one always regenerate.
func MatchesSourceHash(entry *PageEntry, expected string) bool {
	if expected == "" || entry == nil || entry.SourceHash == "" {
		return false
	}
	if len(entry.SourceHash) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(entry.SourceHash), []byte(expected)) == 1
}
