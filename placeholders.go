package translatex

import (
	"fmt"
	"strings"
)

// PrepareHTML parks script/style/noscript/iframe/template blocks behind
// opaque comment placeholders before any text analysis, so they are never
// sent to or mangled by the translation pipeline. The returned map restores
// them verbatim afterwards via RestorePlaceholders, whichever translation
// path was taken.
func PrepareHTML(html string) (string, map[string]string) {
	placeholders := make(map[string]string)
	counter := 0

	clean := html
	for _, re := range volatileBlockRes {
		clean = re.ReplaceAllStringFunc(clean, func(block string) string {
			counter++
			token := fmt.Sprintf("<!--TRANSLATEX_BLOCK_%d-->", counter)
			placeholders[token] = block
			return token
		})
	}

	return clean, placeholders
}

// RestorePlaceholders substitutes parked blocks back into html.
func RestorePlaceholders(html string, placeholders map[string]string) string {
	if len(placeholders) == 0 {
		return html
	}
	pairs := make([]string, 0, len(placeholders)*2)
	for token, block := range placeholders {
		pairs = append(pairs, token, block)
	}
	return strings.NewReplacer(pairs...).Replace(html)
}

// PreserveDoctype re-prepends the original document's doctype when a
// round-trip through a parser dropped it.
func PreserveDoctype(original, rendered string) string {
	trimmed := strings.TrimSpace(original)
	if !strings.HasPrefix(strings.ToLower(trimmed), "<!doctype") {
		return rendered
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(rendered)), "<!doctype") {
		return rendered
	}

	end := strings.Index(trimmed, ">")
	if end < 0 {
		return rendered
	}
	return trimmed[:end+1] + "\n" + rendered
}
