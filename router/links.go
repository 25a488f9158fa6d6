package router

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	translatex "github.com/translatex/translatex-go"
)

// PrefixInternalLinks rewrites anchor targets in translated HTML so
// visitors stay inside the active language's URL space. Only on-site
// links get the prefix; already-prefixed links, off-site links, anchors,
// and non-HTTP schemes pass through untouched. lang equal to the default
// language is a no-op.
func (rt *Router) PrefixInternalLinks(htmlContent, lang, siteHost string) string {
	if lang == "" || lang == rt.defaultLang {
		return htmlContent
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	changed := false
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		rewritten, ok := rt.prefixLink(href, lang, siteHost)
		if ok {
			sel.SetAttr("href", rewritten)
			changed = true
		}
	})
	if !changed {
		return htmlContent
	}

	out, err := doc.Html()
	if err != nil {
		return htmlContent
	}
	return translatex.PreserveDoctype(htmlContent, out)
}

// prefixLink rewrites one href, reporting whether it changed.
func (rt *Router) prefixLink(href, lang, siteHost string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "#") {
		return href, false
	}

	link, err := url.Parse(href)
	if err != nil {
		return href, false
	}
	if link.Scheme != "" && link.Scheme != "http" && link.Scheme != "https" {
		return href, false
	}
	if !internalHost(link, siteHost) {
		return href, false
	}
	if link.Path == "" {
		return href, false
	}
	// Relative paths resolve against the current (already prefixed) page.
	if !strings.HasPrefix(link.Path, "/") {
		return href, false
	}

	if existing, _ := rt.SplitPrefix(link.Path); existing != "" {
		return href, false
	}

	lower := strings.ToLower(link.Path)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return href, false
		}
	}

	link.Path = rt.PrefixPath(link.Path, lang)
	return link.String(), true
}
