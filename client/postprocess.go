package client

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	translatex "github.com/translatex/translatex-go"
)

// rtlLangs are target languages rendered right to left.
var rtlLangs = map[string]bool{"ar": true, "iw": true}

// PostprocessHTML rewrites language metadata on translated HTML: the root
// lang attribute, dir for right-to-left targets, and the og:locale meta.
// On any parse trouble the translated HTML is returned as-is; serving a
// page with a stale lang attribute beats dropping the translation.
func PostprocessHTML(htmlContent, targetLang string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return htmlContent
	}

	root := doc.Find("html")
	if root.Length() > 0 {
		root.SetAttr("lang", translatex.HTMLLangFor(targetLang))
		if rtlLangs[targetLang] {
			root.SetAttr("dir", "rtl")
		}
	}

	if locale := translatex.OGLocaleFor(targetLang); locale != "" {
		doc.Find(`meta[property="og:locale"]`).SetAttr("content", locale)
	}

	out, err := doc.Html()
	if err != nil {
		return htmlContent
	}
	return translatex.PreserveDoctype(htmlContent, out)
}
