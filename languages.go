package translatex

import (
	"regexp"
	"sort"
	"strings"
)

// LanguageNames maps each supported code to a human-readable name. The set
// is closed: ISO-639-1 codes plus the two script-qualified Chinese variants,
// exactly as the remote API accepts them.
var LanguageNames = map[string]string{
	"ro":    "Romanian",
	"ar":    "Arabic",
	"no":    "Norwegian",
	"iw":    "Hebrew",
	"vi":    "Vietnamese",
	"ko":    "Korean",
	"bg":    "Bulgarian",
	"cs":    "Czech",
	"hr":    "Croatian",
	"th":    "Thai",
	"lt":    "Lithuanian",
	"uk":    "Ukrainian",
	"fi":    "Finnish",
	"hi":    "Hindi",
	"hu":    "Hungarian",
	"bn":    "Bengali",
	"sk":    "Slovak",
	"sl":    "Slovenian",
	"id":    "Indonesian",
	"en":    "English",
	"fr":    "French",
	"es":    "Spanish",
	"de":    "German",
	"it":    "Italian",
	"nl":    "Dutch",
	"ru":    "Russian",
	"pt":    "Portuguese",
	"ja":    "Japanese",
	"tr":    "Turkish",
	"pl":    "Polish",
	"sv":    "Swedish",
	"da":    "Danish",
	"zh-CN": "Chinese (Simplified)",
	"zh-TW": "Chinese (Traditional)",
	"el":    "Greek",
}

// langAliases folds common variants onto supported codes.
var langAliases = map[string]string{
	"pt-br": "pt", "pt_br": "pt", "pt-pt": "pt", "ptbr": "pt",
	"zh": "zh-CN", "cn": "zh-CN", "zh_cn": "zh-CN", "zh-hans": "zh-CN", "zhcn": "zh-CN",
	"zh-hant": "zh-TW", "tw": "zh-TW", "zh_tw": "zh-TW", "zhtw": "zh-TW",
	"kr": "ko", "korean": "ko", "jp": "ja", "japanese": "ja",
	"he": "iw", "hebrew": "iw",
	"es-419": "es", "es_es": "es", "es-mx": "es", "spanish": "es",
	"en-us": "en", "en-gb": "en", "english": "en",
	"nb": "no", "nn": "no", "norwegian": "no",
	"french": "fr", "deutsch": "de", "german": "de",
	"italian": "it", "italiano": "it",
	"russian": "ru", "arabic": "ar", "hindi": "hi",
}

var regionCodeRe = regexp.MustCompile(`^([a-z]{2})[-_]?([a-z]{2})$`)

// NormalizeLang folds a raw language value onto its canonical supported
// code. Unsupported values pass through unchanged; callers gate on
// IsSupportedLang before treating the result as a language.
func NormalizeLang(raw string) string {
	if raw == "" {
		return raw
	}
	l := strings.ToLower(strings.TrimSpace(raw))
	if mapped, ok := langAliases[l]; ok {
		l = mapped
	} else if m := regionCodeRe.FindStringSubmatch(l); m != nil {
		l = m[1] + "-" + strings.ToUpper(m[2])
	}
	if _, ok := LanguageNames[l]; ok {
		return l
	}
	switch strings.ToLower(l) {
	case "zh-cn":
		return "zh-CN"
	case "zh-tw":
		return "zh-TW"
	}
	return l
}

// IsSupportedLang reports whether code is exactly one of the supported
// language codes.
func IsSupportedLang(code string) bool {
	_, ok := LanguageNames[code]
	return ok
}

// SupportedLangs returns the supported codes in a stable order.
func SupportedLangs() []string {
	codes := make([]string, 0, len(LanguageNames))
	for code := range LanguageNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// HTMLLangFor converts a supported code to the value used in the html lang
// attribute. The API's legacy "iw" becomes the modern "he".
func HTMLLangFor(code string) string {
	if code == "iw" {
		return "he"
	}
	return code
}

// OGLocaleFor converts a supported code to an og:locale value, or "" when
// no sensible mapping exists.
var ogLocales = map[string]string{
	"en": "en_US", "fr": "fr_FR", "es": "es_ES", "de": "de_DE",
	"it": "it_IT", "nl": "nl_NL", "pt": "pt_PT", "ru": "ru_RU",
	"ja": "ja_JP", "ko": "ko_KR", "pl": "pl_PL", "tr": "tr_TR",
	"sv": "sv_SE", "da": "da_DK", "no": "nb_NO", "fi": "fi_FI",
	"el": "el_GR", "cs": "cs_CZ", "sk": "sk_SK", "sl": "sl_SI",
	"hr": "hr_HR", "hu": "hu_HU", "ro": "ro_RO", "bg": "bg_BG",
	"uk": "uk_UA", "lt": "lt_LT", "ar": "ar_AR", "iw": "he_IL",
	"hi": "hi_IN", "bn": "bn_IN", "th": "th_TH", "vi": "vi_VN",
	"id": "id_ID", "zh-CN": "zh_CN", "zh-TW": "zh_TW",
}

func OGLocaleFor(code string) string {
	return ogLocales[code]
}
