package text

import "strings"

// LanguageNames maps ISO 639-1 language codes to human-readable names.
var LanguageNames = map[string]string{
	"en": "English",
	"ja": "Japanese",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"zh": "Chinese",
	"ko": "Korean",
	"ru": "Russian",
}

// defaultLocales gives the regional variant used when only a bare language
// code is configured.
var defaultLocales = map[string]string{
	"en": "en-US",
	"ja": "ja-JP",
	"de": "de-DE",
	"fr": "fr-FR",
	"es": "es-ES",
	"it": "it-IT",
	"pt": "pt-BR",
	"zh": "cmn-CN",
	"ko": "ko-KR",
	"ru": "ru-RU",
}

// tesseractLangs maps base codes to tesseract traineddata names.
var tesseractLangs = map[string]string{
	"en": "eng",
	"ja": "jpn",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"it": "ita",
	"pt": "por",
	"zh": "chi_sim",
	"ko": "kor",
	"ru": "rus",
}

// BaseLanguage strips the region from a BCP-47 tag: "ja-JP" becomes "ja".
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// Locale returns a full BCP-47 locale for tag. Tags that already carry a
// region are returned as given.
func Locale(tag string) string {
	tag = strings.TrimSpace(tag)
	if strings.ContainsAny(tag, "-_") {
		return strings.ReplaceAll(tag, "_", "-")
	}
	if loc, ok := defaultLocales[strings.ToLower(tag)]; ok {
		return loc
	}
	return tag
}

// GetLanguageName returns the human-readable name for a language tag.
// If the code is not found, it returns the tag itself.
func GetLanguageName(tag string) string {
	if name, ok := LanguageNames[BaseLanguage(tag)]; ok {
		return name
	}
	return tag
}

// TesseractLanguage returns the tesseract language pack name for tag,
// falling back to Japanese.
func TesseractLanguage(tag string) string {
	for _, l := range tesseractLangs {
		if tag == l {
			return l
		}
	}
	if l, ok := tesseractLangs[BaseLanguage(tag)]; ok {
		return l
	}
	return "jpn"
}
