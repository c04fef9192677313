package knowledge

import (
	"fmt"
	"strings"
)

// Language is the language tag of a knowledge base partition.
type Language string

const (
	LanguageSimplifiedChinese  Language = "zh"
	LanguageTraditionalChinese Language = "zh-TW"
	LanguageEnglish            Language = "en"
)

var languageLabels = map[Language]string{
	LanguageSimplifiedChinese:  "中文(简)",
	LanguageTraditionalChinese: "中文(繁)",
	LanguageEnglish:            "English",
}

// Languages returns all supported languages in display order.
func Languages() []Language {
	return []Language{LanguageSimplifiedChinese, LanguageTraditionalChinese, LanguageEnglish}
}

// ParseLanguage parses a language tag, ignoring case and accepting "_" as separator.
func ParseLanguage(s string) (Language, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "-"))
	switch norm {
	case "zh":
		return LanguageSimplifiedChinese, nil
	case "zh-tw":
		return LanguageTraditionalChinese, nil
	case "en":
		return LanguageEnglish, nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// Valid reports whether l is one of the supported tags.
func (l Language) Valid() bool {
	_, ok := languageLabels[l]
	return ok
}

// Label returns the display label of the language.
func (l Language) Label() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return string(l)
}
