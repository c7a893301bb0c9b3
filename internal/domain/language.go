package domain

import "strings"

// Language is a response language code, or Auto to match the user's language.
type Language string

const (
	LangAuto Language = "auto"
	LangRO   Language = "ro"
	LangEN   Language = "en"
	LangSV   Language = "sv"
	LangDE   Language = "de"
	LangFR   Language = "fr"
	LangES   Language = "es"
	LangPT   Language = "pt"
	LangIT   Language = "it"
)

var supportedLanguages = map[Language]struct{}{
	LangRO: {}, LangEN: {}, LangSV: {}, LangDE: {},
	LangFR: {}, LangES: {}, LangPT: {}, LangIT: {},
}

// ParseLanguage maps a requested language to a supported code or Auto.
// Total: every input resolves to exactly one of the 9 values.
func ParseLanguage(requested string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(requested)))
	if _, ok := supportedLanguages[l]; ok {
		return l
	}
	return LangAuto
}

// Classification is the router's verdict for a question.
type Classification struct {
	Sensitive bool
	Language  Language
}
