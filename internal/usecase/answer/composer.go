// Package answer assembles the final user-visible answer text.
package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// Canonical refusal sentences. Romanian is the default for any language
// without its own variant.
const (
	refusalRO = "Nu există context relevant în corpusul autorului pentru această întrebare."
	refusalEN = "No relevant context in the author's corpus for this question."
	refusalSV = "Inget relevant underlag i författarens korpus för den här frågan."
)

var (
	// Bracketed retrieval artifacts the hosted backend leaves in-line,
	// e.g. 【4:0†source】.
	artifactRe = regexp.MustCompile(`【[^】]*】`)
	quoteRe    = regexp.MustCompile(`[“”‘’"]`)
	labelRe    = regexp.MustCompile(`(?i)\(\s*mainstream\s*\)\s*:?`)
)

// CleanText strips provider artifacts, typographic quotes, and collection
// labels from raw model output.
func CleanText(s string) string {
	s = artifactRe.ReplaceAllString(s, "")
	s = quoteRe.ReplaceAllString(s, "")
	s = labelRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Refusal returns the canonical no-context sentence for the language.
func Refusal(lang domain.Language) string {
	switch lang {
	case domain.LangEN:
		return refusalEN
	case domain.LangSV:
		return refusalSV
	default:
		return refusalRO
	}
}

// Compose builds the final answer string. An Ungrounded result, or one whose
// text cleans to empty, becomes the refusal sentence. Sources, when present,
// are appended as an HTML list; entries are never fabricated.
func Compose(g domain.Grounding, lang domain.Language, sources []domain.SourceEntry) string {
	if g.State != domain.Grounded {
		return Refusal(lang)
	}

	text := CleanText(g.Text)
	if text == "" {
		return Refusal(lang)
	}

	if len(sources) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nSurse:\n<ul>\n")
	for _, src := range sources {
		fmt.Fprintf(&b, "<li><a href=\"%s\" target=\"_blank\" rel=\"noopener\">%s</a></li>\n",
			src.URL, src.Title)
	}
	b.WriteString("</ul>")
	return b.String()
}
