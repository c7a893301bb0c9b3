package ask

import (
	"fmt"
	"strings"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

var languageNames = map[domain.Language]string{
	domain.LangRO: "Romanian",
	domain.LangEN: "English",
	domain.LangSV: "Swedish",
	domain.LangDE: "German",
	domain.LangFR: "French",
	domain.LangES: "Spanish",
	domain.LangPT: "Portuguese",
	domain.LangIT: "Italian",
}

func languageLine(lang domain.Language) string {
	name, ok := languageNames[lang]
	if !ok {
		return "Always answer in the language of the user's last message."
	}
	return fmt.Sprintf("Always answer in %s.", name)
}

// corpusOnlyInstructions is the strict grounding contract for hosted jobs:
// the model may use only retrieved corpus context and must refuse with one
// short sentence when nothing is retrieved.
func corpusOnlyInstructions(lang domain.Language) string {
	return languageLine(lang) + "\n" +
		"Answer ONLY using the retrieved context from file_search (the author's corpus). " +
		"Do NOT use general knowledge and do NOT add alternative views. " +
		"Write a clear answer in 5-8 sentences. No quotes, no file names, no labels.\n" +
		"If no context is retrieved, reply with ONE short sentence meaning the corpus has no relevant context."
}

// personaPrompt is the hybrid voice used by the direct strategy: grounded in
// the provided context but allowed a short general addendum.
func personaPrompt(lang domain.Language, contextBlock string) string {
	var b strings.Builder
	b.WriteString(languageLine(lang))
	b.WriteString("\n")
	b.WriteString("You are 'Theological Assistant' for paulcsavdari.info.\n")
	b.WriteString("Voice & style: sober, theological, clear, direct, argumentative. No hedging. No academic fluff.\n")
	b.WriteString("Do not show citations, sources, or file names. Speak as a coherent vision.\n")
	if contextBlock != "" {
		b.WriteString("Base your answer on the author's corpus context below; paraphrase, never quote.\n")
		b.WriteString("If a brief general view is useful, append it at the end with a simple lead-in in the same language as the question: ")
		b.WriteString("RO 'O altă interpretare:', EN 'Another interpretation:', SV 'En annan tolkning:'. Limit to 1-3 sentences.\n")
		b.WriteString("\nCorpus context:\n")
		b.WriteString(contextBlock)
	}
	return b.String()
}

// contextBlock renders retrieval hits into the prompt context section.
func contextBlock(hits []domain.RetrievalHit) string {
	if len(hits) == 0 {
		return ""
	}
	var b strings.Builder
	for i, hit := range hits {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		if hit.Title != "" {
			fmt.Fprintf(&b, "TITLE: %s\n", hit.Title)
		}
		if hit.Section != "" {
			fmt.Fprintf(&b, "SECTION: %s\n", hit.Section)
		}
		b.WriteString(hit.Text)
	}
	return b.String()
}
