// Package route classifies incoming questions and resolves the response language.
package route

import (
	"strings"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
)

// defaultSensitiveKeywords are the doctrinal terms, across the corpus
// languages, that force strict corpus-only handling. Matching is a plain
// case-insensitive substring test: no stemming, no fuzzy match.
var defaultSensitiveKeywords = []string{
	"cornul cel mic",
	"little horn",
	"lilla hornet",
	"septuaginta",
	"septuagint",
	"lxx",
	"treime",
	"trinitate",
	"trinity",
	"treenighet",
	"geneza 1",
	"genesis 1",
	"sincretism",
	"syncretism",
	"synkretism",
	"daniel 8",
}

// Service routes questions: sensitivity classification plus language resolution.
type Service struct {
	keywords []string
}

// NewService creates a router with the default keyword set.
func NewService() *Service {
	return &Service{keywords: defaultSensitiveKeywords}
}

// WithKeywords replaces the sensitive keyword set. Keywords are matched
// lowercased.
func (s *Service) WithKeywords(keywords []string) *Service {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			lowered = append(lowered, k)
		}
	}
	s.keywords = lowered
	return s
}

// Classify determines whether a question touches a sensitive topic and
// resolves the requested language. Pure and deterministic.
func (s *Service) Classify(question, requestedLang string) domain.Classification {
	return domain.Classification{
		Sensitive: s.isSensitive(question),
		Language:  domain.ParseLanguage(requestedLang),
	}
}

func (s *Service) isSensitive(question string) bool {
	q := strings.ToLower(question)
	for _, kw := range s.keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}
