// Package citation resolves opaque document references from a hosted job
// into display-ready source entries.
package citation

import (
	"bufio"
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/paulcsavdari/paul-ai-backend/internal/domain"
	"github.com/paulcsavdari/paul-ai-backend/internal/metrics"
)

// maxRefs caps how many citations are resolved per answer. A latency and UI
// budget, not a correctness bound.
const maxRefs = 3

// maxContentBytes limits how much of a cited document is scanned for
// metadata lines.
const maxContentBytes = 16 << 10

var (
	urlLineRe   = regexp.MustCompile(`(?i)^\s*URL\s*:\s*(\S+)`)
	titleLineRe = regexp.MustCompile(`(?i)^\s*TITLE\s*:\s*(.+)$`)
	wordBreakRe = regexp.MustCompile(`[-_]+`)
)

// urlRepairs fixes known upstream data-entry errors, exact substring
// substitutions only. Evidence of mangled source documents, not a general
// URL normalizer.
var urlRepairs = map[string]string{
	"paulcsavdari/info": "paulcsavdari.info",
}

// Service resolves CitationRefs into SourceEntries.
type Service struct {
	fetcher ContentFetcher
	logger  *zap.Logger
}

// New creates a citation resolver.
func New(fetcher ContentFetcher, logger *zap.Logger) *Service {
	return &Service{fetcher: fetcher, logger: logger}
}

// Resolve turns citation refs into source entries. Refs are deduplicated by
// file id (first-seen order) and capped at 3. A document without a
// resolvable URL contributes nothing; per-document failures are skipped.
// The result is deduplicated by URL.
func (s *Service) Resolve(ctx context.Context, refs []domain.CitationRef) []domain.SourceEntry {
	var entries []domain.SourceEntry
	seenURL := make(map[string]bool)

	for _, ref := range dedupeRefs(refs) {
		entry, ok := s.resolveOne(ctx, ref.FileID)
		if !ok {
			continue
		}
		if seenURL[entry.URL] {
			continue
		}
		seenURL[entry.URL] = true
		entries = append(entries, entry)
	}
	return entries
}

func (s *Service) resolveOne(ctx context.Context, fileID string) (domain.SourceEntry, bool) {
	rawURL, title, err := s.metadataFromContent(ctx, fileID)
	if err != nil {
		metrics.CitationsResolvedTotal.WithLabelValues("fetch_failed").Inc()
		s.logger.Warn("citation content fetch failed",
			zap.String("file_id", fileID),
			zap.Error(err))
		return domain.SourceEntry{}, false
	}

	if rawURL == "" {
		// The filename sometimes encodes the source URL.
		if name, err := s.fetcher.FetchFileName(ctx, fileID); err == nil {
			rawURL = urlFromFilename(name)
		}
	}
	if rawURL == "" {
		metrics.CitationsResolvedTotal.WithLabelValues("no_url").Inc()
		return domain.SourceEntry{}, false
	}

	rawURL = repairURL(rawURL)
	if title == "" {
		title = titleFromURL(rawURL)
	}

	metrics.CitationsResolvedTotal.WithLabelValues("resolved").Inc()
	return domain.SourceEntry{Title: title, URL: rawURL}, true
}

// metadataFromContent scans the head of the document for URL: and TITLE:
// lines.
func (s *Service) metadataFromContent(ctx context.Context, fileID string) (rawURL, title string, err error) {
	body, err := s.fetcher.FetchFileContent(ctx, fileID)
	if err != nil {
		return "", "", err
	}
	defer body.Close()

	scanner := bufio.NewScanner(io.LimitReader(body, maxContentBytes))
	for scanner.Scan() {
		line := scanner.Text()
		if rawURL == "" {
			if m := urlLineRe.FindStringSubmatch(line); m != nil {
				rawURL = m[1]
			}
		}
		if title == "" {
			if m := titleLineRe.FindStringSubmatch(line); m != nil {
				title = strings.TrimSpace(m[1])
			}
		}
		if rawURL != "" && title != "" {
			break
		}
	}
	return rawURL, title, nil
}

func dedupeRefs(refs []domain.CitationRef) []domain.CitationRef {
	seen := make(map[string]bool, len(refs))
	out := make([]domain.CitationRef, 0, len(refs))
	for _, ref := range refs {
		if ref.FileID == "" || seen[ref.FileID] {
			continue
		}
		seen[ref.FileID] = true
		out = append(out, ref)
		if len(out) == maxRefs {
			break
		}
	}
	return out
}

func repairURL(raw string) string {
	for bad, good := range urlRepairs {
		raw = strings.ReplaceAll(raw, bad, good)
	}
	return raw
}

// urlFromFilename recovers a source URL from filenames of the form
// "https_host_path.txt". Underscores become path separators; anything not
// carrying a scheme prefix yields nothing.
func urlFromFilename(name string) string {
	if name == "" {
		return ""
	}
	for _, ext := range []string{".txt", ".md", ".html", ".htm"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	switch {
	case strings.HasPrefix(name, "https_"):
		return "https://" + strings.ReplaceAll(name[len("https_"):], "_", "/")
	case strings.HasPrefix(name, "http_"):
		return "http://" + strings.ReplaceAll(name[len("http_"):], "_", "/")
	}
	return ""
}

// titleFromURL derives a display title from the last path segment:
// percent-decoded, dash and underscore runs become spaces, first letter
// uppercased.
func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	last := u.Hostname()
	if len(segments) > 0 {
		last = segments[len(segments)-1]
	}

	if decoded, err := url.PathUnescape(last); err == nil {
		last = decoded
	}
	last = wordBreakRe.ReplaceAllString(last, " ")
	last = strings.TrimSpace(last)
	if last == "" {
		return raw
	}

	runes := []rune(last)
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
