package domain

// CitationRef is an opaque pointer from an answer span to a stored document,
// emitted in-line by the hosted job. Many refs may point at the same file.
type CitationRef struct {
	FileID string
}

// SourceEntry is a resolved, display-ready reference derived from a cited
// document's embedded metadata. URL is never fabricated: a document without
// a resolvable URL yields no entry at all.
type SourceEntry struct {
	Title string
	URL   string
}
