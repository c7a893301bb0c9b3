package domain

// GroundingState tags a grounding result. The explicit sentinel replaces
// string-sniffing the model output for refusal phrases.
type GroundingState int

const (
	// Ungrounded means no corpus context supported the question; the
	// composer substitutes the canonical refusal sentence.
	Ungrounded GroundingState = iota
	// Grounded means the answer text is backed by retrieved context.
	Grounded
)

// Grounding is the outcome of a grounding strategy: the raw answer text,
// any citation refs the backend attached, and the job status that produced
// it (empty for the direct-search strategy).
type Grounding struct {
	State     GroundingState
	Text      string
	Citations []CitationRef
	Status    RunStatus
}

// GroundingPolicy selects how questions are grounded. Chosen once per
// deployment, not per handler.
type GroundingPolicy string

const (
	// PolicyDirectSearch embeds the question, searches the vector store and
	// runs a single-shot completion over the retrieved context.
	PolicyDirectSearch GroundingPolicy = "direct"
	// PolicyHostedStrict delegates to the hosted job and accepts only
	// citation-backed answers (corpus-only contract).
	PolicyHostedStrict GroundingPolicy = "hosted_strict"
	// PolicyHostedFallback delegates to the hosted job but falls back to the
	// direct strategy when the job cannot be created. Sensitive questions
	// never fall back.
	PolicyHostedFallback GroundingPolicy = "hosted_fallback"
)

// Valid reports whether p is a known policy.
func (p GroundingPolicy) Valid() bool {
	switch p {
	case PolicyDirectSearch, PolicyHostedStrict, PolicyHostedFallback:
		return true
	}
	return false
}
