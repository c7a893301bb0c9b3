package domain

// RetrievalHit is one scored chunk returned by the similarity search.
// A hit list is ephemeral: consumed once to build a prompt context block.
type RetrievalHit struct {
	Score    float32
	Text     string
	Title    string
	Section  string
	Language string
}

// Point is a single upsertable vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload PointPayload
}

// PointPayload is the metadata stored alongside each chunk vector.
type PointPayload struct {
	Title    string
	Section  string
	Language string
	Text     string
}
