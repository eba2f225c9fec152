// Package embedclient defines the embedding-oracle contract every backend
// implements (spec §4.2/§4.7): batch text-to-vector translation.
package embedclient

import "context"

// Client turns memory text into dense vectors. Implementations batch calls
// where the backend supports it and truncate long inputs rather than fail.
type Client interface {
	// Embed returns one vector per input text, in order. An error means the
	// whole batch is considered unembeddable for this call; callers treat
	// that as "degrade, don't fail" per spec §4.6 step 1.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the vector length this client produces.
	Dimension() int
}

// MaxBatch is the largest batch any embedclient implementation accepts in a
// single call (spec §4.7 step 3).
const MaxBatch = 25

// MaxChars truncates any single input text before sending it to a backend.
const MaxChars = 512

// Truncate clips s to MaxChars runes, the query-time and ingestion-time
// input-length ceiling.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= MaxChars {
		return s
	}
	return string(r[:MaxChars])
}
