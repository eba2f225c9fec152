package ingestion

import (
	"crypto/sha256"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/patternforge/hebbian/internal/models"
)

// MemoryID computes the deterministic ID for a candidate: the domain
// (lower-snake-cased), the ingestion channel, and a short hash of the
// title (spec §4.7 step 1).
func MemoryID(domain string, channel models.Channel, title string) string {
	return fmt.Sprintf("%s:%s:%s", lowerSnake(domain), channel, shortHash(title))
}

// shortHash truncates a SHA-256 digest to 16 hex chars — used for the ID
// suffix. Distinct from ContentHash (a cheap duplicate hint) and
// SourceFingerprint (change detection); the spec's open question requires
// keeping all three separate (§9).
func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return fmt.Sprintf("%x", h[:8])
}

// ContentHash computes the cheap duplicate-hint hash over a memory's detail
// text. The spec calls for "a rolling 32-bit hash" distinct from the
// atomiser's sha256[:16] fingerprint scheme; FNV-1a is the standard-library
// rolling hash Go offers for this role.
func ContentHash(detail string) string {
	h := fnv.New32a()
	h.Write([]byte(detail))
	return fmt.Sprintf("%08x", h.Sum32())
}

// SourceFingerprint computes the atomiser's per-source change-detection
// hash: sha256[:16] over the raw source bytes, stored in Meta under
// "atomize_hash:<path>".
func SourceFingerprint(content []byte) string {
	h := sha256.Sum256(content)
	return fmt.Sprintf("%x", h[:16])
}

func lowerSnake(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = false
		default:
			// drop punctuation
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "general"
	}
	return out
}
