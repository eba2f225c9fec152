// Package extract declares the extractor contract: something that turns raw
// source material into ingestion candidates. Concrete extractors
// (markdown, session, reasoning) apply channel-specific low-signal filters
// before a candidate ever reaches the ingestion pipeline (spec §4.7 last
// paragraph); the pipeline itself never re-filters.
package extract

import "github.com/patternforge/hebbian/internal/models"

// MinDetailLength is the channel-specific low-signal floor: candidates
// shorter than this are dropped before ingestion sees them.
const MinDetailLength = 40

// Extractor proposes candidates from one source. Out of the engine's core
// per spec §1 ("external collaborators, interfaces only"); implementations
// here are thin, concrete adapters exercising that contract rather than the
// engine's scoring/storage machinery.
type Extractor interface {
	Extract(source string) ([]models.Candidate, error)
}
