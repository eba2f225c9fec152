package models

// Channel identifies which extraction source produced a Candidate. The
// ingestion pipeline treats every channel uniformly from ID computation
// onward (spec §4.7); channel-specific filtering happens upstream in the
// extractor.
type Channel string

const (
	ChannelAtomic    Channel = "atomic"
	ChannelSession   Channel = "session"
	ChannelReasoning Channel = "reasoning"
)

// Candidate is a proposed memory produced by an extractor, prior to ID
// assignment, embedding, and deduplication.
type Candidate struct {
	Domain        string
	PatternType   *PatternType
	Title         string
	Detail        string
	Source        string
	SourceSection string
	Tags          []string
}
