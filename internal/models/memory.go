// Package models defines the durable domain types stored by the memory
// engine: memories, tags, co-occurrence edges, and meta key/value state.
package models

import "time"

// PatternType classifies an atomic memory. A nil PatternType marks a legacy
// file-level blob per spec §3.
type PatternType string

const (
	PatternRule       PatternType = "rule"
	PatternDirective  PatternType = "directive"
	PatternCommand    PatternType = "command"
	PatternFact       PatternType = "fact"
	PatternDiscovery  PatternType = "discovery"
	PatternFailure    PatternType = "failure"
	PatternSolution   PatternType = "solution"
	PatternConfig     PatternType = "config"
	PatternBenchmark  PatternType = "benchmark"
	PatternBugInsight PatternType = "bug-insight"
	PatternDecision   PatternType = "decision"
	PatternSpec       PatternType = "spec"
	PatternCorrection PatternType = "correction"
	PatternConclusion PatternType = "conclusion"
)

var validPatternTypes = map[PatternType]bool{
	PatternRule: true, PatternDirective: true, PatternCommand: true,
	PatternFact: true, PatternDiscovery: true, PatternFailure: true,
	PatternSolution: true, PatternConfig: true, PatternBenchmark: true,
	PatternBugInsight: true, PatternDecision: true, PatternSpec: true,
	PatternCorrection: true, PatternConclusion: true,
}

// IsValid reports whether t is one of the recognised pattern types.
func (t PatternType) IsValid() bool { return validPatternTypes[t] }

// Status is the memory lifecycle state (spec §4.9).
type Status string

const (
	StatusActive     Status = "active"
	StatusDeprecated Status = "deprecated"
)

// GeneralDomain is the sentinel catch-all domain.
const GeneralDomain = "general"

// Memory is the unit of storage described in spec §3.
type Memory struct {
	ID             string
	Title          string
	Detail         string
	Domain         string
	PatternType    *PatternType
	Source         string
	SourceSection  string
	Created        time.Time
	LastRetrieved  time.Time
	RetrievalCount int64
	Activation     float64
	ContentHash    string
	Embedding      []byte // little-endian float32 blob, nil if absent
	Status         Status
	SupersededBy   *string
	Corrects       *string

	// ImpactScore is a supplemented, additive editorial signal distinct
	// from activation (see SPEC_FULL.md "Impact events"). It never gates
	// retrieval; it only feeds the operator-visible impact leaderboard.
	ImpactScore float64
}

// IsActive treats a null/empty status as active, per spec §4.8.
func (m *Memory) IsActive() bool {
	return m.Status == "" || m.Status == StatusActive
}

// Tag is a many-to-many edge between a memory and a lower-cased short string.
type Tag struct {
	MemoryID string
	Tag      string
}

// CooccurrenceEdge is one directed half of a symmetric pair. The store
// always writes both (a,b,w) and (b,a,w) atomically (spec §3 invariant).
type CooccurrenceEdge struct {
	A      string
	B      string
	Weight float64
}

// CooccurrencePair is one undirected pair to wire, before the store expands
// it into its two directed halves.
type CooccurrencePair struct {
	A string
	B string
}
