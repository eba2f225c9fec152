package models

import "time"

// ImpactSignal is a rarer, higher-confidence editorial signal an operator or
// the host can record against a memory, distinct from the automatic
// activation bump on retrieval (SPEC_FULL.md "Impact events").
type ImpactSignal string

const (
	SignalHelpful  ImpactSignal = "helpful"
	SignalPromoted ImpactSignal = "promoted"
	SignalCited    ImpactSignal = "cited"
)

// SignalDeltas maps each signal to its additive contribution, capped at 1.0
// cumulative on the memory.
var SignalDeltas = map[ImpactSignal]float64{
	SignalHelpful:  0.15,
	SignalPromoted: 0.25,
	SignalCited:    0.10,
}

func (s ImpactSignal) IsValid() bool {
	_, ok := SignalDeltas[s]
	return ok
}

// ImpactEvent records one signal against a memory.
type ImpactEvent struct {
	ID        int64
	MemoryID  string
	Signal    ImpactSignal
	Source    string
	SessionID string
	CreatedAt time.Time
}
