// Package idgen mints identifiers for the engine's ephemeral, non-memory
// entities: tool-call observations and ingestion batch runs. Memory IDs
// themselves are deterministic (ingestion.MemoryID) and session IDs are
// host-supplied, so neither comes from here. Grounded in
// ob-labs-powermem-go's snowflakeNode-per-client pattern for batch run IDs
// and clive's uuid usage for observation IDs.
package idgen

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// NewObservationID tags one after_tool_call event for log correlation (spec
// §6 host integration); the host reports no id of its own for this event.
func NewObservationID() string { return uuid.NewString() }

// BatchRuns mints monotonically-ordered, sortable IDs for ingestion batch
// runs, useful for correlating a run's log lines and its Meta fingerprint
// writes.
type BatchRuns struct {
	node *snowflake.Node
}

// NewBatchRuns builds a generator for one node. nodeID must be unique
// across concurrently-running ingestion processes sharing a store; a single
// operator process should use 0.
func NewBatchRuns(nodeID int64) (*BatchRuns, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("init batch run id node: %w", err)
	}
	return &BatchRuns{node: node}, nil
}

func (b *BatchRuns) Next() string {
	return b.node.Generate().String()
}
