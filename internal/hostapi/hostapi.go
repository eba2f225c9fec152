// Package hostapi exposes the five callbacks a host agent framework invokes
// (spec §6 "Host integration"). Unlike the teacher's hooks package — which
// is an HTTP client posting to a long-lived continuity server — the engine
// has no networked API (spec §1 Non-goals), so these are direct in-process
// method calls on Engine. cmd/hebbianctl's "hook" subcommand adapts
// stdin-JSON, one-shot-process invocation the same way continuity's
// hooks.Handle dispatches by event name, but calls straight into Engine
// instead of going over HTTP.
package hostapi

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patternforge/hebbian/internal/activation"
	"github.com/patternforge/hebbian/internal/idgen"
	"github.com/patternforge/hebbian/internal/retrieval"
)

// BeforeAgentStartResult is the only callback response the host consumes.
type BeforeAgentStartResult struct {
	PrependContext string
}

// ActivationStore is the subset of store.Store the tool-refresh callback
// needs.
type ActivationStore interface {
	BumpActivation(ctx context.Context, id string, delta float64, now int64) error
}

// Engine wires the retrieval pipeline into the host callback surface. It
// tracks the last-selected id set per session so after_tool_call — which
// the spec gives no id list to — can bump the memories that fed the turn in
// which the tool ran, matching the teacher's PostToolUse hook triggering
// off the same session's most recent context injection.
type Engine struct {
	pipeline *retrieval.Pipeline
	store    ActivationStore
	log      *slog.Logger

	mu           sync.Mutex
	lastByPrompt map[string][]string // sessionID -> selected ids
}

func New(pipeline *retrieval.Pipeline, store ActivationStore, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		pipeline:     pipeline,
		store:        store,
		log:          log,
		lastByPrompt: make(map[string][]string),
	}
}

// BeforeAgentStart runs a retrieval against the prompt text and returns the
// context to prepend, tagging the returned ids against sessionID so a later
// AfterToolCall can refresh them.
func (e *Engine) BeforeAgentStart(ctx context.Context, sessionID, prompt string) (BeforeAgentStartResult, error) {
	items, err := e.pipeline.Retrieve(ctx, retrieval.Params{Query: prompt})
	if err != nil {
		e.log.Warn("before_agent_start retrieval failed", "error", err)
		return BeforeAgentStartResult{}, nil
	}

	ids := make([]string, 0, len(items))
	var prepend string
	for _, it := range items {
		ids = append(ids, it.Memory.ID)
		prepend += it.Memory.Title + ": " + it.Memory.Detail + "\n"
	}

	e.mu.Lock()
	e.lastByPrompt[sessionID] = ids
	e.mu.Unlock()

	return BeforeAgentStartResult{PrependContext: prepend}, nil
}

// AfterToolCall bumps activation on the memories most recently surfaced for
// sessionID by ToolRefreshDelta, the tool-triggered refresh amount (spec
// §4.4).
func (e *Engine) AfterToolCall(ctx context.Context, sessionID, toolName string) {
	e.mu.Lock()
	ids := append([]string(nil), e.lastByPrompt[sessionID]...)
	e.mu.Unlock()

	observationID := idgen.NewObservationID()
	now := time.Now().Unix()
	for _, id := range ids {
		if err := e.store.BumpActivation(ctx, id, activation.ToolRefreshDelta, now); err != nil {
			e.log.Warn("after_tool_call refresh failed", "observation_id", observationID, "id", id, "tool", toolName, "error", err)
		}
	}
}

// BeforeCompaction is a fire-and-forget signal that a session file is about
// to be compacted; a host may follow it with a separate session-mining
// ingestion run against sessionFile (spec §5's detached-child-process
// trigger), which this callback itself does not perform — ingestion is
// invoked out-of-band via cmd/hebbianctl per spec §5's "not in the query
// hot path" rule.
func (e *Engine) BeforeCompaction(sessionFile string) {
	e.log.Info("before_compaction", "session_file", sessionFile)
}

// SessionEnd clears the tracked selection for a session and logs summary
// stats. Fire-and-forget; no return value.
func (e *Engine) SessionEnd(sessionID string, messageCount int, durationMs int64) {
	e.mu.Lock()
	delete(e.lastByPrompt, sessionID)
	e.mu.Unlock()

	e.log.Info("session_end", "session_id", sessionID, "message_count", messageCount, "duration_ms", durationMs)
}

// GatewayStart and GatewayStop are fire-and-forget process lifecycle
// signals; the engine holds no networked resources to open or close, so
// these are logging hooks only.
func (e *Engine) GatewayStart() { e.log.Info("gateway_start") }
func (e *Engine) GatewayStop()  { e.log.Info("gateway_stop") }
