package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/patternforge/hebbian/internal/hostapi"
)

// hookInput mirrors the fields the five host callbacks need (spec §6),
// decoded from a single JSON object on stdin, in continuity's
// hooks.HookInput shape.
type hookInput struct {
	SessionID    string `json:"session_id"`
	Prompt       string `json:"prompt"`
	ToolName     string `json:"tool_name"`
	SessionFile  string `json:"session_file"`
	MessageCount int    `json:"message_count"`
	DurationMs   int64  `json:"duration_ms"`
}

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle a host callback event, reading its payload as JSON on stdin",
}

func newEngine() (*hostapi.Engine, func(), error) {
	cfg, st, log, err := loadContext()
	if err != nil {
		return nil, nil, err
	}
	embedder := openEmbedder(cfg)
	pipeline := newPipeline(cfg, st, embedder, log)
	engine := hostapi.New(pipeline, st, log)
	return engine, func() { st.Close() }, nil
}

func readHookInput(r io.Reader) (hookInput, error) {
	var in hookInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return hookInput{}, fmt.Errorf("decode hook input: %w", err)
	}
	return in, nil
}

var hookStartCmd = &cobra.Command{
	Use:   "before-agent-start",
	Short: "Handle before_agent_start: retrieve context for a prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readHookInput(os.Stdin)
		if err != nil {
			return err
		}
		engine, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		result, err := engine.BeforeAgentStart(ctx, in.SessionID, in.Prompt)
		if err != nil {
			return err
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"prependContext": result.PrependContext})
	},
}

var hookToolCmd = &cobra.Command{
	Use:   "after-tool-call",
	Short: "Handle after_tool_call: refresh activation for the session's last context",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readHookInput(os.Stdin)
		if err != nil {
			return err
		}
		engine, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		engine.AfterToolCall(ctx, in.SessionID, in.ToolName)
		return nil
	},
}

var hookCompactionCmd = &cobra.Command{
	Use:   "before-compaction",
	Short: "Handle before_compaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readHookInput(os.Stdin)
		if err != nil {
			return err
		}
		engine, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		engine.BeforeCompaction(in.SessionFile)
		return nil
	},
}

var hookSessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Handle session_end",
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readHookInput(os.Stdin)
		if err != nil {
			return err
		}
		engine, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()

		engine.SessionEnd(in.SessionID, in.MessageCount, in.DurationMs)
		return nil
	},
}

var hookGatewayStartCmd = &cobra.Command{
	Use:   "gateway-start",
	Short: "Handle gateway_start",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()
		engine.GatewayStart()
		return nil
	},
}

var hookGatewayStopCmd = &cobra.Command{
	Use:   "gateway-stop",
	Short: "Handle gateway_stop",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, closeFn, err := newEngine()
		if err != nil {
			return err
		}
		defer closeFn()
		engine.GatewayStop()
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookStartCmd)
	hookCmd.AddCommand(hookToolCmd)
	hookCmd.AddCommand(hookCompactionCmd)
	hookCmd.AddCommand(hookSessionEndCmd)
	hookCmd.AddCommand(hookGatewayStartCmd)
	hookCmd.AddCommand(hookGatewayStopCmd)
}
