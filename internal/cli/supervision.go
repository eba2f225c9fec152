package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/patternforge/hebbian/internal/models"
	"github.com/patternforge/hebbian/internal/supervision"
)

var deprecateCmd = &cobra.Command{
	Use:   "deprecate <old-id> <new-id>",
	Short: "Mark old-id deprecated in favour of new-id",
	Args:  cobra.ExactArgs(2),
	RunE:  runDeprecate,
}

func runDeprecate(cmd *cobra.Command, args []string) error {
	_, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sup := supervision.New(st)
	if err := sup.Deprecate(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("deprecate: %w", err)
	}
	fmt.Printf("deprecated=%s superseded_by=%s\n", args[0], args[1])
	return nil
}

var correctCmd = &cobra.Command{
	Use:   "correct <correction-id> <corrected-id>",
	Short: "Mark correction-id as a correction of corrected-id",
	Args:  cobra.ExactArgs(2),
	RunE:  runCorrect,
}

func runCorrect(cmd *cobra.Command, args []string) error {
	_, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sup := supervision.New(st)
	if err := sup.MarkCorrection(ctx, args[0], args[1]); err != nil {
		return fmt.Errorf("correct: %w", err)
	}
	fmt.Printf("correction=%s corrects=%s\n", args[0], args[1])
	return nil
}

var (
	impactSignal    string
	impactSource    string
	impactSessionID string
	impactLimit     int
)

var impactCmd = &cobra.Command{
	Use:   "impact <memory-id>",
	Short: "Record an editorial impact signal, or list leaders with --list",
	RunE:  runImpact,
}

func init() {
	impactCmd.Flags().StringVar(&impactSignal, "signal", "", "helpful|promoted|cited")
	impactCmd.Flags().StringVar(&impactSource, "source", "operator", "who recorded the signal")
	impactCmd.Flags().StringVar(&impactSessionID, "session", "", "originating session id, if any")
	impactCmd.Flags().IntVar(&impactLimit, "list", 0, "list the top N memories by impact score instead of recording a signal")
}

func runImpact(cmd *cobra.Command, args []string) error {
	_, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if impactLimit > 0 {
		leaders, err := st.ImpactLeaders(ctx, impactLimit)
		if err != nil {
			return fmt.Errorf("impact: %w", err)
		}
		for i, m := range leaders {
			fmt.Printf("%d. [%.3f] %s — %s\n", i+1, m.ImpactScore, m.ID, m.Title)
		}
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("impact: exactly one memory id is required unless --list is set")
	}
	signal := models.ImpactSignal(impactSignal)
	if !signal.IsValid() {
		return fmt.Errorf("impact: unknown signal %q, want helpful|promoted|cited", impactSignal)
	}

	score, err := st.RecordImpact(ctx, args[0], signal, impactSource, impactSessionID)
	if err != nil {
		return fmt.Errorf("impact: %w", err)
	}
	fmt.Printf("memory=%s signal=%s score=%.3f\n", args[0], signal, score)
	return nil
}
