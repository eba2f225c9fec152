package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Apply one daily multiplicative decay step to every active memory",
	RunE:  runDecay,
}

func runDecay(cmd *cobra.Command, args []string) error {
	cfg, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := st.DecayAll(ctx, cfg.DecayDailyFactor); err != nil {
		return fmt.Errorf("decay: %w", err)
	}
	fmt.Printf("decay applied factor=%.4f\n", cfg.DecayDailyFactor)
	return nil
}

var lowActivationCmd = &cobra.Command{
	Use:   "low-activation",
	Short: "List active memories at or below the prune threshold",
	RunE:  runLowActivation,
}

func runLowActivation(cmd *cobra.Command, args []string) error {
	cfg, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	memories, err := st.LowActivation(ctx, cfg.DecayPruneThreshold)
	if err != nil {
		return fmt.Errorf("low-activation: %w", err)
	}

	for _, m := range memories {
		fmt.Printf("[%.4f] %s (%s) — %s\n", m.Activation, m.ID, m.Domain, m.Title)
	}
	fmt.Printf("total=%d threshold=%.4f\n", len(memories), cfg.DecayPruneThreshold)
	return nil
}
