package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var topLimit int

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "List the highest-activation active memories",
	RunE:  runTop,
}

func init() {
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 20, "number of memories to list")
}

func runTop(cmd *cobra.Command, args []string) error {
	_, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	memories, err := st.ScanTopActive(ctx, topLimit)
	if err != nil {
		return fmt.Errorf("top: %w", err)
	}

	for i, m := range memories {
		fmt.Printf("%d. [%.3f] %s (%s) — %s\n", i+1, m.Activation, m.ID, m.Domain, m.Title)
	}
	return nil
}
