package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/patternforge/hebbian/internal/backfill"
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-embeddings",
	Short: "Re-embed active memories missing an embedding, using the persistent embedding cache where possible",
	RunE:  runBackfill,
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, st, log, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	embedder := openEmbedder(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	summary, err := backfill.Run(ctx, st, embedder, log)
	if err != nil {
		return fmt.Errorf("backfill-embeddings: %w", err)
	}
	fmt.Printf("embedded=%d from_cache=%d up_to_date=%d errored=%d\n",
		summary.Embedded, summary.FromCache, summary.UpToDate, summary.Errored)
	return nil
}
