package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	sdk "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/patternforge/hebbian/internal/extract"
	"github.com/patternforge/hebbian/internal/extract/markdown"
	"github.com/patternforge/hebbian/internal/extract/reasoning"
	"github.com/patternforge/hebbian/internal/extract/session"
	"github.com/patternforge/hebbian/internal/idgen"
	"github.com/patternforge/hebbian/internal/ingestion"
	"github.com/patternforge/hebbian/internal/models"
)

var (
	ingestChannel string
	ingestDomain  string
	ingestForce   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract candidates from a file and ingest them",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestChannel, "channel", "atomic", "atomic|session|reasoning")
	ingestCmd.Flags().StringVar(&ingestDomain, "domain", models.GeneralDomain, "domain hint for extracted candidates")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "ingest even if the source fingerprint is unchanged")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg, st, log, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("ingest: read %s: %w", path, err)
	}

	runs, err := idgen.NewBatchRuns(0)
	if err != nil {
		return fmt.Errorf("ingest: init batch run id: %w", err)
	}
	batchRunID := runs.Next()
	log = log.With("batch_run", batchRunID)

	embedder := openEmbedder(cfg)
	pipeline := ingestion.New(st, embedder, log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	channel := models.Channel(ingestChannel)

	if channel == models.ChannelAtomic {
		skip, err := pipeline.ShouldSkipSource(ctx, path, content, ingestForce)
		if err != nil {
			return fmt.Errorf("ingest: fingerprint check: %w", err)
		}
		if skip {
			fmt.Printf("skipped=%s reason=unchanged\n", path)
			return nil
		}
	}

	var extractor extract.Extractor
	switch channel {
	case models.ChannelAtomic:
		extractor = markdown.New(ingestDomain, path)
	case models.ChannelSession:
		extractor = session.New(ingestDomain, path)
	case models.ChannelReasoning:
		client := sdk.NewClientWithConfig(sdk.DefaultConfig(os.Getenv("OPENAI_API_KEY")))
		extractor = reasoning.New(client, "", path)
	default:
		return fmt.Errorf("ingest: unknown channel %q", ingestChannel)
	}

	candidates, err := extractor.Extract(string(content))
	if err != nil {
		return fmt.Errorf("ingest: extract: %w", err)
	}

	summary, err := pipeline.Ingest(ctx, channel, candidates)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	if channel == models.ChannelAtomic {
		if err := pipeline.RecordSourceFingerprint(ctx, path, content); err != nil {
			log.Warn("ingest: record fingerprint failed", "path", path, "error", err)
		}
	}

	fmt.Printf("batch=%s stored=%d deduplicated=%d failed=%d\n", batchRunID, summary.Added, summary.Skipped, summary.Errored)
	return nil
}
