package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/patternforge/hebbian/internal/retrieval"
)

var (
	queryDomains     []string
	queryMaxEntries  int
	queryTokenBudget int
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a retrieval and print the selected memories",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().StringSliceVarP(&queryDomains, "domain", "d", nil, "domain hints (0-3)")
	queryCmd.Flags().IntVarP(&queryMaxEntries, "max-entries", "n", 0, "max entries (default from config)")
	queryCmd.Flags().IntVar(&queryTokenBudget, "token-budget", 0, "char budget in tokens (default from config)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, st, log, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	embedder := openEmbedder(cfg)
	pipeline := newPipeline(cfg, st, embedder, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items, err := pipeline.Retrieve(ctx, retrieval.Params{
		Query:       strings.Join(args, " "),
		Domains:     queryDomains,
		MaxEntries:  orInt(queryMaxEntries, cfg.MaxEntries),
		TokenBudget: orInt(queryTokenBudget, cfg.MaxContextTokens),
		Weights: retrieval.Weights{
			Semantic:   cfg.SemanticWeight,
			Activation: cfg.ActivationWeight,
			Domain:     cfg.DomainWeight,
		},
	})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	if len(items) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, it := range items {
		spread := ""
		if it.SpreadFrom {
			spread = " (spread)"
		}
		fmt.Printf("%d. [%.3f]%s %s — %s\n", i+1, it.Score, spread, it.Memory.ID, it.Memory.Title)
	}
	return nil
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
