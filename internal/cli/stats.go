package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate store statistics",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	_, st, _, err := loadContext()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	all, err := st.ScanAllActive(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	domains := make(map[string]int)
	patternTypes := make(map[string]int)
	withEmbedding := 0
	activations := make([]float64, 0, len(all))
	for _, m := range all {
		domains[m.Domain]++
		if m.PatternType != nil {
			patternTypes[string(*m.PatternType)]++
		} else {
			patternTypes["unclassified"]++
		}
		if len(m.Embedding) > 0 {
			withEmbedding++
		}
		activations = append(activations, m.Activation)
	}

	fmt.Printf("active=%d with_embedding=%d domains=%d pattern_types=%d\n", len(all), withEmbedding, len(domains), len(patternTypes))

	if dist, ok := activationDistribution(activations); ok {
		fmt.Printf("activation: min=%.4f p50=%.4f p95=%.4f max=%.4f mean=%.4f\n",
			dist.min, dist.p50, dist.p95, dist.max, dist.mean)
	}

	fmt.Println("domains:")
	for _, domain := range sortedKeys(domains) {
		fmt.Printf("  %s: %d\n", domain, domains[domain])
	}

	fmt.Println("pattern_types:")
	for _, pt := range sortedKeys(patternTypes) {
		fmt.Printf("  %s: %d\n", pt, patternTypes[pt])
	}

	return nil
}

type activationStats struct {
	min, p50, p95, max, mean float64
}

// activationDistribution reports the activation spread across active
// memories (spec §6 "stats ... activation distribution"), not just a single
// mean.
func activationDistribution(values []float64) (activationStats, bool) {
	if len(values) == 0 {
		return activationStats{}, false
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return activationStats{
		min:  sorted[0],
		p50:  percentile(sorted, 0.50),
		p95:  percentile(sorted, 0.95),
		max:  sorted[len(sorted)-1],
		mean: sum / float64(len(sorted)),
	}, true
}

// percentile assumes sorted is already sorted ascending.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
