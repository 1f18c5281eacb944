package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/summarize/internal/config"
	"github.com/jmylchreest/summarize/internal/freerank"
	"github.com/jmylchreest/summarize/internal/llmclient"
	"github.com/jmylchreest/summarize/pkg/httpclient"
)

var refreshFreeOpts freerank.Options

var refreshFreeCmd = &cobra.Command{
	Use:   "refresh-free",
	Short: "Re-rank OpenRouter's free-tier catalog and persist the winners",
	Long: `refresh-free fetches OpenRouter's current model catalog, filters it down
to large, recently-added free-tier candidates, probes each one with a real
request, and persists the candidates that answered into the "free" model
preset's rule list.`,
	RunE: runRefreshFree,
}

func init() {
	refreshFreeCmd.Flags().IntVar(&refreshFreeOpts.Runs, "runs", 0, "additional probe rounds beyond the first")
	refreshFreeCmd.Flags().Float64Var(&refreshFreeOpts.MinParamsBillions, "min-params", 0, "minimum parameter count in billions (0: use the built-in floor)")
	refreshFreeCmd.Flags().IntVar(&refreshFreeOpts.MaxAgeDays, "max-age-days", freerank.DefaultMaxAgeDays, "maximum catalog age in days (0 disables the age filter)")
	refreshFreeCmd.Flags().BoolVar(&refreshFreeOpts.Verbose, "verbose", false, "log every candidate considered, not just the survivors")
	rootCmd.AddCommand(refreshFreeCmd)
}

func runRefreshFree(c *cobra.Command, _ []string) error {
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	doer := httpclient.NewWithDefaults()
	fetcher := &freerank.HTTPCatalogFetcher{Doer: doer}

	llm := llmclient.NewClient()
	registerProviders(llm, appConfig, doer)

	prober := func(ctx context.Context, modelID string) error {
		res, err := llm.Generate(ctx, "openrouter", modelID, llmclient.GenerateOptions{
			Prompt: "Reply with exactly one word: ok.",
		})
		if err != nil {
			return err
		}
		if res.Text == "" {
			return fmt.Errorf("model %s produced no output", modelID)
		}
		return nil
	}

	ranker := freerank.New(fetcher, prober, appLogger)
	candidates, err := ranker.Refresh(ctx, refreshFreeOpts)
	if err != nil {
		return fmt.Errorf("refreshing free-tier candidates: %w", err)
	}

	appConfig.SetFreeCandidates(candidates)
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Save(path, appConfig); err != nil {
		return fmt.Errorf("persisting config: %w", err)
	}

	fmt.Printf("free candidates (%d): %v\n", len(candidates), candidates)
	return nil
}
