package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"solrexport/pkg/config"
	"solrexport/pkg/facets"
	"solrexport/pkg/logger"
	"solrexport/pkg/solr"
	"solrexport/pkg/ui"
)

var (
	compareDocs    int
	compareCSV     bool
	compareDetails int
	compareField   string
)

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare [ids...]",
	Short: "Compare facet results for the same documents across Solr deployments",
	Long: `Query every target in compare.targets for the facet terms of the same
documents and report how often each pair of targets agrees.

Without ids, the first --docs ids of the first target are used. A query that
keeps failing is logged and counted as returning no terms.`,
	Example: `  # Compare the first 1000 documents
  solrexport compare

  # Compare two specific documents and show where they differ
  solrexport compare 10236681_1 10236681_2 --details 10

  # Machine readable output
  solrexport compare --docs 200 --csv > facets.csv`,
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().IntVar(&compareDocs, "docs", 0, "number of ids to sample from the first target (default 1000)")
	compareCmd.Flags().BoolVar(&compareCSV, "csv", false, "write pair statistics as CSV")
	compareCmd.Flags().IntVar(&compareDetails, "details", 0, "show up to N differing documents per pair")
	compareCmd.Flags().StringVar(&compareField, "field", "", "facet field (default search_text_cloud)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.GetLogger()

	if len(cfg.Compare.Targets) < 2 {
		return fmt.Errorf("compare needs at least two entries under compare.targets, found %d", len(cfg.Compare.Targets))
	}
	if compareDocs > 0 {
		cfg.Compare.Docs = compareDocs
	}
	if compareField != "" {
		cfg.Compare.FacetField = compareField
	}

	targets := make([]facets.Target, 0, len(cfg.Compare.Targets))
	clients := make([]*solr.Client, 0, len(cfg.Compare.Targets))
	for _, t := range cfg.Compare.Targets {
		client := solr.NewClient(targetConfig(cfg.Solr, t), log.WithField("target", t.Name))
		clients = append(clients, client)
		targets = append(targets, facets.Target{Name: t.Name, Source: client})
	}

	ctx := cmd.Context()
	ids := args
	if len(ids) == 0 {
		ids, err = clients[0].IDs(ctx, cfg.Compare.Docs)
		if err != nil {
			return fmt.Errorf("failed to list ids from %s: %w", cfg.Compare.Targets[0].Name, err)
		}
		if len(ids) == 0 {
			return fmt.Errorf("%s returned no documents", cfg.Compare.Targets[0].Name)
		}
	}

	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	logger.LogComponentStart(log, "compare", map[string]interface{}{
		"targets":     strings.Join(names, ","),
		"documents":   len(ids),
		"facet_field": cfg.Compare.FacetField,
		"concurrency": cfg.Compare.Concurrency,
	})

	progress := compareProgress(len(ids))
	res, err := facets.Collect(ctx, targets, ids, facets.Options{
		Field:       cfg.Compare.FacetField,
		Limit:       cfg.Compare.FacetLimit,
		IDField:     cfg.Solr.SortField,
		Concurrency: cfg.Compare.Concurrency,
		Logger:      log,
		OnDocument:  progress,
	})
	if err != nil {
		return err
	}
	pairs := facets.Compare(res)

	logger.LogComponentStop(log, "compare", fmt.Sprintf("%d documents in %s", len(ids), ui.FormatDuration(res.Elapsed)))
	if res.Failures > 0 {
		ui.PrintWarning("%d facet queries failed and were counted as empty", res.Failures)
	}

	if compareCSV {
		return facets.WriteCSV(os.Stdout, pairs)
	}

	facets.WriteTable(os.Stdout, pairs)
	if compareDetails > 0 {
		for _, p := range pairs {
			diffs := facets.Differences(res, p.Left, p.Right)
			if len(diffs) == 0 {
				continue
			}
			fmt.Fprintf(os.Stdout, "\n%s vs %s: %d differing documents\n", p.Left, p.Right, len(diffs))
			facets.WriteDifferences(os.Stdout, diffs, compareDetails)
		}
	}
	return nil
}

// targetConfig derives the client settings of one compare target from the
// main solr section
func targetConfig(base config.SolrConfig, t config.Target) *config.SolrConfig {
	cfg := base
	cfg.BaseURL = t.BaseURL
	cfg.Collection = t.Collection
	return &cfg
}

// compareProgress returns a callback that redraws a progress line on a
// terminal and stays silent otherwise
func compareProgress(total int) func(done, total int) {
	if ui.IsQuietMode() || !ui.IsTerminal(os.Stderr) {
		return nil
	}
	return func(done, _ int) {
		fmt.Fprintf(os.Stderr, "\r%d/%d documents (%.1f%%)", done, total, float64(done)*100/float64(total))
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	}
}
