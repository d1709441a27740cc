package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"solrexport/pkg/checkpoint"
	"solrexport/pkg/exporter"
	"solrexport/pkg/logger"
	"solrexport/pkg/solr"
	"solrexport/pkg/ui"
)

var statusOffline bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved export position",
	Long: `Show the checkpoint of the configured export together with the current
size of the collection, so you can see how much is left before resuming.

Use --offline to skip asking Solr for the document count.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOffline, "offline", false, "do not query Solr for the collection size")
	statusCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "checkpoint file (default export_state.json)")
	statusCmd.Flags().StringVarP(&outputPath, "output", "o", "", "JSONL output file (default exported_data.jsonl)")
	statusCmd.Flags().StringVar(&solrURL, "solr-url", "", "Solr base URL")
	statusCmd.Flags().StringVar(&collection, "collection", "", "collection or core")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(exportFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.GetLogger()

	info, err := checkpoint.NewManager(cfg.Export.CheckpointPath, log).Info()
	if err != nil {
		return fmt.Errorf("failed to read checkpoint: %w", err)
	}

	total := int64(exporter.UnknownTotal)
	if !statusOffline {
		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Solr.Timeout)
		defer cancel()

		n, err := solr.NewClient(&cfg.Solr, log).Count(ctx)
		if err != nil {
			log.WithError(err).Warn("could not count documents")
			ui.PrintWarning("Could not reach Solr: %v", err)
		} else {
			total = n
		}
	}

	var size int64
	if st, err := os.Stat(cfg.Export.OutputPath); err == nil {
		size = st.Size()
	}

	ui.RenderStatus(os.Stdout, info, total, cfg.Export.OutputPath, size)
	if info != nil && info.Age > 24*time.Hour {
		ui.PrintWarning("Checkpoint last saved %s ago", ui.FormatDuration(info.Age))
	}
	return nil
}
