package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"solrexport/pkg/checkpoint"
	"solrexport/pkg/config"
	"solrexport/pkg/exporter"
	"solrexport/pkg/logger"
	"solrexport/pkg/ratelimit"
	"solrexport/pkg/sink"
	"solrexport/pkg/solr"
	"solrexport/pkg/ui"
)

const exitInterrupted = 130

var (
	// Export command flags
	resumeOnly     bool
	forceRestart   bool
	pageSize       int
	pacing         time.Duration
	retryDelay     time.Duration
	checkpointPath string
	outputPath     string
	solrURL        string
	collection     string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every document of a collection to JSONL",
	Long: `Export every document of a Solr collection to an append-only JSONL file.

The export walks the collection with cursorMark pagination sorted on a unique
field. After each page is durably written, the position is saved to the
checkpoint file, so re-running the same command resumes where the previous run
stopped. Failed requests are retried after a fixed delay.

Exit status is 0 when the collection is fully exported, 1 when the export
aborted and 130 when it was interrupted. The checkpoint is saved in every case.`,
	Example: `  # Export using solrexport.yaml in the current directory
  solrexport export

  # Export a collection with a gentler pace
  solrexport export --solr-url http://solr:8983/solr --collection topic_10236681 --pacing 30s

  # Only continue an export that was started earlier
  solrexport export --resume-only

  # Start over, keeping a backup of the old checkpoint and output
  solrexport export --force-restart`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&resumeOnly, "resume-only", false, "fail unless a checkpoint from an earlier run exists")
	exportCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard the checkpoint and start from the beginning")
	exportCmd.Flags().IntVar(&pageSize, "page-size", 0, "documents per request (default 500)")
	exportCmd.Flags().DurationVar(&pacing, "pacing", 0, "pause between pages (default 10s)")
	exportCmd.Flags().DurationVar(&retryDelay, "retry-delay", 0, "delay before retrying a failed request (default 10s)")
	exportCmd.Flags().StringVar(&checkpointPath, "checkpoint", "", "checkpoint file (default export_state.json)")
	exportCmd.Flags().StringVarP(&outputPath, "output", "o", "", "JSONL output file (default exported_data.jsonl)")
	exportCmd.Flags().StringVar(&solrURL, "solr-url", "", "Solr base URL, e.g. http://localhost:8983/solr")
	exportCmd.Flags().StringVar(&collection, "collection", "", "collection or core to export")

	exportCmd.MarkFlagsMutuallyExclusive("resume-only", "force-restart")
}

func exportFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if solrURL != "" {
		flags["solr-url"] = solrURL
	}
	if collection != "" {
		flags["collection"] = collection
	}
	if pageSize > 0 {
		flags["page-size"] = pageSize
	}
	if cmd.Flags().Changed("pacing") {
		flags["pacing"] = pacing
	}
	if cmd.Flags().Changed("retry-delay") {
		flags["retry-delay"] = retryDelay
	}
	if checkpointPath != "" {
		flags["checkpoint"] = checkpointPath
	}
	if outputPath != "" {
		flags["output"] = outputPath
	}
	return flags
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(exportFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.GetLogger()

	store := checkpoint.NewManager(cfg.Export.CheckpointPath, log)
	if err := prepareCheckpoint(store, &cfg.Export, log); err != nil {
		return err
	}

	w, err := sink.Open(cfg.Export.OutputPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			log.WithError(cerr).Error("failed to close output file")
		}
	}()

	client := solr.NewClient(&cfg.Solr, log)

	logger.LogComponentStart(log, "export", map[string]interface{}{
		"solr_url":    cfg.Solr.BaseURL,
		"collection":  cfg.Solr.Collection,
		"page_size":   cfg.Export.PageSize,
		"pacing":      cfg.Export.PacingInterval.String(),
		"retry_delay": cfg.Export.RetryDelay.String(),
		"checkpoint":  cfg.Export.CheckpointPath,
		"output":      cfg.Export.OutputPath,
		"version":     version,
	})
	ui.PrintInfo("Collection", cfg.Solr.BaseURL+"/"+cfg.Solr.Collection)
	ui.PrintInfo("Output", cfg.Export.OutputPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := exporter.OptionsFromConfig(&cfg.Export, log)
	opts.Observer = ui.NewReporter(os.Stderr, log, w.Size)

	driver := exporter.New(client, w, store, ratelimit.NewFixedInterval(cfg.Export.PacingInterval), opts)
	res, runErr := driver.Run(ctx)

	if !ui.IsQuietMode() {
		ui.RenderSummary(os.Stdout, res, cfg.Export.OutputPath, w.Size())
	}

	switch {
	case runErr == nil:
		logger.LogComponentStop(log, "export", "done")
		ui.PrintSuccess("Export complete")
		return nil
	case errors.Is(runErr, exporter.ErrInterrupted):
		logger.LogComponentStop(log, "export", "interrupted")
		ui.PrintWarning("Export interrupted, run again to resume")
		return &exitError{code: exitInterrupted}
	default:
		logger.LogComponentStop(log, "export", "aborted")
		return &exitError{code: 1, err: fmt.Errorf("export aborted: %w", runErr)}
	}
}

// prepareCheckpoint applies --resume-only and --force-restart before the run
func prepareCheckpoint(store *checkpoint.Manager, cfg *config.ExportConfig, log logger.Logger) error {
	if resumeOnly && !store.Exists() {
		return fmt.Errorf("no checkpoint at %s to resume from", store.Path())
	}
	if !forceRestart {
		return nil
	}

	backup, err := store.Backup()
	if err != nil {
		return err
	}
	if backup != "" {
		ui.PrintInfo("Checkpoint backed up", backup)
	}
	if err := store.Delete(); err != nil {
		return err
	}

	rotated, err := rotateOutput(cfg.OutputPath, time.Now())
	if err != nil {
		return err
	}
	if rotated != "" {
		log.WithField("path", rotated).Info("previous output moved aside")
		ui.PrintInfo("Previous output moved to", rotated)
	}
	return nil
}

// rotateOutput renames an existing output file so a restarted export does not
// append duplicates to it. It returns the new name, or "" when there was no file.
func rotateOutput(path string, now time.Time) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to inspect output: %w", err)
	}
	if info.Size() == 0 {
		return "", nil
	}

	rotated := fmt.Sprintf("%s.%s", path, now.Format("20060102-150405"))
	if err := os.Rename(path, rotated); err != nil {
		return "", fmt.Errorf("failed to move previous output aside: %w", err)
	}
	return rotated, nil
}
