package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"solrexport/pkg/config"
	"solrexport/pkg/logger"
	"solrexport/pkg/ui"
)

var (
	// Set with -ldflags at release time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Persistent flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
)

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// rootCmd only carries the persistent flags; every action is a subcommand
var rootCmd = &cobra.Command{
	Use:   "solrexport",
	Short: "Resumable, rate-limited bulk export of a Solr collection",
	Long: `solrexport pages through an entire Solr collection with cursorMark
pagination and appends every document to a JSONL file.

Progress is checkpointed after each page, so an interrupted or failed export
picks up at the next page on the following run. Requests are paced to keep
load on the source server low.

It also ships helpers for the exported data:
  - convert      turn the JSONL log into a JSON array
  - strip-field  drop an index-internal field such as _version_
  - compare      compare facet results between two or more Solr deployments`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			ui.SetQuietMode(true)
		}
	},
}

// Execute runs the command line and exits with the code the command chose.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if !errors.As(err, &ee) || ee.err != nil {
			ui.PrintError("%v", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./solrexport.yaml or $HOME/.config/solrexport/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`solrexport {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from every source and initializes the
// global logger from it
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = make(map[string]interface{})
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if logFile != "" {
		flags["log-file"] = logFile
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// initLogging sets up logging for commands that need no Solr configuration
func initLogging() error {
	level := logLevel
	if level == "" {
		level = "info"
	}
	return logger.Initialize(&config.LoggingConfig{Level: level, File: logFile})
}
