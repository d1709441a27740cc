package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"solrexport/pkg/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage solrexport configuration files.

Settings are merged in this order, later sources winning:
defaults, the YAML file, .env files, SOLREXPORT_* environment
variables, command line flags.`,
}

// initCmd writes exampleConfig
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Write a commented solrexport.yaml listing every setting.

The file is created as solrexport.yaml in the current directory unless a
different path is given with --config.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging every source. The password is
masked.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# solrexport configuration
#
# Every setting can be overridden with an environment variable prefixed with
# SOLREXPORT_, for example SOLREXPORT_COLLECTION or SOLREXPORT_PASSWORD.

solr:
  # Base URL of the Solr server, without the collection
  base_url: "http://localhost:8983/solr"

  # Collection or core to export (required)
  collection: ""

  # Request handler
  handler: "select"

  # Basic auth credentials (optional)
  username: ""
  password: ""

  user_agent: "solrexport/1.0"
  timeout: 60s

  # Unique field the cursor is sorted on
  sort_field: "id"

export:
  # Documents per request
  page_size: 500

  # Pause between pages
  pacing_interval: 10s

  # Delay before retrying a failed request
  retry_delay: 10s

  # Give up after this many attempts per page (0 retries forever)
  max_fetch_attempts: 0

  checkpoint_path: "export_state.json"
  output_path: "exported_data.jsonl"

compare:
  # Deployments to compare; the solr section provides credentials and timeout
  targets:
    - name: "Solr 8.5.2"
      base_url: "http://localhost:8983/solr"
      collection: "topic_tanvd"
    - name: "Solr 9.11"
      base_url: "http://localhost:8985/solr"
      collection: "topic_tanvd"

  facet_field: "search_text_cloud"
  facet_limit: 1000

  # Number of ids sampled from the first target when none are given
  docs: 1000

  # Concurrent facet queries
  concurrency: 3

logging:
  # debug, info, warn or error
  level: "info"

  # Also write JSON logs to this file (optional)
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = "solrexport.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: %s", configPath)
	if !ui.IsQuietMode() {
		fmt.Println("\nNext steps:")
		fmt.Println("1. Set solr.base_url and solr.collection")
		fmt.Println("2. Run 'solrexport config validate' to check the configuration")
		fmt.Println("3. Start the export with 'solrexport export'")
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHeading("Current configuration")
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	var warnings []string
	if cfg.Export.PacingInterval == 0 {
		warnings = append(warnings, "pacing_interval is 0, pages are requested back to back")
	}
	if cfg.Export.PageSize > 10000 {
		warnings = append(warnings, "page_size above 10000 puts heavy load on the server")
	}
	if cfg.Solr.Username != "" && cfg.Solr.Password == "" {
		warnings = append(warnings, "solr.username is set without a password")
	}
	if len(cfg.Compare.Targets) == 1 {
		warnings = append(warnings, "compare needs at least two targets")
	}

	for _, w := range warnings {
		ui.PrintWarning("Warning: %s", w)
	}

	ui.PrintSuccess("Configuration is valid")
	ui.PrintInfo("Collection", cfg.Solr.BaseURL+"/"+cfg.Solr.Collection)
	ui.PrintInfo("Page size", fmt.Sprint(cfg.Export.PageSize))
	ui.PrintInfo("Pacing", cfg.Export.PacingInterval.String())
	ui.PrintInfo("Checkpoint", cfg.Export.CheckpointPath)
	ui.PrintInfo("Output", cfg.Export.OutputPath)
	return nil
}
