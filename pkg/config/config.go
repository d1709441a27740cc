package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the exporter
type Config struct {
	// Remote search index
	Solr SolrConfig `yaml:"solr" json:"solr"`

	// Export engine settings
	Export ExportConfig `yaml:"export" json:"export"`

	// Cross-version facet comparison
	Compare CompareConfig `yaml:"compare" json:"compare"`

	// Log level and optional JSON log file
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SolrConfig describes how to reach the remote collection
type SolrConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Collection string        `yaml:"collection" json:"collection"`
	Handler    string        `yaml:"handler" json:"handler"`
	Username   string        `yaml:"username" json:"username"`
	Password   string        `yaml:"password" json:"password"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	SortField  string        `yaml:"sort_field" json:"sort_field"`
}

// ExportConfig holds the paging, pacing and persistence settings of an export run
type ExportConfig struct {
	PageSize         int           `yaml:"page_size" json:"page_size"`
	PacingInterval   time.Duration `yaml:"pacing_interval" json:"pacing_interval"`
	RetryDelay       time.Duration `yaml:"retry_delay" json:"retry_delay"`
	MaxFetchAttempts int           `yaml:"max_fetch_attempts" json:"max_fetch_attempts"`
	CheckpointPath   string        `yaml:"checkpoint_path" json:"checkpoint_path"`
	OutputPath       string        `yaml:"output_path" json:"output_path"`
}

// Target is one index version taking part in a comparison
type Target struct {
	Name       string `yaml:"name" json:"name"`
	BaseURL    string `yaml:"base_url" json:"base_url"`
	Collection string `yaml:"collection" json:"collection"`
}

// CompareConfig holds facet comparison settings
type CompareConfig struct {
	Targets     []Target `yaml:"targets" json:"targets"`
	FacetField  string   `yaml:"facet_field" json:"facet_field"`
	FacetLimit  int      `yaml:"facet_limit" json:"facet_limit"`
	Docs        int      `yaml:"docs" json:"docs"`
	Concurrency int      `yaml:"concurrency" json:"concurrency"`
}

// LoggingConfig selects the log level and an optional JSON log file
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns the settings used when nothing overrides them
func DefaultConfig() *Config {
	return &Config{
		Solr: SolrConfig{
			BaseURL:   "http://localhost:8983/solr",
			Handler:   "select",
			UserAgent: "solrexport/1.0",
			Timeout:   60 * time.Second,
			SortField: "id",
		},
		Export: ExportConfig{
			PageSize:         500,
			PacingInterval:   10 * time.Second,
			RetryDelay:       10 * time.Second,
			MaxFetchAttempts: 0,
			CheckpointPath:   "export_state.json",
			OutputPath:       "exported_data.jsonl",
		},
		Compare: CompareConfig{
			FacetField:  "search_text_cloud",
			FacetLimit:  1000,
			Docs:        1000,
			Concurrency: 3,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv applies SOLREXPORT_* variables. Unparseable values are
// collected and reported together, leaving the field untouched.
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	setDuration := func(key string, dst *time.Duration) {
		v := os.Getenv(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	setString("SOLREXPORT_SOLR_URL", &c.Solr.BaseURL)
	setString("SOLREXPORT_COLLECTION", &c.Solr.Collection)
	setString("SOLREXPORT_USERNAME", &c.Solr.Username)
	setString("SOLREXPORT_PASSWORD", &c.Solr.Password)
	setString("SOLREXPORT_SORT_FIELD", &c.Solr.SortField)
	setDuration("SOLREXPORT_TIMEOUT", &c.Solr.Timeout)

	setInt("SOLREXPORT_PAGE_SIZE", &c.Export.PageSize)
	setDuration("SOLREXPORT_PACING_INTERVAL", &c.Export.PacingInterval)
	setDuration("SOLREXPORT_RETRY_DELAY", &c.Export.RetryDelay)
	setInt("SOLREXPORT_MAX_FETCH_ATTEMPTS", &c.Export.MaxFetchAttempts)
	setString("SOLREXPORT_CHECKPOINT_PATH", &c.Export.CheckpointPath)
	setString("SOLREXPORT_OUTPUT_PATH", &c.Export.OutputPath)

	setString("SOLREXPORT_LOG_LEVEL", &c.Logging.Level)
	setString("SOLREXPORT_LOG_FILE", &c.Logging.File)

	return errors.Join(errs...)
}

// LoadFromFile overlays a YAML file. With an empty path the first file found
// by findConfigFile is used, and finding none is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile checks the working directory, then $HOME
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"solrexport.yaml",
		".solrexport.yaml",
		".solrexport.yml",
		filepath.Join(home, ".config", "solrexport", "config.yaml"),
		filepath.Join(home, ".solrexport.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate reports every problem at once
func (c *Config) Validate() error {
	var errs []error

	if c.Solr.BaseURL == "" {
		errs = append(errs, errors.New("solr base URL is required"))
	} else if u, err := url.Parse(c.Solr.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("solr base URL %q is not an absolute URL", c.Solr.BaseURL))
	}
	if c.Solr.Collection == "" {
		errs = append(errs, errors.New("solr collection is required"))
	}
	if c.Solr.SortField == "" {
		errs = append(errs, errors.New("sort field is required for cursor pagination"))
	}
	if c.Solr.Timeout <= 0 {
		errs = append(errs, errors.New("solr timeout must be positive"))
	}

	if c.Export.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Export.PacingInterval < 0 {
		errs = append(errs, errors.New("pacing interval cannot be negative"))
	}
	if c.Export.RetryDelay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}
	if c.Export.MaxFetchAttempts < 0 {
		errs = append(errs, errors.New("max fetch attempts cannot be negative"))
	}
	if c.Export.CheckpointPath == "" {
		errs = append(errs, errors.New("checkpoint path is required"))
	}
	if c.Export.OutputPath == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	if c.Export.CheckpointPath != "" && c.Export.CheckpointPath == c.Export.OutputPath {
		errs = append(errs, errors.New("checkpoint path and output path must differ"))
	}

	for i, t := range c.Compare.Targets {
		if t.Name == "" || t.BaseURL == "" || t.Collection == "" {
			errs = append(errs, fmt.Errorf("compare target %d needs name, base_url and collection", i))
		}
	}
	if c.Compare.Concurrency <= 0 {
		errs = append(errs, errors.New("compare concurrency must be positive"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// Save writes c as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// 0600 because the file may hold the basic-auth password
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy with secrets masked, for display
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.Solr.Password != "" {
		cp.Solr.Password = "********"
	}
	cp.Compare.Targets = append([]Target(nil), c.Compare.Targets...)
	return &cp
}

// MergeCommandLineFlags applies the flags a command actually set, keyed by flag name
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["solr-url"].(string); ok && v != "" {
		c.Solr.BaseURL = v
	}
	if v, ok := flags["collection"].(string); ok && v != "" {
		c.Solr.Collection = v
	}
	if v, ok := flags["page-size"].(int); ok && v > 0 {
		c.Export.PageSize = v
	}
	if v, ok := flags["pacing"].(time.Duration); ok {
		c.Export.PacingInterval = v
	}
	if v, ok := flags["retry-delay"].(time.Duration); ok {
		c.Export.RetryDelay = v
	}
	if v, ok := flags["checkpoint"].(string); ok && v != "" {
		c.Export.CheckpointPath = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Export.OutputPath = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["log-file"].(string); ok && v != "" {
		c.Logging.File = v
	}
}

// Load builds the effective configuration: defaults, then the YAML file, then
// .env files and the environment, then flags.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".solrexport.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
