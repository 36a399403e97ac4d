// Package config provides configuration management for the country report tool.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all configuration for a report run.
type Config struct {
	// Report contains the report scope: country, period, and list sizes.
	Report ReportConfig `mapstructure:"report"`
	// OpenAlex contains OpenAlex API client settings.
	OpenAlex OpenAlexConfig `mapstructure:"openalex"`
	// Output contains output directory settings.
	Output OutputConfig `mapstructure:"output"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains metrics textfile settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ReportConfig defines the scope of the generated report.
type ReportConfig struct {
	// CountryCode is the ISO 3166-1 alpha-2 code of the country to report on.
	CountryCode string `mapstructure:"country_code" validate:"iso3166_1_alpha2"`
	// YearFrom is the first publication year of the window.
	// When zero, it defaults to five years before the current year.
	YearFrom int `mapstructure:"year_from"`
	// YearTo is the last publication year of the window.
	// When zero, it defaults to the current year.
	YearTo int `mapstructure:"year_to"`
	// Fields is the list of knowledge fields (OpenAlex concepts) to break
	// the report down by. When empty, DefaultFields is used.
	Fields []FieldConcept `mapstructure:"fields"`
	// TopAuthorsFetch is how many authors to request from the API.
	TopAuthorsFetch int `mapstructure:"top_authors_fetch"`
	// TopAuthorsKeep is how many authors to keep in the report.
	TopAuthorsKeep int `mapstructure:"top_authors_keep"`
	// TopInstitutionsFetch is how many institutions to request from the API.
	TopInstitutionsFetch int `mapstructure:"top_institutions_fetch"`
	// TopInstitutionsKeep is how many institutions to keep in the report.
	TopInstitutionsKeep int `mapstructure:"top_institutions_keep"`
}

// FieldConcept names one top-level OpenAlex concept.
type FieldConcept struct {
	// ID is the short OpenAlex concept ID (e.g. "C41008148").
	ID string `mapstructure:"id"`
	// Name is the display name used in records and chart labels.
	Name string `mapstructure:"name"`
}

// OpenAlexConfig holds OpenAlex API client settings.
type OpenAlexConfig struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Email is the contact email for the polite pool. Providing an email
	// grants access to higher rate limits.
	Email string `mapstructure:"email" validate:"omitempty,email"`
	// Timeout is the per-request timeout.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// BurstSize is the maximum burst of requests allowed.
	BurstSize int `mapstructure:"burst_size"`
}

// OutputConfig holds output directory settings.
type OutputConfig struct {
	// DataDir is the directory where JSON documents are written.
	DataDir string `mapstructure:"data_dir"`
	// ChartsDir is the directory where PNG charts are written.
	ChartsDir string `mapstructure:"charts_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables writing run metrics at the end of a report.
	Enabled bool `mapstructure:"enabled"`
	// TextfilePath is where the Prometheus textfile is written
	// (node-exporter textfile collector format).
	TextfilePath string `mapstructure:"textfile_path"`
}

// Period returns the publication-year window formatted as OpenAlex expects
// it in filters, "YYYY-YYYY".
func (r *ReportConfig) Period() string {
	return fmt.Sprintf("%d-%d", r.YearFrom, r.YearTo)
}

// DefaultFields returns the thirteen top-level OpenAlex concepts used as
// knowledge fields when none are configured.
func DefaultFields() []FieldConcept {
	return []FieldConcept{
		{ID: "C41008148", Name: "Computer science"},
		{ID: "C86803240", Name: "Biology"},
		{ID: "C185592680", Name: "Chemistry"},
		{ID: "C127313418", Name: "Engineering"},
		{ID: "C71924100", Name: "Medicine"},
		{ID: "C33923547", Name: "Physics"},
		{ID: "C144133560", Name: "Mathematics"},
		{ID: "C162324750", Name: "Economics"},
		{ID: "C17744445", Name: "Political science"},
		{ID: "C138885662", Name: "Education"},
		{ID: "C39432304", Name: "Environmental science"},
		{ID: "C15744967", Name: "Psychology"},
		{ID: "C121332964", Name: "Sociology"},
	}
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("COUNTRYSTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDerivedDefaults(time.Now())

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// applyDerivedDefaults fills in values that depend on the current time or
// on other settings: the year window and the field list.
func (c *Config) applyDerivedDefaults(now time.Time) {
	if c.Report.YearTo == 0 {
		c.Report.YearTo = now.Year()
	}
	if c.Report.YearFrom == 0 {
		c.Report.YearFrom = c.Report.YearTo - 5
	}
	if len(c.Report.Fields) == 0 {
		c.Report.Fields = DefaultFields()
	}
	c.Report.CountryCode = strings.ToUpper(c.Report.CountryCode)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Report defaults
	v.SetDefault("report.country_code", "EC")
	v.SetDefault("report.year_from", 0)
	v.SetDefault("report.year_to", 0)
	v.SetDefault("report.top_authors_fetch", 50)
	v.SetDefault("report.top_authors_keep", 20)
	v.SetDefault("report.top_institutions_fetch", 25)
	v.SetDefault("report.top_institutions_keep", 15)

	// OpenAlex defaults
	v.SetDefault("openalex.base_url", "https://api.openalex.org")
	v.SetDefault("openalex.email", "")
	v.SetDefault("openalex.timeout", "30s")
	v.SetDefault("openalex.rate_limit", 10.0)
	v.SetDefault("openalex.burst_size", 10)

	// Output defaults
	v.SetDefault("output.data_dir", "data")
	v.SetDefault("output.charts_dir", "charts")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.textfile_path", "countrystats_metrics.prom")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Report.YearFrom > c.Report.YearTo {
		return fmt.Errorf("year_from (%d) must not be after year_to (%d)", c.Report.YearFrom, c.Report.YearTo)
	}
	if c.Report.TopAuthorsKeep > c.Report.TopAuthorsFetch {
		return fmt.Errorf("top_authors_keep (%d) must not exceed top_authors_fetch (%d)", c.Report.TopAuthorsKeep, c.Report.TopAuthorsFetch)
	}
	if c.Report.TopInstitutionsKeep > c.Report.TopInstitutionsFetch {
		return fmt.Errorf("top_institutions_keep (%d) must not exceed top_institutions_fetch (%d)", c.Report.TopInstitutionsKeep, c.Report.TopInstitutionsFetch)
	}
	for _, f := range c.Report.Fields {
		if f.ID == "" || f.Name == "" {
			return fmt.Errorf("field concepts require both id and name, got id=%q name=%q", f.ID, f.Name)
		}
	}
	if c.OpenAlex.BaseURL == "" {
		return fmt.Errorf("openalex base_url is required")
	}
	if c.OpenAlex.RateLimit <= 0 {
		return fmt.Errorf("openalex rate_limit must be positive")
	}
	if c.Output.DataDir == "" || c.Output.ChartsDir == "" {
		return fmt.Errorf("output data_dir and charts_dir are required")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Metrics.Enabled && c.Metrics.TextfilePath == "" {
		return fmt.Errorf("metrics textfile_path is required when metrics are enabled")
	}

	return nil
}
