// Package config loads the sst project configuration (sst_config.yml).
// The loaded Config is a plain value passed to whatever needs it.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/validation"
)

// ProjectConfig locates the project inputs.
type ProjectConfig struct {
	SemanticModelsDir string `koanf:"semantic_models_dir"`
	DbtModelsDir      string `koanf:"dbt_models_dir"`
	ManifestPath      string `koanf:"manifest_path"`
}

// ValidationConfig controls which checks run and how issues are graded.
type ValidationConfig struct {
	// ExcludeDirs holds directory names or glob patterns skipped while walking.
	ExcludeDirs []string `koanf:"exclude_dirs"`

	// Strict treats warnings as failures.
	Strict bool `koanf:"strict"`

	// DisabledRules contains rule IDs or names to skip.
	DisabledRules []string `koanf:"disabled_rules"`

	// Severity maps rule ID or name to a severity override (error, warning, info).
	Severity map[string]string `koanf:"severity"`
}

// EnrichmentConfig holds limits shared with metadata enrichment tooling.
type EnrichmentConfig struct {
	// SynonymMaxCount caps synonyms per table, column, metric or filter. 0 disables the check.
	SynonymMaxCount int `koanf:"synonym_max_count"`
}

// DeferConfig points table locations at another environment.
type DeferConfig struct {
	// Target selects a deployment's manifest, e.g. target_prod/manifest.json.
	Target   string `koanf:"target"`
	Database string `koanf:"database"`
}

// LoggingConfig holds the log level name.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Config is the complete sst configuration.
type Config struct {
	Project    ProjectConfig    `koanf:"project"`
	Validation ValidationConfig `koanf:"validation"`
	Enrichment EnrichmentConfig `koanf:"enrichment"`
	Defer      DeferConfig      `koanf:"defer"`
	Logging    LoggingConfig    `koanf:"logging"`

	// Root is the directory relative paths were resolved against.
	Root string `koanf:"-"`
	// File is the config file that was loaded, "" when none was found.
	File string `koanf:"-"`
}

// Validate checks the loaded values.
func (c Config) Validate() error {
	if c.Project.SemanticModelsDir == "" {
		return fmt.Errorf("project.semantic_models_dir is required")
	}
	for rule, sev := range c.Validation.Severity {
		if _, ok := core.ParseSeverity(sev); !ok {
			return fmt.Errorf("validation.severity.%s: unknown severity %q", rule, sev)
		}
	}
	if c.Enrichment.SynonymMaxCount < 0 {
		return fmt.Errorf("enrichment.synonym_max_count must not be negative")
	}
	if _, err := parseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// AnalyzerConfig converts the validation section for the rule analyzer.
// Unknown severity names are skipped; Validate reports them.
func (c Config) AnalyzerConfig() *validation.AnalyzerConfig {
	ac := validation.NewAnalyzerConfig()
	for _, rule := range c.Validation.DisabledRules {
		if rule = strings.TrimSpace(rule); rule != "" {
			ac.DisabledRules[rule] = true
		}
	}
	for rule, name := range c.Validation.Severity {
		if sev, ok := core.ParseSeverity(name); ok {
			ac.SeverityOverrides[rule] = sev
		}
	}
	return ac
}

// LogLevel returns the configured level, INFO when unset or invalid.
func (c Config) LogLevel() slog.Level {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(name string) (slog.Level, error) {
	if name == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
