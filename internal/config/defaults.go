package config

// Default configuration values.
const (
	DefaultSemanticModelsDir = "snowflake_semantic_models"
	DefaultDbtModelsDir      = "models"
	DefaultManifestPath      = "target/manifest.json"
	DefaultSynonymMaxCount   = 4
	DefaultLogLevel          = "INFO"
)

func defaults() map[string]any {
	return map[string]any{
		"project.semantic_models_dir":  DefaultSemanticModelsDir,
		"project.dbt_models_dir":       DefaultDbtModelsDir,
		"project.manifest_path":        DefaultManifestPath,
		"validation.exclude_dirs":      []string{},
		"validation.strict":            false,
		"validation.disabled_rules":    []string{},
		"enrichment.synonym_max_count": DefaultSynonymMaxCount,
		"logging.level":                DefaultLogLevel,
	}
}
