package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes environment overrides. Sections are separated by a
// double underscore: SST_VALIDATION__STRICT=true sets validation.strict.
const EnvPrefix = "SST_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 4

// configFileNames are tried in order within each directory.
var configFileNames = []string{"sst_config.yml", ".sst_config.yml", "sst_config.yaml", ".sst_config.yaml"}

// flagKeys maps CLI flag names to config keys. Unlisted flags are ignored.
var flagKeys = map[string]string{
	"semantic-models-dir": "project.semantic_models_dir",
	"dbt-models-dir":      "project.dbt_models_dir",
	"manifest":            "project.manifest_path",
	"exclude":             "validation.exclude_dirs",
	"strict":              "validation.strict",
	"disable":             "validation.disabled_rules",
	"defer-target":        "defer.target",
	"target-database":     "defer.database",
	"log-level":           "logging.level",
}

// pathKeys are resolved against the project root when relative.
var pathKeys = map[string]bool{
	"project.semantic_models_dir": true,
	"project.dbt_models_dir":      true,
	"project.manifest_path":       true,
}

// listKeys accept comma-separated values from the environment.
var listKeys = map[string]bool{
	"validation.exclude_dirs":   true,
	"validation.disabled_rules": true,
}

// Load loads configuration starting the file search in the working directory.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(cwd, cfgFile, flags)
}

// LoadFrom loads configuration searching for a config file from startDir
// upward. An explicit cfgFile skips the search and must exist.
func LoadFrom(startDir, cfgFile string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	path := cfgFile
	if path == "" {
		path = FindConfigFile(startDir)
	}
	root := startDir
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			root = filepath.Dir(abs)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.Root = root
	cfg.File = path
	cfg.Project.SemanticModelsDir = resolvePathRelativeTo(cfg.Project.SemanticModelsDir, root)
	cfg.Project.DbtModelsDir = resolvePathRelativeTo(cfg.Project.DbtModelsDir, root)
	cfg.Project.ManifestPath = resolvePathRelativeTo(cfg.Project.ManifestPath, root)

	return cfg, nil
}

// envKey maps SST_PROJECT__DBT_MODELS_DIR to project.dbt_models_dir.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
	if listKeys[key] {
		return key, splitList(value)
	}
	return key, value
}

func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		if f.Name == "verbose" {
			if v, _ := flags.GetBool("verbose"); v {
				return "logging.level", "DEBUG"
			}
			return "", nil
		}
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		val := posflag.FlagVal(flags, f)
		// Flag paths are relative to the working directory, not the project root.
		if s, isString := val.(string); isString && pathKeys[key] && s != "" {
			if abs, err := filepath.Abs(s); err == nil {
				val = abs
			}
		}
		return key, val
	}
}

// FindConfigFile searches startDir and up to three parents, then the home
// directory (hidden names only). Returns "" if none exists.
func FindConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if path := configFileIn(dir, configFileNames); path != "" {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if home, err := os.UserHomeDir(); err == nil {
		return configFileIn(home, []string{".sst_config.yml", ".sst_config.yaml"})
	}
	return ""
}

func configFileIn(dir string, names []string) string {
	for _, name := range names {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
