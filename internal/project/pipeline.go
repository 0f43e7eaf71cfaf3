package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/sst/internal/config"
	"github.com/leapstack-labs/sst/internal/extract"
	"github.com/leapstack-labs/sst/internal/semantic"
	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/template"
	"github.com/leapstack-labs/sst/pkg/validation"

	// Register validation rules.
	_ "github.com/leapstack-labs/sst/pkg/validation/rules/duplicates"
	_ "github.com/leapstack-labs/sst/pkg/validation/rules/references"
	_ "github.com/leapstack-labs/sst/pkg/validation/rules/structure"
)

// RuleYAML is the rule ID attached to files that could not be decoded.
const RuleYAML = "YAML"

// Pipeline runs the sst stages for one configuration.
type Pipeline struct {
	cfg    config.Config
	logger *slog.Logger
}

// New creates a pipeline. A nil logger uses slog.Default().
func New(cfg config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Workspace is a loaded project ready for resolution and parsing.
type Workspace struct {
	// Dbt holds the extracted table and column records.
	Dbt core.DbtModels
	// Documents are the semantic documents, unresolved.
	Documents []Document
	// LoadErrors lists files that could not be decoded.
	LoadErrors []*YAMLError
	// Deprecations lists nodes that used the legacy meta.sst location.
	Deprecations []string
	// Files is the number of YAML files read.
	Files int

	resolver *template.Resolver
	parser   *semantic.Parser
}

// Load reads the dbt and semantic directories, extracts table metadata and
// prepares the template resolver and semantic parser.
func (p *Pipeline) Load(ctx context.Context) (*Workspace, error) {
	files, err := p.discover()
	if err != nil {
		return nil, err
	}

	docs, loadErrs, err := Load(ctx, files)
	if err != nil {
		return nil, err
	}
	for _, e := range loadErrs {
		p.logger.Error("failed to decode YAML", "file", e.File, "line", e.Line, "error", e.Message)
	}

	extractor := extract.NewExtractor(p.logger)
	extractor.TargetDatabase = p.cfg.Defer.Database
	extractor.Tracker = extract.NewDeprecationTracker(p.logger)
	if m := p.loadManifest(); m != nil {
		extractor.Locations = m
	}

	ws := &Workspace{LoadErrors: loadErrs, Files: len(files)}
	var raw []map[string]any
	for _, doc := range docs {
		if _, ok := doc.Data["models"]; ok {
			ws.Dbt.Merge(extractor.Models(doc.Data, doc.Path))
		}
		if semantic.IsSemanticDocument(doc.Data) {
			ws.Documents = append(ws.Documents, doc)
			raw = append(raw, doc.Data)
		}
	}
	ws.Deprecations = extractor.Tracker.Emitted()

	// Instruction names are read before resolution rewrites the
	// custom_instructions('name') references.
	names := semantic.InstructionNameMap(raw...)

	ws.resolver = template.NewResolver(TableCatalog(ws.Dbt.Tables), MetricDefs(raw...), template.WithLogger(p.logger))
	ws.parser = semantic.NewParser(p.logger, semantic.WithInstructionNames(names))

	p.logger.Info("loaded project",
		"files", len(files),
		"tables", len(ws.Dbt.Tables),
		"columns", len(ws.Dbt.Columns),
		"semantic_documents", len(ws.Documents))

	return ws, nil
}

func (p *Pipeline) discover() ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, dir := range []string{p.cfg.Project.DbtModelsDir, p.cfg.Project.SemanticModelsDir} {
		if dir == "" {
			continue
		}
		found, err := Discover(dir, p.cfg.Validation.ExcludeDirs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				p.logger.Warn("directory not found", "dir", dir)
				continue
			}
			return nil, err
		}
		for _, f := range found {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files, nil
}

// deferManifests lists the artifact locations tried for a defer target, relative
// to the project root and in order.
func deferManifests(target string) []string {
	return []string{
		filepath.Join("target_"+target, "manifest.json"),
		filepath.Join(target+"_run_artifacts", "manifest.json"),
		filepath.Join("prod_run_artifacts", "manifest.json"),
		filepath.Join("artifacts", target, "manifest.json"),
	}
}

// manifestPath returns the manifest of the defer target when one is found,
// otherwise the configured manifest path.
func (p *Pipeline) manifestPath() string {
	if target := p.cfg.Defer.Target; target != "" {
		for _, rel := range deferManifests(target) {
			path := filepath.Join(p.cfg.Root, rel)
			if _, err := os.Stat(path); err == nil {
				p.logger.Info("using defer manifest", "target", target, "path", path)
				return path
			}
		}
		p.logger.Warn("no defer manifest found, using project manifest", "target", target)
	}
	return p.cfg.Project.ManifestPath
}

func (p *Pipeline) loadManifest() *extract.Manifest {
	path := p.manifestPath()
	if path == "" {
		return nil
	}
	m, err := extract.LoadManifest(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Debug("no manifest, table locations unavailable", "path", path)
		} else {
			p.logger.Warn("failed to load manifest", "path", path, "error", err)
		}
		return nil
	}
	p.logger.Debug("loaded manifest", "path", path, "models", m.Len())
	return m
}

// Resolve returns a copy of data with every string template-resolved.
func (w *Workspace) Resolve(data map[string]any) map[string]any {
	resolved, _ := w.resolveValue(data).(map[string]any)
	return resolved
}

func (w *Workspace) resolveValue(v any) any {
	switch x := v.(type) {
	case string:
		return w.resolver.Resolve(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = w.resolveValue(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = w.resolveValue(val)
		}
		return out
	default:
		return v
	}
}

// SemanticModel resolves and parses the semantic documents. When paths are
// given only documents from those files are included.
func (w *Workspace) SemanticModel(paths ...string) core.SemanticModel {
	var only map[string]bool
	if len(paths) > 0 {
		only = make(map[string]bool, len(paths))
		for _, p := range paths {
			only[absPath(p)] = true
		}
	}

	var model core.SemanticModel
	for _, doc := range w.Documents {
		if only != nil && !only[absPath(doc.Path)] {
			continue
		}
		model.Merge(w.parser.ParseDocument(w.Resolve(doc.Data), doc.Path))
	}
	return model
}

// Report is the outcome of a validation run.
type Report struct {
	Dbt          core.DbtModels
	Model        core.SemanticModel
	Result       *validation.Result
	Files        int
	Deprecations []string
}

// Validate loads the project, parses every semantic document and runs all
// registered rules.
func (p *Pipeline) Validate(ctx context.Context) (*Report, error) {
	ws, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}

	model := ws.SemanticModel()

	result := validation.NewResult()
	for _, e := range ws.LoadErrors {
		result.Add(validation.Issue{
			RuleID:   RuleYAML,
			Severity: core.SeverityError,
			Message:  e.Error(),
			File:     e.File,
			Context:  map[string]any{"line": e.Line},
		})
	}

	analyzer := validation.NewAnalyzer(p.cfg.AnalyzerConfig())
	vctx := validation.NewContext(&model, ws.Dbt)
	vctx.Limits.SynonymMaxCount = p.cfg.Enrichment.SynonymMaxCount
	result.Merge(analyzer.Analyze(vctx))

	p.logger.Info("validation finished",
		"errors", result.ErrorCount(),
		"warnings", result.WarningCount(),
		"metrics", len(model.Metrics),
		"relationships", len(model.Relationships),
		"semantic_views", len(model.SemanticViews))

	return &Report{
		Dbt:          ws.Dbt,
		Model:        model,
		Result:       result,
		Files:        ws.Files,
		Deprecations: ws.Deprecations,
	}, nil
}

// ResolveFile parses one semantic file against the whole project's catalogs.
func (p *Pipeline) ResolveFile(ctx context.Context, path string) (core.SemanticModel, error) {
	ws, err := p.Load(ctx)
	if err != nil {
		return core.SemanticModel{}, err
	}
	target := absPath(path)
	for _, doc := range ws.Documents {
		if absPath(doc.Path) == target {
			return ws.SemanticModel(path), nil
		}
	}
	for _, e := range ws.LoadErrors {
		if absPath(e.File) == target {
			return core.SemanticModel{}, e
		}
	}
	return core.SemanticModel{}, fmt.Errorf("%s is not a semantic model file in this project", path)
}

// TableCatalog indexes tables by lower-cased table and model name for
// template resolution.
func TableCatalog(tables []core.Table) template.TableCatalog {
	catalog := make(template.TableCatalog, len(tables))
	for _, t := range tables {
		entry := template.TableEntry{Name: t.TableName}
		for _, key := range []string{t.ModelName, t.TableName} {
			key = strings.ToLower(key)
			if key == "" {
				continue
			}
			if _, exists := catalog[key]; !exists {
				catalog[key] = entry
			}
		}
	}
	return catalog
}

// MetricDefs collects the raw metric expressions of the semantic documents
// for metric('name') inlining.
func MetricDefs(docs ...map[string]any) []template.MetricDef {
	var defs []template.MetricDef
	for _, doc := range docs {
		items, _ := doc[semantic.KeyMetrics].([]any)
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name, _ := m["name"].(string)
			expr, _ := m["expr"].(string)
			if name == "" {
				continue
			}
			defs = append(defs, template.MetricDef{Name: name, Expr: expr})
		}
	}
	return defs
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
