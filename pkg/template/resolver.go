package template

import (
	"log/slog"
	"strings"
)

// TableEntry is the minimal table descriptor the resolver needs.
type TableEntry struct {
	Name string
}

// TableCatalog maps lower-cased table names to their descriptor.
type TableCatalog map[string]TableEntry

// MetricDef is a metric available for composition through metric('name').
type MetricDef struct {
	Name string
	Expr string
}

// Resolver substitutes template expressions using read-only catalogs.
// A Resolver is safe for concurrent use once constructed.
type Resolver struct {
	tables  TableCatalog
	metrics map[string]MetricDef
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over the given catalogs. Either may be nil.
// When several metrics share a name (case-insensitive) the first one wins.
func NewResolver(tables TableCatalog, metrics []MetricDef, opts ...Option) *Resolver {
	r := &Resolver{
		tables:  tables,
		metrics: make(map[string]MetricDef, len(metrics)),
		logger:  slog.Default(),
	}
	for _, m := range metrics {
		key := strings.ToLower(strings.TrimSpace(m.Name))
		if key == "" {
			continue
		}
		if _, exists := r.metrics[key]; !exists {
			r.metrics[key] = m
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns content with every recognized expression substituted.
// Passes run in order: tables, columns, metrics, custom instructions.
// Unknown references fall back to their upper-cased literal.
func (r *Resolver) Resolve(content string) string {
	if !ContainsTemplate(content) {
		return content
	}

	out := r.resolveTables(content)
	out = resolveColumns(out)
	out = r.resolveMetrics(out, make(map[string]bool))
	out = resolveInstructions(out)
	return out
}

// ResolveAll resolves each element of contents in place and returns it.
func (r *Resolver) ResolveAll(contents []string) []string {
	for i, c := range contents {
		contents[i] = r.Resolve(c)
	}
	return contents
}

// TableName resolves a bare table name against the catalog.
func (r *Resolver) TableName(name string) string {
	name = strings.TrimSpace(name)
	if entry, ok := r.tables[strings.ToLower(name)]; ok && entry.Name != "" {
		return strings.ToUpper(entry.Name)
	}
	return strings.ToUpper(name)
}

func (r *Resolver) resolveTables(content string) string {
	return tablePattern.ReplaceAllStringFunc(content, func(match string) string {
		name := tablePattern.FindStringSubmatch(match)[1]
		if _, ok := r.tables[strings.ToLower(strings.TrimSpace(name))]; !ok && r.tables != nil {
			r.logger.Debug("table not in catalog, using literal", "table", name)
		}
		return r.TableName(name)
	})
}

func resolveColumns(content string) string {
	return columnPattern.ReplaceAllStringFunc(content, func(match string) string {
		m := columnPattern.FindStringSubmatch(match)
		return strings.ToUpper(strings.TrimSpace(m[1])) + "." + strings.ToUpper(strings.TrimSpace(m[2]))
	})
}

// resolveMetrics inlines metric expressions. visiting holds the metrics on the
// current expansion path so a cycle falls back to the name.
func (r *Resolver) resolveMetrics(content string, visiting map[string]bool) string {
	return metricPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := strings.TrimSpace(metricPattern.FindStringSubmatch(match)[1])
		key := strings.ToLower(name)

		def, ok := r.metrics[key]
		if !ok {
			r.logger.Debug("metric not found, using literal", "metric", name)
			return strings.ToUpper(name)
		}
		if visiting[key] {
			r.logger.Warn("circular metric reference", "metric", name)
			return strings.ToUpper(name)
		}

		visiting[key] = true
		defer delete(visiting, key)

		expr := r.resolveTables(def.Expr)
		expr = resolveColumns(expr)
		return r.resolveMetrics(expr, visiting)
	})
}

func resolveInstructions(content string) string {
	return instructionPattern.ReplaceAllStringFunc(content, func(match string) string {
		return strings.ToUpper(strings.TrimSpace(instructionPattern.FindStringSubmatch(match)[1]))
	})
}
