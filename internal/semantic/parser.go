package semantic

import (
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/template"
)

// Top-level keys of a semantic model document.
const (
	KeyMetrics            = "snowflake_metrics"
	KeyRelationships      = "snowflake_relationships"
	KeyFilters            = "snowflake_filters"
	KeyCustomInstructions = "snowflake_custom_instructions"
	KeyVerifiedQueries    = "snowflake_verified_queries"
	KeySemanticViews      = "semantic_views"
)

// Keys lists every top-level key recognized by ParseDocument.
var Keys = []string{
	KeyMetrics, KeyRelationships, KeyFilters,
	KeyCustomInstructions, KeyVerifiedQueries, KeySemanticViews,
}

// Parser turns semantic model YAML entities into records.
//
// Each entity is decoded on its own: a malformed entry is logged and skipped
// and the rest of the list is still parsed.
type Parser struct {
	logger *slog.Logger

	// instructionNames maps upper-cased view names to instruction names,
	// collected before template resolution.
	instructionNames map[string][]string
}

// Option configures a Parser.
type Option func(*Parser)

// WithInstructionNames supplies view instruction names collected by
// InstructionNameMap. Keys are matched case-insensitively.
func WithInstructionNames(names map[string][]string) Option {
	return func(p *Parser) {
		p.instructionNames = make(map[string][]string, len(names))
		for view, list := range names {
			p.instructionNames[strings.ToUpper(view)] = list
		}
	}
}

// NewParser creates a parser logging to logger.
func NewParser(logger *slog.Logger, opts ...Option) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Parser{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsSemanticDocument reports whether doc holds any semantic model key.
func IsSemanticDocument(doc map[string]any) bool {
	for _, k := range Keys {
		if _, ok := doc[k]; ok {
			return true
		}
	}
	return false
}

// ParseDocument parses every semantic entity list in doc.
func (p *Parser) ParseDocument(doc map[string]any, path string) core.SemanticModel {
	var model core.SemanticModel
	if len(doc) == 0 {
		p.logger.Debug("empty semantic model file", "file", path)
		return model
	}

	if items, ok := p.list(doc, KeyMetrics, path); ok {
		model.Metrics = p.ParseMetrics(items, path)
	}
	if items, ok := p.list(doc, KeyRelationships, path); ok {
		model.Relationships = p.ParseRelationships(items, path)
	}
	if items, ok := p.list(doc, KeyFilters, path); ok {
		model.Filters = p.ParseFilters(items, path)
	}
	if items, ok := p.list(doc, KeyCustomInstructions, path); ok {
		model.CustomInstructions = p.ParseCustomInstructions(items, path)
	}
	if items, ok := p.list(doc, KeyVerifiedQueries, path); ok {
		model.VerifiedQueries = p.ParseVerifiedQueries(items, path)
	}
	if items, ok := p.list(doc, KeySemanticViews, path); ok {
		model.SemanticViews = p.ParseSemanticViews(items, path)
	}

	p.logger.Debug("parsed semantic model file", "file", path)
	return model
}

func (p *Parser) list(doc map[string]any, key, path string) ([]any, bool) {
	raw, present := doc[key]
	if !present || raw == nil {
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		p.logger.Error("expected a list", "file", path, "key", key)
		return nil, false
	}
	return items, true
}

// InstructionNameMap collects, per semantic view name, the instruction names
// referenced through custom_instructions('name') in the unresolved documents.
// It must run before template resolution rewrites those references.
func InstructionNameMap(docs ...map[string]any) map[string][]string {
	out := make(map[string][]string)
	for _, doc := range docs {
		views, _ := doc[KeySemanticViews].([]any)
		for _, v := range views {
			view, ok := v.(map[string]any)
			if !ok {
				continue
			}
			name, _ := view["name"].(string)
			if name == "" {
				continue
			}
			var names []string
			for _, inst := range asList(view["custom_instructions"]) {
				if s, ok := inst.(string); ok {
					names = append(names, template.ExtractInstructionNames(s)...)
				}
			}
			if len(names) > 0 {
				out[strings.ToUpper(name)] = names
			}
		}
	}
	return out
}

// asList wraps a scalar in a list; nil stays empty.
func asList(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	case string:
		if x == "" {
			return nil
		}
		return []any{x}
	default:
		return []any{x}
	}
}

// decode fills out from one raw YAML entity.
func decode(raw any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
