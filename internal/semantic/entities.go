package semantic

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/joincond"
	"github.com/leapstack-labs/sst/pkg/template"
)

type metricDoc struct {
	Name         string   `mapstructure:"name"`
	Tables       any      `mapstructure:"tables"`
	Description  string   `mapstructure:"description"`
	Expr         string   `mapstructure:"expr"`
	Synonyms     []string `mapstructure:"synonyms"`
	SampleValues []any    `mapstructure:"sample_values"`
}

type relationshipDoc struct {
	Name       string   `mapstructure:"name"`
	LeftTable  string   `mapstructure:"left_table"`
	RightTable string   `mapstructure:"right_table"`
	Conditions []string `mapstructure:"relationship_conditions"`
}

type filterDoc struct {
	Name        string   `mapstructure:"name"`
	Tables      any      `mapstructure:"tables"`
	Description string   `mapstructure:"description"`
	Expr        string   `mapstructure:"expr"`
	Synonyms    []string `mapstructure:"synonyms"`
}

type instructionDoc struct {
	Name                   string `mapstructure:"name"`
	QuestionCategorization string `mapstructure:"question_categorization"`
	SQLGeneration          string `mapstructure:"sql_generation"`
}

type verifiedQueryDoc struct {
	Name                    string   `mapstructure:"name"`
	Question                string   `mapstructure:"question"`
	Tables                  []string `mapstructure:"tables"`
	VerifiedAt              string   `mapstructure:"verified_at"`
	VerifiedBy              string   `mapstructure:"verified_by"`
	SQL                     string   `mapstructure:"sql"`
	UseAsOnboardingQuestion *bool    `mapstructure:"use_as_onboarding_question"`
	UseAsOnboarding         *bool    `mapstructure:"use_as_onboarding"`
}

// ParseMetrics parses snowflake_metrics entries.
// The first entry of tables becomes the metric's primary table.
func (p *Parser) ParseMetrics(items []any, path string) []core.Metric {
	var out []core.Metric
	for i, item := range items {
		var doc metricDoc
		if err := p.decodeEntity(item, &doc, "metric", path, i); err != nil {
			continue
		}

		_, hasTables := asMapping(item)["tables"]
		tables := stringList(doc.Tables)

		tableName := ""
		if len(tables) > 0 {
			tableName = tables[0]
			if strings.HasPrefix(tableName, "[") {
				p.logger.Warn("metric has unresolved table reference", "file", path, "metric", doc.Name, "table", tableName)
				tableName = ""
			}
		}

		out = append(out, core.Metric{
			Name:         strings.ToUpper(doc.Name),
			TableName:    strings.ToUpper(tableName),
			Tables:       tables,
			HasTables:    hasTables,
			Description:  doc.Description,
			Expr:         doc.Expr,
			Synonyms:     nonNilStrings(doc.Synonyms),
			SampleValues: nonNilValues(doc.SampleValues),
			SourceFile:   path,
		})
	}
	return out
}

// ParseRelationships parses snowflake_relationships entries. Every join
// condition becomes a RelationshipColumn with qualified TABLE.COLUMN sides.
func (p *Parser) ParseRelationships(items []any, path string) []core.Relationship {
	var out []core.Relationship
	for i, item := range items {
		var doc relationshipDoc
		if err := p.decodeEntity(item, &doc, "relationship", path, i); err != nil {
			continue
		}

		name := strings.ToUpper(doc.Name)
		rel := core.Relationship{
			Name:       name,
			LeftTable:  strings.ToUpper(doc.LeftTable),
			RightTable: strings.ToUpper(doc.RightTable),
			SourceFile: path,
		}

		for _, cond := range doc.Conditions {
			parsed := joincond.Parse(cond)
			rel.Conditions = append(rel.Conditions, core.RelationshipColumn{
				RelationshipName: name,
				JoinCondition:    cond,
				ConditionType:    string(parsed.ConditionType),
				LeftExpression:   parsed.LeftExpression,
				RightExpression:  parsed.RightExpression,
				LeftColumn:       parsed.QualifiedLeft(),
				RightColumn:      parsed.QualifiedRight(),
				Operator:         parsed.Operator,
				SourceFile:       path,
			})
		}

		out = append(out, rel)
	}
	return out
}

// ParseFilters parses snowflake_filters entries. The table comes from an
// explicit tables list, else from the first column reference in expr.
func (p *Parser) ParseFilters(items []any, path string) []core.Filter {
	var out []core.Filter
	for i, item := range items {
		var doc filterDoc
		if err := p.decodeEntity(item, &doc, "filter", path, i); err != nil {
			continue
		}

		var tableName string
		if tables := stringList(doc.Tables); len(tables) > 0 {
			if _, isList := doc.Tables.([]any); isList {
				tableName = template.TableNameFromTemplate(tables[0])
			}
		}
		if tableName == "" {
			if found := template.ExtractColumnTables(doc.Expr); len(found) > 0 {
				tableName = found[0]
			}
		}

		out = append(out, core.Filter{
			Name:        strings.ToUpper(doc.Name),
			TableName:   strings.ToUpper(tableName),
			Description: doc.Description,
			Expr:        doc.Expr,
			Synonyms:    nonNilStrings(doc.Synonyms),
			SourceFile:  path,
		})
	}
	return out
}

// ParseCustomInstructions parses snowflake_custom_instructions entries.
func (p *Parser) ParseCustomInstructions(items []any, path string) []core.CustomInstruction {
	var out []core.CustomInstruction
	for i, item := range items {
		var doc instructionDoc
		if err := p.decodeEntity(item, &doc, "custom instruction", path, i); err != nil {
			continue
		}
		out = append(out, core.CustomInstruction{
			Name:                   strings.ToUpper(doc.Name),
			QuestionCategorization: strings.TrimSpace(doc.QuestionCategorization),
			SQLGeneration:          strings.TrimSpace(doc.SQLGeneration),
			SourceFile:             path,
		})
	}
	return out
}

// ParseVerifiedQueries parses snowflake_verified_queries entries. Onboarding
// flags are kept only when present in the source.
func (p *Parser) ParseVerifiedQueries(items []any, path string) []core.VerifiedQuery {
	var out []core.VerifiedQuery
	for i, item := range items {
		var doc verifiedQueryDoc
		if err := p.decodeEntity(item, &doc, "verified query", path, i); err != nil {
			continue
		}
		out = append(out, core.VerifiedQuery{
			Name:                    strings.ToUpper(doc.Name),
			Question:                doc.Question,
			Tables:                  nonNilStrings(doc.Tables),
			VerifiedAt:              doc.VerifiedAt,
			VerifiedBy:              doc.VerifiedBy,
			SQL:                     doc.SQL,
			UseAsOnboardingQuestion: doc.UseAsOnboardingQuestion,
			UseAsOnboarding:         doc.UseAsOnboarding,
			SourceFile:              path,
		})
	}
	return out
}

// ParseSemanticViews parses semantic_views entries. Views without a name or
// without a non-empty tables list are skipped.
func (p *Parser) ParseSemanticViews(items []any, path string) []core.SemanticView {
	var out []core.SemanticView
	for i, item := range items {
		view, ok := item.(map[string]any)
		if !ok {
			p.logger.Error("semantic view definition must be a mapping", "file", path, "index", i)
			continue
		}

		name := fmt.Sprint(view["name"])
		if view["name"] == nil || name == "" {
			p.logger.Error("semantic view definition missing required 'name' field", "file", path, "index", i)
			continue
		}

		rawTables, isList := view["tables"].([]any)
		if _, present := view["tables"]; present && !isList {
			p.logger.Error("'tables' must be a list", "file", path, "view", name)
			continue
		}
		if len(rawTables) == 0 {
			p.logger.Error("semantic view must have at least one table", "file", path, "view", name)
			continue
		}

		description := ""
		if d, present := view["description"]; present && d != nil {
			description = fmt.Sprint(d)
		}

		out = append(out, core.SemanticView{
			Name:               name,
			Description:        description,
			Tables:             core.ParseTableList(rawTables),
			CustomInstructions: p.viewInstructions(name, view),
			SourceFile:         path,
		})
		p.logger.Debug("parsed semantic view", "view", name, "tables", len(rawTables))
	}
	return out
}

// viewInstructions prefers the names collected before resolution and falls
// back to the custom_instructions('name') references still in the view.
func (p *Parser) viewInstructions(name string, view map[string]any) []string {
	if names := p.instructionNames[strings.ToUpper(name)]; len(names) > 0 {
		return names
	}

	var names []string
	for _, inst := range asList(view["custom_instructions"]) {
		if s, ok := inst.(string); ok {
			names = append(names, template.ExtractInstructionNames(s)...)
		}
	}
	return names
}

func (p *Parser) decodeEntity(item any, out any, kind, path string, index int) error {
	if _, ok := item.(map[string]any); !ok {
		err := fmt.Errorf("%s entry is not a mapping", kind)
		p.logger.Error("error parsing "+kind, "file", path, "index", index, "error", err)
		return err
	}
	if err := decode(item, out); err != nil {
		p.logger.Error("error parsing "+kind, "file", path, "index", index, "error", err)
		return err
	}
	return nil
}

// stringList normalizes a scalar-or-list field to strings.
func stringList(v any) []string {
	items := asList(v)
	if len(items) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

func asMapping(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilValues(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}
