// Package structure checks that semantic model records carry their required
// fields in a usable form.
package structure

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/validation"
)

// Group is the rule group of every structure check.
const Group = "structure"

// Rule IDs.
const (
	RuleMissingName    = "ST01"
	RuleRequiredFields = "ST02"
	RuleMetricName     = "ST03"
	RuleColumnType     = "ST04"
	RuleSynonymCount   = "ST05"
)

func init() {
	for _, rule := range Rules() {
		validation.Register(rule)
	}
}

// Rules returns the structure checks.
func Rules() []validation.RuleDef {
	return []validation.RuleDef{
		{
			ID:          RuleMissingName,
			Name:        "missing-name",
			Group:       Group,
			Description: "Every semantic entity must have a name",
			Severity:    core.SeverityError,
			Check:       checkNames,
		},
		{
			ID:          RuleRequiredFields,
			Name:        "required-fields",
			Group:       Group,
			Description: "Entities must define their required fields (metric and filter expr, relationship tables and conditions, verified query question and sql, view tables)",
			Severity:    core.SeverityError,
			Check:       checkRequiredFields,
		},
		{
			ID:          RuleMetricName,
			Name:        "metric-name-format",
			Group:       Group,
			Description: "Metric names may contain only letters, digits and underscores and must not start with a digit",
			Severity:    core.SeverityError,
			Check:       checkMetricNames,
		},
		{
			ID:          RuleColumnType,
			Name:        "column-type",
			Group:       Group,
			Description: "A column_type, when set, must be dimension, time or fact (or an alias)",
			Severity:    core.SeverityError,
			Check:       checkColumnTypes,
		},
		{
			ID:          RuleSynonymCount,
			Name:        "synonym-count",
			Group:       Group,
			Description: "Synonym lists should stay within enrichment.synonym_max_count",
			Severity:    core.SeverityWarning,
			Check:       checkSynonymCounts,
		},
	}
}

// Validator runs the structure checks without going through the registry.
type Validator struct {
	analyzer *validation.Analyzer
}

// New creates a validator. A nil config runs every check at its default severity.
func New(config *validation.AnalyzerConfig) *Validator {
	return &Validator{analyzer: validation.NewAnalyzer(config)}
}

// Validate checks model and the extracted dbt records.
func (v *Validator) Validate(ctx *validation.Context) *validation.Result {
	return v.analyzer.Run(ctx, Rules())
}

func errorIssue(file, message string, context map[string]any) validation.Issue {
	return validation.Issue{Severity: core.SeverityError, Message: message, File: file, Context: context}
}

func checkNames(ctx *validation.Context) []validation.Issue {
	m := ctx.Model
	var issues []validation.Issue

	report := func(kind string, index int, name, file string) {
		if strings.TrimSpace(name) != "" {
			return
		}
		issues = append(issues, errorIssue(file,
			fmt.Sprintf("%s at position %d is missing required field: name", kind, index+1),
			map[string]any{"type": kind, "index": index, "field": "name"}))
	}

	for i, x := range m.Metrics {
		report("Metric", i, x.Name, x.SourceFile)
	}
	for i, x := range m.Relationships {
		report("Relationship", i, x.Name, x.SourceFile)
	}
	for i, x := range m.Filters {
		report("Filter", i, x.Name, x.SourceFile)
	}
	for i, x := range m.CustomInstructions {
		report("Custom instruction", i, x.Name, x.SourceFile)
	}
	for i, x := range m.VerifiedQueries {
		report("Verified query", i, x.Name, x.SourceFile)
	}
	for i, x := range m.SemanticViews {
		report("Semantic view", i, x.Name, x.SourceFile)
	}
	return issues
}

// displayName is used in messages for records whose name is missing.
func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "<unnamed>"
	}
	return name
}

func checkRequiredFields(ctx *validation.Context) []validation.Issue {
	m := ctx.Model
	var issues []validation.Issue

	missing := func(kind, name, field, file string) {
		issues = append(issues, errorIssue(file,
			fmt.Sprintf("%s '%s' is missing required field: %s", kind, displayName(name), field),
			map[string]any{"type": strings.ToLower(kind), "name": name, "field": field}))
	}
	blank := func(s string) bool { return strings.TrimSpace(s) == "" }

	for _, x := range m.Metrics {
		if blank(x.Expr) {
			missing("Metric", x.Name, "expr", x.SourceFile)
		}
	}
	for _, x := range m.Filters {
		if blank(x.Expr) {
			missing("Filter", x.Name, "expr", x.SourceFile)
		}
	}
	for _, x := range m.Relationships {
		if blank(x.LeftTable) {
			missing("Relationship", x.Name, "left_table", x.SourceFile)
		}
		if blank(x.RightTable) {
			missing("Relationship", x.Name, "right_table", x.SourceFile)
		}
		if len(x.Conditions) == 0 {
			missing("Relationship", x.Name, "relationship_conditions", x.SourceFile)
		}
	}
	for _, x := range m.CustomInstructions {
		if blank(x.QuestionCategorization) && blank(x.SQLGeneration) {
			missing("Custom instruction", x.Name, "question_categorization or sql_generation", x.SourceFile)
		}
	}
	for _, x := range m.VerifiedQueries {
		if blank(x.Question) {
			missing("Verified query", x.Name, "question", x.SourceFile)
		}
		if blank(x.SQL) {
			missing("Verified query", x.Name, "sql", x.SourceFile)
		}
	}
	for _, x := range m.SemanticViews {
		switch {
		case !x.Tables.Valid():
			issues = append(issues, errorIssue(x.SourceFile,
				fmt.Sprintf("Semantic view '%s' field 'tables' must be a list of table names", displayName(x.Name)),
				map[string]any{"type": "semantic view", "name": x.Name, "field": "tables"}))
		case x.Tables.Len() == 0:
			missing("Semantic view", x.Name, "tables", x.SourceFile)
		}
	}
	return issues
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func checkMetricNames(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, x := range ctx.Model.Metrics {
		if x.Name == "" || identifier.MatchString(x.Name) {
			continue
		}
		problem := "contains invalid characters. Only letters, numbers and underscores are allowed, and it must start with a letter or underscore"
		if strings.Contains(x.Name, " ") {
			problem = "contains spaces. Metric names must use underscores"
		}
		issues = append(issues, errorIssue(x.SourceFile,
			fmt.Sprintf("Metric name '%s' %s", x.Name, problem),
			map[string]any{"metric": x.Name}))
	}
	return issues
}

func checkColumnTypes(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, c := range ctx.Columns {
		if strings.TrimSpace(c.ColumnType) == "" || core.NormalizeColumnType(c.ColumnType) != "" {
			continue
		}
		issues = append(issues, errorIssue(c.SourceFile,
			fmt.Sprintf("Column '%s.%s' has unknown column_type '%s'; use dimension, time or fact", c.TableName, c.Name, c.ColumnType),
			map[string]any{"table": c.TableName, "column": c.Name, "column_type": c.ColumnType}))
	}
	return issues
}

func checkSynonymCounts(ctx *validation.Context) []validation.Issue {
	limit := ctx.Limits.SynonymMaxCount
	if limit <= 0 {
		return nil
	}

	var issues []validation.Issue
	report := func(kind, name, file string, synonyms []string) {
		if len(synonyms) <= limit {
			return
		}
		issues = append(issues, validation.Issue{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("%s '%s' has %d synonyms; at most %d are allowed", kind, name, len(synonyms), limit),
			File:     file,
			Context:  map[string]any{"type": strings.ToLower(kind), "name": name, "count": len(synonyms), "limit": limit},
		})
	}

	for _, t := range ctx.Tables {
		report("Table", t.TableName, t.SourceFile, t.Synonyms)
	}
	for _, c := range ctx.Columns {
		report("Column", c.TableName+"."+c.Name, c.SourceFile, c.Synonyms)
	}
	for _, x := range ctx.Model.Metrics {
		report("Metric", x.Name, x.SourceFile, x.Synonyms)
	}
	for _, x := range ctx.Model.Filters {
		report("Filter", x.Name, x.SourceFile, x.Synonyms)
	}
	return issues
}
