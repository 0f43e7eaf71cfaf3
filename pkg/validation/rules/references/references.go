// Package references checks that semantic model entities point at tables,
// columns and instructions that exist.
package references

import (
	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/validation"
)

// Group is the rule group of every reference check.
const Group = "references"

// Rule IDs.
const (
	RuleUnknownTable        = "RF01"
	RuleTableLocation       = "RF02"
	RuleJoinCondition       = "RF03"
	RuleJoinColumns         = "RF04"
	RulePrimaryKey          = "RF05"
	RuleUnknownColumn       = "RF06"
	RuleUnknownInstruction  = "RF07"
	RuleCrossEntityMetric   = "RF08"
	RuleUnresolvedTemplate  = "RF09"
	RuleMetricTables        = "RF10"
	RuleVerifiedQueryTables = "RF11"
)

func init() {
	for _, rule := range Rules() {
		validation.Register(rule)
	}
}

// Rules returns the reference checks.
func Rules() []validation.RuleDef {
	return []validation.RuleDef{
		{
			ID:          RuleUnknownTable,
			Name:        "unknown-table",
			Group:       Group,
			Description: "Metrics, relationships, filters and views must reference extracted tables",
			Severity:    core.SeverityError,
			Check:       checkUnknownTables,
		},
		{
			ID:          RuleTableLocation,
			Name:        "table-location",
			Group:       Group,
			Description: "Referenced tables need a database and schema from the manifest",
			Severity:    core.SeverityError,
			Check:       checkTableLocations,
		},
		{
			ID:          RuleJoinCondition,
			Name:        "join-condition",
			Group:       Group,
			Description: "Join conditions must use supported operators and plain column references",
			Severity:    core.SeverityError,
			Check:       checkJoinConditions,
		},
		{
			ID:          RuleJoinColumns,
			Name:        "duplicate-join-columns",
			Group:       Group,
			Description: "A column may appear only once per side of a relationship",
			Severity:    core.SeverityError,
			Check:       checkJoinColumns,
		},
		{
			ID:          RulePrimaryKey,
			Name:        "relationship-primary-key",
			Group:       Group,
			Description: "Relationships must reference the primary key of the right table",
			Severity:    core.SeverityError,
			Check:       checkPrimaryKeys,
		},
		{
			ID:          RuleUnknownColumn,
			Name:        "unknown-column",
			Group:       Group,
			Description: "Column references must exist in the referenced table",
			Severity:    core.SeverityError,
			Check:       checkUnknownColumns,
		},
		{
			ID:          RuleUnknownInstruction,
			Name:        "unknown-custom-instruction",
			Group:       Group,
			Description: "Semantic views must reference defined custom instructions",
			Severity:    core.SeverityError,
			Check:       checkViewInstructions,
		},
		{
			ID:          RuleCrossEntityMetric,
			Name:        "cross-entity-metric",
			Group:       Group,
			Description: "Metrics spanning several tables of a view need relationships between them",
			Severity:    core.SeverityError,
			Check:       checkCrossEntityMetrics,
		},
		{
			ID:          RuleUnresolvedTemplate,
			Name:        "unresolved-template",
			Group:       Group,
			Description: "Template expressions must all resolve",
			Severity:    core.SeverityError,
			Check:       checkUnresolvedTemplates,
		},
		{
			ID:          RuleMetricTables,
			Name:        "metric-tables",
			Group:       Group,
			Description: "Metrics should declare their tables",
			Severity:    core.SeverityWarning,
			Check:       checkMetricTables,
		},
		{
			ID:          RuleVerifiedQueryTables,
			Name:        "verified-query-tables",
			Group:       Group,
			Description: "Verified queries should reference extracted tables",
			Severity:    core.SeverityWarning,
			Check:       checkVerifiedQueryTables,
		},
	}
}

// Validator runs the reference checks without going through the registry.
type Validator struct {
	analyzer *validation.Analyzer
}

// New creates a validator. A nil config runs every check at its default severity.
func New(config *validation.AnalyzerConfig) *Validator {
	return &Validator{analyzer: validation.NewAnalyzer(config)}
}

// Validate checks model against the extracted dbt records.
func (v *Validator) Validate(model *core.SemanticModel, dbt core.DbtModels) *validation.Result {
	return v.analyzer.Run(validation.NewContext(model, dbt), Rules())
}

func errorIssue(file, message string, context map[string]any) validation.Issue {
	return validation.Issue{Severity: core.SeverityError, Message: message, File: file, Context: context}
}

func warningIssue(file, message string, context map[string]any) validation.Issue {
	return validation.Issue{Severity: core.SeverityWarning, Message: message, File: file, Context: context}
}
