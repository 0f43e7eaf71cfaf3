package references

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sst/pkg/template"
	"github.com/leapstack-labs/sst/pkg/validation"
)

func checkViewInstructions(ctx *validation.Context) []validation.Issue {
	available := make(map[string]bool)
	var names []string
	for _, ci := range ctx.Model.CustomInstructions {
		upper := strings.ToUpper(ci.Name)
		if upper == "" || available[upper] {
			continue
		}
		available[upper] = true
		names = append(names, upper)
	}

	var issues []validation.Issue
	for _, v := range ctx.Model.SemanticViews {
		for _, ref := range v.CustomInstructions {
			if ref == "" || available[strings.ToUpper(ref)] {
				continue
			}
			issues = append(issues, errorIssue(v.SourceFile,
				fmt.Sprintf("Semantic view '%s' references unknown custom instruction '%s'", v.Name, ref),
				map[string]any{"view": v.Name, "instruction": ref, "available": names}))
		}
	}
	return issues
}

// checkCrossEntityMetrics requires a relationship, in either direction,
// between every pair of view tables a metric spans.
func checkCrossEntityMetrics(ctx *validation.Context) []validation.Issue {
	related := make(map[[2]string]bool)
	for _, r := range ctx.Model.Relationships {
		left, right := strings.ToLower(r.LeftTable), strings.ToLower(r.RightTable)
		if left == "" || right == "" {
			continue
		}
		related[[2]string{left, right}] = true
		related[[2]string{right, left}] = true
	}

	var issues []validation.Issue
	for _, v := range ctx.Model.SemanticViews {
		inView := make(map[string]bool)
		for _, t := range v.Tables.Names() {
			inView[strings.ToLower(t)] = true
		}
		if len(inView) < 2 {
			continue
		}

		for _, m := range ctx.Model.Metrics {
			var spanned []string
			seen := make(map[string]bool)
			for _, t := range m.Tables {
				lower := strings.ToLower(t)
				if inView[lower] && !seen[lower] {
					seen[lower] = true
					spanned = append(spanned, lower)
				}
			}
			if len(spanned) < 2 {
				continue
			}

			var missing []string
			var pairs [][2]string
			for i, a := range spanned {
				for _, b := range spanned[i+1:] {
					if !related[[2]string{a, b}] {
						missing = append(missing, fmt.Sprintf("(%s, %s)", a, b))
						pairs = append(pairs, [2]string{a, b})
					}
				}
			}
			if len(missing) == 0 {
				continue
			}

			issues = append(issues, errorIssue(v.SourceFile, fmt.Sprintf(
				"Semantic view '%s' includes metric '%s' which references multiple tables %s, "+
					"but there is no relationship defined between: %s. "+
					"Either add a relationship between these tables, remove this metric from the view, or remove this semantic view.",
				v.Name, m.Name, quoteList(spanned), strings.Join(missing, ", ")),
				map[string]any{
					"view":                  v.Name,
					"metric":                m.Name,
					"tables":                spanned,
					"missing_relationships": pairs,
					"issue":                 "cross_entity_metric_without_relationship",
				}))
		}
	}
	return issues
}

type templateField struct {
	kind, name, file, field, value string
}

func templateFields(ctx *validation.Context) []templateField {
	var fields []templateField
	add := func(kind, name, file, field string, values ...string) {
		for _, v := range values {
			fields = append(fields, templateField{kind, name, file, field, v})
		}
	}

	m := ctx.Model
	for _, x := range m.Metrics {
		add("Metric", x.Name, x.SourceFile, "expr", x.Expr)
		add("Metric", x.Name, x.SourceFile, "tables", x.Tables...)
	}
	for _, x := range m.Relationships {
		add("Relationship", x.Name, x.SourceFile, "left_table", x.LeftTable)
		add("Relationship", x.Name, x.SourceFile, "right_table", x.RightTable)
		for _, c := range x.Conditions {
			add("Relationship", x.Name, x.SourceFile, "relationship_conditions", c.JoinCondition)
		}
	}
	for _, x := range m.Filters {
		add("Filter", x.Name, x.SourceFile, "expr", x.Expr)
	}
	for _, x := range m.CustomInstructions {
		add("Custom instruction", x.Name, x.SourceFile, "question_categorization", x.QuestionCategorization)
		add("Custom instruction", x.Name, x.SourceFile, "sql_generation", x.SQLGeneration)
	}
	for _, x := range m.VerifiedQueries {
		add("Verified query", x.Name, x.SourceFile, "sql", x.SQL)
		add("Verified query", x.Name, x.SourceFile, "tables", x.Tables...)
	}
	for _, x := range m.SemanticViews {
		add("Semantic view", x.Name, x.SourceFile, "tables", x.Tables.Names()...)
	}
	return fields
}

func checkUnresolvedTemplates(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, f := range templateFields(ctx) {
		for _, expr := range template.Unresolved(f.value) {
			issues = append(issues, errorIssue(f.file,
				fmt.Sprintf("%s '%s' has unresolved template '%s' in %s", f.kind, f.name, expr.Raw, f.field),
				map[string]any{"entity": f.name, "field": f.field, "template": expr.Raw, "line": expr.Pos.Line, "column": expr.Pos.Column}))
		}
	}
	return issues
}
