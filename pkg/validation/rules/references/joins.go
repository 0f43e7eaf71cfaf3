package references

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/joincond"
	"github.com/leapstack-labs/sst/pkg/validation"
)

type transformPattern struct {
	re   *regexp.Regexp
	desc string
}

// transformPatterns are checked in order; the first match names the problem.
var transformPatterns = []transformPattern{
	{regexp.MustCompile(`::`), "type casting (::)"},
	{regexp.MustCompile(`(?i)\bCAST\s*\(`), "CAST function"},
	{regexp.MustCompile(`(?i)\bCONVERT\s*\(`), "CONVERT function"},
	{regexp.MustCompile(`(?i)\bTO_DATE\s*\(`), "TO_DATE function"},
	{regexp.MustCompile(`(?i)\bTO_TIMESTAMP\s*\(`), "TO_TIMESTAMP function"},
	{regexp.MustCompile(`(?i)\bTO_CHAR\s*\(`), "TO_CHAR function"},
	{regexp.MustCompile(`(?i)\bTO_NUMBER\s*\(`), "TO_NUMBER function"},
	{regexp.MustCompile(`(?i)\bDATE\s*\(`), "DATE function"},
	{regexp.MustCompile(`(?i)\bTRIM\s*\(`), "TRIM function"},
	{regexp.MustCompile(`(?i)\bUPPER\s*\(`), "UPPER function"},
	{regexp.MustCompile(`(?i)\bLOWER\s*\(`), "LOWER function"},
	{regexp.MustCompile(`(?i)\bSUBSTRING\s*\(`), "SUBSTRING function"},
	{regexp.MustCompile(`(?i)\bCOALESCE\s*\(`), "COALESCE function"},
	{regexp.MustCompile(`(?i)\bNVL\s*\(`), "NVL function"},
	{regexp.MustCompile(`(?i)\bIFNULL\s*\(`), "IFNULL function"},
	{regexp.MustCompile(`(?i)\bCASE\s+WHEN`), "CASE statement"},
	{regexp.MustCompile(`[+\-*/]`), "arithmetic operation"},
	{regexp.MustCompile(`\|\|`), "string concatenation"},
}

// Transformation reports the kind of SQL transformation applied in a join
// operand, or "" when the operand is a bare column reference.
func Transformation(operand string) string {
	if strings.TrimSpace(operand) == "" {
		return ""
	}
	for _, p := range transformPatterns {
		if p.re.MatchString(operand) {
			return p.desc
		}
	}
	return ""
}

// columnPart returns the text after the last dot of a TABLE.COLUMN reference.
func columnPart(ref string) string {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

// transformedOperand returns the first operand of c carrying a transformation.
func transformedOperand(c core.RelationshipColumn) (operand, kind string) {
	for _, op := range []string{c.LeftExpression, c.RightExpression} {
		if kind := Transformation(op); kind != "" {
			return op, kind
		}
	}
	return "", ""
}

func checkJoinConditions(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, r := range ctx.Model.Relationships {
		for _, c := range r.Conditions {
			if ok, msg := joincond.ValidateCondition(c.JoinCondition); !ok {
				issues = append(issues, errorIssue(r.SourceFile,
					fmt.Sprintf("Relationship '%s' has invalid join condition '%s': %s", r.Name, c.JoinCondition, msg),
					map[string]any{"relationship": r.Name, "condition": c.JoinCondition, "issue": "invalid_join_condition"}))
				continue
			}
			if op, kind := transformedOperand(c); kind != "" {
				issues = append(issues, errorIssue(r.SourceFile, fmt.Sprintf(
					"Relationship '%s' contains SQL transformation (%s) in column reference '%s'. "+
						"Transformations cannot be performed within column references. "+
						"Use template syntax { column('table_name', 'column_name') } for the base column only.",
					r.Name, kind, op),
					map[string]any{"relationship": r.Name, "column": op, "issue": "sql_transformation", "transform_type": kind}))
			}
		}
	}
	return issues
}

func checkJoinColumns(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, r := range ctx.Model.Relationships {
		if len(r.Conditions) == 0 {
			continue
		}
		var left, right []string
		for _, c := range r.Conditions {
			left = append(left, strings.ToLower(columnPart(c.LeftColumn)))
			right = append(right, strings.ToLower(columnPart(c.RightColumn)))
		}
		for _, side := range []struct {
			label string
			cols  []string
		}{{"left", left}, {"right", right}} {
			dups := repeated(side.cols)
			if len(dups) == 0 {
				continue
			}
			issues = append(issues, errorIssue(r.SourceFile, fmt.Sprintf(
				"Relationship '%s' has duplicate columns in foreign key (%s side): %s. "+
					"Each column can only appear once in a relationship join condition.",
				r.Name, side.label, quoteList(dups)),
				map[string]any{"relationship": r.Name, "duplicate_columns": dups, "side": side.label, "issue": "duplicate_foreign_key_columns"}))
		}
	}
	return issues
}

// repeated returns the non-empty values occurring more than once, in
// first-occurrence order.
func repeated(values []string) []string {
	counts := make(map[string]int)
	for _, v := range values {
		counts[v]++
	}
	var out []string
	for _, v := range values {
		if v != "" && counts[v] > 1 {
			out = append(out, v)
			counts[v] = 0
		}
	}
	return out
}

func checkPrimaryKeys(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, r := range ctx.Model.Relationships {
		table, ok := ctx.Table(r.RightTable)
		if !ok || len(r.Conditions) == 0 {
			continue
		}

		if len(table.PrimaryKey) == 0 {
			issues = append(issues, errorIssue(r.SourceFile, fmt.Sprintf(
				"Relationship '%s' references table '%s' which has no primary key metadata. "+
					"This usually means the table was not properly extracted or enriched. "+
					"Run 'sst enrich' on the table's YAML file to populate primary key information, "+
					"or check that the table has proper meta.sst configuration.",
				r.Name, r.RightTable),
				map[string]any{"relationship": r.Name, "right_table": r.RightTable, "issue": "missing_primary_key_metadata"}))
			continue
		}

		pk := make([]string, len(table.PrimaryKey))
		for i, col := range table.PrimaryKey {
			pk[i] = strings.ToLower(col)
		}
		used := make([]string, len(r.Conditions))
		for i, c := range r.Conditions {
			used[i] = strings.ToLower(columnPart(c.RightColumn))
		}

		if len(pk) > 1 {
			var missing []string
			for _, col := range pk {
				if !slices.Contains(used, col) {
					missing = append(missing, col)
				}
			}
			if len(missing) == 0 {
				continue
			}
			issues = append(issues, errorIssue(r.SourceFile, fmt.Sprintf(
				"Relationship '%s' does not reference the complete primary key of right table '%s'. "+
					"The primary key is composite: [%s], but relationship only references: [%s]. Missing: [%s]. "+
					"Relationships must reference PRIMARY KEY or UNIQUE columns.",
				r.Name, r.RightTable, strings.Join(pk, ", "), strings.Join(used, ", "), strings.Join(missing, ", ")),
				map[string]any{
					"relationship":    r.Name,
					"right_table":     r.RightTable,
					"primary_key":     pk,
					"columns_used":    used,
					"missing_columns": missing,
					"issue":           "incomplete_composite_key",
				}))
			continue
		}

		if slices.Contains(used, pk[0]) {
			continue
		}
		issues = append(issues, errorIssue(r.SourceFile, fmt.Sprintf(
			"Relationship '%s' references column(s) [%s] in right table '%s', but the primary key is '%s'. "+
				"Relationships must reference PRIMARY KEY or UNIQUE columns. "+
				"If '%s' has a UNIQUE constraint, this is valid. Otherwise, consider reversing the relationship direction.",
			r.Name, strings.Join(used, ", "), r.RightTable, pk[0], used[0]),
			map[string]any{
				"relationship":  r.Name,
				"right_table":   r.RightTable,
				"right_columns": used,
				"primary_key":   pk[0],
				"issue":         "not_primary_key",
			}))
	}
	return issues
}

var qualifiedColumn = regexp.MustCompile(`(\w+)\.(\w+)`)

// checkUnknownColumns only checks tables that have column records.
func checkUnknownColumns(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue

	unknown := func(table, column string) bool {
		return column != "" && ctx.HasColumns(table) && !ctx.HasColumn(table, column)
	}

	for _, r := range ctx.Model.Relationships {
		for _, c := range r.Conditions {
			if _, kind := transformedOperand(c); kind != "" {
				continue
			}
			for _, side := range []struct{ table, column string }{
				{r.LeftTable, columnPart(c.LeftColumn)},
				{r.RightTable, columnPart(c.RightColumn)},
			} {
				if !unknown(side.table, side.column) {
					continue
				}
				issues = append(issues, errorIssue(r.SourceFile,
					fmt.Sprintf("Relationship '%s' references unknown column '%s' in table '%s'", r.Name, side.column, side.table),
					map[string]any{"relationship": r.Name, "column": side.column, "table": side.table}))
			}
		}
	}

	exprColumns := func(kind, name, file, expr string, tables []string) {
		for _, m := range qualifiedColumn.FindAllStringSubmatch(expr, -1) {
			table, column := m[1], m[2]
			if !containsFold(tables, table) || !unknown(table, column) {
				continue
			}
			issues = append(issues, errorIssue(file,
				fmt.Sprintf("%s '%s' references unknown column '%s' in table '%s'", kind, name, column, table),
				map[string]any{"entity": name, "column": column, "table": table}))
		}
	}

	for _, m := range ctx.Model.Metrics {
		exprColumns("Metric", m.Name, m.SourceFile, m.Expr, m.Tables)
	}
	for _, f := range ctx.Model.Filters {
		if f.TableName != "" {
			exprColumns("Filter", f.Name, f.SourceFile, f.Expr, []string{f.TableName})
		}
	}

	return issues
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
