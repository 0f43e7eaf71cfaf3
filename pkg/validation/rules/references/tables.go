package references

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/sst/pkg/validation"
)

// ctePatterns mark names that look like CTE or subquery aliases.
var ctePatterns = []string{"cte_", "with_", "temp_", "tmp_", "_cte", "_with", "_temp", "_tmp"}

func isCTE(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range ctePatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func unknownTableMessage(msg string, suggestions []string) string {
	if len(suggestions) > 0 {
		return msg + ". Did you mean: " + strings.Join(suggestions, ", ") + "?"
	}
	return msg + ". Check that the model has `config.meta.sst` configuration."
}

func checkUnknownTables(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue

	for _, m := range ctx.Model.Metrics {
		for _, table := range m.Tables {
			if table == "" || ctx.HasTable(table) || isCTE(table) {
				continue
			}
			sugg := SimilarTables(table, ctx.TableNames())
			issues = append(issues, errorIssue(m.SourceFile,
				unknownTableMessage(fmt.Sprintf("Metric '%s' references unknown table '%s'", m.Name, table), sugg),
				map[string]any{"metric": m.Name, "table": table, "suggestions": sugg}))
		}
	}

	for _, r := range ctx.Model.Relationships {
		for _, side := range []struct{ label, table string }{{"left", r.LeftTable}, {"right", r.RightTable}} {
			if side.table == "" || ctx.HasTable(side.table) {
				continue
			}
			sugg := SimilarTables(side.table, ctx.TableNames())
			issues = append(issues, errorIssue(r.SourceFile,
				unknownTableMessage(fmt.Sprintf("Relationship '%s' references unknown %s table '%s'", r.Name, side.label, side.table), sugg),
				map[string]any{"relationship": r.Name, "table": side.table, "side": side.label, "suggestions": sugg}))
		}
	}

	for _, f := range ctx.Model.Filters {
		if f.TableName == "" || ctx.HasTable(f.TableName) {
			continue
		}
		sugg := SimilarTables(f.TableName, ctx.TableNames())
		issues = append(issues, errorIssue(f.SourceFile,
			unknownTableMessage(fmt.Sprintf("Filter '%s' references unknown table '%s'", f.Name, f.TableName), sugg),
			map[string]any{"filter": f.Name, "table": f.TableName, "suggestions": sugg}))
	}

	for _, v := range ctx.Model.SemanticViews {
		for _, table := range v.Tables.Names() {
			if table == "" || ctx.HasTable(table) || isCTE(table) {
				continue
			}
			sugg := SimilarTables(table, ctx.TableNames())
			msg := fmt.Sprintf("Semantic view '%s' references table '%s' that was not extracted", v.Name, table)
			if len(sugg) > 0 {
				msg += ". Did you mean: " + strings.Join(sugg, ", ") + "?"
			} else {
				msg += ". Check that the table has `config.meta.sst` configuration or run 'sst enrich' to populate metadata."
			}
			issues = append(issues, errorIssue(v.SourceFile, msg, map[string]any{
				"view": v.Name, "table": table, "type": "MISSING_TABLE_DEPENDENCY", "suggestions": sugg,
			}))
		}
	}

	return issues
}

func missingLocation(ctx *validation.Context, table string) []string {
	t, ok := ctx.Table(table)
	if !ok {
		return nil
	}
	var missing []string
	if t.Database == "" {
		missing = append(missing, "database")
	}
	if t.Schema == "" {
		missing = append(missing, "schema")
	}
	return missing
}

func checkTableLocations(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue

	// subject reads "<Entity> '<name>' references[ side]".
	report := func(file, subject, table string, context map[string]any) {
		missing := missingLocation(ctx, table)
		if len(missing) == 0 {
			return
		}
		context["table"] = table
		context["missing_metadata"] = missing
		issues = append(issues, errorIssue(file, fmt.Sprintf(
			"%s table '%s' which is missing critical metadata (%s) and won't be available in the semantic model",
			subject, table, strings.Join(missing, "/")), context))
	}

	for _, m := range ctx.Model.Metrics {
		for _, table := range m.Tables {
			report(m.SourceFile, fmt.Sprintf("Metric '%s' references", m.Name), table, map[string]any{"metric": m.Name})
		}
	}
	for _, r := range ctx.Model.Relationships {
		report(r.SourceFile, fmt.Sprintf("Relationship '%s' references left", r.Name), r.LeftTable, map[string]any{"relationship": r.Name})
		report(r.SourceFile, fmt.Sprintf("Relationship '%s' references right", r.Name), r.RightTable, map[string]any{"relationship": r.Name})
	}

	return issues
}

func checkMetricTables(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, m := range ctx.Model.Metrics {
		if m.HasTables {
			continue
		}
		issues = append(issues, warningIssue(m.SourceFile,
			fmt.Sprintf("Metric '%s' is missing 'tables' field - validation may be incomplete", m.Name),
			map[string]any{"metric": m.Name}))
	}
	return issues
}

func checkVerifiedQueryTables(ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, q := range ctx.Model.VerifiedQueries {
		for _, table := range q.Tables {
			if table == "" || ctx.HasTable(table) {
				continue
			}
			issues = append(issues, warningIssue(q.SourceFile,
				fmt.Sprintf("Verified query '%s' references table '%s' not found in dbt models", q.Name, table),
				map[string]any{"query": q.Name, "table": table}))
		}
	}
	return issues
}

// SimilarTables returns up to three known names resembling name, best first.
// Scoring combines a shared three-character prefix, substring containment,
// character-set overlap and a shared three-character suffix.
func SimilarTables(name string, known []string) []string {
	if name == "" || len(known) == 0 {
		return nil
	}
	lower := strings.ToLower(name)

	type candidate struct {
		name  string
		score int
	}
	var candidates []candidate

	for _, k := range known {
		kl := strings.ToLower(k)
		score := 0

		if n := min(3, len(lower), len(kl)); n > 0 && lower[:n] == kl[:n] {
			score += 3
		}
		if strings.Contains(kl, lower) || strings.Contains(lower, kl) {
			score += 2
		}
		if overlap(lower, kl) > 0.5 {
			score++
		}
		if n := min(3, len(lower), len(kl)); n > 0 && lower[len(lower)-n:] == kl[len(kl)-n:] {
			score++
		}

		if score > 0 {
			candidates = append(candidates, candidate{k, score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })

	var out []string
	for i := 0; i < len(candidates) && i < 3; i++ {
		out = append(out, candidates[i].name)
	}
	return out
}

// overlap is the Jaccard ratio of the character sets of a and b.
func overlap(a, b string) float64 {
	sa, sb := make(map[rune]bool), make(map[rune]bool)
	for _, r := range a {
		sa[r] = true
	}
	for _, r := range b {
		sb[r] = true
	}
	common := 0
	for r := range sa {
		if sb[r] {
			common++
		}
	}
	all := len(sa) + len(sb) - common
	if all == 0 {
		return 0
	}
	return float64(common) / float64(all)
}
