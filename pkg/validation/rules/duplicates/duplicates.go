// Package duplicates detects naming conflicts and duplicate definitions
// across the aggregated semantic model.
package duplicates

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/validation"
)

// Group is the rule group of every duplicate check.
const Group = "duplicates"

// Rule IDs.
const (
	RuleNames             = "DU01"
	RuleMetricExpressions = "DU02"
	RuleTablePairs        = "DU03"
	RuleViewTableSets     = "DU04"
	RuleTableSynonyms     = "DU05"
)

func init() {
	for _, rule := range Rules() {
		validation.Register(rule)
	}
}

// Rules returns the duplicate checks.
func Rules() []validation.RuleDef {
	return []validation.RuleDef{
		{
			ID:          RuleNames,
			Name:        "duplicate-names",
			Group:       Group,
			Description: "Entity names must be unique (case-insensitive) within each entity type",
			Severity:    core.SeverityError,
			Check:       checkNames,
		},
		{
			ID:          RuleMetricExpressions,
			Name:        "duplicate-metric-expressions",
			Group:       Group,
			Description: "Metrics with identical normalized expressions",
			Severity:    core.SeverityWarning,
			Check:       checkMetricExpressions,
		},
		{
			ID:          RuleTablePairs,
			Name:        "duplicate-relationship-tables",
			Group:       Group,
			Description: "Several relationships join the same pair of tables",
			Severity:    core.SeverityWarning,
			Check:       checkTablePairs,
		},
		{
			ID:          RuleViewTableSets,
			Name:        "duplicate-view-tables",
			Group:       Group,
			Description: "Semantic views with identical table sets",
			Severity:    core.SeverityWarning,
			Check:       checkViewTableSets,
		},
		{
			ID:          RuleTableSynonyms,
			Name:        "duplicate-table-synonyms",
			Group:       Group,
			Description: "Table synonyms must be unique within a semantic view",
			Severity:    core.SeverityError,
			Check:       checkTableSynonyms,
		},
	}
}

// Validator runs the duplicate checks without going through the registry.
type Validator struct {
	analyzer *validation.Analyzer
}

// New creates a validator. A nil config runs every check at its default severity.
func New(config *validation.AnalyzerConfig) *Validator {
	return &Validator{analyzer: validation.NewAnalyzer(config)}
}

// Validate checks model and, when given, the dbt tables whose synonyms are
// checked per semantic view.
func (v *Validator) Validate(model *core.SemanticModel, tables []core.Table) *validation.Result {
	ctx := validation.NewContext(model, core.DbtModels{Tables: tables})
	return v.analyzer.Run(ctx, Rules())
}

// groups collects indices per key in first-occurrence order.
type groups struct {
	order   []string
	members map[string][]int
}

func newGroups() *groups {
	return &groups{members: make(map[string][]int)}
}

func (g *groups) add(key string, index int) {
	if _, ok := g.members[key]; !ok {
		g.order = append(g.order, key)
	}
	g.members[key] = append(g.members[key], index)
}

// each calls fn for every key seen more than once.
func (g *groups) each(fn func(key string, indices []int)) {
	for _, key := range g.order {
		if idx := g.members[key]; len(idx) > 1 {
			fn(key, idx)
		}
	}
}

func checkNames(ctx *validation.Context) []validation.Issue {
	m := ctx.Model
	var issues []validation.Issue

	issues = append(issues, duplicateNames("metric", len(m.Metrics), func(i int) string { return m.Metrics[i].Name })...)
	issues = append(issues, duplicateNames("relationship", len(m.Relationships), func(i int) string { return m.Relationships[i].Name })...)
	issues = append(issues, duplicateNames("filter", len(m.Filters), func(i int) string { return m.Filters[i].Name })...)
	issues = append(issues, duplicateNames("semantic view", len(m.SemanticViews), func(i int) string { return m.SemanticViews[i].Name })...)
	issues = append(issues, duplicateNames("custom instruction", len(m.CustomInstructions), func(i int) string { return m.CustomInstructions[i].Name })...)
	issues = append(issues, duplicateNames("verified query", len(m.VerifiedQueries), func(i int) string { return m.VerifiedQueries[i].Name })...)
	issues = append(issues, duplicateNames("table", len(ctx.Tables), func(i int) string { return ctx.Tables[i].TableName })...)

	return issues
}

func duplicateNames(kind string, n int, name func(int) string) []validation.Issue {
	seen := newGroups()
	for i := 0; i < n; i++ {
		if nm := name(i); nm != "" {
			seen.add(strings.ToLower(nm), i)
		}
	}

	var issues []validation.Issue
	seen.each(func(key string, indices []int) {
		issues = append(issues, validation.Issue{
			Severity: core.SeverityError,
			Message:  fmt.Sprintf("Duplicate %s name '%s' found %d times", kind, key, len(indices)),
			Context:  map[string]any{"type": kind, "name": key, "indices": indices},
		})
	})
	return issues
}

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// NormalizeExpression strips SQL comments, collapses whitespace and
// lower-cases expr for equivalence checks.
func NormalizeExpression(expr string) string {
	normalized := blockComment.ReplaceAllString(expr, " ")
	normalized = lineComment.ReplaceAllString(normalized, " ")
	normalized = strings.Join(strings.Fields(normalized), " ")
	return strings.ToLower(normalized)
}

func checkMetricExpressions(ctx *validation.Context) []validation.Issue {
	metrics := ctx.Model.Metrics
	seen := newGroups()
	for i, m := range metrics {
		if m.Expr == "" {
			continue
		}
		if norm := NormalizeExpression(m.Expr); norm != "" {
			seen.add(norm, i)
		}
	}

	var issues []validation.Issue
	seen.each(func(expr string, indices []int) {
		names := make([]string, len(indices))
		for j, i := range indices {
			names[j] = metrics[i].Name
		}
		issues = append(issues, validation.Issue{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("Metrics %s have identical expressions", quoteList(names)),
			Context:  map[string]any{"expression": truncate(expr, 100), "metrics": names, "indices": indices},
		})
	})
	return issues
}

func checkTablePairs(ctx *validation.Context) []validation.Issue {
	rels := ctx.Model.Relationships
	seen := newGroups()
	for i, r := range rels {
		left, right := strings.ToLower(r.LeftTable), strings.ToLower(r.RightTable)
		if left == "" || right == "" {
			continue
		}
		if right < left {
			left, right = right, left
		}
		seen.add(left+"\x00"+right, i)
	}

	var issues []validation.Issue
	seen.each(func(key string, indices []int) {
		pair := strings.SplitN(key, "\x00", 2)
		names := make([]string, len(indices))
		for j, i := range indices {
			names[j] = rels[i].Name
		}
		issues = append(issues, validation.Issue{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("Multiple relationships between tables %s and %s: %s", pair[0], pair[1], quoteList(names)),
			Context:  map[string]any{"tables": pair, "relationships": names},
		})
	})
	return issues
}

func checkViewTableSets(ctx *validation.Context) []validation.Issue {
	views := ctx.Model.SemanticViews
	seen := newGroups()
	sets := make(map[string][]string)
	for i, v := range views {
		set := tableSet(v.Tables)
		if len(set) == 0 {
			continue
		}
		key := strings.Join(set, "\x00")
		sets[key] = set
		seen.add(key, i)
	}

	var issues []validation.Issue
	seen.each(func(key string, indices []int) {
		names := make([]string, len(indices))
		for j, i := range indices {
			names[j] = views[i].Name
		}
		issues = append(issues, validation.Issue{
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("Semantic views %s have identical table lists", quoteList(names)),
			Context:  map[string]any{"tables": sets[key], "views": names},
		})
	})
	return issues
}

// tableSet returns the sorted, de-duplicated lower-cased table names.
func tableSet(list core.TableList) []string {
	seen := make(map[string]bool)
	var set []string
	for _, name := range list.Names() {
		lower := strings.ToLower(name)
		if lower == "" || seen[lower] {
			continue
		}
		seen[lower] = true
		set = append(set, lower)
	}
	sort.Strings(set)
	return set
}

type synonymSource struct {
	synonyms []string
	file     string
}

type synonymClaim struct {
	table   string
	synonym string
	file    string
}

// checkTableSynonyms reports table-level synonyms claimed by more than one
// table of the same semantic view. Column synonyms are not checked.
func checkTableSynonyms(ctx *validation.Context) []validation.Issue {
	if len(ctx.Tables) == 0 {
		return nil
	}

	lookup := make(map[string]synonymSource)
	for _, t := range ctx.Tables {
		name := strings.ToUpper(t.TableName)
		if name == "" || len(t.Synonyms) == 0 {
			continue
		}
		file := t.SourceFile
		if file == "" {
			file = "unknown"
		}
		// Same-named tables from different models share one entry.
		src, ok := lookup[name]
		if !ok {
			src.file = file
		}
		src.synonyms = append(src.synonyms, t.Synonyms...)
		lookup[name] = src
	}

	var issues []validation.Issue
	for _, view := range ctx.Model.SemanticViews {
		viewName := view.Name
		if viewName == "" {
			viewName = "unknown"
		}

		claims := make(map[string][]synonymClaim)
		var order []string
		tablesSeen := make(map[string]bool)

		for _, table := range view.Tables.Names() {
			upper := strings.ToUpper(table)
			if tablesSeen[upper] {
				continue
			}
			tablesSeen[upper] = true

			src, ok := lookup[upper]
			if !ok {
				continue
			}
			claimed := make(map[string]bool)
			for _, syn := range src.synonyms {
				key := strings.ToLower(strings.TrimSpace(syn))
				if key == "" || claimed[key] {
					continue
				}
				claimed[key] = true
				if _, ok := claims[key]; !ok {
					order = append(order, key)
				}
				claims[key] = append(claims[key], synonymClaim{table: table, synonym: syn, file: src.file})
			}
		}

		for _, key := range order {
			occ := claims[key]
			if len(occ) < 2 {
				continue
			}
			issues = append(issues, synonymIssue(viewName, occ))
		}
	}
	return issues
}

func synonymIssue(view string, occ []synonymClaim) validation.Issue {
	var b strings.Builder
	fmt.Fprintf(&b, "Duplicate table synonym '%s' in semantic view '%s'\n", occ[0].synonym, view)
	fmt.Fprintf(&b, "  Found in %d tables:\n", len(occ))
	tables := make([]string, len(occ))
	for i, o := range occ {
		tables[i] = o.table
		fmt.Fprintf(&b, "    - Table '%s' (%s)\n", o.table, DisplayPath(o.file))
	}
	b.WriteString("  Table synonyms must be unique within a semantic view.")

	return validation.Issue{
		Severity: core.SeverityError,
		Message:  b.String(),
		Context: map[string]any{
			"type":          "DUPLICATE_TABLE_SYNONYM",
			"semantic_view": view,
			"synonym":       occ[0].synonym,
			"tables":        tables,
		},
	}
}

// pathMarkers are checked in order; the first present wins.
var pathMarkers = []string{"models/", "staging/", "marts/", "intermediate/"}

// DisplayPath shortens path to start at the first known project directory.
func DisplayPath(path string) string {
	for _, marker := range pathMarkers {
		if i := strings.Index(path, marker); i >= 0 {
			return path[i:]
		}
	}
	return path
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
