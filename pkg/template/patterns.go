package template

import (
	"regexp"
	"strings"
)

// Each pattern accepts either quote style, any whitespace inside the braces and
// parentheses, and a case-insensitive function name.
var (
	// tablePattern: {{ ref('t') }} or {{ table('t') }}
	tablePattern = regexp.MustCompile(`(?i){{\s*(?:ref|table)\s*\(\s*['"]([^'"]+)['"]\s*\)\s*}}`)

	// columnPattern: {{ ref('t', 'c') }} or {{ column('t', 'c') }}
	columnPattern = regexp.MustCompile(`(?i){{\s*(?:ref|column)\s*\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)\s*}}`)

	// metricPattern: {{ metric('m') }}
	metricPattern = regexp.MustCompile(`(?i){{\s*metric\s*\(\s*['"]([^'"]+)['"]\s*\)\s*}}`)

	// instructionPattern: {{ custom_instructions('n') }}
	instructionPattern = regexp.MustCompile(`(?i){{\s*custom_instructions\s*\(\s*['"]([^'"]+)['"]\s*\)\s*}}`)

	// columnTablePattern captures the table argument of a two-argument column reference.
	columnTablePattern = regexp.MustCompile(`(?i){{\s*(?:ref|column)\s*\(\s*['"]([^'"]+)['"]\s*,`)
)

// ContainsTemplate reports whether s holds a template expression.
func ContainsTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// ExtractColumnTables returns the table names referenced by column
// expressions in expr, de-duplicated in order of first occurrence.
func ExtractColumnTables(expr string) []string {
	var tables []string
	seen := make(map[string]bool)
	for _, m := range columnTablePattern.FindAllStringSubmatch(expr, -1) {
		table := strings.TrimSpace(m[1])
		if table == "" || seen[table] {
			continue
		}
		seen[table] = true
		tables = append(tables, table)
	}
	return tables
}

// TableNameFromTemplate unwraps {{ table('t') }} or {{ ref('t') }} to t.
// Other input is returned unchanged.
func TableNameFromTemplate(s string) string {
	if m := tablePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ExtractInstructionNames returns the upper-cased instruction names of every
// custom_instructions() expression in s.
func ExtractInstructionNames(s string) []string {
	var names []string
	for _, m := range instructionPattern.FindAllStringSubmatch(s, -1) {
		names = append(names, strings.ToUpper(strings.TrimSpace(m[1])))
	}
	return names
}
