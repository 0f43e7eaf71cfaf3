package joincond

import (
	"fmt"
	"regexp"
	"strings"
)

// JoinType classifies a join condition by its operator.
type JoinType string

// JoinType values. The string forms are what relationship-column records store.
const (
	Equality JoinType = "equality"
	ASOF     JoinType = "asof"
	Range    JoinType = "range"
	Unknown  JoinType = "unknown"
)

// OperatorUnknown is returned by DetectOperator when no operator is present.
const OperatorUnknown = "UNKNOWN"

// OperatorBetween is the range operator.
const OperatorBetween = "BETWEEN"

// operatorPriority is scanned in order; two-character operators must precede
// their one-character prefixes.
var operatorPriority = []string{">=", "<=", "!=", "<>", "=", ">", "<"}

var (
	// columnTemplatePattern matches {{ column('t', 'c') }} and {{ ref('t', 'c') }}.
	columnTemplatePattern = regexp.MustCompile(`(?i){{\s*(?:column|ref)\s*\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)\s*}}`)

	// resolvedColumnPattern matches TABLE.COLUMN.
	resolvedColumnPattern = regexp.MustCompile(`(?i)([A-Z_][A-Z0-9_]*)\.([A-Z_][A-Z0-9_]*)`)

	betweenSplitPattern = regexp.MustCompile(`(?i)\s+BETWEEN\s+|\s+AND\s+`)
)

// ParsedCondition is one join predicate between two columns.
//
// Table and column fields are empty strings when extraction fails; callers
// must treat an empty field as unresolved. Template-format conditions keep the
// source casing of names; resolved-format conditions are upper-cased.
type ParsedCondition struct {
	JoinCondition   string
	ConditionType   JoinType
	LeftExpression  string
	RightExpression string
	LeftTable       string
	LeftColumn      string
	RightTable      string
	RightColumn     string
	Operator        string
}

// Parse parses a join condition in template or resolved format.
func Parse(condition string) ParsedCondition {
	operator := DetectOperator(condition)
	conditionType := DetectJoinType(operator)

	left, right := splitOnOperator(condition, operator)

	var extract func(string) (string, string)
	if strings.Contains(condition, "{{") {
		extract = tableColumnFromTemplate
	} else {
		extract = tableColumnFromResolved
	}
	leftTable, leftColumn := extract(left)
	rightTable, rightColumn := extract(right)

	return ParsedCondition{
		JoinCondition:   condition,
		ConditionType:   conditionType,
		LeftExpression:  strings.TrimSpace(left),
		RightExpression: strings.TrimSpace(right),
		LeftTable:       leftTable,
		LeftColumn:      leftColumn,
		RightTable:      rightTable,
		RightColumn:     rightColumn,
		Operator:        operator,
	}
}

// ParseMultiple parses each condition, preserving order.
func ParseMultiple(conditions []string) []ParsedCondition {
	parsed := make([]ParsedCondition, len(conditions))
	for i, c := range conditions {
		parsed[i] = Parse(c)
	}
	return parsed
}

// DetectOperator returns the first operator found in the condition.
//
// This is a substring scan, not a tokenizer: an operator inside a quoted
// literal is found like any other. BETWEEN is checked first, case-insensitively.
func DetectOperator(condition string) string {
	if strings.Contains(strings.ToUpper(condition), OperatorBetween) {
		return OperatorBetween
	}
	for _, op := range operatorPriority {
		if strings.Contains(condition, op) {
			return op
		}
	}
	return OperatorUnknown
}

// DetectJoinType maps an operator to its join type.
func DetectJoinType(operator string) JoinType {
	switch operator {
	case "=":
		return Equality
	case ">=", "<=", ">", "<":
		return ASOF
	case OperatorBetween:
		return Range
	default:
		return Unknown
	}
}

// MatchCondition returns the unqualified comparison used in a MATCH CONDITION
// clause, or "" for non-ASOF conditions.
func (p ParsedCondition) MatchCondition() string {
	if p.ConditionType != ASOF {
		return ""
	}
	return fmt.Sprintf("%s %s %s", p.LeftColumn, p.Operator, p.RightColumn)
}

// QualifiedLeft returns TABLE.COLUMN for the left side, or "" when unresolved.
func (p ParsedCondition) QualifiedLeft() string {
	return qualify(p.LeftTable, p.LeftColumn)
}

// QualifiedRight returns TABLE.COLUMN for the right side, or "" when unresolved.
func (p ParsedCondition) QualifiedRight() string {
	return qualify(p.RightTable, p.RightColumn)
}

func qualify(table, column string) string {
	if table == "" || column == "" {
		return ""
	}
	return table + "." + column
}

// splitOnOperator splits the condition into its left and right operands.
// For BETWEEN only the column and lower bound are returned.
func splitOnOperator(condition, operator string) (string, string) {
	if operator == OperatorBetween {
		parts := betweenSplitPattern.Split(condition, -1)
		if len(parts) >= 2 {
			return parts[0], parts[1]
		}
		return condition, ""
	}
	parts := strings.SplitN(condition, operator, 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return condition, ""
}

func tableColumnFromTemplate(expression string) (string, string) {
	m := columnTemplatePattern.FindStringSubmatch(expression)
	if m == nil {
		return "", ""
	}
	return m[1], m[2]
}

func tableColumnFromResolved(expression string) (string, string) {
	expression = strings.TrimSpace(expression)
	expression = strings.Trim(expression, `"`)
	expression = strings.Trim(expression, `'`)
	m := resolvedColumnPattern.FindStringSubmatch(expression)
	if m == nil {
		return "", ""
	}
	return strings.ToUpper(m[1]), strings.ToUpper(m[2])
}
