package joincond

import (
	"fmt"
	"strings"
)

// GenerateSQLReferences builds the REFERENCES fragment of a relationship:
//
//	LEFT (A, B) REFERENCES RIGHT (A, ASOF B)
//
// Column lists follow the order of conditions. The right-hand column of every
// ASOF condition is prefixed with ASOF. Columns are upper-cased.
func GenerateSQLReferences(conditions []ParsedCondition, leftAlias, rightAlias string) string {
	if len(conditions) == 0 {
		return ""
	}

	leftCols := make([]string, len(conditions))
	rightCols := make([]string, len(conditions))
	for i, c := range conditions {
		leftCols[i] = strings.ToUpper(c.LeftColumn)
		right := strings.ToUpper(c.RightColumn)
		if c.ConditionType == ASOF {
			right = "ASOF " + right
		}
		rightCols[i] = right
	}

	return fmt.Sprintf("%s (%s) REFERENCES %s (%s)",
		leftAlias, strings.Join(leftCols, ", "), rightAlias, strings.Join(rightCols, ", "))
}

// GenerateSQLReferencesWithMatchCondition builds the older REFERENCES form in
// which ASOF comparisons are emitted as a trailing MATCH CONDITION clause.
// Column names keep their source casing.
func GenerateSQLReferencesWithMatchCondition(conditions []ParsedCondition, leftAlias, rightAlias string) string {
	if len(conditions) == 0 {
		return ""
	}

	leftCols := make([]string, len(conditions))
	rightCols := make([]string, len(conditions))
	var matches []string
	for i, c := range conditions {
		leftCols[i] = c.LeftColumn
		rightCols[i] = c.RightColumn
		if mc := c.MatchCondition(); mc != "" {
			matches = append(matches, mc)
		}
	}

	sql := fmt.Sprintf("%s (%s) REFERENCES %s (%s)",
		leftAlias, strings.Join(leftCols, ", "), rightAlias, strings.Join(rightCols, ", "))
	if len(matches) > 0 {
		sql += fmt.Sprintf("\n      MATCH CONDITION (%s)", strings.Join(matches, " AND "))
	}
	return sql
}
