package joincond

import "fmt"

// ValidateCondition checks that a condition can be turned into a relationship.
// It returns true and "" when valid, otherwise false and a message.
//
// Validation is stricter than classification: <=, > and < are classified as
// ASOF but only >= is accepted, and BETWEEN is rejected outright.
func ValidateCondition(condition string) (bool, string) {
	parsed := Parse(condition)

	if parsed.Operator == OperatorUnknown {
		return false, fmt.Sprintf("Unknown or unsupported operator in condition: %s", condition)
	}

	switch parsed.ConditionType {
	case Unknown:
		return false, fmt.Sprintf("Unknown join type for operator '%s'", parsed.Operator)
	case Range:
		return false, fmt.Sprintf(
			"BETWEEN conditions are not supported for relationship generation: %s", condition)
	case ASOF:
		if parsed.Operator != ">=" {
			return false, fmt.Sprintf(
				"ASOF operator '%s' is not supported; ASOF relationships require '>=' (left column >= right column)",
				parsed.Operator)
		}
	}

	if parsed.LeftTable == "" || parsed.LeftColumn == "" {
		return false, fmt.Sprintf("Could not extract left table/column from: %s", parsed.LeftExpression)
	}
	if parsed.RightTable == "" || parsed.RightColumn == "" {
		return false, fmt.Sprintf("Could not extract right table/column from: %s", parsed.RightExpression)
	}

	return true, ""
}
