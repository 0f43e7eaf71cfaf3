package references

import (
	"testing"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/joincond"
	"github.com/leapstack-labs/sst/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() core.DbtModels {
	return core.DbtModels{
		Tables: []core.Table{
			{TableName: "ORDERS", Database: "ANALYTICS", Schema: "MARTS", PrimaryKey: []string{"ORDER_ID"}},
			{TableName: "CUSTOMERS", Database: "ANALYTICS", Schema: "MARTS", PrimaryKey: []string{"CUSTOMER_ID"}},
			{TableName: "LINE_ITEMS", Database: "ANALYTICS", Schema: "MARTS", PrimaryKey: []string{"ORDER_ID", "LINE_NO"}},
			{TableName: "RAW_EVENTS"},
		},
		Columns: []core.Column{
			{TableName: "ORDERS", Name: "ORDER_ID"},
			{TableName: "ORDERS", Name: "CUSTOMER_ID"},
			{TableName: "ORDERS", Name: "AMOUNT"},
			{TableName: "ORDERS", Name: "ORDERED_AT"},
			{TableName: "CUSTOMERS", Name: "CUSTOMER_ID"},
			{TableName: "CUSTOMERS", Name: "NAME"},
			{TableName: "LINE_ITEMS", Name: "ORDER_ID"},
			{TableName: "LINE_ITEMS", Name: "LINE_NO"},
		},
	}
}

func relationship(name, left, right string, conditions ...string) core.Relationship {
	r := core.Relationship{Name: name, LeftTable: left, RightTable: right}
	for _, p := range joincond.ParseMultiple(conditions) {
		r.Conditions = append(r.Conditions, core.RelationshipColumn{
			RelationshipName: name,
			JoinCondition:    p.JoinCondition,
			ConditionType:    string(p.ConditionType),
			LeftExpression:   p.LeftExpression,
			RightExpression:  p.RightExpression,
			LeftColumn:       p.QualifiedLeft(),
			RightColumn:      p.QualifiedRight(),
			Operator:         p.Operator,
		})
	}
	return r
}

func metric(name, expr string, tables ...string) core.Metric {
	return core.Metric{Name: name, Expr: expr, Tables: tables, HasTables: true}
}

func validModel() core.SemanticModel {
	return core.SemanticModel{
		Metrics: []core.Metric{metric("TOTAL_REVENUE", "SUM(ORDERS.AMOUNT)", "ORDERS")},
		Relationships: []core.Relationship{
			relationship("ORDERS_TO_CUSTOMERS", "ORDERS", "CUSTOMERS", "ORDERS.CUSTOMER_ID = CUSTOMERS.CUSTOMER_ID"),
		},
		Filters:            []core.Filter{{Name: "POSITIVE", TableName: "ORDERS", Expr: "ORDERS.AMOUNT > 0"}},
		CustomInstructions: []core.CustomInstruction{{Name: "BUSINESS_RULES", SQLGeneration: "Round to 2 decimals"}},
		VerifiedQueries:    []core.VerifiedQuery{{Name: "Q", Tables: []string{"ORDERS"}, SQL: "SELECT 1"}},
		SemanticViews: []core.SemanticView{{
			Name:               "SALES",
			Tables:             core.NewTableList("ORDERS", "CUSTOMERS"),
			CustomInstructions: []string{"business_rules"},
		}},
	}
}

func validate(model core.SemanticModel) *validation.Result {
	return New(nil).Validate(&model, catalog())
}

func byRule(result *validation.Result, id string) []validation.Issue {
	var out []validation.Issue
	for _, issue := range result.Issues() {
		if issue.RuleID == id {
			out = append(out, issue)
		}
	}
	return out
}

func TestValidator_ValidModel(t *testing.T) {
	assert.Empty(t, validate(validModel()).Issues())
}

func TestValidator_UnknownTables(t *testing.T) {
	tests := []struct {
		name    string
		model   core.SemanticModel
		message string
	}{
		{
			name:    "metric with suggestion",
			model:   core.SemanticModel{Metrics: []core.Metric{metric("M", "COUNT(*)", "ORDER")}},
			message: "Metric 'M' references unknown table 'ORDER'. Did you mean: orders?",
		},
		{
			name: "relationship without suggestion",
			model: core.SemanticModel{Relationships: []core.Relationship{
				relationship("R", "ORDERS", "ZZZ", "ORDERS.CUSTOMER_ID = ZZZ.ID"),
			}},
			message: "Relationship 'R' references unknown right table 'ZZZ'. Check that the model has `config.meta.sst` configuration.",
		},
		{
			name:    "filter",
			model:   core.SemanticModel{Filters: []core.Filter{{Name: "F", TableName: "CUSTOMER"}}},
			message: "Filter 'F' references unknown table 'CUSTOMER'. Did you mean: customers?",
		},
		{
			name: "semantic view",
			model: core.SemanticModel{SemanticViews: []core.SemanticView{
				{Name: "V", Tables: core.NewTableList("ORDERS", "QQQ")},
			}},
			message: "Semantic view 'V' references table 'QQQ' that was not extracted. " +
				"Check that the table has `config.meta.sst` configuration or run 'sst enrich' to populate metadata.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := byRule(validate(tt.model), RuleUnknownTable)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.message, issues[0].Message)
			assert.Equal(t, core.SeverityError, issues[0].Severity)
		})
	}
}

func TestValidator_CTENamesExempt(t *testing.T) {
	model := core.SemanticModel{
		Metrics:       []core.Metric{metric("M", "COUNT(*)", "cte_orders")},
		SemanticViews: []core.SemanticView{{Name: "V", Tables: core.NewTableList("ORDERS", "tmp_stage")}},
	}
	assert.Empty(t, byRule(validate(model), RuleUnknownTable))
}

func TestSimilarTables(t *testing.T) {
	known := []string{"customers", "line_items", "orders", "raw_events"}

	assert.Equal(t, []string{"orders"}, SimilarTables("ORDER", known))
	assert.Equal(t, "customers", SimilarTables("customer", known)[0])
	assert.Empty(t, SimilarTables("zzz", known))
	assert.Empty(t, SimilarTables("", known))
	assert.LessOrEqual(t, len(SimilarTables("s", []string{"sa", "sb", "sc", "sd"})), 3)
}

func TestValidator_TableLocation(t *testing.T) {
	model := core.SemanticModel{
		Metrics: []core.Metric{metric("EVENTS", "COUNT(*)", "RAW_EVENTS")},
		Relationships: []core.Relationship{
			relationship("R", "RAW_EVENTS", "ORDERS", "RAW_EVENTS.ORDER_ID = ORDERS.ORDER_ID"),
		},
	}

	issues := byRule(validate(model), RuleTableLocation)
	require.Len(t, issues, 2)
	assert.Equal(t, "Metric 'EVENTS' references table 'RAW_EVENTS' which is missing critical metadata "+
		"(database/schema) and won't be available in the semantic model", issues[0].Message)
	assert.Contains(t, issues[1].Message, "Relationship 'R' references left table 'RAW_EVENTS'")
	assert.Equal(t, []string{"database", "schema"}, issues[1].Context["missing_metadata"])
}

func TestValidator_JoinConditions(t *testing.T) {
	tests := []struct {
		name      string
		condition string
		contains  string
	}{
		{"unsupported asof operator", "ORDERS.ORDERED_AT <= CUSTOMERS.CUSTOMER_ID", "ASOF operator '<=' is not supported"},
		{"between", "ORDERS.ORDERED_AT BETWEEN CUSTOMERS.A AND CUSTOMERS.B", "BETWEEN conditions are not supported"},
		{"no operator", "ORDERS.CUSTOMER_ID", "Unknown or unsupported operator"},
		{"function call", "DATE(ORDERS.ORDERED_AT) = CUSTOMERS.CUSTOMER_ID", "SQL transformation (DATE function)"},
		{"cast", "ORDERS.CUSTOMER_ID::VARCHAR = CUSTOMERS.CUSTOMER_ID", "SQL transformation (type casting (::))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := core.SemanticModel{Relationships: []core.Relationship{
				relationship("R", "ORDERS", "CUSTOMERS", tt.condition),
			}}
			issues := byRule(validate(model), RuleJoinCondition)
			require.Len(t, issues, 1)
			assert.Contains(t, issues[0].Message, tt.contains)
		})
	}
}

func TestTransformation(t *testing.T) {
	assert.Empty(t, Transformation("ORDERS.CUSTOMER_ID"))
	assert.Empty(t, Transformation("{{ column('orders', 'customer_id') }}"))
	assert.Equal(t, "TRIM function", Transformation("trim(ORDERS.CODE)"))
	assert.Equal(t, "string concatenation", Transformation("ORDERS.A || ORDERS.B"))
	assert.Equal(t, "CASE statement", Transformation("CASE WHEN ORDERS.A THEN 1 END"))
}

func TestValidator_DuplicateJoinColumns(t *testing.T) {
	model := core.SemanticModel{Relationships: []core.Relationship{
		relationship("R", "ORDERS", "CUSTOMERS",
			"ORDERS.CUSTOMER_ID = CUSTOMERS.CUSTOMER_ID",
			"ORDERS.CUSTOMER_ID >= CUSTOMERS.NAME"),
	}}

	issues := byRule(validate(model), RuleJoinColumns)
	require.Len(t, issues, 1)
	assert.Equal(t, "Relationship 'R' has duplicate columns in foreign key (left side): ['customer_id']. "+
		"Each column can only appear once in a relationship join condition.", issues[0].Message)
	assert.Equal(t, "left", issues[0].Context["side"])
}

func TestValidator_PrimaryKeys(t *testing.T) {
	tests := []struct {
		name  string
		rel   core.Relationship
		issue string
	}{
		{
			name:  "incomplete composite key",
			rel:   relationship("R", "ORDERS", "LINE_ITEMS", "ORDERS.ORDER_ID = LINE_ITEMS.ORDER_ID"),
			issue: "incomplete_composite_key",
		},
		{
			name:  "not the primary key",
			rel:   relationship("R", "ORDERS", "CUSTOMERS", "ORDERS.CUSTOMER_ID = CUSTOMERS.NAME"),
			issue: "not_primary_key",
		},
		{
			name:  "missing primary key metadata",
			rel:   relationship("R", "ORDERS", "RAW_EVENTS", "ORDERS.ORDER_ID = RAW_EVENTS.ORDER_ID"),
			issue: "missing_primary_key_metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := core.SemanticModel{Relationships: []core.Relationship{tt.rel}}
			issues := byRule(validate(model), RulePrimaryKey)
			require.Len(t, issues, 1)
			assert.Equal(t, tt.issue, issues[0].Context["issue"])
		})
	}

	t.Run("complete composite key", func(t *testing.T) {
		model := core.SemanticModel{Relationships: []core.Relationship{
			relationship("R", "ORDERS", "LINE_ITEMS",
				"ORDERS.ORDER_ID = LINE_ITEMS.ORDER_ID",
				"ORDERS.LINE_NO = LINE_ITEMS.LINE_NO"),
		}}
		assert.Empty(t, byRule(validate(model), RulePrimaryKey))
	})
}

func TestValidator_UnknownColumns(t *testing.T) {
	model := core.SemanticModel{
		Metrics: []core.Metric{
			metric("TOTAL", "SUM(ORDERS.TOTAL)", "ORDERS"),
			metric("EVENTS", "COUNT(RAW_EVENTS.ID)", "RAW_EVENTS"),
			metric("OTHER", "SUM(CUSTOMERS.SPEND)", "ORDERS"),
		},
		Relationships: []core.Relationship{
			relationship("R", "ORDERS", "CUSTOMERS", "ORDERS.CUSTOMER_ID = CUSTOMERS.CUSTOMER_KEY"),
			relationship("T", "ORDERS", "CUSTOMERS", "DATE(ORDERS.NOPE) = CUSTOMERS.CUSTOMER_ID"),
		},
		Filters: []core.Filter{{Name: "F", TableName: "ORDERS", Expr: "ORDERS.STATUS = 'open'"}},
	}

	issues := byRule(validate(model), RuleUnknownColumn)
	var messages []string
	for _, issue := range issues {
		messages = append(messages, issue.Message)
	}
	assert.ElementsMatch(t, []string{
		"Relationship 'R' references unknown column 'CUSTOMER_KEY' in table 'CUSTOMERS'",
		"Metric 'TOTAL' references unknown column 'TOTAL' in table 'ORDERS'",
		"Filter 'F' references unknown column 'STATUS' in table 'ORDERS'",
	}, messages)
}

func TestValidator_ViewInstructions(t *testing.T) {
	model := validModel()
	model.SemanticViews[0].CustomInstructions = []string{"BUSINESS_RULES", "MISSING"}

	issues := byRule(validate(model), RuleUnknownInstruction)
	require.Len(t, issues, 1)
	assert.Equal(t, "Semantic view 'SALES' references unknown custom instruction 'MISSING'", issues[0].Message)
	assert.Equal(t, []string{"BUSINESS_RULES"}, issues[0].Context["available"])
}

func TestValidator_CrossEntityMetrics(t *testing.T) {
	model := core.SemanticModel{
		Metrics: []core.Metric{metric("ITEMS_PER_ORDER", "COUNT(LINE_ITEMS.LINE_NO) / COUNT(ORDERS.ORDER_ID)", "ORDERS", "LINE_ITEMS")},
		Relationships: []core.Relationship{
			relationship("ORDERS_TO_CUSTOMERS", "ORDERS", "CUSTOMERS", "ORDERS.CUSTOMER_ID = CUSTOMERS.CUSTOMER_ID"),
		},
		SemanticViews: []core.SemanticView{
			{Name: "V", Tables: core.NewTableList("ORDERS", "LINE_ITEMS", "CUSTOMERS")},
			{Name: "SINGLE", Tables: core.NewTableList("ORDERS")},
		},
	}

	issues := byRule(validate(model), RuleCrossEntityMetric)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "metric 'ITEMS_PER_ORDER' which references multiple tables ['orders', 'line_items']")
	assert.Contains(t, issues[0].Message, "(orders, line_items)")

	model.Relationships = append(model.Relationships,
		relationship("ITEMS_TO_ORDERS", "LINE_ITEMS", "ORDERS", "LINE_ITEMS.ORDER_ID = ORDERS.ORDER_ID"))
	assert.Empty(t, byRule(validate(model), RuleCrossEntityMetric))
}

func TestValidator_UnresolvedTemplates(t *testing.T) {
	model := core.SemanticModel{
		Metrics: []core.Metric{metric("M", "SUM({{ column('orders', 'amount') }})", "ORDERS")},
		SemanticViews: []core.SemanticView{
			{Name: "V", Tables: core.NewTableList("{{ table('ghost') }}")},
		},
	}

	issues := byRule(validate(model), RuleUnresolvedTemplate)
	require.Len(t, issues, 2)
	assert.Equal(t, "Metric 'M' has unresolved template '{{ column('orders', 'amount') }}' in expr", issues[0].Message)
	assert.Equal(t, "tables", issues[1].Context["field"])
}

func TestValidator_Warnings(t *testing.T) {
	model := core.SemanticModel{
		Metrics:         []core.Metric{{Name: "LOOSE", Expr: "COUNT(*)"}},
		VerifiedQueries: []core.VerifiedQuery{{Name: "Q", Tables: []string{"GHOST"}}},
	}

	result := validate(model)
	assert.Zero(t, result.ErrorCount())

	metricWarnings := byRule(result, RuleMetricTables)
	require.Len(t, metricWarnings, 1)
	assert.Equal(t, "Metric 'LOOSE' is missing 'tables' field - validation may be incomplete", metricWarnings[0].Message)

	queryWarnings := byRule(result, RuleVerifiedQueryTables)
	require.Len(t, queryWarnings, 1)
	assert.Equal(t, "Verified query 'Q' references table 'GHOST' not found in dbt models", queryWarnings[0].Message)
}

func TestValidator_DisabledRule(t *testing.T) {
	cfg := validation.NewAnalyzerConfig()
	cfg.DisabledRules["unknown-table"] = true

	model := core.SemanticModel{Metrics: []core.Metric{metric("M", "COUNT(*)", "NOPE")}}
	result := New(cfg).Validate(&model, catalog())
	assert.Empty(t, result.Issues())
}

func TestRulesRegistered(t *testing.T) {
	for _, rule := range Rules() {
		got, ok := validation.GetByID(rule.ID)
		require.True(t, ok, rule.ID)
		assert.Equal(t, Group, got.Group)
	}
}
