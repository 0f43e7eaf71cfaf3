package core

import "strings"

// =============================================================================
// dbt model records
// =============================================================================

// Table is the normalized table-level record extracted from a dbt model.
type Table struct {
	TableName        string   `json:"table_name"`
	Database         string   `json:"database"`
	Schema           string   `json:"schema"`
	Description      string   `json:"description"`
	PrimaryKey       []string `json:"primary_key"`
	UniqueKeys       []string `json:"unique_keys"`
	Synonyms         []string `json:"synonyms"`
	ModelName        string   `json:"model_name"`
	SourceFile       string   `json:"source_file"`
	CortexSearchable bool     `json:"cortex_searchable"`
}

// Column is the normalized column-level record extracted from a dbt model column.
type Column struct {
	TableName    string   `json:"table_name"`
	Name         string   `json:"name"`
	Expr         string   `json:"expr"`
	ColumnType   string   `json:"column_type"`
	DataType     string   `json:"data_type"`
	Description  string   `json:"description"`
	Synonyms     []string `json:"synonyms"`
	SampleValues []any    `json:"sample_values"`
	IsEnum       bool     `json:"is_enum"`
	SourceFile   string   `json:"source_file"`
}

// Column types accepted after normalization.
const (
	ColumnTypeDimension = "dimension"
	ColumnTypeTime      = "time"
	ColumnTypeFact      = "fact"
)

// NormalizeColumnType maps column_type aliases to dimension, time or fact.
// It returns "" for missing or unrecognized values.
func NormalizeColumnType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "dimension":
		return ColumnTypeDimension
	case "time_dimension", "time", "date", "timestamp":
		return ColumnTypeTime
	case "fact", "measure", "metric":
		return ColumnTypeFact
	default:
		return ""
	}
}

// DbtModels holds the tables and columns extracted from dbt model YAML.
type DbtModels struct {
	Tables  []Table  `json:"sm_tables"`
	Columns []Column `json:"sm_dimensions"`
}

// Merge appends the records of other.
func (d *DbtModels) Merge(other DbtModels) {
	d.Tables = append(d.Tables, other.Tables...)
	d.Columns = append(d.Columns, other.Columns...)
}

// =============================================================================
// Semantic records
// =============================================================================

// Metric is a named aggregate expression over one or more tables.
type Metric struct {
	Name         string   `json:"name"`
	TableName    string   `json:"table_name"`
	Tables       []string `json:"tables"`
	HasTables    bool     `json:"-"`
	Description  string   `json:"description"`
	Expr         string   `json:"expr"`
	Synonyms     []string `json:"synonyms"`
	SampleValues []any    `json:"sample_values"`
	SourceFile   string   `json:"source_file"`
}

// Relationship joins two tables through one or more join conditions.
type Relationship struct {
	Name       string               `json:"relationship_name"`
	LeftTable  string               `json:"left_table_name"`
	RightTable string               `json:"right_table_name"`
	Conditions []RelationshipColumn `json:"relationship_columns"`
	SourceFile string               `json:"source_file"`
}

// RelationshipColumn is one parsed join condition belonging to a relationship.
// LeftColumn and RightColumn are fully qualified (TABLE.COLUMN) or empty when
// the condition could not be parsed.
type RelationshipColumn struct {
	RelationshipName string `json:"relationship_name"`
	JoinCondition    string `json:"join_condition"`
	ConditionType    string `json:"condition_type"`
	LeftExpression   string `json:"left_expression"`
	RightExpression  string `json:"right_expression"`
	LeftColumn       string `json:"left_column"`
	RightColumn      string `json:"right_column"`
	Operator         string `json:"operator"`
	SourceFile       string `json:"source_file"`
}

// Filter is a named reusable WHERE condition.
type Filter struct {
	Name        string   `json:"name"`
	TableName   string   `json:"table_name"`
	Description string   `json:"description"`
	Expr        string   `json:"expr"`
	Synonyms    []string `json:"synonyms"`
	SourceFile  string   `json:"source_file"`
}

// CustomInstruction carries guidance for question categorization and SQL generation.
// Empty strings mean the section was not provided.
type CustomInstruction struct {
	Name                   string `json:"name"`
	QuestionCategorization string `json:"question_categorization,omitempty"`
	SQLGeneration          string `json:"sql_generation,omitempty"`
	SourceFile             string `json:"source_file"`
}

// VerifiedQuery is a validated question/SQL example.
type VerifiedQuery struct {
	Name                    string   `json:"name"`
	Question                string   `json:"question"`
	Tables                  []string `json:"tables"`
	VerifiedAt              string   `json:"verified_at"`
	VerifiedBy              string   `json:"verified_by"`
	SQL                     string   `json:"sql"`
	UseAsOnboardingQuestion *bool    `json:"use_as_onboarding_question,omitempty"`
	UseAsOnboarding         *bool    `json:"use_as_onboarding,omitempty"`
	SourceFile              string   `json:"source_file"`
}

// SemanticView groups tables with the instructions that apply to them.
type SemanticView struct {
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Tables             TableList `json:"tables"`
	CustomInstructions []string  `json:"custom_instructions,omitempty"`
	SourceFile         string    `json:"source_file"`
}

// SemanticModel aggregates every semantic entity parsed from one or more files.
type SemanticModel struct {
	Metrics            []Metric            `json:"sm_metrics"`
	Relationships      []Relationship      `json:"sm_relationships"`
	Filters            []Filter            `json:"sm_filters"`
	CustomInstructions []CustomInstruction `json:"sm_custom_instructions"`
	VerifiedQueries    []VerifiedQuery     `json:"sm_verified_queries"`
	SemanticViews      []SemanticView      `json:"sm_semantic_views"`
}

// Merge appends the records of other, preserving order.
func (m *SemanticModel) Merge(other SemanticModel) {
	m.Metrics = append(m.Metrics, other.Metrics...)
	m.Relationships = append(m.Relationships, other.Relationships...)
	m.Filters = append(m.Filters, other.Filters...)
	m.CustomInstructions = append(m.CustomInstructions, other.CustomInstructions...)
	m.VerifiedQueries = append(m.VerifiedQueries, other.VerifiedQueries...)
	m.SemanticViews = append(m.SemanticViews, other.SemanticViews...)
}

// RelationshipColumns flattens the join conditions of every relationship.
func (m *SemanticModel) RelationshipColumns() []RelationshipColumn {
	var cols []RelationshipColumn
	for _, r := range m.Relationships {
		cols = append(cols, r.Conditions...)
	}
	return cols
}

// Empty reports whether no entity was parsed.
func (m *SemanticModel) Empty() bool {
	return len(m.Metrics) == 0 && len(m.Relationships) == 0 && len(m.Filters) == 0 &&
		len(m.CustomInstructions) == 0 && len(m.VerifiedQueries) == 0 && len(m.SemanticViews) == 0
}
