package validation

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/sst/pkg/core"
)

// Context provides all data needed for validation: the aggregated semantic
// model and the table and column records extracted from dbt models.
// A Context is read-only once built.
type Context struct {
	Model   *core.SemanticModel
	Tables  []core.Table
	Columns []core.Column
	Limits  Limits

	tables  map[string]core.Table      // lower table name -> first record
	columns map[string]map[string]bool // lower table name -> lower column names
}

// Limits holds configurable thresholds read by rules. Zero disables a limit.
type Limits struct {
	SynonymMaxCount int
}

// NewContext indexes the dbt records for lookups. model may be nil.
func NewContext(model *core.SemanticModel, dbt core.DbtModels) *Context {
	if model == nil {
		model = &core.SemanticModel{}
	}
	ctx := &Context{
		Model:   model,
		Tables:  dbt.Tables,
		Columns: dbt.Columns,
		tables:  make(map[string]core.Table, len(dbt.Tables)),
		columns: make(map[string]map[string]bool),
	}
	for _, t := range dbt.Tables {
		key := strings.ToLower(t.TableName)
		if key == "" {
			continue
		}
		if _, exists := ctx.tables[key]; !exists {
			ctx.tables[key] = t
		}
	}
	for _, c := range dbt.Columns {
		key := strings.ToLower(c.TableName)
		if ctx.columns[key] == nil {
			ctx.columns[key] = make(map[string]bool)
		}
		ctx.columns[key][strings.ToLower(c.Name)] = true
	}
	return ctx
}

// Table looks up a table record case-insensitively.
func (c *Context) Table(name string) (core.Table, bool) {
	t, ok := c.tables[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// HasTable reports whether a table is known.
func (c *Context) HasTable(name string) bool {
	_, ok := c.Table(name)
	return ok
}

// HasColumn reports whether table has column. Tables without any column
// records are treated as unknown and report false.
func (c *Context) HasColumn(table, column string) bool {
	return c.columns[strings.ToLower(table)][strings.ToLower(column)]
}

// TableNames returns the lower-cased known table names, sorted.
func (c *Context) TableNames() []string {
	names := make([]string, 0, len(c.tables))
	for name := range c.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasColumns reports whether any column records exist for table.
func (c *Context) HasColumns(table string) bool {
	return len(c.columns[strings.ToLower(strings.TrimSpace(table))]) > 0
}
