package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/sst/pkg/core"
)

// modelMeta is the SST block of a dbt model.
type modelMeta struct {
	Table            string   `mapstructure:"table"`
	Database         string   `mapstructure:"database"`
	Schema           string   `mapstructure:"schema"`
	Synonyms         []string `mapstructure:"synonyms"`
	CortexSearchable bool     `mapstructure:"cortex_searchable"`
}

// columnMeta is the SST block of a dbt model column.
type columnMeta struct {
	ColumnType   string   `mapstructure:"column_type"`
	DataType     string   `mapstructure:"data_type"`
	Synonyms     []string `mapstructure:"synonyms"`
	SampleValues []any    `mapstructure:"sample_values"`
	IsEnum       bool     `mapstructure:"is_enum"`
}

// Extractor turns dbt model YAML nodes into table and column records.
type Extractor struct {
	// TargetDatabase overrides every table's database (defer deployments).
	TargetDatabase string
	// Locations supplies database and schema from the compiled manifest.
	Locations LocationResolver
	// Tracker de-duplicates legacy meta.sst warnings. Nil disables them.
	Tracker *DeprecationTracker

	logger *slog.Logger
}

// NewExtractor creates an extractor logging to logger.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Table extracts the table record of a dbt model. It returns false when the
// model has no name or its SST block cannot be decoded.
//
// Database precedence: TargetDatabase, then the manifest location, else empty.
// Schema only ever comes from the manifest. database and schema keys in the
// SST block are ignored with a warning.
func (e *Extractor) Table(model map[string]any, path string) (core.Table, bool) {
	name := stringField(model, "name")
	if name == "" {
		e.logger.Debug("model without name", "file", path)
		return core.Table{}, false
	}

	raw := SSTMeta(model, NodeModel, name, e.Tracker)
	var meta modelMeta
	if err := decode(raw, &meta); err != nil {
		e.logger.Error("error extracting table info", "file", path, "model", name, "error", err)
		return core.Table{}, false
	}

	if meta.Database != "" {
		e.logger.Warn(fmt.Sprintf("Model '%s' has database in meta.sst - this is IGNORED. Remove it. Database comes from manifest.json only.", name))
	}
	if meta.Schema != "" {
		e.logger.Warn(fmt.Sprintf("Model '%s' has schema in meta.sst - this is IGNORED. Remove it. Schema comes from manifest.json only.", name))
	}

	var database, schema string
	var located bool
	if e.Locations != nil {
		var db string
		db, schema, located = e.Locations.Location(name)
		if located {
			database = db
		}
	}
	if e.TargetDatabase != "" {
		database = strings.ToUpper(e.TargetDatabase)
		e.logger.Debug("using target database", "database", database, "model", name)
	}

	tableName := meta.Table
	if tableName == "" {
		tableName = name
	}

	synonyms := meta.Synonyms
	if synonyms == nil {
		synonyms = []string{}
	}

	return core.Table{
		TableName:        strings.ToUpper(tableName),
		Database:         database,
		Schema:           strings.ToUpper(schema),
		Description:      stringField(model, "description"),
		PrimaryKey:       upperAll(ExtractPrimaryKey(raw)),
		UniqueKeys:       upperAll(ExtractUniqueKeys(raw)),
		Synonyms:         synonyms,
		ModelName:        name,
		SourceFile:       path,
		CortexSearchable: meta.CortexSearchable,
	}, true
}

// Column extracts a column record. tableName is stored as given.
func (e *Extractor) Column(column map[string]any, tableName, path string) core.Column {
	name := stringField(column, "name")

	raw := SSTMeta(column, NodeColumn, tableName+"."+name, e.Tracker)
	var meta columnMeta
	if err := decode(raw, &meta); err != nil {
		e.logger.Error("error extracting column info", "file", path, "column", name, "error", err)
	}
	if meta.DataType == "" {
		meta.DataType = "text"
	}
	if meta.Synonyms == nil {
		meta.Synonyms = []string{}
	}
	if meta.SampleValues == nil {
		meta.SampleValues = []any{}
	}

	return core.Column{
		TableName:    tableName,
		Name:         strings.ToUpper(name),
		Expr:         strings.ToUpper(name),
		ColumnType:   meta.ColumnType,
		DataType:     meta.DataType,
		Description:  stringField(column, "description"),
		Synonyms:     meta.Synonyms,
		SampleValues: meta.SampleValues,
		IsEnum:       meta.IsEnum,
		SourceFile:   path,
	}
}

// Models extracts every table and column under the models key of a dbt
// schema document. Malformed models are logged and skipped.
func (e *Extractor) Models(doc map[string]any, path string) core.DbtModels {
	var out core.DbtModels

	models, ok := doc["models"].([]any)
	if !ok {
		return out
	}

	for i, m := range models {
		model, ok := m.(map[string]any)
		if !ok {
			e.logger.Warn("skipping model that is not a mapping", "file", path, "index", i)
			continue
		}

		table, ok := e.Table(model, path)
		if !ok {
			continue
		}
		out.Tables = append(out.Tables, table)

		columns, _ := model["columns"].([]any)
		for j, c := range columns {
			column, ok := c.(map[string]any)
			if !ok {
				e.logger.Warn("skipping column that is not a mapping", "file", path, "model", table.ModelName, "index", j)
				continue
			}
			out.Columns = append(out.Columns, e.Column(column, table.TableName, path))
		}
	}

	return out
}

// decode fills out from a raw YAML mapping.
func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
