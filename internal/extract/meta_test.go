package extract

import (
	"log/slog"
	"testing"

	"github.com/leapstack-labs/sst/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSTMeta(t *testing.T) {
	tests := []struct {
		name string
		node map[string]any
		want map[string]any
	}{
		{
			name: "config.meta.sst",
			node: map[string]any{
				"config": map[string]any{"meta": map[string]any{"sst": map[string]any{"primary_key": "id"}}},
			},
			want: map[string]any{"primary_key": "id"},
		},
		{
			name: "legacy meta.sst",
			node: map[string]any{"meta": map[string]any{"sst": map[string]any{"primary_key": "id"}}},
			want: map[string]any{"primary_key": "id"},
		},
		{
			name: "config location takes priority",
			node: map[string]any{
				"config": map[string]any{"meta": map[string]any{"sst": map[string]any{"primary_key": "new_key"}}},
				"meta":   map[string]any{"sst": map[string]any{"primary_key": "old_key"}},
			},
			want: map[string]any{"primary_key": "new_key"},
		},
		{
			name: "empty node",
			node: map[string]any{},
			want: map[string]any{},
		},
		{
			name: "meta is not a mapping",
			node: map[string]any{"meta": "not a dict"},
			want: map[string]any{},
		},
		{
			name: "config is not a mapping falls back to meta",
			node: map[string]any{
				"config": "not a dict",
				"meta":   map[string]any{"sst": map[string]any{"cortex_searchable": true}},
			},
			want: map[string]any{"cortex_searchable": true},
		},
		{
			name: "sst is not a mapping",
			node: map[string]any{"meta": map[string]any{"sst": "not a dict"}},
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SSTMeta(tt.node, NodeModel, "m", NewDeprecationTracker(testutil.NewTestLogger(t)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeprecationTracker(t *testing.T) {
	logger, capture := testutil.NewCaptureLogger()
	tracker := NewDeprecationTracker(logger)

	legacy := map[string]any{"meta": map[string]any{"sst": map[string]any{"column_type": "dimension"}}}

	SSTMeta(legacy, NodeColumn, "ORDERS.ID", tracker)
	SSTMeta(legacy, NodeColumn, "ORDERS.ID", tracker)
	SSTMeta(legacy, NodeModel, "orders", tracker)

	msgs := capture.Messages(slog.LevelWarn)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "[DEPRECATED-CRITICAL] Column 'ORDERS.ID' uses meta.sst pattern")
	assert.Contains(t, msgs[1], "[DEPRECATED-WARNING] Model 'orders' uses meta.sst pattern")
	assert.Equal(t, []string{"column:ORDERS.ID", "model:orders"}, tracker.Emitted())

	tracker.Reset()
	assert.Empty(t, tracker.Emitted())
	SSTMeta(legacy, NodeColumn, "ORDERS.ID", tracker)
	assert.Equal(t, 2, capture.Count(slog.LevelWarn, "DEPRECATED-CRITICAL"))
}

func TestDeprecationTracker_IndependentRuns(t *testing.T) {
	legacy := map[string]any{"meta": map[string]any{"sst": map[string]any{"synonyms": []any{"x"}}}}

	first, firstCapture := testutil.NewCaptureLogger()
	second, secondCapture := testutil.NewCaptureLogger()

	SSTMeta(legacy, NodeModel, "orders", NewDeprecationTracker(first))
	SSTMeta(legacy, NodeModel, "orders", NewDeprecationTracker(second))

	assert.Equal(t, 1, firstCapture.Count(slog.LevelWarn, "DEPRECATED"))
	assert.Equal(t, 1, secondCapture.Count(slog.LevelWarn, "DEPRECATED"))
}

func TestSSTMeta_NoWarningWithoutTracker(t *testing.T) {
	legacy := map[string]any{"meta": map[string]any{"sst": map[string]any{"cortex_searchable": true}}}
	assert.Equal(t, true, SSTMeta(legacy, NodeModel, "m", nil)["cortex_searchable"])
}

func TestSSTMeta_NewFormatDoesNotWarn(t *testing.T) {
	logger, capture := testutil.NewCaptureLogger()
	node := map[string]any{"config": map[string]any{"meta": map[string]any{"sst": map[string]any{"a": 1}}}}

	SSTMeta(node, NodeColumn, "T.C", NewDeprecationTracker(logger))
	assert.Empty(t, capture.Messages(slog.LevelWarn))
}

func TestExtractKeys(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		pk   []string
		uk   []string
	}{
		{
			name: "list form",
			meta: map[string]any{"primary_key": []any{"calendar_date", " user_id "}, "unique_keys": []any{"a"}},
			pk:   []string{"calendar_date", "user_id"},
			uk:   []string{"a"},
		},
		{
			name: "comma-separated string",
			meta: map[string]any{"primary_key": "calendar_date, user_id", "unique_keys": "customer_id,ordered_at"},
			pk:   []string{"calendar_date", "user_id"},
			uk:   []string{"customer_id", "ordered_at"},
		},
		{
			name: "single string",
			meta: map[string]any{"primary_key": " id "},
			pk:   []string{"id"},
			uk:   []string{},
		},
		{
			name: "missing",
			meta: map[string]any{},
			pk:   []string{},
			uk:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pk, ExtractPrimaryKey(tt.meta))
			assert.Equal(t, tt.uk, ExtractUniqueKeys(tt.meta))
		})
	}
}
