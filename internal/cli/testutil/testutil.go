// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sst/internal/cli/output"
)

// ProjectFiles is the content of the sample project written by SetupTestProject.
var ProjectFiles = map[string]string{
	"sst_config.yml": `project:
  semantic_models_dir: snowflake_semantic_models
  dbt_models_dir: models
`,
	"models/marts/schema.yml": `models:
  - name: orders
    description: One row per order
    config:
      meta:
        sst:
          primary_key: order_id
    columns:
      - name: order_id
      - name: customer_id
      - name: amount
  - name: customers
    config:
      meta:
        sst:
          primary_key: customer_id
    columns:
      - name: customer_id
      - name: region
`,
	"snowflake_semantic_models/metrics.yml": `snowflake_metrics:
  - name: total_revenue
    tables:
      - "{{ table('orders') }}"
    expr: "SUM({{ column('orders', 'amount') }})"
snowflake_relationships:
  - name: orders_to_customers
    left_table: "{{ table('orders') }}"
    right_table: "{{ table('customers') }}"
    relationship_conditions:
      - "{{ column('orders', 'customer_id') }} = {{ column('customers', 'customer_id') }}"
`,
	"target/manifest.json": `{"nodes": {
  "model.shop.orders": {"name": "orders", "resource_type": "model", "database": "analytics", "schema": "marts"},
  "model.shop.customers": {"name": "customers", "resource_type": "model", "database": "analytics", "schema": "marts"}
}}`,
}

// SetupTestProject creates a temporary project that validates cleanly and
// returns its root directory. Extra files are written on top.
func SetupTestProject(t *testing.T, extra map[string]string) string {
	t.Helper()

	tmpDir := t.TempDir()
	for _, files := range []map[string]string{ProjectFiles, extra} {
		for name, content := range files {
			WriteFile(t, filepath.Join(tmpDir, name), content)
		}
	}
	return tmpDir
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
