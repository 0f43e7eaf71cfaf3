package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sst/internal/cli/output"
	"github.com/leapstack-labs/sst/internal/cli/testutil"
	"github.com/leapstack-labs/sst/internal/config"
	"github.com/leapstack-labs/sst/internal/project"
	logutil "github.com/leapstack-labs/sst/internal/testutil"
	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/leapstack-labs/sst/pkg/validation"
)

// projectConfig points a config at a project written by testutil.
func projectConfig(root string) config.Config {
	return config.Config{
		Root: root,
		Project: config.ProjectConfig{
			SemanticModelsDir: filepath.Join(root, "snowflake_semantic_models"),
			DbtModelsDir:      filepath.Join(root, "models"),
			ManifestPath:      filepath.Join(root, "target", "manifest.json"),
		},
	}
}

// execute runs cmd with a prepared state and returns stdout, stderr and the error.
func execute(t *testing.T, cmd *cobra.Command, cfg config.Config, mode output.Mode, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)

	ctx := WithState(context.Background(), &State{Cfg: cfg, Logger: logutil.NewTestLogger(t), Mode: mode})
	err := cmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestNewValidateCommand(t *testing.T) {
	cmd := NewValidateCommand()

	assert.Equal(t, "validate", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	flags := []string{"dbt-models-dir", "semantic-models-dir", "manifest", "exclude", "strict", "disable", "target-database", "defer-target"}
	for _, flag := range flags {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestValidate_CleanProject(t *testing.T) {
	root := testutil.SetupTestProject(t, nil)

	out, _, err := execute(t, NewValidateCommand(), projectConfig(root), output.ModeMarkdown)
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Validation Results")
	assert.Contains(t, out, "- **Metrics:** 1")
	assert.Contains(t, out, "- **Relationships:** 1")
	assert.Contains(t, out, "**OK** Validation passed")
	assert.NotContains(t, out, "## Issues")
}

func TestValidate_ReportsIssues(t *testing.T) {
	root := testutil.SetupTestProject(t, map[string]string{
		"snowflake_semantic_models/broken.yml": `snowflake_metrics:
  - name: refunds
    tables:
      - "{{ table('refunds') }}"
    expr: SUM(REFUNDS.AMOUNT)
`,
	})

	out, errOut, err := execute(t, NewValidateCommand(), projectConfig(root), output.ModeMarkdown)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidationFailed)

	assert.Contains(t, out, "## Issues")
	assert.Contains(t, out, "RF01")
	assert.Contains(t, out, filepath.Join("snowflake_semantic_models", "broken.yml"))
	assert.Contains(t, errOut, "Validation failed")
}

func TestValidate_StrictModeFailsOnWarnings(t *testing.T) {
	root := testutil.SetupTestProject(t, map[string]string{
		"snowflake_semantic_models/extra.yml": `snowflake_metrics:
  - name: order_count
    expr: COUNT(*)
`,
	})
	cfg := projectConfig(root)

	_, _, err := execute(t, NewValidateCommand(), cfg, output.ModeMarkdown)
	require.NoError(t, err, "warnings alone pass by default")

	cfg.Validation.Strict = true
	_, errOut, err := execute(t, NewValidateCommand(), cfg, output.ModeMarkdown)
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Contains(t, errOut, "strict mode")
}

func TestValidate_JSON(t *testing.T) {
	root := testutil.SetupTestProject(t, map[string]string{
		"snowflake_semantic_models/extra.yml": `snowflake_metrics:
  - name: order_count
    expr: COUNT(*)
`,
	})

	out, _, err := execute(t, NewValidateCommand(), projectConfig(root), output.ModeJSON)
	require.NoError(t, err)
	testutil.AssertNoANSI(t, out)

	var decoded output.ValidationOutput
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.NotEmpty(t, decoded.RunID)
	assert.True(t, decoded.Valid)
	assert.Equal(t, 2, decoded.Summary.Tables)
	assert.Equal(t, 2, decoded.Summary.Metrics)
	assert.Equal(t, 1, decoded.Summary.Warnings)
	require.Len(t, decoded.Issues, 1)
	assert.Equal(t, "RF10", decoded.Issues[0].RuleID)
	assert.Equal(t, core.SeverityWarning, decoded.Issues[0].Severity)
}

func TestRenderValidation_Text(t *testing.T) {
	r := testutil.NewTestRenderer(output.ModeText, false)
	res := validation.NewResult()
	res.Add(validation.Issue{RuleID: "RF10", Severity: core.SeverityWarning, Message: "Metric 'x' is missing 'tables' field", File: "/p/m.yml"})
	report := &project.Report{Result: res, Deprecations: []string{"model:legacy"}}

	renderValidation(r.Renderer, report, "/p", false)

	assert.Contains(t, r.Output(), "Validation Results")
	assert.Contains(t, r.Output(), "WARNING")
	assert.Contains(t, r.Output(), "m.yml")
	assert.NotContains(t, r.Output(), "/p/m.yml")
	assert.Contains(t, r.ErrorOutput(), "migrate-meta")
	assert.Contains(t, r.Output(), "Validation passed with warnings")
}

func TestNewResolveCommand(t *testing.T) {
	cmd := NewResolveCommand()
	assert.Equal(t, "resolve <file>", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	root := testutil.SetupTestProject(t, nil)
	cfg := projectConfig(root)

	out, _, err := execute(t, cmd, cfg, output.ModeAuto, filepath.Join(cfg.Project.SemanticModelsDir, "metrics.yml"))
	require.NoError(t, err)

	var model core.SemanticModel
	require.NoError(t, json.Unmarshal([]byte(out), &model))
	require.Len(t, model.Metrics, 1)
	assert.Equal(t, "SUM(ORDERS.AMOUNT)", model.Metrics[0].Expr)
	require.Len(t, model.Relationships, 1)
	assert.Equal(t, "CUSTOMERS", model.Relationships[0].RightTable)

	_, _, err = execute(t, NewResolveCommand(), cfg, output.ModeAuto)
	assert.Error(t, err, "file argument is required")

	_, _, err = execute(t, NewResolveCommand(), cfg, output.ModeAuto, filepath.Join(root, "missing.yml"))
	assert.ErrorContains(t, err, "not a semantic model file")
}

func TestRulesCommand(t *testing.T) {
	cfg := config.Config{Validation: config.ValidationConfig{
		DisabledRules: []string{"RF10"},
		Severity:      map[string]string{"RF11": "error"},
	}}

	t.Run("json lists registered rules with overrides", func(t *testing.T) {
		out, _, err := execute(t, NewRulesCommand(), cfg, output.ModeJSON)
		require.NoError(t, err)

		var rules []ruleJSON
		require.NoError(t, json.Unmarshal([]byte(out), &rules))
		byID := make(map[string]ruleJSON)
		for _, r := range rules {
			byID[r.ID] = r
		}
		assert.Contains(t, byID, "DU01")
		assert.Contains(t, byID, "RF01")
		assert.False(t, byID["RF10"].Enabled)
		assert.Equal(t, "error", byID["RF11"].Severity)
		assert.True(t, byID["RF01"].Enabled)
	})

	t.Run("single rule by name", func(t *testing.T) {
		out, _, err := execute(t, NewRulesCommand(), cfg, output.ModeJSON, "unknown-table")
		require.NoError(t, err)

		var rules []ruleJSON
		require.NoError(t, json.Unmarshal([]byte(out), &rules))
		require.Len(t, rules, 1)
		assert.Equal(t, "RF01", rules[0].ID)
	})

	t.Run("group filter markdown", func(t *testing.T) {
		out, _, err := execute(t, NewRulesCommand(), cfg, output.ModeMarkdown, "--group", "duplicates")
		require.NoError(t, err)
		testutil.AssertNoANSI(t, out)
		assert.Contains(t, out, "# Validation Rules")
		assert.Contains(t, out, "DU01")
		assert.NotContains(t, out, "RF01")
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, _, err := execute(t, NewRulesCommand(), cfg, output.ModeJSON, "XX99")
		assert.ErrorContains(t, err, "not found")
	})
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		wantOut []string
	}{
		{
			name:    "release build",
			info:    BuildInfo{Version: "0.1.0", Commit: "abc1234", Date: "2026-01-02"},
			wantOut: []string{"sst v0.1.0", "commit:  abc1234", "built:   2026-01-02", "go:      go"},
		},
		{
			name:    "dev build",
			info:    BuildInfo{Version: "dev", Go: "go1.24.0"},
			wantOut: []string{"sst vdev", "go:      go1.24.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.info)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestResolveBuildInfo(t *testing.T) {
	info := ResolveBuildInfo(BuildInfo{Version: "1.2.3", Commit: "abc1234", Date: "2026-01-02"})

	assert.Equal(t, "1.2.3", info.Version)
	assert.Equal(t, "abc1234", info.Commit, "ldflags values win")
	assert.Equal(t, "2026-01-02", info.Date)
	assert.Equal(t, runtime.Version(), info.Go)
	assert.True(t, unset(""))
	assert.True(t, unset("unknown"))
	assert.False(t, unset("abc1234"))
}
