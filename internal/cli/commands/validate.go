package commands

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sst/internal/cli/output"
	"github.com/leapstack-labs/sst/internal/project"
	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/spf13/cobra"
)

// ErrValidationFailed is returned when validation finds blocking issues.
var ErrValidationFailed = errors.New("validation failed")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate semantic models against dbt model metadata",
		Long: `Validate semantic models against the dbt models they reference.

Checks for duplicate definitions, unknown tables and columns, malformed join
conditions, missing primary keys, unresolved templates and more. No warehouse
connection is needed.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Validate the project in the current directory
  sst validate

  # Fail on warnings too
  sst validate --strict

  # Custom paths
  sst validate --dbt-models-dir models/ --semantic-models-dir semantic_models/

  # Skip directories and rules
  sst validate --exclude _intermediate,staging --disable RF10,DU05`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}

	cmd.Flags().String("dbt-models-dir", "", "dbt models directory (default from config)")
	cmd.Flags().String("semantic-models-dir", "", "Semantic models directory (default from config)")
	cmd.Flags().String("manifest", "", "Path to dbt manifest.json for table locations")
	cmd.Flags().StringSlice("exclude", nil, "Directories or glob patterns to skip")
	cmd.Flags().Bool("strict", false, "Fail on warnings, not just errors")
	cmd.Flags().StringSlice("disable", nil, "Rule IDs or names to disable")
	cmd.Flags().String("target-database", "", "Override the database of every table")
	cmd.Flags().String("defer-target", "", "Read table locations from the manifest of this deployment target")

	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	report, err := project.New(cfg, cmdCtx.Logger).Validate(cmd.Context())
	if err != nil {
		return err
	}

	strict := cfg.Validation.Strict
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(validationOutput(report, strict)); err != nil {
			return err
		}
	} else {
		renderValidation(r, report, cfg.Root, strict)
	}

	if !report.Result.IsValid(strict) {
		return fmt.Errorf("%w: %d errors, %d warnings", ErrValidationFailed,
			report.Result.ErrorCount(), report.Result.WarningCount())
	}
	return nil
}

func validationOutput(report *project.Report, strict bool) output.ValidationOutput {
	out := output.ValidationOutput{
		RunID:   uuid.NewString(),
		Valid:   report.Result.IsValid(strict),
		Strict:  strict,
		Summary: summary(report),
		Issues:  []output.ValidationIssue{},
	}
	for _, issue := range report.Result.Issues() {
		out.Issues = append(out.Issues, output.ValidationIssue(issue))
	}
	return out
}

func summary(report *project.Report) output.ValidationSummary {
	m := report.Model
	return output.ValidationSummary{
		Files:              report.Files,
		Tables:             len(report.Dbt.Tables),
		Columns:            len(report.Dbt.Columns),
		Metrics:            len(m.Metrics),
		Relationships:      len(m.Relationships),
		Filters:            len(m.Filters),
		CustomInstructions: len(m.CustomInstructions),
		VerifiedQueries:    len(m.VerifiedQueries),
		SemanticViews:      len(m.SemanticViews),
		Errors:             report.Result.ErrorCount(),
		Warnings:           report.Result.WarningCount(),
		Deprecations:       len(report.Deprecations),
	}
}

func renderValidation(r *output.Renderer, report *project.Report, root string, strict bool) {
	s := summary(report)
	markdown := r.EffectiveMode() == output.ModeMarkdown

	heading := func(level int, text string) {
		if markdown {
			r.Println(output.FormatHeader(level, text))
		} else {
			r.Println(r.Styles().Header.Render(text))
		}
		r.Println()
	}

	heading(1, "Validation Results")
	for _, kv := range [][2]string{
		{"Files", fmt.Sprint(s.Files)},
		{"Tables", fmt.Sprint(s.Tables)},
		{"Metrics", fmt.Sprint(s.Metrics)},
		{"Relationships", fmt.Sprint(s.Relationships)},
		{"Filters", fmt.Sprint(s.Filters)},
		{"Custom Instructions", fmt.Sprint(s.CustomInstructions)},
		{"Verified Queries", fmt.Sprint(s.VerifiedQueries)},
		{"Semantic Views", fmt.Sprint(s.SemanticViews)},
	} {
		if markdown {
			r.Println(output.FormatKeyValue(kv[0], kv[1]))
		} else {
			r.Printf("  %-20s %s\n", kv[0]+":", kv[1])
		}
	}
	r.Println()

	issues := report.Result.Issues()
	if len(issues) > 0 {
		heading(2, "Issues")
		rows := make([][]string, 0, len(issues))
		for _, issue := range issues {
			rows = append(rows, []string{
				severityLabel(r, issue.Severity),
				issue.RuleID,
				relPath(root, issue.File),
				issue.Message,
			})
		}
		r.Table([]string{"Severity", "Rule", "File", "Message"}, rows)
		r.Println()
	}

	if s.Deprecations > 0 {
		r.Warning(fmt.Sprintf("%d nodes use the deprecated meta.sst location; run 'sst migrate-meta' to move them to config.meta.sst", s.Deprecations))
	}

	status := fmt.Sprintf("%d errors, %d warnings", s.Errors, s.Warnings)
	switch {
	case !report.Result.IsValid(strict) && s.Errors == 0:
		r.Error("Validation failed in strict mode: " + status)
	case !report.Result.IsValid(strict):
		r.Error("Validation failed: " + status)
	case s.Warnings > 0:
		r.Success("Validation passed with warnings: " + status)
	default:
		r.Success("Validation passed")
	}
}

func severityLabel(r *output.Renderer, sev core.Severity) string {
	label := strings.ToUpper(sev.String())
	if r.EffectiveMode() == output.ModeMarkdown {
		return label
	}
	switch sev {
	case core.SeverityError:
		return r.Styles().Error.Render(label)
	case core.SeverityWarning:
		return r.Styles().Warning.Render(label)
	default:
		return r.Styles().Info.Render(label)
	}
}

func relPath(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
