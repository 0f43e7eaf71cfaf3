package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sst/internal/cli/output"
	"github.com/leapstack-labs/sst/pkg/validation"
	_ "github.com/leapstack-labs/sst/pkg/validation/rules/duplicates" // register duplicate rules
	_ "github.com/leapstack-labs/sst/pkg/validation/rules/references" // register reference rules
	_ "github.com/leapstack-labs/sst/pkg/validation/rules/structure"  // register structure rules
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Group string // Filter by group
}

type ruleJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Group       string `json:"group"`
	Severity    string `json:"severity"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available validation rules",
		Long: `List every validation rule with its default severity.

Severities and disabled rules from sst_config.yml are applied, so the listing
shows what validate will actually report.`,
		Example: `  # List all rules
  sst rules

  # Show one rule
  sst rules RF05

  # Only reference checks
  sst rules --group references`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRules(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group: duplicates, references, structure")

	return cmd
}

func listRules(cmd *cobra.Command, args []string, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	analyzer := validation.NewAnalyzer(cmdCtx.Cfg.AnalyzerConfig())

	var rules []validation.RuleDef
	switch {
	case len(args) == 1:
		rule, ok := findRule(args[0])
		if !ok {
			return fmt.Errorf("rule %q not found", args[0])
		}
		rules = []validation.RuleDef{rule}
	case opts.Group != "":
		rules = validation.GetByGroup(opts.Group)
	default:
		rules = validation.GetAll()
	}

	list := make([]ruleJSON, 0, len(rules))
	for _, rule := range rules {
		list = append(list, ruleJSON{
			ID:          rule.ID,
			Name:        rule.Name,
			Group:       rule.Group,
			Severity:    analyzer.Severity(rule).String(),
			Enabled:     !analyzer.IsDisabled(rule),
			Description: rule.Description,
		})
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(list)
	}

	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Validation Rules"))
	} else {
		r.Println(r.Styles().Header.Render(fmt.Sprintf("Validation Rules (%d)", len(list))))
	}
	r.Println()

	rows := make([][]string, 0, len(list))
	for _, rule := range list {
		state := rule.Severity
		if !rule.Enabled {
			state = "disabled"
		}
		rows = append(rows, []string{rule.ID, rule.Name, rule.Group, state, rule.Description})
	}
	r.Table([]string{"ID", "Name", "Group", "Severity", "Description"}, rows)
	return nil
}

// findRule looks a rule up by ID or name, case-insensitively.
func findRule(key string) (validation.RuleDef, bool) {
	if rule, ok := validation.GetByID(strings.ToUpper(key)); ok {
		return rule, true
	}
	for _, rule := range validation.GetAll() {
		if strings.EqualFold(rule.Name, key) {
			return rule, true
		}
	}
	return validation.RuleDef{}, false
}
