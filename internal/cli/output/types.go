package output

import "github.com/leapstack-labs/sst/pkg/core"

// ValidationOutput is the JSON document printed by validate.
type ValidationOutput struct {
	RunID   string            `json:"run_id"`
	Valid   bool              `json:"valid"`
	Strict  bool              `json:"strict"`
	Summary ValidationSummary `json:"summary"`
	Issues  []ValidationIssue `json:"issues"`
}

// ValidationSummary counts what was checked and found.
type ValidationSummary struct {
	Files              int `json:"files"`
	Tables             int `json:"tables"`
	Columns            int `json:"columns"`
	Metrics            int `json:"metrics"`
	Relationships      int `json:"relationships"`
	Filters            int `json:"filters"`
	CustomInstructions int `json:"custom_instructions"`
	VerifiedQueries    int `json:"verified_queries"`
	SemanticViews      int `json:"semantic_views"`
	Errors             int `json:"errors"`
	Warnings           int `json:"warnings"`
	Deprecations       int `json:"deprecations"`
}

// ValidationIssue is one reported finding.
type ValidationIssue struct {
	RuleID   string         `json:"rule_id,omitempty"`
	Severity core.Severity  `json:"severity"`
	Message  string         `json:"message"`
	File     string         `json:"file,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}
