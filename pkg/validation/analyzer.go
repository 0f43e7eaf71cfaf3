package validation

import (
	"github.com/leapstack-labs/sst/pkg/core"
)

// Analyzer runs registered validation rules against a context.
type Analyzer struct {
	config *AnalyzerConfig
}

// AnalyzerConfig holds configuration for the analyzer.
type AnalyzerConfig struct {
	// DisabledRules contains rule IDs or names to skip
	DisabledRules map[string]bool

	// SeverityOverrides changes the default severity of rules, keyed by ID or name
	SeverityOverrides map[string]core.Severity
}

// NewAnalyzerConfig creates a default configuration.
func NewAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]core.Severity),
	}
}

// NewAnalyzer creates a new analyzer with optional configuration.
func NewAnalyzer(config *AnalyzerConfig) *Analyzer {
	if config == nil {
		config = NewAnalyzerConfig()
	}
	if config.DisabledRules == nil {
		config.DisabledRules = make(map[string]bool)
	}
	if config.SeverityOverrides == nil {
		config.SeverityOverrides = make(map[string]core.Severity)
	}
	return &Analyzer{config: config}
}

// Analyze runs every enabled registered rule, ordered by ID.
func (a *Analyzer) Analyze(ctx *Context) *Result {
	return a.Run(ctx, GetAll())
}

// Run runs the given rules, skipping disabled ones.
func (a *Analyzer) Run(ctx *Context, rules []RuleDef) *Result {
	result := NewResult()
	if ctx == nil {
		return result
	}

	for _, rule := range rules {
		if a.IsDisabled(rule) {
			continue
		}

		for _, issue := range rule.Check(ctx) {
			if issue.RuleID == "" {
				issue.RuleID = rule.ID
			}
			issue.Severity = a.severity(rule, issue.Severity)
			result.Add(issue)
		}
	}

	return result
}

// IsDisabled reports whether a rule is disabled by ID or name.
func (a *Analyzer) IsDisabled(rule RuleDef) bool {
	return a.config.DisabledRules[rule.ID] || a.config.DisabledRules[rule.Name]
}

// Severity returns the severity the rule reports at after overrides.
func (a *Analyzer) Severity(rule RuleDef) core.Severity {
	return a.severity(rule, rule.Severity)
}

func (a *Analyzer) severity(rule RuleDef, defaultSev core.Severity) core.Severity {
	if sev, ok := a.config.SeverityOverrides[rule.ID]; ok {
		return sev
	}
	if sev, ok := a.config.SeverityOverrides[rule.Name]; ok {
		return sev
	}
	return defaultSev
}

// Disable disables a rule by ID or name.
func (a *Analyzer) Disable(rule string) {
	a.config.DisabledRules[rule] = true
}

// Enable enables a previously disabled rule.
func (a *Analyzer) Enable(rule string) {
	delete(a.config.DisabledRules, rule)
}
