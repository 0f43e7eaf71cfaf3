package validation

import (
	"github.com/leapstack-labs/sst/pkg/core"
)

// Issue is one validation finding.
type Issue struct {
	RuleID   string         `json:"rule_id,omitempty"`
	Severity core.Severity  `json:"severity"`
	Message  string         `json:"message"`
	File     string         `json:"file,omitempty"`
	Context  map[string]any `json:"context,omitempty"`
}

// Result accumulates issues. Issues are only ever appended, so the counts
// always agree with the issue list.
type Result struct {
	issues   []Issue
	errors   int
	warnings int
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{}
}

// Add appends an issue.
func (r *Result) Add(issue Issue) {
	r.issues = append(r.issues, issue)
	switch issue.Severity {
	case core.SeverityError:
		r.errors++
	case core.SeverityWarning:
		r.warnings++
	}
}

// AddError appends an ERROR issue.
func (r *Result) AddError(message string, context map[string]any) {
	r.Add(Issue{Severity: core.SeverityError, Message: message, Context: context})
}

// AddWarning appends a WARNING issue.
func (r *Result) AddWarning(message string, context map[string]any) {
	r.Add(Issue{Severity: core.SeverityWarning, Message: message, Context: context})
}

// AddInfo appends an INFO issue.
func (r *Result) AddInfo(message string, context map[string]any) {
	r.Add(Issue{Severity: core.SeverityInfo, Message: message, Context: context})
}

// Merge appends every issue of other.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for _, issue := range other.issues {
		r.Add(issue)
	}
}

// Issues returns a copy of the issues in the order they were added.
func (r *Result) Issues() []Issue {
	return append([]Issue(nil), r.issues...)
}

// Errors returns the ERROR issues.
func (r *Result) Errors() []Issue {
	return r.filter(core.SeverityError)
}

// Warnings returns the WARNING issues.
func (r *Result) Warnings() []Issue {
	return r.filter(core.SeverityWarning)
}

func (r *Result) filter(sev core.Severity) []Issue {
	var out []Issue
	for _, issue := range r.issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// ErrorCount returns the number of ERROR issues.
func (r *Result) ErrorCount() int { return r.errors }

// WarningCount returns the number of WARNING issues.
func (r *Result) WarningCount() int { return r.warnings }

// HasErrors reports whether any ERROR issue was added.
func (r *Result) HasErrors() bool { return r.errors > 0 }

// IsValid reports whether the result allows deployment. In strict mode
// warnings also fail validation.
func (r *Result) IsValid(strict bool) bool {
	if r.errors > 0 {
		return false
	}
	return !strict || r.warnings == 0
}
