// Package validation provides the validation result type, rule registry and
// analyzer used to check parsed semantic models.
//
// Rules register themselves from init() in their packages:
//
//	func init() {
//	    validation.Register(validation.RuleDef{
//	        ID:       "DU01",
//	        Name:     "duplicate-names",
//	        Group:    "duplicates",
//	        Severity: core.SeverityError,
//	        Check:    checkNames,
//	    })
//	}
//
// Importing a rule package for side effects makes its rules visible to
// Analyzer.Analyze. Validation never fails: every finding is an Issue.
package validation
