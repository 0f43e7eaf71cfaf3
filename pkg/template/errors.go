package template

import "fmt"

// ScanError reports a malformed template expression.
type ScanError struct {
	pos Position
	msg string
}

// NewScanError creates a new scan error.
func NewScanError(pos Position, msg string) *ScanError {
	return &ScanError{pos: pos, msg: msg}
}

// Position returns where the malformed expression starts.
func (e *ScanError) Position() Position { return e.pos }

func (e *ScanError) Error() string {
	if e.pos.File != "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.pos.File, e.pos.Line, e.pos.Column, e.msg)
	}
	return fmt.Sprintf("%d:%d: %s", e.pos.Line, e.pos.Column, e.msg)
}
