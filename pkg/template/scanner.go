package template

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Position tracks source location for error reporting.
type Position struct {
	File   string
	Line   int
	Column int
}

// Expression is one {{ ... }} block found in content.
type Expression struct {
	Raw  string   // Full text including delimiters
	Text string   // Content between the delimiters, trimmed
	Func string   // Function name (lower-cased), "" if the content is not a call
	Args []string // Quoted string arguments of the call
	Pos  Position
}

var (
	callPattern = regexp.MustCompile(`(?s)^([A-Za-z_][A-Za-z0-9_]*)\s*\((.*)\)$`)
	argPattern  = regexp.MustCompile(`['"]([^'"]*)['"]`)
)

// Scan returns every {{ ... }} expression in content, in order.
// An unterminated {{ yields a *ScanError.
func Scan(content, file string) ([]Expression, error) {
	s := &scanner{input: content, file: file, line: 1, col: 1}

	var exprs []Expression
	for s.pos < len(s.input) {
		if !s.matchString("{{") {
			s.advance()
			continue
		}
		expr, err := s.scanExpression()
		if err != nil {
			return exprs, err
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

// Unresolved returns the expressions still present in content. Scan errors
// are ignored; expressions found before the error are returned.
func Unresolved(content string) []Expression {
	if !ContainsTemplate(content) {
		return nil
	}
	exprs, _ := Scan(content, "")
	return exprs
}

// scanner walks content tracking line and column.
type scanner struct {
	input    string
	file     string
	pos      int // current position in input
	line     int // current line number (1-based)
	col      int // current column number (1-based)
	lastLine int // line at start of current expression
	lastCol  int // column at start of current expression
}

// scanExpression scans a {{ expr }} expression.
func (s *scanner) scanExpression() (Expression, error) {
	s.markStart()
	start := s.pos

	s.pos += 2
	s.col += 2

	exprStart := s.pos
	for s.pos < len(s.input) {
		if s.matchString("}}") {
			text := strings.TrimSpace(s.input[exprStart:s.pos])
			s.pos += 2
			s.col += 2

			expr := Expression{
				Raw:  s.input[start:s.pos],
				Text: text,
				Pos:  s.startPosition(),
			}
			if m := callPattern.FindStringSubmatch(text); m != nil {
				expr.Func = strings.ToLower(m[1])
				for _, a := range argPattern.FindAllStringSubmatch(m[2], -1) {
					expr.Args = append(expr.Args, a[1])
				}
			}
			return expr, nil
		}
		s.advance()
	}

	return Expression{}, NewScanError(s.startPosition(), "unclosed expression: missing '}}'")
}

// advance moves to the next rune, updating position tracking.
func (s *scanner) advance() {
	if s.pos >= len(s.input) {
		return
	}

	r, size := utf8.DecodeRuneInString(s.input[s.pos:])
	s.pos += size

	if r == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
}

// matchString checks if the input at current position matches str.
func (s *scanner) matchString(str string) bool {
	return strings.HasPrefix(s.input[s.pos:], str)
}

func (s *scanner) markStart() {
	s.lastLine = s.line
	s.lastCol = s.col
}

func (s *scanner) startPosition() Position {
	return Position{File: s.file, Line: s.lastLine, Column: s.lastCol}
}
