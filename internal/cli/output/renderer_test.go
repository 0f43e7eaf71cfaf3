package output

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sst/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"text", ModeText, false},
		{"markdown", ModeMarkdown, false},
		{"md", ModeMarkdown, false},
		{"json", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  Mode
		isTTY bool
		want  Mode
	}{
		{"auto on terminal", ModeAuto, true, ModeText},
		{"auto piped", ModeAuto, false, ModeMarkdown},
		{"empty piped", "", false, ModeMarkdown},
		{"explicit text piped", ModeText, false, ModeText},
		{"json on terminal", ModeJSON, true, ModeJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRendererWithTTY(&bytes.Buffer{}, &bytes.Buffer{}, tt.isTTY, tt.mode)
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestNewRenderer_BufferIsNotTerminal(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeAuto)
	assert.False(t, r.IsTTY())
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
}

func TestRenderer_MessagesWithoutTerminal(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	r := NewRendererWithTTY(out, errOut, false, ModeAuto)

	r.Success("all good")
	r.Warning("careful")
	r.Error("broken")
	r.Println(r.Styles().Header.Render("plain"))

	assert.Equal(t, "**OK** all good\nplain\n", out.String())
	assert.Equal(t, "**Warning:** careful\n**Error:** broken\n", errOut.String())
	assert.False(t, ansiPattern.MatchString(out.String()+errOut.String()))
}

func TestRenderer_TextPrefixes(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText)
	r.Success("done")
	assert.Equal(t, "✓ done\n", out.String())
}

func TestRenderer_JSON(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewRendererWithTTY(out, &bytes.Buffer{}, true, ModeJSON)

	require.NoError(t, r.JSON(ValidationOutput{
		RunID:  "run-1",
		Issues: []ValidationIssue{{RuleID: "RF01", Severity: core.SeverityError, Message: "m"}},
	}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	issues := decoded["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "error", issues[0].(map[string]any)["severity"])
	assert.False(t, ansiPattern.MatchString(out.String()))

	assert.Error(t, r.JSON(map[string]any{"bad": make(chan int)}))
}

func TestRenderer_Table(t *testing.T) {
	header := []string{"Rule", "Message"}
	rows := [][]string{{"RF01", "unknown table"}, {"DU01", "duplicate"}}

	t.Run("markdown", func(t *testing.T) {
		out := &bytes.Buffer{}
		NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeMarkdown).Table(header, rows)
		assert.Contains(t, strings.ToLower(out.String()), "| rule | message |")
		assert.Contains(t, out.String(), "| RF01 | unknown table |")
	})

	t.Run("text", func(t *testing.T) {
		out := &bytes.Buffer{}
		NewRendererWithTTY(out, &bytes.Buffer{}, false, ModeText).Table(header, rows)
		assert.Contains(t, out.String(), "RULE")
		assert.Contains(t, out.String(), "DU01")
		assert.Contains(t, out.String(), "┌")
	})
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Summary", FormatHeader(2, "Summary"))
	assert.Equal(t, "# Top", FormatHeader(0, "Top"))
	assert.Equal(t, "- **Files:** 3", FormatKeyValue("Files", "3"))
}
