package format_test

import (
	"strings"
	"testing"

	"grantreview/internal/format"
)

func TestASCII_RunsTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Run", "File", "Risk")
	tb.Row("3f2a", "solar.txt", 89.5)
	tb.Row("9c1d", "bridge.md", 44.5)
	out := tb.String()

	for _, want := range []string{"Run", "solar.txt", "89.5", "44.5"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
	if tb.Len() != 2 {
		t.Errorf("Len() = %d, want 2", tb.Len())
	}
}

func TestMarkdown_WithFooter(t *testing.T) {
	tb := format.NewTable(format.Markdown)
	tb.Header("Component", "Score", "Weight")
	tb.Row("Compliance", 72.0, 0.60)
	tb.Row("Quality", 85.0, 0.25)
	tb.Footer("Overall", 76.2, "")
	out := tb.String()

	if !strings.Contains(out, "| Component") {
		t.Errorf("expected markdown header with '| Component':\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("expected markdown separator '---':\n%s", out)
	}
	if !strings.Contains(out, "Overall") || !strings.Contains(out, "76.2") {
		t.Errorf("expected footer in output:\n%s", out)
	}
}

func TestHTML_Table(t *testing.T) {
	tb := format.NewTable(format.HTML)
	tb.Header("Stage", "Status")
	tb.Row("Summarization", "success")
	out := tb.String()

	if !strings.Contains(out, "<table") || !strings.Contains(out, "Summarization") {
		t.Errorf("expected HTML table:\n%s", out)
	}
}

func TestColumns_RightAlign(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("Stage", "Duration")
	tb.Row("compliance", "1.2s")
	tb.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	if out := tb.String(); !strings.Contains(out, "1.2s") {
		t.Errorf("expected '1.2s' in output:\n%s", out)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want format.Mode
	}{
		{"md", format.Markdown},
		{"markdown", format.Markdown},
		{"html", format.HTML},
		{"table", format.ASCII},
		{"", format.ASCII},
	}
	for _, tc := range tests {
		if got := format.ParseMode(tc.in); got != tc.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// --- Helper tests ---

func TestFmtMillis(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0ms"},
		{850, "850ms"},
		{1200, "1.2s"},
		{59_900, "59.9s"},
		{60_000, "1m 0s"},
		{125_000, "2m 5s"},
	}
	for _, tc := range tests {
		if got := format.FmtMillis(tc.in); got != tc.want {
			t.Errorf("FmtMillis(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFmtTimestamp(t *testing.T) {
	if got := format.FmtTimestamp("2025-03-14T09:30:12Z"); got != "2025-03-14 09:30" {
		t.Errorf("FmtTimestamp = %q", got)
	}
	if got := format.FmtTimestamp("yesterday"); got != "yesterday" {
		t.Errorf("FmtTimestamp(unparseable) = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 8, "hello..."},
		{"ab", 3, "ab"},
		{"abcdef", 3, "abc"},
		{"résumé review", 6, "rés..."},
	}
	for _, tc := range tests {
		if got := format.Truncate(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}

func TestBoolMark(t *testing.T) {
	if format.BoolMark(true) != "✓" {
		t.Error("BoolMark(true) should be ✓")
	}
	if format.BoolMark(false) != "✗" {
		t.Error("BoolMark(false) should be ✗")
	}
}
