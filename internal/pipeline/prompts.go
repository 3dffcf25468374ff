package pipeline

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

type summarizePromptParams struct {
	Filename  string
	WordCount int
	PageCount int
	Text      string
	Truncated bool
}

type compliancePromptParams struct {
	Text         string
	PassageCount int
}

// fillPrompt executes one of the embedded prompt templates.
func fillPrompt(name string, params any) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplates.ExecuteTemplate(&buf, name, params); err != nil {
		return "", fmt.Errorf("execute prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// passageContext renders retrieved passages as grounding text.
func passageContext(passages []Passage) string {
	var b strings.Builder
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] Executive Order %s", i+1, p.Metadata[MetaEONumber])
		if title := p.Metadata[MetaTitle]; title != "" {
			fmt.Fprintf(&b, ": %s", title)
		}
		if page := p.Metadata[MetaPageNumber]; page != "" {
			fmt.Fprintf(&b, " (page %s)", page)
		}
		fmt.Fprintf(&b, "\n%s\n\n", strings.TrimSpace(p.Excerpt))
	}
	return b.String()
}
