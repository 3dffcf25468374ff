package kb

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"grantreview/internal/extract"
	"grantreview/internal/regtext"
)

var effectiveDateRe = regexp.MustCompile(`(?i)(?:effective(?:\s+date)?|signed|dated)[:\s]+([A-Z][a-z]+\.? \d{1,2}, \d{4}|\d{4}-\d{2}-\d{2})`)

// LoadDir reads every text file in dir as an executive order. Files whose
// name carries no EO number are skipped.
func LoadDir(dir string) ([]Order, []Chunk, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read knowledge base dir: %w", err)
	}
	var orders []Order
	var chunks []Chunk
	for _, e := range entries {
		if e.IsDir() || !extract.IsSupported(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		o, cs, ok := ParseOrder(e.Name(), string(data))
		if !ok {
			continue
		}
		orders = append(orders, o)
		chunks = append(chunks, cs...)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].EONumber < orders[j].EONumber })
	return orders, chunks, nil
}

// ParseOrder builds an order and its page chunks from a file name and its
// content. ok is false when the name carries no EO number.
func ParseOrder(name, content string) (Order, []Chunk, bool) {
	meta := regtext.ParseFilename(name)
	if meta.EONumber == "" {
		return Order{}, nil, false
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	pages := SplitPages(content)
	o := Order{
		EONumber: meta.EONumber,
		Title:    meta.Title,
		Source:   filepath.Base(name),
		Keywords: meta.Keywords,
		Areas:    regtext.ComplianceAreas(content),
		Pages:    len(pages),
	}
	if m := effectiveDateRe.FindStringSubmatch(content); m != nil {
		o.EffectiveDate = m[1]
	}
	chunks := make([]Chunk, 0, len(pages))
	for i, p := range pages {
		if p == "" {
			continue
		}
		chunks = append(chunks, Chunk{EONumber: o.EONumber, Page: i + 1, Text: p})
	}
	return o, chunks, true
}

// SplitPages cuts text into pages of extract.LinesPerPage lines. Blank pages
// stay as empty strings so page numbers match the source.
func SplitPages(text string) []string {
	lines := strings.Split(text, "\n")
	var pages []string
	for start := 0; start < len(lines); start += extract.LinesPerPage {
		end := min(start+extract.LinesPerPage, len(lines))
		pages = append(pages, strings.TrimSpace(strings.Join(lines[start:end], "\n")))
	}
	return pages
}
