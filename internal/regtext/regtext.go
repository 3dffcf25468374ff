// Package regtext extracts structure from executive-order and proposal text:
// order numbers, requirement sentences, and term-overlap checks.
package regtext

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var eoNumberRe = regexp.MustCompile(`(?i)(?:Executive\s+Order|E\.O\.|EO)[\s#:-]*(\d{5})`)

// ParseEONumbers returns the distinct five-digit executive-order numbers
// cited in text, in order of first appearance.
func ParseEONumbers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range eoNumberRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// requirementMarkers flag a sentence as imposing an obligation.
var requirementMarkers = []string{"shall", "must", "required", "requirement", "ensure"}

// MaxRequirements bounds ExtractRequirements.
const MaxRequirements = 5

// ExtractRequirements returns up to MaxRequirements sentences longer than 30
// characters that impose an obligation.
func ExtractRequirements(text string) []string {
	var out []string
	for _, sentence := range strings.Split(text, ".") {
		s := strings.Join(strings.Fields(sentence), " ")
		if len(s) <= 30 {
			continue
		}
		lower := strings.ToLower(s)
		for _, m := range requirementMarkers {
			if strings.Contains(lower, m) {
				out = append(out, s)
				break
			}
		}
		if len(out) == MaxRequirements {
			break
		}
	}
	return out
}

// Finding is the outcome of checking one requirement against a proposal.
type Finding string

const (
	FindingCompliant Finding = "compliant"
	FindingWarning   Finding = "warning"
	FindingViolation Finding = "violation"
)

// KeyTerms returns the distinct lowercased words longer than five letters.
func KeyTerms(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range Words(text) {
		if len(w) > 5 && !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// CheckRequirement measures how many of the requirement's key terms the
// proposal mentions. Above 0.3 is compliant, above 0.1 a warning, otherwise
// a violation. A requirement without key terms is compliant.
func CheckRequirement(proposal, requirement string) (Finding, float64) {
	terms := KeyTerms(requirement)
	if len(terms) == 0 {
		return FindingCompliant, 1
	}
	lower := strings.ToLower(proposal)
	found := 0
	for _, t := range terms {
		if strings.Contains(lower, t) {
			found++
		}
	}
	ratio := float64(found) / float64(len(terms))
	switch {
	case ratio > 0.3:
		return FindingCompliant, ratio
	case ratio > 0.1:
		return FindingWarning, ratio
	default:
		return FindingViolation, ratio
	}
}

// Words splits text into lowercased letter/digit runs.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FileMeta is what an executive-order filename tells us.
type FileMeta struct {
	EONumber string
	Title    string
	Keywords []string
}

var (
	filenameEORe = regexp.MustCompile(`(?i)^(?:eo[-_ ]?)?(\d{5})[\s._-]*`)
	dateRe       = regexp.MustCompile(`\d{1,2}\.\d{1,2}\.\d{2,4}`)
	splitRe      = regexp.MustCompile(`[_\-.\s]+`)
)

// ParseFilename reads metadata from names like "14008_Climate_Crisis.txt",
// "EO_14008_Climate_Crisis.pdf" or "EO-14151. 1.20.25. Ending DEI Programs.txt".
func ParseFilename(name string) FileMeta {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	var meta FileMeta
	if m := filenameEORe.FindStringSubmatch(base); m != nil {
		meta.EONumber = m[1]
		base = base[len(m[0]):]
	}
	base = dateRe.ReplaceAllString(base, " ")

	var titleParts []string
	for _, p := range splitRe.Split(base, -1) {
		if p == "" {
			continue
		}
		titleParts = append(titleParts, p)
		if len(p) > 3 {
			meta.Keywords = append(meta.Keywords, strings.ToLower(p))
		}
	}
	meta.Title = strings.Join(titleParts, " ")
	if meta.Title == "" && meta.EONumber != "" {
		meta.Title = "Executive Order " + meta.EONumber
	}
	return meta
}

var complianceAreaKeywords = map[string][]string{
	"climate":       {"climate", "emissions", "renewable", "sustainability", "carbon"},
	"cybersecurity": {"cybersecurity", "security", "cyber", "data protection", "encryption"},
	"equity":        {"equity", "diversity", "inclusion", "equal opportunity", "discrimination"},
	"housing":       {"housing", "affordable", "shelter", "dwelling"},
	"education":     {"education", "school", "learning", "student", "training"},
	"health":        {"health", "medical", "healthcare", "wellness"},
	"safety":        {"safety", "emergency", "disaster", "preparedness"},
}

// ComplianceAreas returns the policy areas the content touches, sorted.
func ComplianceAreas(content string) []string {
	lower := strings.ToLower(content)
	var areas []string
	for area, kws := range complianceAreaKeywords {
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				areas = append(areas, area)
				break
			}
		}
	}
	sort.Strings(areas)
	return areas
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
