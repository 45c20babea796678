package parse

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Leading list markers: bullets, "1." / "1)" / "(1)", "a." / "a)".
	listMarkerRe = regexp.MustCompile(`^\s*(?:[-*•]+|\(?\d+[.)]|\(?[a-zA-Z][.)])\s*`)
	// A leading "Question:" / "Question 3." label.
	questionLabelRe = regexp.MustCompile(`(?i)^question\s*\d*\s*[:.\-]?\s*`)
)

// extractQuestions merges two independent derivations: all well-formed
// <question> pairs, and a heuristic line scan of the surrounding region with
// markup stripped. Results are deduplicated case-insensitively in first-seen
// order and capped at MaxQuestions; the list is never empty.
func (p *Parser) extractQuestions(raw string) []string {
	region := regionAfter(raw, "clarification_needed")

	var merged []string
	seen := map[string]struct{}{}
	add := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || len(merged) >= MaxQuestions {
			return
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		merged = append(merged, q)
	}

	for _, m := range questionRe.FindAllStringSubmatch(region, -1) {
		add(collapseSpace(m[1]))
	}
	tagged := len(merged)

	// Fallback derivation over the <questions> block when present, else the
	// whole clarification region.
	scan := region
	if block := regionAfter(region, "questions"); hasOpenTag(region, "questions") {
		scan = block
	}
	for _, line := range strings.Split(anyMarkupRe.ReplaceAllString(scan, ""), "\n") {
		if q := NormalizeQuestionLine(line); q != "" {
			add(q)
		}
	}
	p.log.Debug().Int("tagged", tagged).Int("total", len(merged)).Msg("clarification questions recovered")

	if len(merged) == 0 {
		p.log.Debug().Msg("no questions recovered, substituting placeholder")
		return []string{PlaceholderQuestion}
	}
	return merged
}

// NormalizeQuestionLine turns one free-form line into a question, or ""
// when the line carries nothing usable. The pipeline strips list markers,
// bold markup, and a "Question:" label, collapses whitespace, and guarantees
// a single trailing question mark — appending one when absent, or cutting
// after the last one when several sentences ran together.
func NormalizeQuestionLine(line string) string {
	s := strings.TrimSpace(line)
	if s == "" {
		return ""
	}
	s = listMarkerRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = questionLabelRe.ReplaceAllString(s, "")
	s = collapseSpace(s)
	if !hasLetter(s) {
		return ""
	}
	if i := strings.LastIndex(s, "?"); i >= 0 {
		return s[:i+1]
	}
	return s + "?"
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
