// Package parse classifies and extracts structured outcomes from raw model
// replies. The reply is semi-structured text, not XML: closing tags go
// missing, markup nests where it should not, and stray characters appear.
// Extraction is layered — strict match, then boundary fallback, then
// heuristic derivation, then a fixed placeholder — and never fails with a Go
// error: every reply maps to exactly one typed outcome.
package parse

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// OutcomeType discriminates the outcome union surfaced to the UI.
type OutcomeType string

const (
	TypeClarification OutcomeType = "clarification_needed"
	TypeFullPlan      OutcomeType = "full_plan"
	TypeCannotProceed OutcomeType = "cannot_proceed"
	TypeError         OutcomeType = "error"
)

// Outcome is the parsed result of one model reply. Constructed once, never
// mutated afterwards except for the token-count field the engine fills in.
type Outcome struct {
	Type            OutcomeType `json:"type"`
	Thinking        string      `json:"thinking,omitempty"`
	Proposal        string      `json:"proposal,omitempty"`
	ContentStrategy string      `json:"contentStrategy,omitempty"`
	SampleAds       string      `json:"sampleAds,omitempty"`
	Questions       []string    `json:"questions,omitempty"`
	Message         string      `json:"message,omitempty"`
	TokenCount      int         `json:"tokenCount"`
}

const (
	// MaxQuestions caps how many clarification questions survive merging.
	MaxQuestions = 10

	// PlaceholderQuestion guarantees the clarification outcome never
	// carries an empty list.
	PlaceholderQuestion = "Could you share more detail about your business, your goals, and who you are trying to reach?"

	// GenericRefusal substitutes a missing <message> block.
	GenericRefusal = "The request could not be completed as submitted. Please review the material you provided and try again."

	errEmptyReply   = "The model returned an empty reply."
	errUnrecognized = "The reply could not be understood. Please try again."
)

// planSections is the fixed inner-tag sequence of a full plan. Boundary
// fallback for a missing close tag slices up to the next section in this
// order.
var planSections = []string{"proposal", "content_strategy", "sample_ads"}

var (
	openTagRes  = map[string]*regexp.Regexp{}
	questionRe  = regexp.MustCompile(`(?is)<question(?:\s[^>]*)?>(.*?)</question>`)
	anyMarkupRe = regexp.MustCompile(`<[^>]*>`)
)

func init() {
	for _, name := range []string{
		"thinking", "clarification_needed", "full_plan", "cannot_proceed",
		"questions", "message", "proposal", "content_strategy", "sample_ads",
	} {
		// Loose opening-tag match: optional attributes, no requirement
		// that a matching close tag exists.
		openTagRes[name] = regexp.MustCompile(`(?i)<` + name + `(?:\s[^>]*)?>`)
	}
}

// Parser converts raw replies into outcomes.
type Parser struct {
	log zerolog.Logger
}

func NewParser(log zerolog.Logger) *Parser {
	return &Parser{log: log}
}

// Parse maps one raw reply to exactly one outcome. When more than one
// top-level tag appears, precedence is clarification, then full plan, then
// cannot-proceed.
func (p *Parser) Parse(raw string) Outcome {
	if strings.TrimSpace(raw) == "" {
		return Outcome{Type: TypeError, Message: errEmptyReply}
	}

	thinking := p.extractThinking(raw)

	switch {
	case hasOpenTag(raw, "clarification_needed"):
		return Outcome{
			Type:      TypeClarification,
			Thinking:  thinking,
			Questions: p.extractQuestions(raw),
		}
	case hasOpenTag(raw, "full_plan"):
		proposal, strategy, ads := p.extractPlan(raw)
		return Outcome{
			Type:            TypeFullPlan,
			Thinking:        thinking,
			Proposal:        proposal,
			ContentStrategy: strategy,
			SampleAds:       ads,
		}
	case hasOpenTag(raw, "cannot_proceed"):
		return Outcome{
			Type:     TypeCannotProceed,
			Thinking: thinking,
			Message:  p.extractRefusal(raw),
		}
	default:
		p.log.Debug().Msg("no outcome tag found in reply")
		return Outcome{Type: TypeError, Message: errUnrecognized}
	}
}

// extractThinking pulls the optional leading thinking block. Absence is
// never an error. A missing close tag ends the block at the first outcome
// tag, or end of text.
func (p *Parser) extractThinking(raw string) string {
	_, bodyStart, ok := findOpen(raw, "thinking")
	if !ok {
		return ""
	}
	rest := raw[bodyStart:]
	if end := indexClose(rest, "thinking"); end >= 0 {
		return strings.TrimSpace(rest[:end])
	}
	end := len(rest)
	for _, name := range []string{"clarification_needed", "full_plan", "cannot_proceed"} {
		if loc := openTagRes[name].FindStringIndex(rest); loc != nil && loc[0] < end {
			end = loc[0]
		}
	}
	p.log.Debug().Msg("thinking block not closed, slicing to first outcome tag")
	return strings.TrimSpace(rest[:end])
}

// extractPlan recovers the three plan sections. For each section, strict
// open/close extraction comes first; when the close tag is missing, the
// section runs to the next expected section's opening tag, the outer
// </full_plan>, or end of text — whichever comes first.
func (p *Parser) extractPlan(raw string) (proposal, strategy, ads string) {
	region := regionAfter(raw, "full_plan")

	out := make([]string, len(planSections))
	for i, name := range planSections {
		_, bodyStart, ok := findOpen(region, name)
		if !ok {
			continue
		}
		rest := region[bodyStart:]
		if end := indexClose(rest, name); end >= 0 {
			out[i] = strings.TrimSpace(rest[:end])
			continue
		}
		end := len(rest)
		for _, next := range planSections[i+1:] {
			if loc := openTagRes[next].FindStringIndex(rest); loc != nil && loc[0] < end {
				end = loc[0]
			}
		}
		if outer := indexClose(rest, "full_plan"); outer >= 0 && outer < end {
			end = outer
		}
		p.log.Debug().Str("section", name).Msg("close tag missing, using boundary fallback")
		out[i] = strings.TrimSpace(rest[:end])
	}
	return out[0], out[1], out[2]
}

// extractRefusal returns the <message> content, tolerating a missing close
// tag, or the fixed generic refusal when no message block exists at all.
func (p *Parser) extractRefusal(raw string) string {
	region := regionAfter(raw, "cannot_proceed")
	_, bodyStart, ok := findOpen(region, "message")
	if !ok {
		p.log.Debug().Msg("refusal has no message block, substituting generic text")
		return GenericRefusal
	}
	rest := region[bodyStart:]
	end := indexClose(rest, "message")
	if end < 0 {
		if end = indexClose(rest, "cannot_proceed"); end < 0 {
			end = len(rest)
		}
	}
	msg := strings.TrimSpace(rest[:end])
	if msg == "" {
		return GenericRefusal
	}
	return msg
}

// --- tag scanning helpers ---

func hasOpenTag(text, name string) bool {
	return openTagRes[name].MatchString(text)
}

// findOpen locates the loose opening tag and returns the tag start index and
// the index just past it.
func findOpen(text, name string) (start, bodyStart int, ok bool) {
	loc := openTagRes[name].FindStringIndex(text)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}

// indexClose returns the index of the closing tag, case-insensitive, or -1.
func indexClose(text, name string) int {
	return strings.Index(strings.ToLower(text), "</"+name+">")
}

// regionAfter slices from just past the wrapper's opening tag to its closing
// tag, or end of text when the close is missing.
func regionAfter(text, name string) string {
	_, bodyStart, ok := findOpen(text, name)
	if !ok {
		return text
	}
	rest := text[bodyStart:]
	if end := indexClose(rest, name); end >= 0 {
		return rest[:end]
	}
	return rest
}
