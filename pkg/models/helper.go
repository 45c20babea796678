package models

import (
	"strings"

	"github.com/marketforge/strategist/pkg/extract"
)

// reasoningKeywords flag an API error as a rejection of the extended
// reasoning parameter, which is retried once with the mode disabled. Any
// other error propagates unmodified.
var reasoningKeywords = []string{"thinking", "reasoning"}

func isReasoningRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range reasoningKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// heuristicTokens is the character-count fallback used when a provider has
// no token counting endpoint or the baseline subtraction signals drift.
func heuristicTokens(req Request) int {
	n := len(req.UserText)
	for _, d := range req.Documents {
		n += len(d.Data)
	}
	for _, img := range req.Images {
		n += len(img.Data)
	}
	return n / 4
}

// inlineDocuments renders native-document entries as a plain-text note for
// providers without a document block type. The model is told what it is
// looking at even when the bytes themselves cannot be attached.
func inlineDocuments(userText string, docs []extract.File) string {
	if len(docs) == 0 {
		return userText
	}
	var b strings.Builder
	b.Grow(len(userText) + 256)
	b.WriteString(userText)
	b.WriteString("\n\nAttached documents that could not be inlined as text:\n")
	for _, d := range docs {
		b.WriteString("- " + d.Filename + " (" + d.MimeType + ")\n")
	}
	return b.String()
}
