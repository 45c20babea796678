// Package blob assembles pasted text and extracted files into one delimited
// context document under a global word budget, plus side lists of images and
// native documents to attach as non-text content blocks.
package blob

import (
	"strings"

	"github.com/marketforge/strategist/pkg/extract"
	"github.com/marketforge/strategist/pkg/words"
)

// WordLimit is the global ceiling across pasted text and extracted text files.
const WordLimit = 170_000

const (
	pastedLabel       = "PASTED_TEXT"
	truncatedMarker   = "[TRUNCATED]"
	truncationWarning = "WARNING: the submitted material exceeded the word limit and was cut off here. Files after this point were not included."
)

// Blob is the assembled request payload. Text carries every delimited text
// section; Images and Documents are attached separately by the invoker.
type Blob struct {
	Text      string
	Images    []extract.File
	Documents []extract.File
}

// Assembler builds blobs under a word budget. The zero value is not usable;
// call New.
type Assembler struct {
	limit int
}

func New(limit int) *Assembler {
	if limit <= 0 {
		limit = WordLimit
	}
	return &Assembler{limit: limit}
}

// Assemble merges pasted text and extracted files in order. Pasted text is
// budgeted first. The first text file that would overflow the budget is
// truncated to the words remaining and everything after it is dropped.
func (a *Assembler) Assemble(pasted string, files []extract.File) Blob {
	var b strings.Builder
	var out Blob
	used := 0

	if strings.TrimSpace(pasted) != "" {
		n := words.Count(pasted)
		if n > a.limit {
			writeSection(&b, pastedLabel, words.Truncate(pasted, a.limit)+"\n"+truncatedMarker+"\n"+truncationWarning)
			out.Text = b.String()
			return out
		}
		writeSection(&b, pastedLabel, pasted)
		used += n
	}

	for _, f := range files {
		switch f.Kind {
		case extract.KindImage:
			out.Images = append(out.Images, f)
			continue
		case extract.KindDocument:
			out.Documents = append(out.Documents, f)
			continue
		case extract.KindError:
			// Error markers inform the model without spending budget.
			b.WriteString("---ERROR_PARSING_" + SanitizeLabel(f.Filename) + "---\n")
			b.WriteString("Error: " + f.Error + "\n\n")
			continue
		}

		n := words.Count(f.Content)
		if used+n > a.limit {
			section := words.Truncate(f.Content, a.limit-used)
			if section != "" {
				section += "\n"
			}
			section += truncatedMarker + "\n" + truncationWarning
			writeSection(&b, SanitizeLabel(f.Filename), section)
			break
		}
		writeSection(&b, SanitizeLabel(f.Filename), f.Content)
		used += n
	}

	out.Text = b.String()
	return out
}

// SanitizeLabel uppercases a filename and replaces every non-alphanumeric
// character with an underscore, producing a delimiter-safe label.
func SanitizeLabel(name string) string {
	upper := strings.ToUpper(name)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func writeSection(b *strings.Builder, label, content string) {
	b.WriteString("---START_" + label + "---\n")
	b.WriteString(content)
	b.WriteString("\n---END_" + label + "---\n\n")
}
