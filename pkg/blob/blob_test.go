package blob

import (
	"strings"
	"testing"

	"github.com/marketforge/strategist/pkg/extract"
	"github.com/marketforge/strategist/pkg/words"
)

func TestAssemblePastedText(t *testing.T) {
	b := New(0).Assemble("the client brief", nil)
	want := "---START_PASTED_TEXT---\nthe client brief\n---END_PASTED_TEXT---\n\n"
	if b.Text != want {
		t.Fatalf("got %q want %q", b.Text, want)
	}
}

func TestSanitizeLabel(t *testing.T) {
	got := SanitizeLabel("Client Brief (v2).docx")
	for _, r := range got {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '_' {
			t.Fatalf("label %q contains illegal rune %q", got, r)
		}
	}
	if got != "CLIENT_BRIEF__V2__DOCX" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestDelimiterRoundTrip(t *testing.T) {
	f := extract.File{Filename: "Client Brief (v2).docx", Kind: extract.KindText, Content: "body"}
	b := New(0).Assemble("", []extract.File{f})
	label := SanitizeLabel(f.Filename)
	if !strings.Contains(b.Text, "---START_"+label+"---") {
		t.Fatalf("missing start delimiter in %q", b.Text)
	}
	if !strings.Contains(b.Text, "---END_"+label+"---") {
		t.Fatalf("missing matching end delimiter in %q", b.Text)
	}
}

func TestTruncationBoundary(t *testing.T) {
	pasted := strings.TrimSpace(strings.Repeat("p ", WordLimit-1)) // 169,999 words
	file := extract.File{Filename: "extra.txt", Kind: extract.KindText, Content: "one two three four five six seven eight nine ten"}

	b := New(WordLimit).Assemble(pasted, []extract.File{file})

	start := strings.Index(b.Text, "---START_EXTRA_TXT---")
	end := strings.Index(b.Text, "---END_EXTRA_TXT---")
	if start < 0 || end < 0 {
		t.Fatal("file section missing")
	}
	section := b.Text[start:end]
	if !strings.Contains(section, truncatedMarker) {
		t.Fatal("expected truncation marker")
	}
	if !strings.Contains(section, truncationWarning) {
		t.Fatal("expected truncation warning line")
	}
	// Exactly one word of the file fits the remaining budget.
	body := section[:strings.Index(section, truncatedMarker)]
	body = strings.TrimPrefix(body, "---START_EXTRA_TXT---")
	if got := words.Count(body); got != 1 {
		t.Fatalf("expected exactly 1 word from the file, got %d (%q)", got, body)
	}
	if !strings.Contains(body, "one") || strings.Contains(body, "two") {
		t.Fatalf("wrong word survived truncation: %q", body)
	}
}

func TestExactFitNotTruncated(t *testing.T) {
	pasted := strings.TrimSpace(strings.Repeat("p ", WordLimit-1))
	file := extract.File{Filename: "fits.txt", Kind: extract.KindText, Content: "one"}

	b := New(WordLimit).Assemble(pasted, []extract.File{file})
	if strings.Contains(b.Text, truncatedMarker) {
		t.Fatal("exact-fit file must not be truncated")
	}
	if !strings.Contains(b.Text, "---START_FITS_TXT---\none\n---END_FITS_TXT---") {
		t.Fatal("file section missing or altered")
	}
}

func TestFilesAfterTruncationDropped(t *testing.T) {
	a := New(10)
	files := []extract.File{
		{Filename: "a.txt", Kind: extract.KindText, Content: strings.Repeat("w ", 20)},
		{Filename: "b.txt", Kind: extract.KindText, Content: "never included"},
	}
	b := a.Assemble("", files)
	if !strings.Contains(b.Text, "---START_A_TXT---") {
		t.Fatal("first file missing")
	}
	if strings.Contains(b.Text, "B_TXT") {
		t.Fatal("file after truncation must be dropped entirely")
	}
}

func TestErrorEntriesDoNotSpendBudget(t *testing.T) {
	a := New(3)
	files := []extract.File{
		{Filename: "bad.docx", Kind: extract.KindError, Error: "corrupt archive"},
		{Filename: "good.txt", Kind: extract.KindText, Content: "one two three"},
	}
	b := a.Assemble("", files)
	if !strings.Contains(b.Text, "---ERROR_PARSING_BAD_DOCX---\nError: corrupt archive\n") {
		t.Fatalf("error block missing: %q", b.Text)
	}
	if strings.Contains(b.Text, truncatedMarker) {
		t.Fatal("error entry consumed budget")
	}
}

func TestImagesAndDocumentsSideLists(t *testing.T) {
	files := []extract.File{
		{Filename: "a.png", Kind: extract.KindImage, Data: "aaa", MimeType: "image/png"},
		{Filename: "b.pdf", Kind: extract.KindDocument, Data: "bbb", MimeType: "application/pdf"},
		{Filename: "c.txt", Kind: extract.KindText, Content: "text"},
	}
	b := New(0).Assemble("", files)
	if len(b.Images) != 1 || b.Images[0].Filename != "a.png" {
		t.Fatalf("images list wrong: %+v", b.Images)
	}
	if len(b.Documents) != 1 || b.Documents[0].Filename != "b.pdf" {
		t.Fatalf("documents list wrong: %+v", b.Documents)
	}
	if strings.Contains(b.Text, "A_PNG") || strings.Contains(b.Text, "B_PDF") {
		t.Fatal("binary entries leaked into the text blob")
	}
}

func TestPastedTextAloneOverBudget(t *testing.T) {
	a := New(5)
	b := a.Assemble(strings.Repeat("w ", 9), []extract.File{{Filename: "x.txt", Kind: extract.KindText, Content: "dropped"}})
	if !strings.Contains(b.Text, truncatedMarker) {
		t.Fatal("expected pasted text truncation")
	}
	if strings.Contains(b.Text, "X_TXT") {
		t.Fatal("files must be dropped when pasted text exhausts the budget")
	}
	section := b.Text[:strings.Index(b.Text, truncatedMarker)]
	if got := words.Count(strings.TrimPrefix(section, "---START_PASTED_TEXT---")); got != 5 {
		t.Fatalf("expected 5 pasted words, got %d", got)
	}
}
