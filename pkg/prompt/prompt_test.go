package prompt

import (
	"strings"
	"testing"
)

func TestBuildUserEmbedsClientData(t *testing.T) {
	payload := "---START_PASTED_TEXT---\nhello\n---END_PASTED_TEXT---\n"
	got := BuildUser(payload)
	if !strings.Contains(got, "<client_data>\n"+payload+"\n</client_data>") {
		t.Fatalf("client data not wrapped: %q", got)
	}
}

func TestBuildUserStaticParts(t *testing.T) {
	a := BuildUser("one")
	b := BuildUser("two")
	// Everything outside the payload is fixed per request.
	if strings.Replace(a, "one", "X", 1) != strings.Replace(b, "two", "X", 1) {
		t.Fatal("outer prompt text differs between requests")
	}
}

func TestSystemNamesAllWrappers(t *testing.T) {
	for _, tag := range []string{"<clarification_needed>", "<full_plan>", "<cannot_proceed>", "<thinking>"} {
		if !strings.Contains(System, tag) {
			t.Fatalf("system prompt missing %s", tag)
		}
	}
}

func TestSectionChatSystem(t *testing.T) {
	got := SectionChatSystem("proposal", "run ads on two channels")
	if !strings.Contains(got, "run ads on two channels") {
		t.Fatal("section text missing")
	}
	if !strings.Contains(got, "1-3 sentences") {
		t.Fatal("brevity directive missing")
	}
}
