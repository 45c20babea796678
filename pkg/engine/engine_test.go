package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marketforge/strategist/pkg/extract"
	"github.com/marketforge/strategist/pkg/models"
	"github.com/marketforge/strategist/pkg/parse"
)

func writeUpload(t *testing.T, name, content string) extract.Upload {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return extract.Upload{Filename: name, Size: int64(len(content)), Path: path}
}

func TestGenerateStrategyFullPlan(t *testing.T) {
	dummy := models.NewDummyLLM("")
	e := New(dummy, zerolog.Nop())

	out := e.GenerateStrategy(context.Background(), Input{
		PastedText: "We sell artisanal coffee to remote workers.",
	})

	if out.Type != parse.TypeFullPlan {
		t.Fatalf("expected full plan, got %s (%q)", out.Type, out.Message)
	}
	if out.Proposal == "" || out.ContentStrategy == "" || out.SampleAds == "" {
		t.Fatalf("plan sections incomplete: %+v", out)
	}
	if out.TokenCount <= 0 {
		t.Fatalf("token count not filled in: %d", out.TokenCount)
	}

	if len(dummy.Requests) != 1 {
		t.Fatalf("expected one completion call, got %d", len(dummy.Requests))
	}
	sent := dummy.Requests[0]
	if !strings.Contains(sent.UserText, "<client_data>") {
		t.Fatal("user text missing client data wrapper")
	}
	if !strings.Contains(sent.UserText, "---START_PASTED_TEXT---") {
		t.Fatal("pasted text not delimited in blob")
	}
}

func TestGenerateStrategyIncludesUploads(t *testing.T) {
	dummy := models.NewDummyLLM("")
	e := New(dummy, zerolog.Nop())

	u := writeUpload(t, "brief.txt", "Target audience is remote workers.")
	out := e.GenerateStrategy(context.Background(), Input{
		PastedText: "pasted",
		Uploads:    []extract.Upload{u},
	})
	if out.Type != parse.TypeFullPlan {
		t.Fatalf("unexpected outcome: %s", out.Type)
	}

	sent := dummy.Requests[0]
	if !strings.Contains(sent.UserText, "---START_BRIEF_TXT---") {
		t.Fatalf("upload not delimited in blob:\n%s", sent.UserText)
	}
	if !strings.Contains(sent.UserText, "Target audience is remote workers.") {
		t.Fatal("upload content missing from blob")
	}
}

func TestGenerateStrategyRemovesTempFiles(t *testing.T) {
	e := New(models.NewDummyLLM(""), zerolog.Nop())

	u := writeUpload(t, "brief.txt", "content")
	e.GenerateStrategy(context.Background(), Input{Uploads: []extract.Upload{u}})

	if _, err := os.Stat(u.Path); !os.IsNotExist(err) {
		t.Fatalf("temp file not removed: %v", err)
	}
}

type failingProvider struct{ *models.DummyLLM }

func (failingProvider) Complete(context.Context, models.Request) (string, error) {
	return "", errors.New("upstream unavailable")
}

func TestGenerateStrategyCompletionFailure(t *testing.T) {
	e := New(failingProvider{models.NewDummyLLM("")}, zerolog.Nop())

	u := writeUpload(t, "brief.txt", "content")
	out := e.GenerateStrategy(context.Background(), Input{
		PastedText: "pasted",
		Uploads:    []extract.Upload{u},
	})

	if out.Type != parse.TypeError {
		t.Fatalf("expected error outcome, got %s", out.Type)
	}
	if !strings.Contains(out.Message, "upstream unavailable") {
		t.Fatalf("cause missing from message: %q", out.Message)
	}
	// Cleanup must run on the failure path too.
	if _, err := os.Stat(u.Path); !os.IsNotExist(err) {
		t.Fatalf("temp file not removed on failure: %v", err)
	}
}

func TestGenerateStrategyClarification(t *testing.T) {
	reply := `<clarification_needed>
<question>What is your budget?</question>
<question>Who is the audience?</question>
</clarification_needed>`
	e := New(models.NewDummyLLM(reply), zerolog.Nop())

	out := e.GenerateStrategy(context.Background(), Input{PastedText: "vague"})
	if out.Type != parse.TypeClarification {
		t.Fatalf("expected clarification, got %s", out.Type)
	}
	if len(out.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %v", out.Questions)
	}
}

func TestCountTokens(t *testing.T) {
	e := New(models.NewDummyLLM(""), zerolog.Nop())

	u := writeUpload(t, "brief.txt", strings.Repeat("word ", 100))
	n, err := e.CountTokens(context.Background(), Input{
		PastedText: "pasted",
		Uploads:    []extract.Upload{u},
	})
	if err != nil {
		t.Fatalf("CountTokens: %v", err)
	}
	if n <= 0 {
		t.Fatalf("expected positive estimate, got %d", n)
	}
	if _, statErr := os.Stat(u.Path); !os.IsNotExist(statErr) {
		t.Fatal("temp file not removed after token count")
	}
}

func TestExtendedReasoningFlagPropagates(t *testing.T) {
	dummy := models.NewDummyLLM("")
	e := New(dummy, zerolog.Nop())

	e.GenerateStrategy(context.Background(), Input{PastedText: "p", ExtendedReasoning: true})
	if !dummy.Requests[0].ExtendedReasoning {
		t.Fatal("extended reasoning flag dropped")
	}
}
