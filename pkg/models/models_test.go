package models

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marketforge/strategist/pkg/extract"
)

func TestIsReasoningRejection(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("invalid_request_error: thinking is not supported on this model"), true},
		{errors.New("400: unexpected parameter Reasoning"), true},
		{errors.New("overloaded_error: try again later"), false},
		{nil, false},
	}
	for _, c := range cases {
		if got := isReasoningRejection(c.err); got != c.want {
			t.Errorf("isReasoningRejection(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestHeuristicTokens(t *testing.T) {
	req := Request{UserText: strings.Repeat("a", 400)}
	if got := heuristicTokens(req); got != 100 {
		t.Fatalf("expected 100 tokens for 400 chars, got %d", got)
	}

	req.Documents = []extract.File{{Kind: extract.KindDocument, Data: strings.Repeat("b", 40)}}
	if got := heuristicTokens(req); got != 110 {
		t.Fatalf("expected attached data to add to the estimate, got %d", got)
	}
}

func TestBaselineCacheComputesOnce(t *testing.T) {
	var cache baselineCache
	calls := 0
	compute := func(context.Context) (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := cache.get(context.Background(), compute)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if v != 42 {
			t.Fatalf("expected 42, got %d", v)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one compute call, got %d", calls)
	}

	cache.Reset()
	if _, err := cache.get(context.Background(), compute); err != nil {
		t.Fatalf("get after reset: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected recompute after Reset, got %d calls", calls)
	}
}

func TestBaselineCacheDoesNotCacheErrors(t *testing.T) {
	var cache baselineCache
	calls := 0
	if _, err := cache.get(context.Background(), func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := cache.get(context.Background(), func(context.Context) (int, error) {
		calls++
		return 7, nil
	}); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected failed compute to be retried, got %d calls", calls)
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider(context.Background(), "nope", "m", zerolog.Nop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestDummyComplete(t *testing.T) {
	d := NewDummyLLM("")
	raw, err := d.Complete(context.Background(), Request{UserText: "hello"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !strings.Contains(raw, "<full_plan>") {
		t.Fatalf("canned reply missing plan wrapper: %q", raw)
	}
	if len(d.Requests) != 1 || d.Requests[0].UserText != "hello" {
		t.Fatalf("request not recorded: %+v", d.Requests)
	}

	d = NewDummyLLM("scripted")
	raw, err = d.Complete(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if raw != "scripted" {
		t.Fatalf("expected scripted reply, got %q", raw)
	}
}

func TestDummyStreamChat(t *testing.T) {
	d := NewDummyLLM("one two three")
	ch, err := d.StreamChat(context.Background(), "sys", []Turn{{Role: RoleUser, Content: "q"}})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	var full strings.Builder
	var done bool
	var final string
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("chunk error: %v", chunk.Err)
		}
		if chunk.Done {
			done = true
			final = chunk.FullText
			continue
		}
		full.WriteString(chunk.Delta)
	}
	if !done {
		t.Fatal("stream never signalled Done")
	}
	if full.String() != "one two three" {
		t.Fatalf("reassembled stream = %q", full.String())
	}
	if final != "one two three" {
		t.Fatalf("final FullText = %q", final)
	}
}

func TestDummyStreamChatCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDummyLLM(strings.Repeat("word ", 100))
	ch, err := d.StreamChat(ctx, "", []Turn{{Role: RoleUser, Content: "q"}})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	// Drain; the channel must close without blocking even though the
	// context was cancelled before consumption began.
	for range ch {
	}
}

func TestInlineDocuments(t *testing.T) {
	text := inlineDocuments("body", []extract.File{
		{Filename: "deck.pdf", Kind: extract.KindDocument},
	})
	if !strings.Contains(text, "deck.pdf") {
		t.Fatalf("expected document name referenced, got %q", text)
	}
	if inlineDocuments("body", nil) != "body" {
		t.Fatal("no documents should leave text untouched")
	}
}
