package models

import (
	"context"
	"strings"
)

// cannedReply is a well-formed full plan used when no scripted reply is set.
const cannedReply = `<thinking>
Reviewing the submitted material.
</thinking>
<full_plan>
<proposal>A focused regional launch built on the strongest differentiator in the brief.</proposal>
<content_strategy>Three weekly themes mapped to awareness, consideration, and conversion.</content_strategy>
<sample_ads>Variant A leads with the price promise. Variant B leads with the guarantee. Variant C leads with the founder story.</sample_ads>
</full_plan>`

// DummyLLM is a lightweight Provider for local testing without API calls.
// Reply, when set, is returned verbatim from Complete and streamed word by
// word from StreamChat.
type DummyLLM struct {
	Reply string

	// Requests records every Complete call for assertions.
	Requests []Request
}

func NewDummyLLM(reply string) *DummyLLM {
	return &DummyLLM{Reply: reply}
}

func (d *DummyLLM) Complete(_ context.Context, req Request) (string, error) {
	d.Requests = append(d.Requests, req)
	if d.Reply != "" {
		return d.Reply, nil
	}
	return cannedReply, nil
}

func (d *DummyLLM) CountTokens(_ context.Context, req Request) (int, error) {
	return heuristicTokens(req), nil
}

// StreamChat simulates streaming by splitting the reply into word-level
// chunks.
func (d *DummyLLM) StreamChat(ctx context.Context, _ string, turns []Turn) (<-chan StreamChunk, error) {
	reply := d.Reply
	if reply == "" && len(turns) > 0 {
		reply = "Echo: " + turns[len(turns)-1].Content
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		words := strings.Fields(reply)
		for i, w := range words {
			delta := w
			if i < len(words)-1 {
				delta += " "
			}
			select {
			case ch <- StreamChunk{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
		ch <- StreamChunk{Done: true, FullText: reply}
	}()
	return ch, nil
}

var _ Provider = (*DummyLLM)(nil)
