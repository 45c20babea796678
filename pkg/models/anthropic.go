package models

import (
	"context"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog"
)

// AnthropicLLM is the primary Provider. It is the only backend with native
// document and image blocks, so extracted PDFs and images ride along as
// typed content instead of being inlined.
type AnthropicLLM struct {
	Client         *anthropic.Client
	Model          string
	MaxTokens      int64
	ThinkingBudget int64

	log      zerolog.Logger
	baseline baselineCache
}

// NewAnthropicLLM constructs a client. It reads ANTHROPIC_API_KEY from the env.
func NewAnthropicLLM(model string, log zerolog.Logger) *AnthropicLLM {
	cl := anthropic.NewClient(
		anthropicopt.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &AnthropicLLM{
		Client:         &cl,
		Model:          model,
		MaxTokens:      16_000,
		ThinkingBudget: 8_192,
		log:            log,
	}
}

// Complete sends one strategy request. When extended reasoning is enabled
// and the endpoint rejects the parameter, the call is retried exactly once
// with the mode disabled; any other error propagates unmodified.
func (a *AnthropicLLM) Complete(ctx context.Context, req Request) (string, error) {
	params := a.buildParams(req)
	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil && req.ExtendedReasoning && isReasoningRejection(err) {
		a.log.Warn().Err(err).Msg("endpoint rejected extended reasoning, retrying without it")
		params.Thinking = anthropic.ThinkingConfigParamUnion{}
		msg, err = a.Client.Messages.New(ctx, params)
	}
	if err != nil {
		return "", err
	}

	// Thinking arrives as a separate block type; re-wrap it in tags so the
	// parser sees the same shape regardless of how the model reasoned.
	var thinking, text strings.Builder
	for _, cb := range msg.Content {
		switch b := cb.AsAny().(type) {
		case anthropic.ThinkingBlock:
			thinking.WriteString(b.Thinking)
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	if thinking.Len() == 0 {
		return text.String(), nil
	}
	return "<thinking>\n" + thinking.String() + "\n</thinking>\n" + text.String(), nil
}

func (a *AnthropicLLM) buildParams(req Request) anthropic.MessageNewParams {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(req.Documents)+len(req.Images)+1)
	for _, d := range req.Documents {
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: d.Data}))
	}
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(img.MimeType, img.Data))
	}
	blocks = append(blocks, anthropic.NewTextBlock(req.UserText))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: a.MaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if strings.TrimSpace(req.System) != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.ExtendedReasoning {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(a.ThinkingBudget)
	}
	return params
}

// CountTokens estimates user-content token cost by subtracting a cached
// instruction-only baseline from the full-payload count. A non-positive
// difference signals cache staleness and falls back to the character
// heuristic.
func (a *AnthropicLLM) CountTokens(ctx context.Context, req Request) (int, error) {
	full, err := a.count(ctx, req)
	if err != nil {
		return 0, err
	}
	base, err := a.baseline.get(ctx, func(ctx context.Context) (int, error) {
		return a.count(ctx, Request{System: req.System, UserText: " "})
	})
	if err != nil {
		return 0, err
	}
	if est := full - base; est > 0 {
		return est, nil
	}
	a.log.Debug().Int("full", full).Int("baseline", base).Msg("baseline subtraction non-positive, using heuristic")
	return heuristicTokens(req), nil
}

func (a *AnthropicLLM) count(ctx context.Context, req Request) (int, error) {
	p := a.buildParams(req)
	res, err := a.Client.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model:    p.Model,
		Messages: p.Messages,
		System: anthropic.MessageCountTokensParamsSystemUnion{
			OfTextBlockArray: p.System,
		},
	})
	if err != nil {
		return 0, err
	}
	return int(res.InputTokens), nil
}

// ResetBaseline clears the cached token baseline. Exposed for tests.
func (a *AnthropicLLM) ResetBaseline() { a.baseline.Reset() }

// StreamChat streams a follow-up chat reply as it is produced. Cancelling
// ctx aborts the underlying request promptly.
func (a *AnthropicLLM) StreamChat(ctx context.Context, system string, turns []Turn) (<-chan StreamChunk, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: a.MaxTokens,
		Messages:  anthropicTurns(turns),
	}
	if strings.TrimSpace(system) != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	stream := a.Client.Messages.NewStreaming(ctx, params)

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		for stream.Next() {
			event := stream.Current()
			variant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := variant.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			full.WriteString(delta.Text)
			select {
			case ch <- StreamChunk{Delta: delta.Text}:
			case <-ctx.Done():
				return
			}
		}
		if err := stream.Err(); err != nil {
			ch <- StreamChunk{Done: true, FullText: full.String(), Err: err}
			return
		}
		ch <- StreamChunk{Done: true, FullText: full.String()}
	}()
	return ch, nil
}

func anthropicTurns(turns []Turn) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}

var _ Provider = (*AnthropicLLM)(nil)
