package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/tiktoken-go/tokenizer"
)

// OpenAILLM is an alternate Provider. It has no native document blocks, so
// oversized PDFs are referenced by name instead of attached; token counting
// is local via tiktoken because the API has no count endpoint.
type OpenAILLM struct {
	Client *openai.Client
	Model  string

	codec tokenizer.Codec
	log   zerolog.Logger
}

func NewOpenAILLM(model string, log zerolog.Logger) (*OpenAILLM, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("init tokenizer: %w", err)
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	return &OpenAILLM{
		Client: openai.NewClient(apiKey),
		Model:  model,
		codec:  codec,
		log:    log,
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, req Request) (string, error) {
	creq := openai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			o.userMessage(req),
		},
	}
	if req.ExtendedReasoning {
		creq.ReasoningEffort = "high"
	}

	resp, err := o.Client.CreateChatCompletion(ctx, creq)
	if err != nil && req.ExtendedReasoning && isReasoningRejection(err) {
		o.log.Warn().Err(err).Msg("endpoint rejected reasoning effort, retrying without it")
		creq.ReasoningEffort = ""
		resp, err = o.Client.CreateChatCompletion(ctx, creq)
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAILLM) userMessage(req Request) openai.ChatCompletionMessage {
	text := inlineDocuments(req.UserText, req.Documents)
	if len(req.Images) == 0 {
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}

	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: text,
	}}
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: parts}
}

// CountTokens tokenizes locally with cl100k_base. Attached binaries are
// covered by the character heuristic since they never reach the tokenizer.
func (o *OpenAILLM) CountTokens(_ context.Context, req Request) (int, error) {
	ids, _, err := o.codec.Encode(req.UserText)
	if err != nil {
		return heuristicTokens(req), nil
	}
	n := len(ids)
	if len(req.Documents) > 0 || len(req.Images) > 0 {
		n += heuristicTokens(Request{Documents: req.Documents, Images: req.Images})
	}
	return n, nil
}

func (o *OpenAILLM) StreamChat(ctx context.Context, system string, turns []Turn) (<-chan StreamChunk, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, t := range turns {
		role := openai.ChatMessageRoleUser
		if t.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}

	stream, err := o.Client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.Model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		defer stream.Close()
		var full strings.Builder
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				ch <- StreamChunk{Done: true, FullText: full.String()}
				return
			}
			if err != nil {
				ch <- StreamChunk{Done: true, FullText: full.String(), Err: err}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta.Content
			if delta == "" {
				continue
			}
			full.WriteString(delta)
			select {
			case ch <- StreamChunk{Delta: delta}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

var _ Provider = (*OpenAILLM)(nil)
