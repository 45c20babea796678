package models

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// OllamaLLM runs against a local Ollama daemon. Documents degrade to a
// plain-text note and token counts come from the character heuristic; the
// extended-reasoning flag is ignored.
type OllamaLLM struct {
	Client *ollama.Client
	Model  string
	log    zerolog.Logger
}

func NewOllamaLLM(model string, log zerolog.Logger) (*OllamaLLM, error) {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}
	client := ollama.NewClient(u, &http.Client{Timeout: 10 * time.Minute})
	return &OllamaLLM{Client: client, Model: model, log: log}, nil
}

func (o *OllamaLLM) Complete(ctx context.Context, req Request) (string, error) {
	images := make([]ollama.ImageData, 0, len(req.Images))
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", img.Filename, err)
		}
		images = append(images, data)
	}

	var text strings.Builder
	greq := &ollama.GenerateRequest{
		Model:  o.Model,
		System: req.System,
		Prompt: inlineDocuments(req.UserText, req.Documents),
		Images: images,
	}
	if err := o.Client.Generate(ctx, greq, func(gr ollama.GenerateResponse) error {
		if gr.Response != "" {
			text.WriteString(gr.Response)
		}
		return nil
	}); err != nil {
		return "", err
	}
	return text.String(), nil
}

func (o *OllamaLLM) CountTokens(_ context.Context, req Request) (int, error) {
	return heuristicTokens(req), nil
}

func (o *OllamaLLM) StreamChat(ctx context.Context, system string, turns []Turn) (<-chan StreamChunk, error) {
	messages := make([]ollama.Message, 0, len(turns)+1)
	messages = append(messages, ollama.Message{Role: "system", Content: system})
	for _, t := range turns {
		messages = append(messages, ollama.Message{Role: t.Role, Content: t.Content})
	}

	stream := true
	creq := &ollama.ChatRequest{Model: o.Model, Messages: messages, Stream: &stream}

	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		err := o.Client.Chat(ctx, creq, func(cr ollama.ChatResponse) error {
			if cr.Message.Content == "" {
				return nil
			}
			full.WriteString(cr.Message.Content)
			select {
			case ch <- StreamChunk{Delta: cr.Message.Content}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			ch <- StreamChunk{Done: true, FullText: full.String(), Err: err}
			return
		}
		ch <- StreamChunk{Done: true, FullText: full.String()}
	}()
	return ch, nil
}

var _ Provider = (*OllamaLLM)(nil)
