package models

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiLLM is an alternate Provider. PDFs and images attach as inline blobs;
// the extended-reasoning flag has no Gemini equivalent and is ignored.
type GeminiLLM struct {
	Client *genai.Client
	Model  string
	log    zerolog.Logger
}

func NewGeminiLLM(ctx context.Context, model string, log zerolog.Logger) (*GeminiLLM, error) {
	apiKey := os.Getenv("GOOGLE_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client, Model: model, log: log}, nil
}

func (g *GeminiLLM) Complete(ctx context.Context, req Request) (string, error) {
	model := g.Client.GenerativeModel(g.Model)
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	parts, err := geminiParts(req)
	if err != nil {
		return "", err
	}
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

func geminiParts(req Request) ([]genai.Part, error) {
	parts := make([]genai.Part, 0, len(req.Documents)+len(req.Images)+1)
	for _, d := range req.Documents {
		data, err := base64.StdEncoding.DecodeString(d.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", d.Filename, err)
		}
		parts = append(parts, genai.Blob{MIMEType: d.MimeType, Data: data})
	}
	for _, img := range req.Images {
		data, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", img.Filename, err)
		}
		parts = append(parts, genai.Blob{MIMEType: img.MimeType, Data: data})
	}
	parts = append(parts, genai.Text(req.UserText))
	return parts, nil
}

// CountTokens uses the native endpoint; the count covers only the variable
// payload, so no baseline subtraction is needed here.
func (g *GeminiLLM) CountTokens(ctx context.Context, req Request) (int, error) {
	parts, err := geminiParts(req)
	if err != nil {
		return heuristicTokens(req), nil
	}
	resp, err := g.Client.GenerativeModel(g.Model).CountTokens(ctx, parts...)
	if err != nil {
		return 0, err
	}
	return int(resp.TotalTokens), nil
}

func (g *GeminiLLM) StreamChat(ctx context.Context, system string, turns []Turn) (<-chan StreamChunk, error) {
	model := g.Client.GenerativeModel(g.Model)
	if strings.TrimSpace(system) != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	if len(turns) == 0 {
		return nil, errors.New("chat history is empty")
	}
	session := model.StartChat()
	for _, t := range turns[:len(turns)-1] {
		role := "user"
		if t.Role == RoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}

	iter := session.SendMessageStream(ctx, genai.Text(turns[len(turns)-1].Content))
	ch := make(chan StreamChunk, 16)
	go func() {
		defer close(ch)
		var full strings.Builder
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				ch <- StreamChunk{Done: true, FullText: full.String()}
				return
			}
			if err != nil {
				ch <- StreamChunk{Done: true, FullText: full.String(), Err: err}
				return
			}
			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}
			for _, part := range resp.Candidates[0].Content.Parts {
				txt, ok := part.(genai.Text)
				if !ok || txt == "" {
					continue
				}
				full.WriteString(string(txt))
				select {
				case ch <- StreamChunk{Delta: string(txt)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

var _ Provider = (*GeminiLLM)(nil)
