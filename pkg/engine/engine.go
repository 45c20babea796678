// Package engine orchestrates one strategy request end to end: extraction,
// blob assembly, prompt construction, completion, parsing. It owns no HTTP
// concerns and no persistence.
package engine

import (
	"context"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketforge/strategist/pkg/blob"
	"github.com/marketforge/strategist/pkg/extract"
	"github.com/marketforge/strategist/pkg/models"
	"github.com/marketforge/strategist/pkg/parse"
	"github.com/marketforge/strategist/pkg/prompt"
)

// Input is one strategy request. Upload paths point at request-scoped temp
// files which the engine deletes on every exit path.
type Input struct {
	PastedText        string
	Uploads           []extract.Upload
	ExtendedReasoning bool
}

type Engine struct {
	provider  models.Provider
	extractor *extract.Adapter
	assembler *blob.Assembler
	parser    *parse.Parser
	log       zerolog.Logger
}

func New(provider models.Provider, log zerolog.Logger) *Engine {
	return &Engine{
		provider:  provider,
		extractor: extract.NewAdapter(log),
		assembler: blob.New(blob.WordLimit),
		parser:    parse.NewParser(log),
		log:       log,
	}
}

// GenerateStrategy runs the full pipeline and always returns a typed outcome:
// completion failures surface as an error-type outcome rather than a Go
// error, so the caller's rendering path is uniform.
func (e *Engine) GenerateStrategy(ctx context.Context, in Input) parse.Outcome {
	defer e.removeUploads(in.Uploads)

	req := e.buildRequest(in)

	// Token count and completion are independent network calls; overlap them.
	var (
		wg     sync.WaitGroup
		tokens int
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := e.provider.CountTokens(ctx, req)
		if err != nil {
			e.log.Warn().Err(err).Msg("token count failed, using heuristic")
			n = len(req.UserText) / 4
		}
		tokens = n
	}()

	raw, err := e.provider.Complete(ctx, req)
	wg.Wait()
	if err != nil {
		e.log.Error().Err(err).Msg("completion call failed")
		return parse.Outcome{
			Type:       parse.TypeError,
			Message:    "model call failed: " + err.Error(),
			TokenCount: tokens,
		}
	}

	out := e.parser.Parse(raw)
	out.TokenCount = tokens
	return out
}

// CountTokens runs extraction and assembly only, for UI-side budget display.
func (e *Engine) CountTokens(ctx context.Context, in Input) (int, error) {
	defer e.removeUploads(in.Uploads)
	return e.provider.CountTokens(ctx, e.buildRequest(in))
}

func (e *Engine) buildRequest(in Input) models.Request {
	files := e.extractor.ExtractAll(in.Uploads)
	b := e.assembler.Assemble(in.PastedText, files)
	return models.Request{
		System:            prompt.System,
		UserText:          prompt.BuildUser(b.Text),
		Documents:         b.Documents,
		Images:            b.Images,
		ExtendedReasoning: in.ExtendedReasoning,
	}
}

func (e *Engine) removeUploads(uploads []extract.Upload) {
	for _, u := range uploads {
		if u.Path == "" {
			continue
		}
		if err := os.Remove(u.Path); err != nil && !os.IsNotExist(err) {
			e.log.Warn().Err(err).Str("path", u.Path).Msg("failed to remove upload temp file")
		}
	}
}
