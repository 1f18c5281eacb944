package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jmylchreest/summarize/internal/apperror"
	"github.com/jmylchreest/summarize/internal/costbook"
	"github.com/jmylchreest/summarize/internal/extractor"
	"github.com/jmylchreest/summarize/internal/langresolve"
	"github.com/jmylchreest/summarize/internal/llmclient"
	"github.com/jmylchreest/summarize/internal/metacache"
	"github.com/jmylchreest/summarize/internal/modelid"
	"github.com/jmylchreest/summarize/internal/streammerge"
)

// summarize builds and issues the summary for extracted content, consulting
// and then populating the summary cache, and returns the final text.
func (r *Runner) summarize(ctx context.Context, req Request, extracted *extractor.Result, lang langresolve.Resolved, book *costbook.Book, bus *streammerge.Bus) (string, error) {
	cacheKey := metacache.HashKey(normalizeForCache(extracted.Text), req.ModelPreset, req.Length, req.Language)

	if !req.NoCache && r.deps.Summaries != nil {
		if cached, err := r.deps.Summaries.Get(ctx, cacheKey); err == nil && cached != nil {
			bus.AppendChunk(cached.Text)
			return cached.Text, nil
		}
	}

	kind := modelid.InputKind(extracted.Kind)
	var finalText string

	_, err := r.deps.Models.Resolve(ctx, req.ModelPreset, kind, func(ctx context.Context, id modelid.ID) error {
		text, err := r.summarizeWithModel(ctx, id, req, extracted, lang, book, bus)
		if err != nil {
			return err
		}
		// A hard character cap is enforced by refusal, never by silently
		// truncating a response the user already paid to generate.
		if req.MaxCharacters > 0 && len(text) > req.MaxCharacters {
			return apperror.Wrap(apperror.InputTooLarge, fmt.Errorf("summary is %d characters, exceeding the %d-character cap", len(text), req.MaxCharacters))
		}
		finalText = text
		return nil
	})
	if err != nil {
		if _, hasKind := apperror.As(err); hasKind {
			// A single-candidate request (a literal "provider/name" id, not
			// an alias) surfaces its real failure kind (empty summary, input
			// too large, ...) unwrapped rather than flattened to ModelAccess.
			return "", err
		}
		return "", apperror.Wrap(apperror.ModelAccess, err)
	}

	if !req.NoCache && r.deps.Summaries != nil {
		if err := r.deps.Summaries.Put(ctx, cacheKey, req.RunID, finalText); err != nil {
			r.deps.Logger.WarnContext(ctx, "caching summary", "error", err.Error())
		}
	}

	return finalText, nil
}

// summarizeWithModel runs the full chunk-map/stream-reduce sequence against
// one resolved candidate, retrying an empty result once before giving up on
// this candidate (the caller's Resolve then tries the next one).
func (r *Runner) summarizeWithModel(ctx context.Context, id modelid.ID, req Request, extracted *extractor.Result, lang langresolve.Resolved, book *costbook.Book, bus *streammerge.Bus) (string, error) {
	budget := r.deps.LLM.InputTokenBudget(id.Provider, id.Name)
	if budget <= 0 {
		budget = defaultInputTokenBudget
	}

	systemPrompt := buildSystemPrompt(req, lang)

	var maxOutputTokens *int
	if req.MaxOutputTokens > 0 {
		maxOutputTokens = &req.MaxOutputTokens
	}

	var text string
	var err error
	if estimateTokens(extracted.Text) <= budget {
		text, err = r.streamFinal(ctx, id, systemPrompt, extracted.Text, maxOutputTokens, book, bus)
	} else {
		text, err = r.mapReduce(ctx, id, systemPrompt, extracted.Text, budget, maxOutputTokens, book, bus)
	}
	if err != nil {
		return "", err
	}

	if trimmedEmpty(text) {
		text, err = r.streamFinal(ctx, id, systemPrompt, extracted.Text, maxOutputTokens, book, bus)
		if err != nil {
			return "", err
		}
		if trimmedEmpty(text) {
			return "", apperror.Wrap(apperror.EmptySummary, fmt.Errorf("model %s produced an empty summary twice", id))
		}
	}

	return text, nil
}

// mapReduce splits content into chunks under budget, generates per-chunk
// notes, and reduces the notes into a final summary. If the reduced notes
// still exceed budget, the run is refused outright rather than truncated.
func (r *Runner) mapReduce(ctx context.Context, id modelid.ID, systemPrompt, content string, budget int, maxOutputTokens *int, book *costbook.Book, bus *streammerge.Bus) (string, error) {
	maxChars := budget * charsPerToken
	chunks := chunkText(content, maxChars)

	notes := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		res, err := r.deps.LLM.Generate(ctx, id.Provider, id.Name, llmclient.GenerateOptions{
			SystemPrompt:    systemPrompt,
			Prompt:          fmt.Sprintf("Summarize part %d of %d into concise notes:\n\n%s", i+1, len(chunks), chunk),
			MaxOutputTokens: maxOutputTokens,
		})
		if err != nil {
			return "", err
		}
		book.RecordCall(costbook.LlmCall{
			Provider: id.Provider, Model: id.Name,
			Usage:   convertUsage(res.Usage),
			Purpose: costbook.PurposeChunkNotes,
		})
		notes = append(notes, res.Text)
	}

	merged := joinNotes(notes)
	if estimateTokens(merged) > budget {
		return "", apperror.Wrap(apperror.InputTooLarge, fmt.Errorf("content requires %d chunks but the resulting notes still exceed the %d-token budget for %s", len(chunks), budget, id))
	}

	return r.streamFinal(ctx, id, systemPrompt, merged, maxOutputTokens, book, bus)
}

// streamFinal issues the final (or only) summarization call as a stream,
// merging deltas into the run's SSE bus as they arrive.
func (r *Runner) streamFinal(ctx context.Context, id modelid.ID, systemPrompt, content string, maxOutputTokens *int, book *costbook.Book, bus *streammerge.Bus) (string, error) {
	stream, err := r.deps.LLM.Stream(ctx, id.Provider, id.Name, llmclient.GenerateOptions{
		SystemPrompt:    systemPrompt,
		Prompt:          content,
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var full string
	for {
		chunk, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", err
		}
		full += chunk.Text
		bus.AppendChunk(chunk.Text)
		if chunk.Usage != nil {
			book.RecordCall(costbook.LlmCall{
				Provider: id.Provider, Model: id.Name,
				Usage:   convertUsage(*chunk.Usage),
				Purpose: costbook.PurposeSummary,
			})
		}
	}

	return full, nil
}

func convertUsage(u llmclient.Usage) costbook.Usage {
	return costbook.Usage{Prompt: u.PromptTokens, Completion: u.CompletionTokens, Total: u.TotalTokens}
}

func buildSystemPrompt(req Request, lang langresolve.Resolved) string {
	prompt := req.SystemPrompt
	if prompt == "" {
		prompt = fmt.Sprintf("Summarize the following content at %s length.", firstNonEmptyString(req.Length, "medium"))
	}
	if lang.Label != "" {
		prompt += fmt.Sprintf(" Respond in %s.", lang.Label)
	}
	return prompt
}

func joinNotes(notes []string) string {
	out := ""
	for i, n := range notes {
		if i > 0 {
			out += "\n\n"
		}
		out += n
	}
	return out
}

// normalizeForCache collapses whitespace so two extractions that differ only
// in incidental formatting share a summary cache entry (spec's "normalized
// content" cache key rule).
func normalizeForCache(text string) string {
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}
