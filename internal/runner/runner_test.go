package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/summarize/internal/database/migrations"
	"github.com/jmylchreest/summarize/internal/extractor"
	"github.com/jmylchreest/summarize/internal/llmclient"
	"github.com/jmylchreest/summarize/internal/metacache"
	"github.com/jmylchreest/summarize/internal/modelid"
	"github.com/jmylchreest/summarize/internal/models"
	"github.com/jmylchreest/summarize/internal/streammerge"
	"github.com/jmylchreest/summarize/internal/urlutil"
	"github.com/jmylchreest/summarize/pkg/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeModel struct {
	text   string
	budget int
	err    error
}

func (f *fakeModel) Provider() string      { return "fake" }
func (f *fakeModel) ModelID() string       { return "model" }
func (f *fakeModel) InputTokenBudget() int { return f.budget }

func (f *fakeModel) DoGenerate(_ context.Context, _ llmclient.GenerateOptions) (*llmclient.GenerateResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llmclient.GenerateResult{Text: f.text}, nil
}

func (f *fakeModel) DoStream(_ context.Context, _ llmclient.GenerateOptions) (llmclient.TextStream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{chunks: []llmclient.StreamChunk{{Text: f.text}}}, nil
}

type fakeStream struct {
	chunks []llmclient.StreamChunk
	i      int
}

func (s *fakeStream) Next() (llmclient.StreamChunk, error) {
	if s.i >= len(s.chunks) {
		return llmclient.StreamChunk{}, io.EOF
	}
	c := s.chunks[s.i]
	s.i++
	return c, nil
}

func (s *fakeStream) Close() error { return nil }

type fakeProvider struct {
	model *fakeModel
}

func (p *fakeProvider) Name() string         { return "fake" }
func (p *fakeProvider) HasCredentials() bool { return true }
func (p *fakeProvider) LanguageModel(_ string) (llmclient.LanguageModel, error) {
	return p.model, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	migrator := migrations.NewMigrator(db, nil)
	migrator.RegisterAll(migrations.All())
	require.NoError(t, migrator.Up(context.Background()))
	return db
}

func newTestRunner(t *testing.T, model *fakeModel) (*Runner, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)

	llm := llmclient.NewClient()
	llm.Register(&fakeProvider{model: model})

	registry := modelid.NewRegistry(llm.HasCredentials)

	fetcher := urlutil.NewResourceFetcher(httpclient.DefaultConfig())

	deps := Dependencies{
		Extractor:   extractor.New(fetcher),
		LLM:         llm,
		Models:      registry,
		Runs:        metacache.NewRunRepository(db),
		Transcripts: metacache.NewTranscriptCache(db, time.Hour),
		Contents:    metacache.NewContentCache(db, time.Hour),
		Summaries:   metacache.NewSummaryCache(db, time.Hour),
		Buses:       streammerge.NewRegistry(),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return New(deps), db
}

func writeTestPage(t *testing.T, text string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	body := "<html><head><title>T</title></head><body><p>" + text + "</p></body></html>"
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return "file://" + path
}

func TestRunner_Run_ExtractOnlySkipsSummary(t *testing.T) {
	r, _ := newTestRunner(t, &fakeModel{text: "should not be called", budget: 100_000})
	url := writeTestPage(t, "hello there, this is the article body")

	res, err := r.Run(context.Background(), Request{
		RunID:       models.NewULID(),
		URL:         url,
		ModelPreset: "fake/model",
		ExtractOnly: true,
	})
	require.NoError(t, err)
	assert.Contains(t, res.ExtractedText, "hello there")
	assert.Empty(t, res.SummaryText)
}

func TestRunner_Run_FullFlowProducesSummary(t *testing.T) {
	r, db := newTestRunner(t, &fakeModel{text: "a tidy summary", budget: 100_000})
	url := writeTestPage(t, "hello there, this is the article body")

	runID := models.NewULID()
	res, err := r.Run(context.Background(), Request{
		RunID:       runID,
		URL:         url,
		ModelPreset: "fake/model",
		Length:      "short",
	})
	require.NoError(t, err)
	assert.Equal(t, "a tidy summary", res.SummaryText)

	repo := metacache.NewRunRepository(db)
	run, err := repo.GetByID(context.Background(), runID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RunStatusDone, run.Status)
	assert.Equal(t, "a tidy summary", run.SummaryText)
}

func TestRunner_Run_EmptySummaryTwiceFails(t *testing.T) {
	r, _ := newTestRunner(t, &fakeModel{text: "   ", budget: 100_000})
	url := writeTestPage(t, "hello there, this is the article body")

	_, err := r.Run(context.Background(), Request{
		RunID:       models.NewULID(),
		URL:         url,
		ModelPreset: "fake/model",
	})
	require.Error(t, err)
}

func TestRunner_Run_SummaryCacheHitSkipsModel(t *testing.T) {
	r, _ := newTestRunner(t, &fakeModel{text: "first summary", budget: 100_000})
	url := writeTestPage(t, "identical content for caching purposes")

	_, err := r.Run(context.Background(), Request{
		RunID:       models.NewULID(),
		URL:         url,
		ModelPreset: "fake/model",
	})
	require.NoError(t, err)

	// A second run with a model that errors must still succeed, since the
	// normalized content + model + length + language key is already cached.
	r2, _ := newTestRunner(t, &fakeModel{err: errors.New("should not be called")})
	r2.deps.Summaries = r.deps.Summaries
	res, err := r2.Run(context.Background(), Request{
		RunID:       models.NewULID(),
		URL:         url,
		ModelPreset: "fake/model",
	})
	require.NoError(t, err)
	assert.Equal(t, "first summary", res.SummaryText)
}

func TestChunkText_SplitsOversizedContent(t *testing.T) {
	text := "para one is here.\n\npara two is here.\n\npara three is here."
	chunks := chunkText(text, 20)
	require.True(t, len(chunks) > 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 20+len("para three is here."))
	}
}

func TestChunkText_FitsInSingleChunk(t *testing.T) {
	chunks := chunkText("short text", 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestEstimateTokens_RoughlyFourCharsPerToken(t *testing.T) {
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}
