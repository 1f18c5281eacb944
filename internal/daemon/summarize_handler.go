package daemon

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// SummarizeHandler handles job submission.
type SummarizeHandler struct {
	runs RunManager
}

// NewSummarizeHandler creates a new summarize handler.
func NewSummarizeHandler(runs RunManager) *SummarizeHandler {
	return &SummarizeHandler{runs: runs}
}

// Register registers the /v1/summarize routes with the Huma API.
func (h *SummarizeHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "submitSummarize",
		Method:      "POST",
		Path:        "/v1/summarize",
		Summary:     "Submit a summarization job",
		Description: "Accepts a job and returns its run ID immediately; progress and the final summary are delivered over the run's SSE event stream.",
		Tags:        []string{"Summarize"},
	}, h.Submit)
}

// SubmitInput is the request body for POST /v1/summarize.
type SubmitInput struct {
	Body SubmitJobRequest
}

// SubmitOutput is the response body for POST /v1/summarize.
type SubmitOutput struct {
	Body SubmitJobResult
}

// Submit accepts a job. extractOnly is only valid when mode=url.
func (h *SummarizeHandler) Submit(ctx context.Context, input *SubmitInput) (*SubmitOutput, error) {
	if input.Body.ExtractOnly && input.Body.Mode != "url" {
		return nil, huma.Error400BadRequest("extractOnly is only valid when mode=url")
	}

	result, err := h.runs.Submit(ctx, input.Body)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to submit job", err)
	}

	return &SubmitOutput{Body: result}, nil
}
