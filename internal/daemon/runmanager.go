package daemon

import "context"

// SubmitJobRequest is the body of POST /v1/summarize.
type SubmitJobRequest struct {
	URL           string  `json:"url"`
	Mode          string  `json:"mode" enum:"url,page"`
	Title         string  `json:"title,omitempty"`
	Text          string  `json:"text,omitempty"`
	Truncated     *bool   `json:"truncated,omitempty"`
	Model         string  `json:"model,omitempty"`
	Length        string  `json:"length,omitempty"`
	Language      string  `json:"language,omitempty"`
	Prompt        string  `json:"prompt,omitempty"`
	MaxCharacters *int    `json:"maxCharacters,omitempty"`
	MaxOutputTokens *int  `json:"maxOutputTokens,omitempty"`
	ExtractOnly   bool    `json:"extractOnly,omitempty"`
}

// SubmitJobResult is returned immediately from POST /v1/summarize; the
// actual summary arrives asynchronously over the run's SSE event stream.
type SubmitJobResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

// RunManager is the daemon's view of the run orchestrator: accept a job,
// and answer snapshot/status queries. Implemented by internal/runner.
type RunManager interface {
	Submit(ctx context.Context, req SubmitJobRequest) (SubmitJobResult, error)
	SlidesManifest(runID string) (any, bool)
	SlideImagePath(sourceID string, index int) (string, error)
}
