package models

// RunStatus is the lifecycle state of a summarization run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusExtracting RunStatus = "extracting"
	RunStatusSlides     RunStatus = "slides"
	RunStatusSummarizing RunStatus = "summarizing"
	RunStatusDone       RunStatus = "done"
	RunStatusFailed     RunStatus = "failed"
)

// Run is one invocation of the summarization pipeline, tracked so the daemon
// can report progress and history across process restarts.
type Run struct {
	BaseModel
	SourceURL    string    `gorm:"index" json:"source_url"`
	ModelID      string    `json:"model_id"`
	Length       string    `json:"length"`
	Language     string    `json:"language"`
	Status       RunStatus `gorm:"index" json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	SummaryText  string    `gorm:"type:text" json:"summary_text,omitempty"`

	PromptTokens     *int64 `json:"prompt_tokens,omitempty"`
	CompletionTokens *int64 `json:"completion_tokens,omitempty"`
	CostUSD          *float64 `json:"cost_usd,omitempty"`
}

// TranscriptCacheEntry stores an extracted transcript/article body keyed by
// the canonicalized source URL, so repeat runs skip extraction entirely.
type TranscriptCacheEntry struct {
	BaseModel
	URLHash   string `gorm:"uniqueIndex;size:64" json:"url_hash"`
	SourceURL string `json:"source_url"`
	Kind      string `json:"kind"` // website | youtube | asset
	Text      string `gorm:"type:text" json:"text"`
	ExpiresAt Time   `json:"expires_at"`
}

// ContentCacheEntry stores intermediate normalized content (e.g. markdown
// rendered from HTML) keyed by a hash of the transcript plus the render
// options that produced it.
type ContentCacheEntry struct {
	BaseModel
	ContentHash string `gorm:"uniqueIndex;size:64" json:"content_hash"`
	Text        string `gorm:"type:text" json:"text"`
	ExpiresAt   Time   `json:"expires_at"`
}

// SummaryCacheEntry stores a finished summary keyed by a hash of every input
// that can change its output: transcript hash, model ID, length, language.
type SummaryCacheEntry struct {
	BaseModel
	CacheKey  string `gorm:"uniqueIndex;size:64" json:"cache_key"`
	RunID     ULID   `json:"run_id"`
	Text      string `gorm:"type:text" json:"text"`
	ExpiresAt Time   `json:"expires_at"`
}

// SlideManifest records the slides extracted for a run, so a repeat run
// against the same video (and the daemon's static slide server) can reuse
// them without re-running ffmpeg.
type SlideManifest struct {
	BaseModel
	RunID     ULID   `gorm:"index" json:"run_id"`
	VideoHash string `gorm:"uniqueIndex;size:64" json:"video_hash"`
	Dir       string `json:"dir"`
	Count     int    `json:"count"`
	ExpiresAt Time   `json:"expires_at"`
}
