package models

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ProcessingMode is what the caller asked for.
type ProcessingMode string

const (
	ModeAuto           ProcessingMode = "auto"
	ModeHybrid         ProcessingMode = "hybrid"
	ModeTranscriptOnly ProcessingMode = "transcript-only"
	ModeVideoOnly      ProcessingMode = "video-only"
)

// ProcessingMethod is what the orchestrator actually did.
type ProcessingMethod string

const (
	MethodHybrid         ProcessingMethod = "hybrid"
	MethodTranscriptOnly ProcessingMethod = "transcript-only"
	MethodVideoOnly      ProcessingMethod = "video-only"
	MethodFallback       ProcessingMethod = "fallback"
)

type TranscriptSource string

const (
	SourceOfficialCaptions TranscriptSource = "official_captions"
	SourceGeneratedAudio   TranscriptSource = "generated_audio"
	SourceUnavailable      TranscriptSource = "unavailable"
)

type ContentRichness string

const (
	RichnessMinimal       ContentRichness = "minimal"
	RichnessBasic         ContentRichness = "basic"
	RichnessDetailed      ContentRichness = "detailed"
	RichnessComprehensive ContentRichness = "comprehensive"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// ParsePriority maps an API string to a Priority, defaulting to low.
func ParsePriority(s string) Priority {
	switch s {
	case "high":
		return PriorityHigh
	case "medium":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// VideoReference is a validated video URL plus the ID extracted from it.
type VideoReference struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
}

type VideoMetadata struct {
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	DurationSeconds int             `json:"duration_seconds"`
	ChannelName     string          `json:"channel_name,omitempty"`
	Language        string          `json:"language,omitempty"`
	ContentRichness ContentRichness `json:"content_richness"`
	HasCaptions     bool            `json:"has_captions"`
	Tags            []string        `json:"tags,omitempty"`
}

type TranscriptResult struct {
	Source     TranscriptSource `json:"source"`
	Text       string           `json:"text,omitempty"`
	WordCount  int              `json:"word_count"`
	Confidence float64          `json:"confidence"`
}

// Available reports whether any usable transcript text was obtained.
func (t *TranscriptResult) Available() bool {
	return t != nil && t.Source != SourceUnavailable && t.Text != ""
}

type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// PromptContext carries the extra context parameterized templates accept.
type PromptContext struct {
	DurationSeconds    int
	Verbosity          string
	Domain             string
	VideoURL           string
	CustomInstructions string
}

// Template is either a static prompt or a builder that accepts context.
// Resolve is the single dispatch point for both variants.
type Template struct {
	ID     string
	Prompt string
	Build  func(PromptContext) string
}

func (t Template) Resolve(pc PromptContext) string {
	if t.Build != nil {
		return t.Build(pc)
	}
	return t.Prompt
}

// ProcessingRequest is immutable once submitted.
type ProcessingRequest struct {
	VideoRef           VideoReference `json:"video_ref"`
	Template           Template       `json:"-"`
	TemplateID         string         `json:"template_id"`
	CustomInstructions string         `json:"custom_instructions,omitempty"`
	Mode               ProcessingMode `json:"mode"`
}

// Fingerprint identifies logically identical requests for deduplication.
func (r ProcessingRequest) Fingerprint() string {
	return fmt.Sprintf("%s|%s|%s", r.VideoRef.VideoID, r.TemplateID, r.Mode)
}

// ChunkPlan describes one time window of a long-video run.
// [StartSeconds, EndSeconds) intervals partition [0, duration).
type ChunkPlan struct {
	Index           int    `json:"index"`
	StartSeconds    int    `json:"start_seconds"`
	EndSeconds      int    `json:"end_seconds"`
	TranscriptSlice string `json:"-"`
}

type ProcessingResponse struct {
	ID               string           `json:"id"`
	Status           Status           `json:"status"`
	Text             string           `json:"text,omitempty"`
	Error            string           `json:"error,omitempty"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	TokenUsage       TokenUsage       `json:"token_usage"`
	CostCents        float64          `json:"cost_cents"`
	Method           ProcessingMethod `json:"processing_method"`
	DataSourcesUsed  []string         `json:"data_sources_used,omitempty"`
}

func (r *ProcessingResponse) IsCompleted() bool { return r.Status == StatusCompleted }
func (r *ProcessingResponse) IsFailed() bool    { return r.Status == StatusFailed }

// QueueItem is owned by the queue from enqueue until terminal completion
// or retry exhaustion.
type QueueItem struct {
	ID         string            `json:"id"`
	Request    ProcessingRequest `json:"request"`
	Priority   Priority          `json:"priority"`
	CreatedAt  time.Time         `json:"created_at"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// Job is the persisted view of an enqueued request and its outcome,
// kept so queue consumers can poll for status.
type Job struct {
	ID               string           `json:"id"`
	VideoURL         string           `json:"url"`
	VideoID          string           `json:"video_id"`
	TemplateID       string           `json:"template_id"`
	Mode             ProcessingMode   `json:"mode"`
	Fingerprint      string           `json:"-"`
	Priority         Priority         `json:"priority"`
	Status           Status           `json:"status"`
	RetryCount       int              `json:"retry_count"`
	Notes            string           `json:"notes,omitempty"`
	Error            string           `json:"error,omitempty"`
	Method           ProcessingMethod `json:"processing_method,omitempty"`
	TokenTotal       int              `json:"token_total"`
	CostCents        float64          `json:"cost_cents"`
	ProcessingTimeMs int64            `json:"processing_time_ms"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func (j *Job) IsProcessing() bool { return j.Status == StatusProcessing }
func (j *Job) IsCompleted() bool  { return j.Status == StatusCompleted }
func (j *Job) IsFailed() bool     { return j.Status == StatusFailed }

// IsStale checks if the job has been stuck in processing for too long.
func (j *Job) IsStale(timeout time.Duration) bool {
	if j.Status != StatusProcessing {
		return false
	}
	return time.Since(j.UpdatedAt) > timeout
}

// JobResponse represents the API response for a job lookup.
type JobResponse struct {
	ID        string           `json:"id"`
	URL       string           `json:"url"`
	Status    Status           `json:"status"`
	Notes     string           `json:"notes,omitempty"`
	Error     string           `json:"error,omitempty"`
	Method    ProcessingMethod `json:"processing_method,omitempty"`
	CostCents float64          `json:"cost_cents"`
}

// NewJobResponse creates a response from a job model.
func NewJobResponse(j *Job) *JobResponse {
	return &JobResponse{
		ID:        j.ID,
		URL:       j.VideoURL,
		Status:    j.Status,
		Notes:     j.Notes,
		Error:     j.Error,
		Method:    j.Method,
		CostCents: j.CostCents,
	}
}
