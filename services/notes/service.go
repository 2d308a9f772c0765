package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/generation"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/transcript"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// MetadataSource fetches video metadata from the upstream collaborator.
type MetadataSource interface {
	Metadata(ctx context.Context, ref models.VideoReference) (*models.VideoMetadata, error)
}

// ProgressFunc receives fire-and-forget progress notifications.
type ProgressFunc func(percent int, message string)

type SelectorConfig struct {
	EducationalTags  []string
	VisualHints      []string
	MinHybridSeconds int
	MaxHybridSeconds int
}

type Config struct {
	// ChunkSeconds is the fixed chunk width for long videos.
	ChunkSeconds int
	// LongVideoSeconds triggers chunked processing when exceeded.
	LongVideoSeconds int
	// ProcessTimeout bounds one request end to end.
	ProcessTimeout time.Duration
	Selector       SelectorConfig
}

type Service interface {
	// ProcessVideo turns a video into notes. Identical concurrent requests
	// share a single underlying computation. Failures that exhaust every
	// option come back as a failed response, not an error.
	ProcessVideo(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error)

	// HealthCheck confirms the generation backend is reachable.
	HealthCheck(ctx context.Context) error
}

type service struct {
	meta        MetadataSource
	transcripts transcript.Service
	invoker     generation.Caller
	limiter     *rate.Limiter
	estimator   *CostEstimator
	progress    ProgressFunc
	group       singleflight.Group
	config      Config
	logger      zerolog.Logger
}

func NewService(
	meta MetadataSource,
	transcripts transcript.Service,
	invoker generation.Caller,
	limiter *rate.Limiter,
	estimator *CostEstimator,
	progress ProgressFunc,
	config Config,
	logger zerolog.Logger,
) Service {
	if progress == nil {
		progress = func(int, string) {}
	}
	return &service{
		meta:        meta,
		transcripts: transcripts,
		invoker:     invoker,
		limiter:     limiter,
		estimator:   estimator,
		progress:    progress,
		config:      config,
		logger:      logger.With().Str("component", "notes").Logger(),
	}
}

func (s *service) ProcessVideo(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error) {
	const op = "NotesService.ProcessVideo"

	if req.VideoRef.URL == "" || req.VideoRef.VideoID == "" {
		return nil, errors.InvalidInput(op, nil, "a validated video reference is required")
	}
	if req.TemplateID == "" {
		return nil, errors.InvalidInput(op, nil, "a template is required")
	}

	fingerprint := req.Fingerprint()
	v, err, shared := s.group.Do(fingerprint, func() (interface{}, error) {
		return s.process(ctx, req), nil
	})
	if err != nil {
		return nil, errors.Internal(op, err, "processing failed")
	}
	if shared {
		s.logger.Info().
			Str("fingerprint", fingerprint).
			Msg("Attached to in-flight computation")
	}

	return v.(*models.ProcessingResponse), nil
}

func (s *service) HealthCheck(ctx context.Context) error {
	_, err := s.invoker.Invoke(ctx, generation.Input{
		Prompt: "Reply with the single word: ok",
	}, false)
	return err
}

func (s *service) process(ctx context.Context, req models.ProcessingRequest) *models.ProcessingResponse {
	start := time.Now()
	logger := s.logger.With().
		Str("video_id", req.VideoRef.VideoID).
		Str("template", req.TemplateID).
		Str("mode", string(req.Mode)).
		Logger()
	logger.Info().Msg("Starting processing run")

	ctx, cancel := context.WithTimeout(ctx, s.config.ProcessTimeout)
	defer cancel()

	meta, err := s.meta.Metadata(ctx, req.VideoRef)
	if err != nil || meta == nil {
		logger.Warn().Err(err).Msg("Metadata unavailable, proceeding with defaults")
		meta = &models.VideoMetadata{
			Title:           req.VideoRef.URL,
			ContentRichness: models.RichnessBasic,
		}
	}

	tr := s.transcripts.Acquire(ctx, req.VideoRef)
	method := s.selectMethod(meta, tr.Available(), req.Mode)
	logger.Info().
		Str("method", string(method)).
		Str("transcript_source", string(tr.Source)).
		Int("duration_seconds", meta.DurationSeconds).
		Msg("Selected processing strategy")

	var resp *models.ProcessingResponse
	if meta.DurationSeconds > s.config.LongVideoSeconds {
		resp = s.processInChunks(ctx, req, meta, tr, method)
	} else {
		resp = s.processSingle(ctx, req, meta, tr, method)
	}

	resp.ID = uuid.New().String()
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	resp.CostCents = s.estimator.Estimate(resp.TokenUsage.TotalTokens, resp.Method)

	logger.Info().
		Str("status", string(resp.Status)).
		Str("method", string(resp.Method)).
		Int("tokens", resp.TokenUsage.TotalTokens).
		Int64("duration_ms", resp.ProcessingTimeMs).
		Msg("Processing run finished")
	return resp
}

func (s *service) processSingle(
	ctx context.Context,
	req models.ProcessingRequest,
	meta *models.VideoMetadata,
	tr *models.TranscriptResult,
	method models.ProcessingMethod,
) *models.ProcessingResponse {
	prompt := s.buildPrompt(req, meta, tr, method)
	requiresVideo := method != models.MethodTranscriptOnly

	in := generation.Input{Prompt: prompt}
	if requiresVideo {
		in.VideoURL = req.VideoRef.URL
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return failedResponse(method, err)
	}

	result, err := s.invoker.Invoke(ctx, in, requiresVideo)
	if err != nil && requiresVideo && tr.Available() {
		// Video-capable models are all down; a transcript-only pass is
		// still better than nothing.
		s.logger.Warn().Err(err).Msg("Video path exhausted, falling back to transcript-only pass")
		fallbackPrompt := s.buildPrompt(req, meta, tr, models.MethodTranscriptOnly)
		result, err = s.invoker.Invoke(ctx, generation.Input{Prompt: fallbackPrompt}, false)
		method = models.MethodFallback
	}
	if err != nil {
		return failedResponse(method, err)
	}

	s.progress(100, "Notes generated")

	return &models.ProcessingResponse{
		Status:          models.StatusCompleted,
		Text:            result.Text,
		TokenUsage:      result.Usage,
		Method:          method,
		DataSourcesUsed: dataSources(method, tr),
	}
}

func (s *service) buildPrompt(
	req models.ProcessingRequest,
	meta *models.VideoMetadata,
	tr *models.TranscriptResult,
	method models.ProcessingMethod,
) string {
	base := req.Template.Resolve(models.PromptContext{
		DurationSeconds:    meta.DurationSeconds,
		VideoURL:           req.VideoRef.URL,
		CustomInstructions: req.CustomInstructions,
	})

	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "\n\nVideo title: %s", meta.Title)
	if req.CustomInstructions != "" {
		fmt.Fprintf(&b, "\n\nAdditional instructions from the user:\n%s", req.CustomInstructions)
	}
	if method != models.MethodVideoOnly && tr.Available() {
		fmt.Fprintf(&b, "\n\nTranscript:\n%s", tr.Text)
	}
	if method == models.MethodHybrid {
		b.WriteString("\n\nCombine the transcript with what is shown on screen; " +
			"include visual details the transcript alone would miss.")
	}
	if !tr.Available() {
		b.WriteString("\n\nNo transcript is available. Work from the video content alone.")
	}
	return b.String()
}

func dataSources(method models.ProcessingMethod, tr *models.TranscriptResult) []string {
	var sources []string
	if method != models.MethodVideoOnly && tr.Available() {
		sources = append(sources, "transcript:"+string(tr.Source))
	}
	if method == models.MethodHybrid || method == models.MethodVideoOnly {
		sources = append(sources, "video")
	}
	return sources
}

func failedResponse(method models.ProcessingMethod, err error) *models.ProcessingResponse {
	message := "processing aborted"
	if err != nil {
		message = err.Error()
	}
	return &models.ProcessingResponse{
		Status: models.StatusFailed,
		Error:  message,
		Method: method,
	}
}
