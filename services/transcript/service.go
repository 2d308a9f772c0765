package transcript

import (
	"context"
	"fmt"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/generation"
	"github.com/rs/zerolog"
)

// CaptionSource fetches official captions for a video.
type CaptionSource interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

type Service interface {
	// Acquire obtains the best available transcript for a video.
	// It never fails outright: when every source is exhausted it returns
	// a result with SourceUnavailable so callers can degrade gracefully.
	Acquire(ctx context.Context, ref models.VideoReference) *models.TranscriptResult
}

type service struct {
	captions CaptionSource
	invoker  generation.Caller
	logger   zerolog.Logger
}

func NewService(captions CaptionSource, invoker generation.Caller, logger zerolog.Logger) Service {
	return &service{
		captions: captions,
		invoker:  invoker,
		logger:   logger.With().Str("component", "transcript").Logger(),
	}
}

func (s *service) Acquire(ctx context.Context, ref models.VideoReference) *models.TranscriptResult {
	logger := s.logger.With().Str("video_id", ref.VideoID).Logger()

	// Official captions first. The generated path only runs if this fails.
	text, err := s.captions.Fetch(ctx, ref.VideoID)
	if err == nil && text != "" {
		cleaned := CleanText(text)
		logger.Info().Int("word_count", WordCount(cleaned)).Msg("Using official captions")
		return &models.TranscriptResult{
			Source:     models.SourceOfficialCaptions,
			Text:       cleaned,
			WordCount:  WordCount(cleaned),
			Confidence: 0.95,
		}
	}
	logger.Warn().Err(err).Msg("Official captions unavailable, generating transcript from audio")

	result, err := s.invoker.Invoke(ctx, generation.Input{
		Prompt:   audioTranscriptPrompt(ref.URL),
		VideoURL: ref.URL,
	}, true)
	if err == nil && result.Text != "" {
		cleaned := CleanText(result.Text)
		logger.Info().
			Str("model", result.Model).
			Int("word_count", WordCount(cleaned)).
			Msg("Using generated audio transcript")
		return &models.TranscriptResult{
			Source:     models.SourceGeneratedAudio,
			Text:       cleaned,
			WordCount:  WordCount(cleaned),
			Confidence: 0.7,
		}
	}

	logger.Warn().Err(err).Msg("No transcript source available, proceeding degraded")
	return &models.TranscriptResult{Source: models.SourceUnavailable}
}

// audioTranscriptPrompt asks a video-capable model for a speech-only
// transcript with timestamp markers that ParseSegments understands.
func audioTranscriptPrompt(videoURL string) string {
	return fmt.Sprintf(`Transcribe the spoken audio of this video: %s

Rules:
- Transcribe speech only. Ignore on-screen text, slides, and visuals.
- Keep the speaker's original wording, including filler words.
- Start a new line with a [MM:SS] timestamp marker roughly every 30 seconds
  and at every speaker change.
- Do not summarize, describe, or annotate. Output the transcript only.`, videoURL)
}
