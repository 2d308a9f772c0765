package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/generation"
)

// PlanChunks derives the chunk plans for a long video. The [start, end)
// intervals partition [0, duration) exactly, and the transcript is split
// into proportionally sized word-count slices. Proportional is an
// approximation: transcript sources give no exact time-to-word alignment.
func PlanChunks(durationSeconds, chunkSeconds int, transcriptText string) []models.ChunkPlan {
	if durationSeconds <= 0 || chunkSeconds <= 0 {
		return nil
	}

	count := (durationSeconds + chunkSeconds - 1) / chunkSeconds
	words := strings.Fields(transcriptText)

	plans := make([]models.ChunkPlan, 0, count)
	for i := 0; i < count; i++ {
		end := (i + 1) * chunkSeconds
		if end > durationSeconds {
			end = durationSeconds
		}

		slice := ""
		if len(words) > 0 {
			from := i * len(words) / count
			to := (i + 1) * len(words) / count
			slice = strings.Join(words[from:to], " ")
		}

		plans = append(plans, models.ChunkPlan{
			Index:           i,
			StartSeconds:    i * chunkSeconds,
			EndSeconds:      end,
			TranscriptSlice: slice,
		})
	}

	return plans
}

func (s *service) processInChunks(
	ctx context.Context,
	req models.ProcessingRequest,
	meta *models.VideoMetadata,
	tr *models.TranscriptResult,
	method models.ProcessingMethod,
) *models.ProcessingResponse {
	plans := PlanChunks(meta.DurationSeconds, s.config.ChunkSeconds, tr.Text)
	logger := s.logger.With().
		Str("video_id", req.VideoRef.VideoID).
		Int("chunks", len(plans)).
		Logger()
	logger.Info().Msg("Processing long video in chunks")

	base := s.buildPrompt(req, meta, &models.TranscriptResult{Source: models.SourceUnavailable}, method)

	sections := make([]string, 0, len(plans))
	sources := make([]string, 0, len(plans))
	var usage models.TokenUsage
	failures := 0

	// Chunks run strictly sequentially; the limiter enforces the upstream
	// per-minute call budget.
	for i, plan := range plans {
		if ctx.Err() != nil {
			logger.Warn().Int("completed", i).Msg("Cancelled mid-run, returning partial merge")
			break
		}
		if err := s.limiter.Wait(ctx); err != nil {
			logger.Warn().Err(err).Int("completed", i).Msg("Limiter wait aborted, returning partial merge")
			break
		}

		prompt := chunkPrompt(base, plan)
		// A chunk with no transcript slice forces video-only reasoning.
		requiresVideo := method != models.MethodTranscriptOnly || plan.TranscriptSlice == ""

		in := generation.Input{Prompt: prompt}
		if requiresVideo {
			in.VideoURL = req.VideoRef.URL
		}

		result, err := s.invoker.Invoke(ctx, in, requiresVideo)
		if err != nil {
			// One bad chunk must not abort the whole video.
			failures++
			logger.Warn().Err(err).Int("chunk", plan.Index).Msg("Chunk failed, inserting placeholder")
			sections = append(sections, failurePlaceholder(plan))
			sources = append(sources, fmt.Sprintf("chunk %d: failed", plan.Index+1))
		} else {
			usage = usage.Add(result.Usage)
			sections = append(sections, result.Text)
			sources = append(sources, fmt.Sprintf("chunk %d: %s", plan.Index+1, chunkSourceLabel(requiresVideo, plan)))
		}

		s.progress((i+1)*100/len(plans), fmt.Sprintf("Processed part %d of %d", i+1, len(plans)))
	}

	if len(sections) == 0 {
		return failedResponse(method, ctx.Err())
	}
	if failures == len(plans) {
		resp := failedResponse(method, nil)
		resp.Error = "every chunk failed"
		return resp
	}

	return &models.ProcessingResponse{
		Status:          models.StatusCompleted,
		Text:            MergeChunks(meta.Title, len(plans), sections),
		TokenUsage:      usage,
		Method:          method,
		DataSourcesUsed: sources,
	}
}

func chunkPrompt(base string, plan models.ChunkPlan) string {
	var b strings.Builder
	b.WriteString(base)
	fmt.Fprintf(&b, "\n\nFocus only on content between %s and %s of the video.",
		FormatTimestamp(plan.StartSeconds), FormatTimestamp(plan.EndSeconds))
	if plan.TranscriptSlice != "" {
		fmt.Fprintf(&b, "\n\nTranscript for this window:\n%s", plan.TranscriptSlice)
	}
	return b.String()
}

func chunkSourceLabel(requiresVideo bool, plan models.ChunkPlan) string {
	switch {
	case requiresVideo && plan.TranscriptSlice != "":
		return "transcript+video"
	case requiresVideo:
		return "video"
	default:
		return "transcript"
	}
}

func failurePlaceholder(plan models.ChunkPlan) string {
	return fmt.Sprintf("## Part %d (%s to %s)\n\n_Processing failed for this segment._",
		plan.Index+1, FormatTimestamp(plan.StartSeconds), FormatTimestamp(plan.EndSeconds))
}

// MergeChunks joins chunk sections into one document: repeated top-level
// headings are stripped from chunks after the first, and one unified title
// is prepended.
func MergeChunks(videoTitle string, chunkCount int, sections []string) string {
	first := topHeading(sections[0])
	merged := make([]string, 0, len(sections))
	for i, section := range sections {
		if i > 0 && first != "" && topHeading(section) == first {
			section = stripTopHeading(section)
		}
		merged = append(merged, strings.TrimSpace(section))
	}

	title := fmt.Sprintf("# %s (notes in %d parts)", videoTitle, chunkCount)
	return title + "\n\n" + strings.Join(merged, "\n\n---\n\n")
}

func topHeading(section string) string {
	for _, line := range strings.Split(section, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "# ") {
			return line
		}
		return ""
	}
	return ""
}

func stripTopHeading(section string) string {
	lines := strings.Split(section, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") {
			return strings.Join(lines[i+1:], "\n")
		}
		break
	}
	return section
}

// FormatTimestamp renders seconds as MM:SS.
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
