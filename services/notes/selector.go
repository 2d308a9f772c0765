package notes

import (
	"strings"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

// selectMethod picks the processing strategy. Explicit caller modes are
// honored exactly; auto mode reserves the costlier hybrid pass for content
// where visual context plausibly adds value beyond the spoken words.
func (s *service) selectMethod(
	meta *models.VideoMetadata,
	transcriptAvailable bool,
	requested models.ProcessingMode,
) models.ProcessingMethod {
	switch requested {
	case models.ModeHybrid:
		return models.MethodHybrid
	case models.ModeTranscriptOnly:
		return models.MethodTranscriptOnly
	case models.ModeVideoOnly:
		return models.MethodVideoOnly
	}

	if s.wantsHybrid(meta) {
		return models.MethodHybrid
	}
	if transcriptAvailable {
		return models.MethodTranscriptOnly
	}
	return models.MethodVideoOnly
}

func (s *service) wantsHybrid(meta *models.VideoMetadata) bool {
	sel := s.config.Selector
	richnessHigh := meta.ContentRichness == models.RichnessDetailed ||
		meta.ContentRichness == models.RichnessComprehensive

	if hasAnyTag(meta.Tags, sel.EducationalTags) && meta.HasCaptions {
		return true
	}
	if richnessHigh && containsAnyHint(meta.Description, sel.VisualHints) {
		return true
	}
	if meta.DurationSeconds >= sel.MinHybridSeconds &&
		meta.DurationSeconds <= sel.MaxHybridSeconds &&
		meta.HasCaptions && richnessHigh {
		return true
	}
	return false
}

func hasAnyTag(tags, wanted []string) bool {
	for _, tag := range tags {
		tag = strings.ToLower(tag)
		for _, w := range wanted {
			if strings.Contains(tag, w) {
				return true
			}
		}
	}
	return false
}

func containsAnyHint(text string, hints []string) bool {
	text = strings.ToLower(text)
	for _, hint := range hints {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}
