package notes

import (
	"fmt"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

// DefaultTemplates returns the built-in output templates, keyed by ID.
// Static templates carry a fixed prompt; parameterized ones build the
// prompt from request context.
func DefaultTemplates() map[string]models.Template {
	templates := []models.Template{
		{
			ID: "basic-summary",
			Prompt: `Create clear, well-structured notes for this video in Markdown.

Start with a single top-level heading naming the video, then cover the key
points in the order they appear. Use short sections with descriptive
subheadings and bullet points for details.`,
		},
		{
			ID: "quick-insights",
			Prompt: `Extract the most important insights from this video as Markdown notes.

Start with a single top-level heading, then list 5-10 takeaways as bullet
points. Each takeaway should stand on its own without watching the video.`,
		},
		{
			ID: "study-notes",
			Build: func(pc models.PromptContext) string {
				depth := "concise"
				if pc.DurationSeconds > 1800 {
					depth = "thorough"
				}
				return fmt.Sprintf(`Create %s study notes for this video in Markdown.

Start with a single top-level heading naming the video. Organize the
material into numbered topics with definitions, examples, and any formulas
or steps shown. End with a short self-test section of 3-5 review questions.`, depth)
			},
		},
	}

	byID := make(map[string]models.Template, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}
	return byID
}
