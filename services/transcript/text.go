package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

const defaultSegmentLength = 30 // seconds, for the unbounded final segment

var (
	whitespacePattern = regexp.MustCompile(`[ \t]+`)
	blankLinesPattern = regexp.MustCompile(`\n{3,}`)
	timestampPattern  = regexp.MustCompile(`\[(\d{1,3}):(\d{2})\]`)
)

// CleanText normalizes whitespace without touching wording. Filler words
// stay in: downstream prompts work better with verbatim speech.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = whitespacePattern.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Segment is a timed slice of a transcript.
type Segment struct {
	StartSeconds int
	EndSeconds   int
	Text         string
}

// ParseSegments splits a transcript on [MM:SS] markers. Each marker starts
// a new segment ending where the next one starts; the final segment gets a
// default 30s length since its true end is unknown.
func ParseSegments(text string) []Segment {
	matches := timestampPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	segments := make([]Segment, 0, len(matches))
	for i, m := range matches {
		minutes, _ := strconv.Atoi(text[m[2]:m[3]])
		seconds, _ := strconv.Atoi(text[m[4]:m[5]])
		start := minutes*60 + seconds

		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}

		segments = append(segments, Segment{
			StartSeconds: start,
			Text:         strings.TrimSpace(text[bodyStart:bodyEnd]),
		})
	}

	for i := range segments {
		if i+1 < len(segments) {
			segments[i].EndSeconds = segments[i+1].StartSeconds
		} else {
			segments[i].EndSeconds = segments[i].StartSeconds + defaultSegmentLength
		}
	}

	return segments
}
