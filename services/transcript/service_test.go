package transcript

import (
	"context"
	"fmt"
	"testing"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/JustinPerea/youtube-to-notes-sub002/services/generation"
	"github.com/rs/zerolog"
)

type fakeCaptions struct {
	text string
	err  error
}

func (f *fakeCaptions) Fetch(ctx context.Context, videoID string) (string, error) {
	return f.text, f.err
}

type fakeCaller struct {
	result *generation.Result
	err    error
	calls  int
}

func (f *fakeCaller) Invoke(ctx context.Context, in generation.Input, requiresVideo bool) (*generation.Result, error) {
	f.calls++
	return f.result, f.err
}

var testRef = models.VideoReference{
	URL:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	VideoID: "dQw4w9WgXcQ",
}

func TestAcquirePrefersOfficialCaptions(t *testing.T) {
	captions := &fakeCaptions{text: "hello   world"}
	caller := &fakeCaller{result: &generation.Result{Text: "unused"}}
	svc := NewService(captions, caller, zerolog.Nop())

	result := svc.Acquire(context.Background(), testRef)

	if result.Source != models.SourceOfficialCaptions {
		t.Fatalf("expected official captions, got %s", result.Source)
	}
	if result.Text != "hello world" {
		t.Errorf("expected cleaned text, got %q", result.Text)
	}
	if result.WordCount != 2 {
		t.Errorf("expected word count 2, got %d", result.WordCount)
	}
	if result.Confidence != 0.95 {
		t.Errorf("expected confidence 0.95, got %f", result.Confidence)
	}
	if caller.calls != 0 {
		t.Errorf("generated path must not run when captions exist, got %d calls", caller.calls)
	}
}

func TestAcquireFallsBackToGeneratedAudio(t *testing.T) {
	captions := &fakeCaptions{err: fmt.Errorf("no captions")}
	caller := &fakeCaller{result: &generation.Result{
		Text:  "[00:00] generated transcript",
		Model: "gemini-2.0-flash",
	}}
	svc := NewService(captions, caller, zerolog.Nop())

	result := svc.Acquire(context.Background(), testRef)

	if result.Source != models.SourceGeneratedAudio {
		t.Fatalf("expected generated audio, got %s", result.Source)
	}
	if result.Confidence != 0.7 {
		t.Errorf("expected confidence 0.7, got %f", result.Confidence)
	}
	if !result.Available() {
		t.Error("generated transcript should be available")
	}
}

func TestAcquireReturnsUnavailableWhenEverySourceFails(t *testing.T) {
	captions := &fakeCaptions{err: fmt.Errorf("no captions")}
	caller := &fakeCaller{err: errors.AllModelsExhausted("test", nil, "exhausted")}
	svc := NewService(captions, caller, zerolog.Nop())

	result := svc.Acquire(context.Background(), testRef)

	if result.Source != models.SourceUnavailable {
		t.Fatalf("expected unavailable, got %s", result.Source)
	}
	if result.Available() {
		t.Error("unavailable result must not report available")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "collapses runs of spaces",
			in:   "so  um   this is    a test",
			want: "so um this is a test",
		},
		{
			name: "keeps filler words",
			in:   "um, you know, like, basically",
			want: "um, you know, like, basically",
		},
		{
			name: "normalizes line endings and blank runs",
			in:   "first\r\n\n\n\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "trims surrounding space",
			in:   "  \n padded \n ",
			want: "padded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanText(tt.in); got != tt.want {
				t.Errorf("CleanText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSegments(t *testing.T) {
	text := "[00:00] intro words here\n[00:45] middle part\n[12:30] closing"

	segments := ParseSegments(text)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}

	if segments[0].StartSeconds != 0 || segments[0].EndSeconds != 45 {
		t.Errorf("segment 0 bounds = [%d, %d), want [0, 45)",
			segments[0].StartSeconds, segments[0].EndSeconds)
	}
	if segments[1].StartSeconds != 45 || segments[1].EndSeconds != 750 {
		t.Errorf("segment 1 bounds = [%d, %d), want [45, 750)",
			segments[1].StartSeconds, segments[1].EndSeconds)
	}
	if segments[2].StartSeconds != 750 || segments[2].EndSeconds != 780 {
		t.Errorf("final segment gets default length, got [%d, %d)",
			segments[2].StartSeconds, segments[2].EndSeconds)
	}
	if segments[1].Text != "middle part" {
		t.Errorf("segment 1 text = %q", segments[1].Text)
	}
}

func TestParseSegmentsWithoutMarkers(t *testing.T) {
	if got := ParseSegments("plain text without timestamps"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}
