package generation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
)

func geminiHandler(t *testing.T, status int, body map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func newGemini(serverURL string) *GeminiBackend {
	return NewGeminiBackend(GeminiConfig{
		Model:     "gemini-2.0-flash",
		APIBase:   serverURL,
		APIKey:    "test-key",
		MaxTokens: 1024,
	})
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(geminiHandler(t, http.StatusOK, map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": "# Notes\n\n"}, {"text": "content"}},
			}},
		},
		"usageMetadata": map[string]int{
			"promptTokenCount":     120,
			"candidatesTokenCount": 80,
			"totalTokenCount":      200,
		},
	}))
	defer server.Close()

	result, err := newGemini(server.URL).Generate(context.Background(), Input{Prompt: "summarize"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text != "# Notes\n\ncontent" {
		t.Errorf("parts should concatenate, got %q", result.Text)
	}
	if result.Usage.TotalTokens != 200 {
		t.Errorf("usage = %+v, want reported counts", result.Usage)
	}
	if result.Model != "gemini-2.0-flash" {
		t.Errorf("model = %q", result.Model)
	}
}

func TestGeminiEstimatesUsageWhenUnreported(t *testing.T) {
	server := httptest.NewServer(geminiHandler(t, http.StatusOK, map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": "12345678"}},
			}},
		},
	}))
	defer server.Close()

	result, err := newGemini(server.URL).Generate(context.Background(), Input{Prompt: "abcd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 4 prompt chars and 8 output chars at 4 chars per token.
	if result.Usage.TotalTokens != 3 {
		t.Errorf("estimated total = %d, want 3", result.Usage.TotalTokens)
	}
}

func TestGeminiClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		videoURL string
		wantKind errors.Kind
	}{
		{
			name:     "rate limited",
			status:   http.StatusTooManyRequests,
			wantKind: errors.KindQuotaExceeded,
		},
		{
			name:     "video payload rejected",
			status:   http.StatusBadRequest,
			videoURL: "https://youtu.be/dQw4w9WgXcQ",
			wantKind: errors.KindUnsupportedCapability,
		},
		{
			name:     "bad request without video",
			status:   http.StatusBadRequest,
			wantKind: errors.KindInternal,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			wantKind: errors.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(geminiHandler(t, tt.status, map[string]interface{}{
				"error": map[string]interface{}{"code": tt.status, "message": "upstream says no"},
			}))
			defer server.Close()

			_, err := newGemini(server.URL).Generate(context.Background(), Input{
				Prompt:   "summarize",
				VideoURL: tt.videoURL,
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %s, want %s", got, tt.wantKind)
			}
		})
	}
}

func TestGeminiRejectsEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(geminiHandler(t, http.StatusOK, map[string]interface{}{
		"candidates": []map[string]interface{}{},
	}))
	defer server.Close()

	if _, err := newGemini(server.URL).Generate(context.Background(), Input{Prompt: "x"}); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestAnthropicRejectsVideoInput(t *testing.T) {
	backend := NewAnthropicBackend(AnthropicConfig{Model: "claude-3-5-haiku-20241022"})

	_, err := backend.Generate(context.Background(), Input{
		Prompt:   "summarize",
		VideoURL: "https://youtu.be/dQw4w9WgXcQ",
	})
	if !errors.IsKind(err, errors.KindUnsupportedCapability) {
		t.Errorf("expected unsupported-capability, got %v", err)
	}
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want bool
	}{
		{name: "http 429", msg: "API error 429", want: true},
		{name: "rate limit text", msg: "Rate limit exceeded", want: true},
		{name: "overloaded", msg: "server overloaded_error", want: true},
		{name: "unrelated failure", msg: "connection reset", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &testError{msg: tt.msg}
			if got := isQuotaError(err); got != tt.want {
				t.Errorf("isQuotaError(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
