package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/sirupsen/logrus"
)

// GeminiConfig configures one video-capable model served over the
// generativelanguage REST API.
type GeminiConfig struct {
	Model       string
	APIBase     string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type GeminiBackend struct {
	config GeminiConfig
	client *http.Client
	logger *logrus.Logger
}

func NewGeminiBackend(cfg GeminiConfig) *GeminiBackend {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &GeminiBackend{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logrus.StandardLogger(),
	}
}

func (g *GeminiBackend) Name() string        { return g.config.Model }
func (g *GeminiBackend) SupportsVideo() bool { return true }

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	FileURI string `json:"file_uri"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (g *GeminiBackend) Generate(ctx context.Context, in Input) (*Result, error) {
	const op = "GeminiBackend.Generate"

	parts := []geminiPart{{Text: in.Prompt}}
	if in.VideoURL != "" {
		parts = append(parts, geminiPart{FileData: &geminiFileData{FileURI: in.VideoURL}})
	}

	reqBody := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if in.System != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: in.System}}}
	}
	reqBody.GenerationConfig.MaxOutputTokens = g.config.MaxTokens
	reqBody.GenerationConfig.Temperature = g.config.Temperature

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to encode request")
	}

	url := fmt.Sprintf(
		"%s/models/%s:generateContent",
		strings.TrimRight(g.config.APIBase, "/"),
		g.config.Model,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Internal(op, err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Internal(op, err, "generation request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Internal(op, err, "failed to read response")
	}

	g.logger.WithFields(logrus.Fields{
		"model":       g.config.Model,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Gemini call completed")

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Internal(op, err, "failed to decode response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, g.classifyHTTPError(op, resp.StatusCode, parsed.Error.Message, in.VideoURL != "")
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, errors.Internal(op, nil, "empty response from model")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	usage := models.TokenUsage{
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  parsed.UsageMetadata.TotalTokenCount,
	}
	if usage.TotalTokens == 0 {
		usage.InputTokens = estimateTokens(in.Prompt)
		usage.OutputTokens = estimateTokens(text.String())
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	}

	return &Result{Text: text.String(), Usage: usage, Model: g.config.Model}, nil
}

func (g *GeminiBackend) classifyHTTPError(op string, status int, message string, hasVideo bool) error {
	switch {
	case status == http.StatusTooManyRequests:
		return errors.QuotaExceeded(op, nil, message)
	case status == http.StatusBadRequest && hasVideo:
		// The API rejects video payloads it cannot ingest with 400s.
		return errors.UnsupportedCapability(op, nil, message)
	default:
		return errors.Internal(op, nil, fmt.Sprintf("model returned status %d: %s", status, message))
	}
}
