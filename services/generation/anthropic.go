package generation

import (
	"context"
	"strings"
	"time"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/JustinPerea/youtube-to-notes-sub002/models"
	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"
	"github.com/sirupsen/logrus"
)

// AnthropicConfig configures one text-only Claude model in the hierarchy.
type AnthropicConfig struct {
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
}

type AnthropicBackend struct {
	config AnthropicConfig
	logger *logrus.Logger
}

func NewAnthropicBackend(cfg AnthropicConfig) *AnthropicBackend {
	return &AnthropicBackend{
		config: cfg,
		logger: logrus.StandardLogger(),
	}
}

func (a *AnthropicBackend) Name() string        { return a.config.Model }
func (a *AnthropicBackend) SupportsVideo() bool { return false }

func (a *AnthropicBackend) Generate(ctx context.Context, in Input) (*Result, error) {
	const op = "AnthropicBackend.Generate"

	if in.VideoURL != "" {
		return nil, errors.UnsupportedCapability(op, nil, "model cannot process video payloads")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Internal(op, err, "generation cancelled")
	}

	settings := types.RequestSettings{
		Model:       a.config.Model,
		MaxTokens:   a.config.MaxTokens,
		Temperature: a.config.Temperature,
	}

	start := time.Now()
	response, err := anthropic.PromptWithSettings(in.System, in.Prompt, "", a.config.APIKey, settings)
	if err != nil {
		if isQuotaError(err) {
			return nil, errors.QuotaExceeded(op, err, "model quota exhausted")
		}
		return nil, errors.Internal(op, err, "generation request failed")
	}

	a.logger.WithFields(logrus.Fields{
		"model":       a.config.Model,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Anthropic call completed")

	if len(response.Content) == 0 {
		return nil, errors.Internal(op, nil, "empty response from model")
	}

	text := response.Content[0].Text
	usage := models.TokenUsage{
		InputTokens:  estimateTokens(in.System) + estimateTokens(in.Prompt),
		OutputTokens: estimateTokens(text),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &Result{Text: text, Usage: usage, Model: a.config.Model}, nil
}

// The llmkit client surfaces API failures as opaque errors, so quota
// detection falls back to message matching.
func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "overloaded")
}
