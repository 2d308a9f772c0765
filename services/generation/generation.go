package generation

import (
	"context"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

// Input is one generation call. VideoURL, when set, asks the backend to
// reason over the video content itself in addition to the prompt.
type Input struct {
	System   string
	Prompt   string
	VideoURL string
}

type Result struct {
	Text  string
	Usage models.TokenUsage
	Model string
}

// Backend is one model in the fallback hierarchy.
type Backend interface {
	Name() string
	SupportsVideo() bool
	Generate(ctx context.Context, in Input) (*Result, error)
}

// Caller is the invocation surface consumed by the orchestrator.
type Caller interface {
	Invoke(ctx context.Context, in Input, requiresVideo bool) (*Result, error)
}

// FailureKind classifies a single model attempt.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureQuota       FailureKind = "quota_exceeded"
	FailureUnsupported FailureKind = "unsupported_input"
	FailureOther       FailureKind = "other"
)

// Attempt is an ordered log entry for one model try. It exists only for
// fallback decision-making and logging and is discarded after the call.
type Attempt struct {
	Model     string
	Succeeded bool
	Failure   FailureKind
}

// estimateTokens approximates a token count for backends that do not
// report usage. Four characters per token is close enough for metering.
func estimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
