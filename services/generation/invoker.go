package generation

import (
	"context"

	"github.com/JustinPerea/youtube-to-notes-sub002/errors"
	"github.com/rs/zerolog"
)

// Invoker tries an ordered list of backends until one succeeds.
// Quota and capability failures on one model are absorbed and the next
// model is tried; only total exhaustion is surfaced.
type Invoker struct {
	backends []Backend
	logger   zerolog.Logger
}

func NewInvoker(backends []Backend, logger zerolog.Logger) *Invoker {
	return &Invoker{
		backends: backends,
		logger:   logger.With().Str("component", "invoker").Logger(),
	}
}

// Models returns the hierarchy in preference order.
func (inv *Invoker) Models() []string {
	names := make([]string, 0, len(inv.backends))
	for _, b := range inv.backends {
		names = append(names, b.Name())
	}
	return names
}

func (inv *Invoker) Invoke(ctx context.Context, in Input, requiresVideo bool) (*Result, error) {
	const op = "Invoker.Invoke"

	attempts := make([]Attempt, 0, len(inv.backends))
	for _, backend := range inv.backends {
		if requiresVideo && !backend.SupportsVideo() {
			inv.logger.Debug().
				Str("model", backend.Name()).
				Msg("Skipping model without video support")
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, errors.Internal(op, err, "generation cancelled")
		}

		result, err := backend.Generate(ctx, in)
		if err == nil {
			attempts = append(attempts, Attempt{Model: backend.Name(), Succeeded: true})
			inv.logger.Info().
				Str("model", backend.Name()).
				Int("attempts", len(attempts)).
				Msg("Generation succeeded")
			result.Model = backend.Name()
			return result, nil
		}

		attempt := Attempt{Model: backend.Name(), Failure: classify(err)}
		attempts = append(attempts, attempt)

		switch attempt.Failure {
		case FailureQuota:
			inv.logger.Warn().
				Str("model", backend.Name()).
				Msg("Model quota exhausted, trying next model")
		case FailureUnsupported:
			inv.logger.Info().
				Str("model", backend.Name()).
				Msg("Model cannot process payload, trying next model")
		default:
			inv.logger.Warn().
				Err(err).
				Str("model", backend.Name()).
				Msg("Model call failed, trying next model")
		}
	}

	inv.logger.Error().
		Int("models_tried", len(attempts)).
		Msg("All models in hierarchy failed")
	return nil, errors.AllModelsExhausted(op, nil, "every model in the hierarchy failed")
}

func classify(err error) FailureKind {
	switch errors.KindOf(err) {
	case errors.KindQuotaExceeded:
		return FailureQuota
	case errors.KindUnsupportedCapability:
		return FailureUnsupported
	default:
		return FailureOther
	}
}
