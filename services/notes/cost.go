package notes

import (
	"math"

	"github.com/JustinPerea/youtube-to-notes-sub002/models"
)

// CostEstimator converts token counts into a cost estimate for reporting.
// It is a pure function of its inputs and is never used for billing
// enforcement.
type CostEstimator struct {
	inputCentsPer1K  float64
	outputCentsPer1K float64
}

func NewCostEstimator(inputCentsPer1K, outputCentsPer1K float64) *CostEstimator {
	return &CostEstimator{
		inputCentsPer1K:  inputCentsPer1K,
		outputCentsPer1K: outputCentsPer1K,
	}
}

// Estimate returns the cost in cents for a run. The input/output split
// varies by method: hybrid carries the most context and skews input-heavy.
func (e *CostEstimator) Estimate(totalTokens int, method models.ProcessingMethod) float64 {
	inputRatio, outputRatio := tokenSplit(method)
	tokens := float64(totalTokens)

	cost := tokens*inputRatio/1000*e.inputCentsPer1K +
		tokens*outputRatio/1000*e.outputCentsPer1K
	return math.Round(cost*10000) / 10000
}

func tokenSplit(method models.ProcessingMethod) (input, output float64) {
	switch method {
	case models.MethodHybrid:
		return 0.8, 0.2
	case models.MethodVideoOnly:
		return 0.6, 0.4
	default:
		return 0.7, 0.3
	}
}
