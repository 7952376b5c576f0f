// Package anomaly decides whether an RMS window is anomalous by submitting
// it to a classifier.
package anomaly

import (
	"context"
	"log/slog"

	"github.com/itohio/fanguard/pkg/sample"
)

// DefaultThreshold is the probability of label 0 above which a window is anomalous.
const DefaultThreshold = 0.5

// FailPolicy decides the outcome of a window whose inference failed.
type FailPolicy int

const (
	// FailOpen treats a failed inference as non-anomalous.
	FailOpen FailPolicy = iota
	// FailClosed treats a failed inference as anomalous.
	FailClosed
)

func (p FailPolicy) String() string {
	if p == FailClosed {
		return "closed"
	}
	return "open"
}

// ParseFailPolicy maps a configuration value to a FailPolicy. Anything but
// "closed" is FailOpen.
func ParseFailPolicy(s string) FailPolicy {
	if s == "closed" {
		return FailClosed
	}
	return FailOpen
}

// Evaluator applies the decision threshold to classifier output.
type Evaluator struct {
	classifier Classifier
	threshold  float32
	policy     FailPolicy
	logger     *slog.Logger
}

// NewEvaluator creates an evaluator. A zero threshold selects DefaultThreshold.
func NewEvaluator(c Classifier, threshold float64, policy FailPolicy, logger *slog.Logger) *Evaluator {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{
		classifier: c,
		threshold:  float32(threshold),
		policy:     policy,
		logger:     logger,
	}
}

// Evaluate reports whether the window is anomalous.
func (e *Evaluator) Evaluate(ctx context.Context, rms sample.RMS) bool {
	features := Features(rms)
	e.logger.Debug("model input", "x", rms[0], "y", rms[1], "z", rms[2])

	res, err := e.classifier.Classify(ctx, &features)
	if err == nil && len(res.Probabilities) == 0 {
		err = ErrNoPrediction
	}
	if err != nil {
		anomalous := e.policy == FailClosed
		e.logger.Error("classifier failed", "error", err, "policy", e.policy.String(), "anomaly", anomalous)
		return anomalous
	}

	for i, p := range res.Probabilities {
		label := ""
		if i < len(res.Labels) {
			label = res.Labels[i]
		}
		e.logger.Debug("prediction", "index", i, "label", label, "probability", p)
	}

	return res.Probabilities[0] > e.threshold
}
