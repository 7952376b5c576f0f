package anomaly

import (
	"context"
	"errors"
)

// ErrNoPrediction is returned when a classifier produced no probabilities.
var ErrNoPrediction = errors.New("classifier returned no predictions")

// Result holds the per-label probabilities of one inference.
// Label 0 is the anomaly label.
type Result struct {
	Probabilities []float32
	Labels        []string
}

// Classifier runs inference over a feature signal. A non-nil error is the
// classifier's non-success status.
type Classifier interface {
	Classify(ctx context.Context, features Signal) (Result, error)
}

// Limit is an offline classifier that reports the anomaly label when any
// feature exceeds a fixed limit.
type Limit struct {
	Max float32
}

var _ Classifier = Limit{}

// Classify implements Classifier.
func (l Limit) Classify(_ context.Context, features Signal) (Result, error) {
	p := float32(0)
	for _, v := range Slice(features) {
		if v > l.Max {
			p = 1
			break
		}
	}
	return Result{
		Probabilities: []float32{p, 1 - p},
		Labels:        []string{"anomaly", "nominal"},
	}, nil
}
