package anomaly

import (
	"context"
	"errors"
	"testing"

	"github.com/itohio/fanguard/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClassifier struct {
	mock.Mock
}

func (m *mockClassifier) Classify(_ context.Context, features Signal) (Result, error) {
	args := m.Called(Slice(features))
	return args.Get(0).(Result), args.Error(1)
}

var errInference = errors.New("inference failed")

func TestFeatures_Read(t *testing.T) {
	f := Features{1, 2, 3}
	out := make([]float32, 2)

	f.Read(1, 2, out)
	assert.Equal(t, []float32{2, 3}, out)
	assert.Equal(t, []float32{1, 2, 3}, Slice(&f))
}

func TestFeatures_ReadOutOfRange(t *testing.T) {
	f := Features{1, 2, 3}
	out := make([]float32, 4)

	tests := []struct {
		name           string
		offset, length int
	}{
		{"past end", 2, 2},
		{"too long", 0, 4},
		{"negative offset", -1, 1},
		{"negative length", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { f.Read(tt.offset, tt.length, out) })
		})
	}

	assert.PanicsWithError(t, "feature read [2:4] out of range for 3 features", func() {
		f.Read(2, 2, out)
	})
}

func TestEvaluator_Threshold(t *testing.T) {
	tests := []struct {
		name string
		p0   float32
		want bool
	}{
		{"clearly anomalous", 0.9, true},
		{"clearly nominal", 0.1, false},
		{"exactly at threshold", 0.5, false},
		{"just above", 0.51, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockClassifier)
			m.On("Classify", []float32{0.1, 0.2, 0.3}).
				Return(Result{Probabilities: []float32{tt.p0, 1 - tt.p0}}, nil)

			e := NewEvaluator(m, 0, FailOpen, nil)
			assert.Equal(t, tt.want, e.Evaluate(context.Background(), sample.RMS{0.1, 0.2, 0.3}))
			m.AssertNumberOfCalls(t, "Classify", 1)
		})
	}
}

func TestEvaluator_FailPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy FailPolicy
		result Result
		err    error
		want   bool
	}{
		{"open on error", FailOpen, Result{}, errInference, false},
		{"closed on error", FailClosed, Result{}, errInference, true},
		{"open on empty result", FailOpen, Result{}, nil, false},
		{"closed on empty result", FailClosed, Result{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(mockClassifier)
			m.On("Classify", mock.Anything).Return(tt.result, tt.err)

			e := NewEvaluator(m, 0.5, tt.policy, nil)
			assert.Equal(t, tt.want, e.Evaluate(context.Background(), sample.RMS{1, 1, 1}))
		})
	}
}

func TestParseFailPolicy(t *testing.T) {
	assert.Equal(t, FailClosed, ParseFailPolicy("closed"))
	assert.Equal(t, FailOpen, ParseFailPolicy("open"))
	assert.Equal(t, FailOpen, ParseFailPolicy(""))
	assert.Equal(t, "closed", FailClosed.String())
}

func TestLimit_Classify(t *testing.T) {
	l := Limit{Max: 1.5}

	nominal := Features{0.4, 1.2, 1.5}
	res, err := l.Classify(context.Background(), &nominal)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, res.Probabilities)

	faulty := Features{0.4, 2.0, 0.1}
	res, err = l.Classify(context.Background(), &faulty)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, res.Probabilities)
	assert.Equal(t, "anomaly", res.Labels[0])
}

func TestEvaluator_WithLimit(t *testing.T) {
	e := NewEvaluator(Limit{Max: 1}, 0.5, FailOpen, nil)
	assert.False(t, e.Evaluate(context.Background(), sample.RMS{0.5, 0.5, 0.5}))
	assert.True(t, e.Evaluate(context.Background(), sample.RMS{0.5, 3, 0.5}))
}
