package anomaly

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
)

// EndpointInvoker is the subset of the SageMaker runtime client used here.
type EndpointInvoker interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

type sageMakerRequest struct {
	Instances []sageMakerInstance `json:"instances"`
}

type sageMakerInstance struct {
	Features []float32 `json:"features"`
}

type sageMakerResponse struct {
	Predictions []struct {
		Probabilities []float32 `json:"probabilities"`
		Labels        []string  `json:"labels"`
	} `json:"predictions"`
}

// SageMaker classifies features with a hosted inference endpoint.
type SageMaker struct {
	client      EndpointInvoker
	endpoint    string
	contentType string
	timeout     time.Duration
}

var _ Classifier = (*SageMaker)(nil)

// NewSageMaker creates a classifier using the default AWS credential chain.
func NewSageMaker(ctx context.Context, endpoint, region, contentType string, timeout time.Duration) (*SageMaker, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSageMakerWithClient(sagemakerruntime.NewFromConfig(cfg), endpoint, contentType, timeout), nil
}

// NewSageMakerWithClient creates a classifier on an existing runtime client.
func NewSageMakerWithClient(client EndpointInvoker, endpoint, contentType string, timeout time.Duration) *SageMaker {
	if contentType == "" {
		contentType = "application/json"
	}
	return &SageMaker{
		client:      client,
		endpoint:    endpoint,
		contentType: contentType,
		timeout:     timeout,
	}
}

// Classify implements Classifier.
func (s *SageMaker) Classify(ctx context.Context, features Signal) (Result, error) {
	body, err := json.Marshal(sageMakerRequest{
		Instances: []sageMakerInstance{{Features: Slice(features)}},
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode features: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	out, err := s.client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(s.endpoint),
		Body:         body,
		ContentType:  aws.String(s.contentType),
		Accept:       aws.String("application/json"),
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to invoke endpoint %s: %w", s.endpoint, err)
	}

	var resp sageMakerResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return Result{}, fmt.Errorf("failed to parse endpoint response: %w", err)
	}
	if len(resp.Predictions) == 0 || len(resp.Predictions[0].Probabilities) == 0 {
		return Result{}, ErrNoPrediction
	}

	return Result{
		Probabilities: resp.Predictions[0].Probabilities,
		Labels:        resp.Predictions[0].Labels,
	}, nil
}
