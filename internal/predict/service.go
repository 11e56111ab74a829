package predict

import (
	"context"

	"github.com/kurohana/kurohana/internal/apiclient"
)

// Client is the subset of *apiclient.Client the Service needs.
type Client interface {
	PredictEngine(ctx context.Context, req apiclient.EngineRequest) (*apiclient.EngineResponse, error)
	PredictNaval(ctx context.Context, req apiclient.NavalRequest) (*apiclient.NavalResponse, error)
}

// EngineResult is an engine classification ready for display.
type EngineResult struct {
	Prediction    float64            `json:"prediction"`
	Condition     string             `json:"condition"`
	Probabilities map[string]float64 `json:"probabilities"`
	TopFeatures   []Feature          `json:"top_features"`
}

// NavalResult is a decay estimate ready for display.
type NavalResult struct {
	CompressorDecay float64   `json:"compressor_decay"`
	TurbineDecay    float64   `json:"turbine_decay"`
	CompressorTop   []Feature `json:"compressor_top"`
	TurbineTop      []Feature `json:"turbine_top"`
}

// Service validates form values and forwards them to the prediction service.
type Service struct {
	client Client
}

// NewService returns a Service backed by c.
func NewService(c Client) *Service {
	return &Service{client: c}
}

// Engine validates values against EngineForm and requests a classification.
// A *ValidationError is returned without contacting the service.
func (s *Service) Engine(ctx context.Context, values map[string]string) (*EngineResult, error) {
	req, err := EngineForm.Parse(values)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.PredictEngine(ctx, req)
	if err != nil {
		return nil, err
	}
	return &EngineResult{
		Prediction:    resp.Prediction,
		Condition:     resp.Condition,
		Probabilities: resp.Probabilities,
		TopFeatures:   TopFeatures(resp.FeatureImportance, TopFeaturesN),
	}, nil
}

// Naval validates values against NavalForm and requests a decay estimate.
// A *ValidationError is returned without contacting the service.
func (s *Service) Naval(ctx context.Context, values map[string]string) (*NavalResult, error) {
	req, err := NavalForm.Parse(values)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.PredictNaval(ctx, req)
	if err != nil {
		return nil, err
	}
	return &NavalResult{
		CompressorDecay: resp.Predictions.CompressorDecay,
		TurbineDecay:    resp.Predictions.TurbineDecay,
		CompressorTop:   TopFeatures(resp.FeatureImportance.Compressor, TopFeaturesN),
		TurbineTop:      TopFeatures(resp.FeatureImportance.Turbine, TopFeaturesN),
	}, nil
}
