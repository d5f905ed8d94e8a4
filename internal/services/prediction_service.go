package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/irfndi/electricity-price-prediction/internal/logging"
	"github.com/irfndi/electricity-price-prediction/internal/metrics"
	"github.com/irfndi/electricity-price-prediction/internal/models"
	"github.com/irfndi/electricity-price-prediction/internal/utils"
)

// PricePredictor asks the external model for a price.
type PricePredictor interface {
	Predict(ctx context.Context, features models.FeaturePayload) (float64, error)
}

// PredictionStore persists prediction records.
type PredictionStore interface {
	Insert(ctx context.Context, record *models.PredictionRecord) (*models.PredictionRecord, error)
	ListRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error)
}

// PredictionPublisher announces stored predictions. Failures never fail the request.
type PredictionPublisher interface {
	PublishPrediction(ctx context.Context, prediction models.PredictionResponse) error
}

// PredictionService orchestrates predict-then-persist and the recent listing.
type PredictionService struct {
	predictor PricePredictor
	store     PredictionStore
	publisher PredictionPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	events    *logging.StandardLogger
}

// Option configures optional collaborators of PredictionService.
type Option func(*PredictionService)

// WithPublisher enables event fan-out after each stored prediction.
func WithPublisher(publisher PredictionPublisher) Option {
	return func(s *PredictionService) {
		s.publisher = publisher
	}
}

// WithMetrics records outcomes and upstream latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PredictionService) {
		s.metrics = m
	}
}

// NewPredictionService creates a new prediction service.
func NewPredictionService(predictor PricePredictor, store PredictionStore, logger *logging.StandardLogger, opts ...Option) *PredictionService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &PredictionService{
		predictor: predictor,
		store:     store,
		logger:    logger.WithComponent("prediction_service"),
		events:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PredictPrice validates the request, obtains a price from the predictor and
// stores the result. The predictor is called exactly once and nothing is
// stored when it fails.
//
// If the store rejects the record after a successful prediction, the price is
// lost: it is logged and the storage error is returned. Callers retrying the
// request trigger a fresh prediction.
func (s *PredictionService) PredictPrice(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error) {
	if fieldErrs := req.Validate(); len(fieldErrs) > 0 {
		s.metrics.RecordPrediction(metrics.OutcomeValidationFail)
		return nil, utils.NewFieldValidationError(fieldErrs)
	}

	features := req.Features()

	start := time.Now()
	price, err := s.predictor.Predict(ctx, features)
	s.metrics.ObservePredictorLatency(time.Since(start), err)
	if err != nil {
		s.metrics.RecordPrediction(metrics.OutcomeUpstreamError)
		s.logger.WarnContext(ctx, "Prediction service call failed",
			"error", err.Error(),
			"hour", features.Hour,
		)
		return nil, err
	}

	stored, err := s.store.Insert(ctx, models.NewPredictionRecord(req, price))
	if err != nil {
		s.metrics.RecordPrediction(metrics.OutcomeStorageError)
		s.logger.ErrorContext(ctx, "Failed to store prediction, predicted price discarded",
			"error", err.Error(),
			"predicted_price", price,
			"hour", features.Hour,
			"load", features.Load,
			"temperature", features.Temperature,
			"weekend", features.IsWeekend,
			"holiday", features.IsHoliday,
		)
		return nil, err
	}

	s.metrics.RecordPrediction(metrics.OutcomeSuccess)
	response := stored.ToResponse()
	s.events.LogBusinessEvent("prediction_created", map[string]interface{}{
		"component":       "prediction_service",
		"id":              response.ID,
		"hour":            response.Hour,
		"predicted_price": response.PredictedPrice,
	})

	if s.publisher != nil {
		if err := s.publisher.PublishPrediction(ctx, response); err != nil {
			s.metrics.RecordPublishFailure()
			s.logger.WarnContext(ctx, "Failed to publish prediction event",
				"error", err.Error(),
				"id", response.ID,
			)
		}
	}

	return &response, nil
}

// GetRecentPredictions returns the most recent predictions, newest first.
// The slice is empty, not nil, when nothing has been stored.
func (s *PredictionService) GetRecentPredictions(ctx context.Context) ([]models.PredictionResponse, error) {
	records, err := s.store.ListRecent(ctx, models.DefaultRecentLimit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list recent predictions", "error", err.Error())
		return nil, err
	}
	return models.ToResponses(records), nil
}
