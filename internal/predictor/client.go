package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/irfndi/electricity-price-prediction/internal/config"
	"github.com/irfndi/electricity-price-prediction/internal/models"
	"github.com/irfndi/electricity-price-prediction/internal/telemetry"
	"github.com/irfndi/electricity-price-prediction/internal/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	predictPath = "/predict"
	healthPath  = "/health"

	// maxErrorBody caps how much of an upstream error body ends up in StatusError.
	maxErrorBody = 512
)

// Client calls the external price prediction service.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// StatusError is returned when the prediction service answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets errors.Is match utils.ErrPredictorStatus.
func (e *StatusError) Unwrap() error {
	return utils.ErrPredictorStatus
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded *bool  `json:"model_loaded,omitempty"`
}

type predictResponse struct {
	PredictedPrice *float64 `json:"predicted_price"`
}

// errorResponse covers both {"error": ...} and {"status": "error", "message": ...} bodies.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewClient creates a new prediction service client.
//
// Parameters:
//
//	cfg: Predictor configuration.
//
// Returns:
//
//	*Client: Initialized client.
func NewClient(cfg config.PredictorConfig) *Client {
	timeout := cfg.TimeoutDuration()

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout: timeout,
	}
}

// Predict asks the prediction service for a price. Exactly one request is made.
//
// Parameters:
//
//	ctx: Context.
//	features: Feature payload sent as the request body.
//
// Returns:
//
//	float64: Predicted price.
//	error: Wraps utils.ErrPredictorUnavailable, utils.ErrPredictorStatus or utils.ErrPredictorMalformed.
func (c *Client) Predict(ctx context.Context, features models.FeaturePayload) (float64, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "predictor.Predict",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int("prediction.hour", features.Hour),
			attribute.String("http.url", c.baseURL+predictPath),
		),
	)
	defer span.End()

	var out predictResponse
	status, err := c.makeRequest(ctx, http.MethodPost, predictPath, features, &out)
	if status != 0 {
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err == nil && out.PredictedPrice == nil {
		err = fmt.Errorf("%w: predicted_price missing or null", utils.ErrPredictorMalformed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	span.SetAttributes(attribute.Float64("prediction.price", *out.PredictedPrice))
	return *out.PredictedPrice, nil
}

// HealthCheck checks if the prediction service is healthy.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	error: nil when the service reports status "healthy".
func (c *Client) HealthCheck(ctx context.Context) error {
	var response HealthResponse
	if _, err := c.makeRequest(ctx, http.MethodGet, healthPath, nil, &response); err != nil {
		return err
	}
	if response.Status != "healthy" {
		return fmt.Errorf("prediction service reported status %q", response.Status)
	}
	return nil
}

// makeRequest performs one HTTP round trip and classifies failures into the
// predictor error kinds. It returns the response status when one was received.
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, result interface{}) (int, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %v", utils.ErrPredictorUnavailable, err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Electricity-Price-API/1.0")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", utils.ErrPredictorUnavailable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: failed to read response body: %v", utils.ErrPredictorUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{StatusCode: resp.StatusCode, Message: upstreamMessage(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("%w: %v", utils.ErrPredictorMalformed, err)
		}
	}

	return resp.StatusCode, nil
}

func upstreamMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Error != "" {
			return errResp.Error
		}
		if errResp.Message != "" {
			return errResp.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// IsStatusError reports whether err carries an upstream status, returning it.
func IsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
