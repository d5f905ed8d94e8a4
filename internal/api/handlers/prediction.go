package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/electricity-price-prediction/internal/logging"
	"github.com/irfndi/electricity-price-prediction/internal/middleware"
	"github.com/irfndi/electricity-price-prediction/internal/models"
	"github.com/irfndi/electricity-price-prediction/internal/utils"
)

// PredictionService is what the handler needs from the service layer.
type PredictionService interface {
	PredictPrice(ctx context.Context, req models.PredictionRequest) (*models.PredictionResponse, error)
	GetRecentPredictions(ctx context.Context) ([]models.PredictionResponse, error)
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string             `json:"error"`
	Details []utils.FieldError `json:"details,omitempty"`
}

type PredictionHandler struct {
	service PredictionService
	logger  *logging.StandardLogger
}

func NewPredictionHandler(service PredictionService, logger *logging.StandardLogger) *PredictionHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &PredictionHandler{
		service: service,
		logger:  logger,
	}
}

// CreatePrediction handles POST /api/predictions.
func (h *PredictionHandler) CreatePrediction(c *gin.Context) {
	// Bind to raw fields so a mistyped value is reported against its field.
	var fields map[string]json.RawMessage
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	req, fieldErrs := models.ParsePredictionRequest(fields)
	if len(fieldErrs) > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: fieldErrs})
		return
	}

	middleware.AddSpanAttribute(c, "prediction.hour", *req.Hour)

	response, err := h.service.PredictPrice(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err, "Failed to store prediction")
		return
	}

	middleware.AddSpanAttribute(c, "prediction.id", response.ID)
	c.JSON(http.StatusOK, response)
}

// GetRecentPredictions handles GET /api/predictions/recent.
func (h *PredictionHandler) GetRecentPredictions(c *gin.Context) {
	predictions, err := h.service.GetRecentPredictions(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err, "Failed to retrieve predictions")
		return
	}

	if predictions == nil {
		predictions = []models.PredictionResponse{}
	}
	c.JSON(http.StatusOK, predictions)
}

// writeServiceError maps error kinds to status codes. storageMessage is the
// client-facing text for storage failures.
func (h *PredictionHandler) writeServiceError(c *gin.Context, err error, storageMessage string) {
	status, message := http.StatusInternalServerError, "Internal server error"
	var details []utils.FieldError

	if validationErr, ok := utils.AsValidationError(err); ok {
		status, message, details = http.StatusBadRequest, validationErr.Message, validationErr.Fields
	} else {
		switch {
		case errors.Is(err, utils.ErrPredictorUnavailable):
			status, message = http.StatusBadGateway, "Prediction service unavailable"
		case errors.Is(err, utils.ErrPredictorStatus):
			status, message = http.StatusBadGateway, "Prediction service returned an error"
		case errors.Is(err, utils.ErrPredictorMalformed):
			status, message = http.StatusBadGateway, "Prediction service returned an invalid response"
		case errors.Is(err, utils.ErrStorage):
			message = storageMessage
		}
	}

	if status >= http.StatusInternalServerError {
		middleware.RecordError(c, err, message)
		h.logger.WithRequestID(middleware.GetRequestID(c)).ErrorContext(c.Request.Context(), message,
			"component", "prediction_handler",
			"error", err.Error(),
			"status", status,
		)
	}

	c.JSON(status, ErrorResponse{Error: message, Details: details})
}
