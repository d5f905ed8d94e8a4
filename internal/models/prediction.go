package models

import (
	"encoding/json"
	"time"

	"github.com/irfndi/electricity-price-prediction/internal/utils"
)

const (
	// MinHour and MaxHour bound the hour-of-day feature.
	MinHour = 0
	MaxHour = 23

	// DefaultRecentLimit is how many records the recent listing returns.
	DefaultRecentLimit = 10
)

// PredictionRequest is the inbound body of POST /api/predictions.
// Pointer fields let validation tell a missing value from a zero value.
type PredictionRequest struct {
	Hour        *int     `json:"hour"`
	Load        *float64 `json:"load"`
	Temperature *float64 `json:"temperature"`
	Weekend     *bool    `json:"weekend"`
	Holiday     *bool    `json:"holiday"`
}

// Validate checks the request and returns one entry per violated field.
func (r PredictionRequest) Validate() utils.FieldErrors {
	var errs utils.FieldErrors

	switch {
	case r.Hour == nil:
		errs.Add("hour", "Hour is required")
	case *r.Hour < MinHour || *r.Hour > MaxHour:
		errs.Add("hour", "Hour must be between 0 and 23")
	}
	if r.Load == nil {
		errs.Add("load", "Load is required")
	}
	if r.Temperature == nil {
		errs.Add("temperature", "Temperature is required")
	}

	return errs
}

// requestFields lists the request keys in the order violations are reported.
var requestFields = []struct {
	name        string
	typeMessage string
}{
	{"hour", "Hour must be an integer"},
	{"load", "Load must be a number"},
	{"temperature", "Temperature must be a number"},
	{"weekend", "Weekend must be a boolean"},
	{"holiday", "Holiday must be a boolean"},
}

// ParsePredictionRequest decodes a JSON object field by field so that a value
// of the wrong type becomes a field violation instead of failing the whole
// body. Fields that decoded are then run through Validate. Unknown keys are
// ignored and explicit nulls count as missing.
func ParsePredictionRequest(fields map[string]json.RawMessage) (PredictionRequest, utils.FieldErrors) {
	var req PredictionRequest
	typeErrs := make(map[string]string)
	for _, f := range requestFields {
		raw, ok := fields[f.name]
		if !ok {
			continue
		}
		var err error
		switch f.name {
		case "hour":
			req.Hour, err = decodeField[int](raw)
		case "load":
			req.Load, err = decodeField[float64](raw)
		case "temperature":
			req.Temperature, err = decodeField[float64](raw)
		case "weekend":
			req.Weekend, err = decodeField[bool](raw)
		case "holiday":
			req.Holiday, err = decodeField[bool](raw)
		}
		if err != nil {
			typeErrs[f.name] = f.typeMessage
		}
	}

	validation := req.Validate()
	var errs utils.FieldErrors
	for _, f := range requestFields {
		if msg, bad := typeErrs[f.name]; bad {
			errs.Add(f.name, msg)
			continue
		}
		for _, fe := range validation {
			if fe.Field == f.name {
				errs = append(errs, fe)
			}
		}
	}

	return req, errs
}

// decodeField returns nil for a JSON null and for any value that is not a T.
func decodeField[T any](raw json.RawMessage) (*T, error) {
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// IsWeekend returns the weekend flag, false when absent.
func (r PredictionRequest) IsWeekend() bool {
	return r.Weekend != nil && *r.Weekend
}

// IsHoliday returns the holiday flag, false when absent.
func (r PredictionRequest) IsHoliday() bool {
	return r.Holiday != nil && *r.Holiday
}

// Features builds the payload sent to the prediction service.
// Callers must validate the request first.
func (r PredictionRequest) Features() FeaturePayload {
	return FeaturePayload{
		Hour:        *r.Hour,
		Load:        *r.Load,
		Temperature: *r.Temperature,
		IsWeekend:   r.IsWeekend(),
		IsHoliday:   r.IsHoliday(),
	}
}

// FeaturePayload is the body of POST <predictor>/predict.
type FeaturePayload struct {
	Hour        int     `json:"hour"`
	Load        float64 `json:"load"`
	Temperature float64 `json:"temperature"`
	IsWeekend   bool    `json:"is_weekend"`
	IsHoliday   bool    `json:"is_holiday"`
}

// PredictionRecord is a persisted prediction. ID and CreatedAt are assigned by the store.
type PredictionRecord struct {
	ID             int64     `json:"id" db:"id"`
	Hour           int       `json:"hour" db:"hour"`
	Load           float64   `json:"load" db:"load"`
	Temperature    float64   `json:"temperature" db:"temperature"`
	Weekend        bool      `json:"weekend" db:"weekend"`
	Holiday        bool      `json:"holiday" db:"holiday"`
	PredictedPrice float64   `json:"predicted_price" db:"predicted_price"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// NewPredictionRecord copies the validated request fields next to the predicted price.
func NewPredictionRecord(req PredictionRequest, price float64) *PredictionRecord {
	features := req.Features()
	return &PredictionRecord{
		Hour:           features.Hour,
		Load:           features.Load,
		Temperature:    features.Temperature,
		Weekend:        features.IsWeekend,
		Holiday:        features.IsHoliday,
		PredictedPrice: price,
	}
}

// ToResponse projects the record into its API shape.
func (p PredictionRecord) ToResponse() PredictionResponse {
	return PredictionResponse{
		ID:             p.ID,
		Hour:           p.Hour,
		Load:           p.Load,
		Temperature:    p.Temperature,
		Weekend:        p.Weekend,
		Holiday:        p.Holiday,
		PredictedPrice: p.PredictedPrice,
		CreatedAt:      p.CreatedAt,
	}
}

// PredictionResponse is the read-only API view of a PredictionRecord.
type PredictionResponse struct {
	ID             int64     `json:"id"`
	Hour           int       `json:"hour"`
	Load           float64   `json:"load"`
	Temperature    float64   `json:"temperature"`
	Weekend        bool      `json:"weekend"`
	Holiday        bool      `json:"holiday"`
	PredictedPrice float64   `json:"predictedPrice"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ToResponses maps records in order. The result is never nil.
func ToResponses(records []PredictionRecord) []PredictionResponse {
	out := make([]PredictionResponse, 0, len(records))
	for _, r := range records {
		out = append(out, r.ToResponse())
	}
	return out
}

// PredictionCreatedEventType tags events published after a prediction is stored.
const PredictionCreatedEventType = "prediction.created"

// PredictionCreatedEvent is published to subscribers once a prediction is persisted.
type PredictionCreatedEvent struct {
	Type        string             `json:"type"`
	Prediction  PredictionResponse `json:"prediction"`
	PublishedAt time.Time          `json:"published_at"`
}
