package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewStandardLogger_Basic(t *testing.T) {
	logger := NewStandardLogger("info", "development")
	assert.NotNil(t, logger)
	assert.NotNil(t, logger.Logger())
}

func TestNewStandardLogger_LogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter(&buf, "warn", "test")

	logger.Logger().Info("dropped")
	logger.Logger().Warn("kept")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kept", entries[0]["msg"])
	assert.Equal(t, "test", entries[0]["environment"])
}

func TestStandardLogger_ContextHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter(&buf, "debug", "")

	logger.WithComponent("prediction_service").Info("component")
	logger.WithRequestID("req-1").Info("request")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "prediction_service", entries[0]["component"])
	assert.Equal(t, "req-1", entries[1]["request_id"])
	assert.NotContains(t, entries[0], "environment")
}

func TestStandardLogger_StandardEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStandardLoggerWithWriter(&buf, "debug", "")

	logger.LogStartup("electricity-price-api", "1.0.0", 8080)
	logger.LogShutdown("electricity-price-api", "signal received")
	logger.LogDatabaseOperation("insert", "prediction_records", 3, 1)
	logger.LogAPIRequest("POST", "/api/predictions", 200, 12, "req-9")
	logger.LogBusinessEvent("prediction_created", map[string]interface{}{"price": 42.5})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 5)

	assert.Equal(t, "startup", entries[0]["event"])
	assert.Equal(t, float64(8080), entries[0]["port"])
	assert.Equal(t, "shutdown", entries[1]["event"])
	assert.Equal(t, "signal received", entries[1]["reason"])
	assert.Equal(t, "database", entries[2]["event"])
	assert.Equal(t, "prediction_records", entries[2]["table"])
	assert.Equal(t, "api", entries[3]["event"])
	assert.Equal(t, float64(200), entries[3]["status"])
	assert.Equal(t, "req-9", entries[3]["request_id"])
	assert.Equal(t, "prediction_created", entries[4]["event_type"])
	assert.Equal(t, 42.5, entries[4]["price"])
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.LogBusinessEvent("noop", nil)
	})
}

func TestParseLogrusLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"WARN":    logrus.WarnLevel,
		"warning": logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"info":    logrus.InfoLevel,
		"":        logrus.InfoLevel,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, ParseLogrusLevel(input), input)
	}
}

func TestConfigureLogrus(t *testing.T) {
	previous := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(previous) })

	ConfigureLogrus("error")
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())
}

func TestNewOTLPLogger_Disabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{Enabled: false})
	assert.Error(t, err)
	assert.Nil(t, logger)
}

func TestNewStandardOTLPLogger_FallsBackWhenDisabled(t *testing.T) {
	logger, shutdown := NewStandardOTLPLogger(OTLPConfig{Enabled: false, LogLevel: "info"})
	require.NotNil(t, logger)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewOTLPLogger_Enabled(t *testing.T) {
	logger, err := NewOTLPLogger(OTLPConfig{
		Enabled:        true,
		Endpoint:       "localhost:4318",
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		LogLevel:       "info",
	})
	if err != nil {
		assert.ErrorContains(t, err, "failed to create")
		return
	}
	require.NotNil(t, logger.Logger())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = logger.Shutdown(ctx)
}

// recordingOTLPLogger captures emitted records.
type recordingOTLPLogger struct {
	otellog.Logger
	records []otellog.Record
}

func (m *recordingOTLPLogger) Enabled(ctx context.Context, params otellog.EnabledParameters) bool {
	return true
}

func (m *recordingOTLPLogger) Emit(ctx context.Context, record otellog.Record) {
	m.records = append(m.records, record)
}

func attributesOf(record otellog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	record.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestOTLPHandler_Enabled(t *testing.T) {
	handler := NewOTLPHandler(&recordingOTLPLogger{}, slog.LevelInfo)
	ctx := context.Background()

	assert.False(t, handler.Enabled(ctx, slog.LevelDebug))
	assert.True(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.True(t, handler.Enabled(ctx, slog.LevelError))
}

func TestOTLPHandler_HandleCarriesAttributes(t *testing.T) {
	recorder := &recordingOTLPLogger{}
	logger := slog.New(NewOTLPHandler(recorder, slog.LevelDebug))

	logger.With("component", "predictor_client").
		WithGroup("upstream").
		Warn("slow response", "status", 200, "latency_ms", 1.5, "retried", false)

	require.Len(t, recorder.records, 1)
	record := recorder.records[0]
	assert.Equal(t, "slow response", record.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, record.Severity())

	attrs := attributesOf(record)
	assert.Equal(t, "predictor_client", attrs["component"].AsString())
	assert.Equal(t, int64(200), attrs["upstream.status"].AsInt64())
	assert.Equal(t, 1.5, attrs["upstream.latency_ms"].AsFloat64())
	assert.False(t, attrs["upstream.retried"].AsBool())
}

func TestConvertSlogLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, convertSlogLevelToSeverity(slog.LevelDebug))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.LevelInfo))
	assert.Equal(t, otellog.SeverityWarn, convertSlogLevelToSeverity(slog.LevelWarn))
	assert.Equal(t, otellog.SeverityError, convertSlogLevelToSeverity(slog.LevelError))
	assert.Equal(t, otellog.SeverityInfo, convertSlogLevelToSeverity(slog.Level(10)))
}
