package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/irfndi/electricity-price-prediction/internal/api/handlers"
	"github.com/irfndi/electricity-price-prediction/internal/logging"
	"github.com/irfndi/electricity-price-prediction/internal/metrics"
	"github.com/irfndi/electricity-price-prediction/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Dependencies carries everything the router needs.
type Dependencies struct {
	ServiceName    string
	AllowedOrigins []string
	Logger         *logging.StandardLogger
	Metrics        *metrics.Metrics
	// Gatherer backs /metrics. Defaults to the prometheus default gatherer.
	Gatherer    prometheus.Gatherer
	Predictions *handlers.PredictionHandler
	Health      *handlers.HealthHandler
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(otelgin.Middleware(deps.ServiceName, otelgin.WithFilter(middleware.TraceFilter)))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger, deps.Metrics))

	// Health endpoints
	healthGroup := router.Group("/")
	healthGroup.Use(middleware.HealthCheckTelemetryMiddleware())
	{
		healthGroup.GET("/health", deps.Health.HealthCheck)
		healthGroup.GET("/ready", deps.Health.ReadinessCheck)
		healthGroup.GET("/live", deps.Health.LivenessCheck)
	}

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	predictions := router.Group("/api/predictions")
	{
		predictions.POST("", deps.Predictions.CreatePrediction)
		predictions.GET("/recent", deps.Predictions.GetRecentPredictions)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "Not found"})
	})
}
