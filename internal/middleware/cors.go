package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS builds the cross-origin policy. An empty list or any "*" entry allows
// any origin without credentials. Other entries must be scheme://host origins
// (config.Validate enforces this).
func CORS(allowedOrigins []string) gin.HandlerFunc {
	methods := []string{"GET", "POST", "OPTIONS"}
	headers := []string{"Origin", "Content-Type", "Accept", RequestIDHeader}

	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		return cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    methods,
			AllowHeaders:    headers,
			ExposeHeaders:   []string{"Content-Length", RequestIDHeader},
			MaxAge:          12 * time.Hour,
		})
	}

	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
