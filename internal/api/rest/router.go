package rest

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 32 << 20

// NewRouter собирает HTTP API.
func NewRouter(h *Handler, auth *AuthMiddleware, logger *slog.Logger) *gin.Engine {
	if !auth.Enabled() {
		logger.Warn("JWT_SECRET is empty, API authentication is disabled")
	}

	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	r.Use(gin.Recovery())
	r.Use(RequestLogger(logger))

	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	v1.Use(auth.Authenticate())
	{
		v1.POST("/analyze", h.AnalyzeXRay)
		v1.POST("/ecg/analyze", h.AnalyzeECG)
		v1.GET("/analyses", h.ListAnalyses)
		v1.GET("/analyses/object", h.GetObject)
	}

	return r
}
