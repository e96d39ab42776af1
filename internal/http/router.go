package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"oceancare/internal/config"
	"oceancare/internal/http/controller"
	"oceancare/internal/http/middleware"
	"oceancare/internal/metrics"
)

func NewRouter(cfg *config.Config, handler *controller.Handler, m *metrics.Gateway, logger *zap.Logger) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := gin.New()
	router.Use(
		otelgin.Middleware(cfg.OTELServiceName),
		middleware.ZapLogger(logger),
		middleware.ZapRecovery(logger),
	)

	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", handler.Socket)
	router.GET("/sse/:room", handler.Stream)
	router.POST("/events", handler.BroadcastEvent)
	router.POST("/events/publish", handler.PublishEvent)

	return router
}
