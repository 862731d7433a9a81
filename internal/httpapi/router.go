package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/alira/internal/common"
	"github.com/suPer8Hu/alira/internal/httpapi/handlers"
	"github.com/suPer8Hu/alira/internal/httpapi/middleware"
	"github.com/suPer8Hu/alira/internal/metrics"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, collector *metrics.Collector, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	api := r.Group("/api")
	api.POST("/chat", h.StreamChat)
	return r
}
