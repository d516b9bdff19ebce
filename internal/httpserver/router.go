package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"habittracker/internal/handler"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func NewRouter(habitHandler *handler.HabitHandler, jwtSecret string, logger *zap.Logger, checks ...ReadinessCheck) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), RequestLogger(logger), MetricsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				logger.Warn("Readiness check failed", zap.String("check", check.Name), zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": check.Name + "_not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := r.Group("/")
	authed.Use(AuthMiddleware(jwtSecret))
	{
		authed.GET("/habits", habitHandler.ListHabits)
		authed.POST("/habits", habitHandler.CreateHabit)
		authed.DELETE("/habits/:id", habitHandler.DeleteHabit)
		authed.POST("/habits/:id/toggle", habitHandler.Toggle)
		authed.GET("/habits/:id/statistics", habitHandler.GetHabitStatistics)
		authed.GET("/statistics", habitHandler.GetStatistics)
	}

	return r
}
