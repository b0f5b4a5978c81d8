package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer expone /metrics, /health y /ready mientras corre la demo.
type MetricsServer struct {
	httpServer *http.Server
	logger     Logger
	port       int
}

func NewMetricsServer(port int, metricsService *MetricsService, logger Logger) *MetricsServer {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metricsService.GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})

	return &MetricsServer{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
		logger: logger,
		port:   port,
	}
}

// Handler permite probar las rutas sin abrir un puerto.
func (s *MetricsServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *MetricsServer) Start(ctx context.Context) {
	go func() {
		s.logger.Info(ctx, "Starting metrics server", "port", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "Metrics server error", err, "port", s.port)
		}
	}()
}

func (s *MetricsServer) Stop(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info(ctx, "Stopping metrics server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "Error stopping metrics server", err)
	}
}
