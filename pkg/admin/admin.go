// Package admin serves the operational HTTP endpoints: health, prometheus
// metrics and a JSON view of the request statistics.
package admin

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raykavin/alphabot/pkg/logger"
	"github.com/raykavin/alphabot/pkg/metric"
)

// Server exposes /healthz, /metrics and /statistics.
type Server struct {
	engine  *gin.Engine
	http    *http.Server
	stats   *metric.Statistics
	latency *metric.Latency
	log     logger.Logger
	started time.Time
}

// NewServer builds the engine; Run starts listening on addr.
func NewServer(addr string, stats *metric.Statistics, latency *metric.Latency, log logger.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(map[string]any{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("admin request")
	})

	s := &Server{
		engine:  engine,
		http:    &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 5 * time.Second},
		stats:   stats,
		latency: latency,
		log:     log,
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.stats.Registry(), promhttp.HandlerOpts{})))
	s.engine.GET("/statistics", s.handleStatistics)

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found: " + c.Request.URL.Path})
	})
}

// Handler exposes the engine for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"requests": s.stats.Snapshot(),
		"latency":  s.latency.Summary(),
	})
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		s.log.Infof("admin server listening on %s", s.http.Addr)
		errs <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdown)
	}
}
