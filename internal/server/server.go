package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"supplyq/internal/metrics"
	"supplyq/internal/platform"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Controller *platform.Controller
	Metrics    *metrics.Recorder
	Logger     *slog.Logger
}

// Server exposes a Controller over HTTP.
type Server struct {
	controller *platform.Controller
	metrics    *metrics.Recorder
	logger     *slog.Logger
	router     *gin.Engine
}

func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("controller is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		controller: cfg.Controller,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger.With("component", "server"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := router.Group("/v1")
	v1.GET("/status", s.status)
	v1.GET("/trace", s.trace)
	v1.GET("/qtable", s.qtable)
	v1.POST("/step", s.step)
	v1.POST("/train", s.train)
	v1.POST("/live/start", s.startLive)
	v1.POST("/live/stop", s.stopLive)
	v1.PUT("/live/speed", s.setSpeed)
	v1.PUT("/epsilon", s.setEpsilon)
	v1.GET("/nodes", s.nodes)
	v1.GET("/nodes/:id", s.node)
	v1.PATCH("/nodes/:id", s.updateNode)
	v1.POST("/save", s.save)
	v1.POST("/load", s.load)
	v1.POST("/reset", s.reset)
	return router
}
