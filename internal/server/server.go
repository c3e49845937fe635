package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flowAgent/internal/config"
	"flowAgent/internal/database"
	"flowAgent/internal/logger"
	"flowAgent/internal/messaging"
	"flowAgent/internal/pipeline"
	"flowAgent/internal/selectors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Runner запускает конвейер в фоне.
type Runner interface {
	Start(ctx context.Context, msg messaging.InboundMessage) (string, error)
	Busy() bool
}

// RunReader - история запусков для API.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*database.PipelineRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]database.PipelineRun, error)
	ListStageEvents(ctx context.Context, runID string) ([]database.StageEvent, error)
}

type Server struct {
	cfg      *config.Cfg
	log      *logger.Zap
	runner   Runner
	runs     RunReader
	provider *selectors.Provider
	hub      *messaging.Hub
	gatherer prometheus.Gatherer
	// runCtx переживает HTTP-запрос, в нем идут фоновые запуски.
	runCtx context.Context
}

type Deps struct {
	Runner   Runner
	Runs     RunReader
	Provider *selectors.Provider
	Hub      *messaging.Hub
	Gatherer prometheus.Gatherer
}

func New(cfg *config.Cfg, log *logger.Zap, deps Deps) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		log:      log,
		runner:   deps.Runner,
		runs:     deps.Runs,
		provider: deps.Provider,
		hub:      deps.Hub,
		gatherer: deps.Gatherer,
		runCtx:   context.Background(),
	}
}

// Router собирает gin-движок. Вынесен отдельно для httptest.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Простейший лог-мидлвар
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("HTTP",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "busy": s.runner != nil && s.runner.Busy()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.POST("/pipeline", s.startPipeline)
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.GET("/selectors", s.activeSelectors)

	if s.hub != nil {
		r.GET("/ws", gin.WrapF(s.hub.ServeWS))
	}
	return r
}

// Запустить конвейер
func (s *Server) startPipeline(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline disabled"})
		return
	}
	var msg messaging.InboundMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runID, err := s.runner.Start(s.runCtx, msg)
	switch {
	case errors.Is(err, pipeline.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run_id": runID})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

// Список запусков
func (s *Server) listRuns(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}
	limit := queryInt(c, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	runs, err := s.runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		s.log.Error("db list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// Получить запуск вместе с журналом стадий
func (s *Server) getRun(c *gin.Context) {
	if s.runs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}
	id := c.Param("id")
	run, err := s.runs.GetRun(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		s.log.Error("db get run", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	events, err := s.runs.ListStageEvents(c.Request.Context(), id)
	if err != nil {
		s.log.Warn("db list stage events", zap.String("id", id), zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"run": run, "events": events})
}

func (s *Server) activeSelectors(c *gin.Context) {
	if s.provider == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "selectors unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": s.provider.Source(), "selectors": s.provider.Selectors()})
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Run слушает до отмены ctx, затем корректно останавливает сервер.
func (s *Server) Run(ctx context.Context) error {
	s.runCtx = ctx
	addr := fmt.Sprintf("%s:%s", s.cfg.App.Host, s.cfg.App.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Сервер запущен", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Остановка сервера")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	return srv.Shutdown(shutdownCtx)
}
