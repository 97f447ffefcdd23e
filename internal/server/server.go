// Package server exposes phrases over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"
	"golang.org/x/time/rate"

	"github.com/verte-zerg/romatype/internal/model"
	"github.com/verte-zerg/romatype/internal/phrases"
)

const (
	// RouteHealth reports server status.
	RouteHealth = "/healthz"

	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 10 * time.Second
)

// Config controls the HTTP server.
type Config struct {
	Addr           string
	RateLimitRPS   int
	RateLimitBurst int
	Production     bool
}

// Server serves random phrases per difficulty.
type Server struct {
	cfg       Config
	picker    *phrases.Picker
	logger    zerolog.Logger
	startedAt time.Time

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// New builds a server over the phrase list.
func New(cfg Config, list []model.Phrase, logger zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		picker:    phrases.NewPicker(list),
		logger:    logger,
		startedAt: time.Now(),
		limiters:  map[string]*rate.Limiter{},
	}
}

// Router builds the gin engine with all routes and middleware.
func (s *Server) Router() *gin.Engine {
	if s.cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), s.requestIDMiddleware(), s.logMiddleware(), corsMiddleware())
	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression))
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		s.logger.Warn().Err(err).Msg("failed to set trusted proxies")
	}

	noStore := cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})
	router.GET(phrases.PhrasePath, noStore, s.rateLimitMiddleware(), s.phraseHandler)
	router.GET(RouteHealth, noStore, s.healthHandler)
	return router
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("phrase server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down phrase server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// phraseHandler answers unknown or empty pools with a placeholder phrase with
// empty romaji instead of an error status.
func (s *Server) phraseHandler(c *gin.Context) {
	raw := c.DefaultQuery("difficulty", string(model.Easy))
	difficulty := model.Difficulty(strings.ToLower(strings.TrimSpace(raw)))
	phrase, ok := s.picker.Pick(difficulty)
	if !ok {
		s.logger.Warn().Str("request_id", requestID(c)).Str("difficulty", raw).Msg("no phrase for difficulty")
		c.JSON(http.StatusOK, model.Phrase{
			Text:        "No phrase available.",
			Translation: "該当するフレーズがありません。",
			Romaji:      "",
			Difficulty:  difficulty,
		})
		return
	}
	c.JSON(http.StatusOK, phrase)
}

func (s *Server) healthHandler(c *gin.Context) {
	counts := map[model.Difficulty]int{}
	for _, d := range model.Difficulties() {
		counts[d] = s.picker.Size(d)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"phrases":   counts,
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) limiter(key string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	if lim, ok := s.limiters[key]; ok {
		return lim
	}
	rps := s.cfg.RateLimitRPS
	if rps <= 0 {
		rps = 1
	}
	burst := s.cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), burst)
	s.limiters[key] = lim
	return lim
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please slow down."})
			return
		}
		c.Next()
	}
}

func (s *Server) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Header(requestIDHeader, reqID)
		c.Next()
	}
}

func (s *Server) logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("request_id", requestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDHeader)
}
