// Package server provides a read API over the stored articles for
// presentation clients, and an endpoint to trigger a fetch.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/store"
	"github.com/Semior001/newsagg/pkg/logx"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

//go:generate moq -out mock_runner.go . Runner

// Runner runs the news pipeline for the query.
type Runner interface {
	Run(ctx context.Context, q newsapi.Query) ([]store.Article, error)
}

// Server serves the HTTP API.
type Server struct {
	Logger     *slog.Logger
	Store      store.Interface
	Aggregator Runner
	Addr       string
	// FetchTimeout limits the duration of a single fetch request.
	FetchTimeout time.Duration
}

const requestIDHeader = "X-Request-ID"

// Run starts the server and blocks until the context is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.InfoCtx(ctx, "starting http server", slog.String("addr", s.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen and serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return ctx.Err()
}

// Routes returns the http handler with all routes.
func (s *Server) Routes() http.Handler {
	r := gin.New()
	r.Use(s.requestID, s.logger, gin.Recovery())

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/articles", s.listArticles)
		v1.GET("/articles/:id", s.getArticle)
		v1.GET("/stats", s.stats)
		v1.POST("/fetch", s.fetch)
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.New().String()
	}
	c.Header(requestIDHeader, id)
	c.Request = c.Request.WithContext(logx.ContextWithRequestID(c.Request.Context(), id))
	c.Next()
}

func (s *Server) logger(c *gin.Context) {
	start := time.Now()
	c.Next()

	s.Logger.InfoCtx(c.Request.Context(), "request processed",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", time.Since(start)),
	)
}

type errResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) abort(c *gin.Context, status int, code string, err error) {
	if status >= http.StatusInternalServerError {
		s.Logger.ErrorCtx(c.Request.Context(), "request failed", slog.Any("err", err))
	}
	c.AbortWithStatusJSON(status, errResponse{Code: code, Message: err.Error()})
}
