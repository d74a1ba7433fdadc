package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Semior001/newsagg/app/newsapi"
	"github.com/Semior001/newsagg/app/report"
	"github.com/Semior001/newsagg/app/store"
	"github.com/gin-gonic/gin"
)

const defaultLimit = 50

func (s *Server) listArticles(c *gin.Context) {
	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		var err error
		if limit, err = strconv.Atoi(l); err != nil || limit < 0 {
			s.abort(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid limit %q", l))
			return
		}
	}

	articles, err := s.Store.List(c.Request.Context(), store.ListRequest{
		Category: c.Query("category"),
		Source:   c.Query("source"),
		Limit:    limit,
	})
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("list articles: %w", err))
		return
	}

	if articles == nil {
		articles = []store.Article{}
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func (s *Server) getArticle(c *gin.Context) {
	a, err := s.Store.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.abort(c, http.StatusNotFound, "not_found", err)
		return
	case err != nil:
		s.abort(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("get article: %w", err))
		return
	}

	c.JSON(http.StatusOK, a)
}

func (s *Server) stats(c *gin.Context) {
	dim, err := report.ParseDimension(c.Query("by"))
	if err != nil {
		s.abort(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	articles, err := s.Store.List(c.Request.Context(), store.ListRequest{
		Category: c.Query("category"),
		Source:   c.Query("source"),
	})
	if err != nil {
		s.abort(c, http.StatusInternalServerError, "internal_error", fmt.Errorf("list articles: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"by":      dim,
		"total":   len(articles),
		"buckets": report.Distribution(articles, dim),
	})
}

func (s *Server) fetch(c *gin.Context) {
	var q newsapi.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		s.abort(c, http.StatusBadRequest, "bad_request", fmt.Errorf("decode query: %w", err))
		return
	}

	ctx := c.Request.Context()
	if s.FetchTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}

	articles, err := s.Aggregator.Run(ctx, q)
	if err != nil {
		status, code := fetchErrStatus(err)
		s.abort(c, status, code, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"articles": articles})
}

func fetchErrStatus(err error) (status int, code string) {
	var apiErr *newsapi.APIError
	switch {
	case errors.Is(err, newsapi.ErrEmptyQuery), errors.Is(err, newsapi.ErrCategoryWithDates):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, newsapi.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, newsapi.ErrNetwork), errors.Is(err, newsapi.ErrParse), errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
