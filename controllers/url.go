package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"goshortcode/models"
	"goshortcode/shortener"
	"goshortcode/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Shortener is the part of shortener.Store the HTTP layer needs.
type Shortener interface {
	AssignCode(ctx context.Context, originalURL string, requestedCode *string) (*models.Mapping, shortener.Outcome, error)
	Resolve(ctx context.Context, code string) (string, error)
}

// shortenReqData keeps pointers so an absent field can be told apart from an
// empty one.
type shortenReqData struct {
	OriginalURL *string `json:"original_url"`
	ShortCode   *string `json:"short_code"`
}

type mappingResp struct {
	ID          uint      `json:"id"`
	OriginalURL string    `json:"original_url"`
	ShortCode   string    `json:"short_code"`
	CreatedAt   time.Time `json:"created_at"`
	ShortURL    string    `json:"short_url"`
}

type UrlController struct {
	Store          Shortener
	Log            *zap.Logger
	RedirectOrigin string
}

func (u UrlController) Shorten(c *gin.Context) {
	var req shortenReqData
	if err := c.ShouldBindJSON(&req); err != nil {
		u.Log.Warn("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := validation.Shorten(req.OriginalURL, req.ShortCode); err != nil {
		u.Log.Info("invalid shorten data", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": err})
		return
	}

	m, outcome, err := u.Store.AssignCode(c.Request.Context(), *req.OriginalURL, req.ShortCode)
	switch {
	case err == nil:
	case errors.Is(err, shortener.ErrCodeConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error": fmt.Sprintf("Custom short code '%s' is already in use by another URL.", *req.ShortCode),
		})
		return
	default:
		u.fail(c, "assign code", err)
		return
	}

	status := http.StatusOK
	if outcome == shortener.Created {
		status = http.StatusCreated
	}
	u.Log.Debug("assigned code",
		zap.String("code", m.ShortCode), zap.Stringer("outcome", outcome))
	c.JSON(status, mappingResp{
		ID:          m.ID,
		OriginalURL: m.OriginalURL,
		ShortCode:   m.ShortCode,
		CreatedAt:   m.CreatedAt,
		ShortURL:    fmt.Sprintf("%s/%s/", strings.TrimRight(u.RedirectOrigin, "/"), m.ShortCode),
	})
}

func (u UrlController) Redirect(c *gin.Context) {
	code := c.Param("short_code")
	// nothing outside the code format can have been assigned
	if !validation.IsShortCode(code) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	url, err := u.Store.Resolve(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, shortener.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		u.fail(c, "resolve", err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

func (u UrlController) Welcome(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to the URL Shortener API!")
}

func (u UrlController) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		u.Log.Warn("request timed out", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusRequestTimeout, gin.H{"error": http.StatusText(http.StatusRequestTimeout)})
		return
	}
	u.Log.Error("request failed", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
