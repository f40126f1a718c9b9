package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-rembg-clean/internal/cleaner"
	apperrors "go-rembg-clean/internal/errors"
	"go-rembg-clean/internal/imaging"
	"go-rembg-clean/internal/logger"
	"go-rembg-clean/internal/segment"
	"go-rembg-clean/internal/storage"
)

// RemoveRequest asks for one remote image to be cut out and cleaned
type RemoveRequest struct {
	URL      string   `json:"url" binding:"required,url"`
	Model    string   `json:"model,omitempty"`
	Strength *float64 `json:"strength,omitempty"`
	Erode    *int     `json:"erode,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Options configures the HTTP handler
type Options struct {
	DefaultModel string
	Clean        cleaner.Options
	MaxBodySize  int64
	MaxImageSize int
}

// NewHandler builds the serve-mode HTTP surface
func NewHandler(segmenter segment.Segmenter, fetcher storage.Fetcher, opts Options) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(opts.MaxBodySize),
	)

	r.GET("/health", healthCheck)
	r.POST("/remove", removeBackground(segmenter, fetcher, opts))

	return r
}

func removeBackground(segmenter segment.Segmenter, fetcher storage.Fetcher, opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		var req RemoveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		if err := validateImageURL(req.URL); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid image URL", err)
			return
		}

		model := req.Model
		if model == "" {
			model = opts.DefaultModel
		}
		cleanOpts := opts.Clean
		if req.Strength != nil {
			cleanOpts = cleanOpts.WithStrength(*req.Strength)
		}
		if req.Erode != nil {
			cleanOpts = cleanOpts.WithErode(*req.Erode)
		}

		logger.WithFields(logrus.Fields{
			"url":   req.URL,
			"model": model,
			"ip":    c.ClientIP(),
		}).Info("Processing removal request")

		data, err := fetcher.Fetch(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to fetch image", err)
			return
		}
		if opts.MaxImageSize > 0 {
			if img, derr := imaging.Decode(data); derr == nil {
				if fitted := imaging.FitWithin(img, opts.MaxImageSize); fitted != img {
					if data, err = imaging.EncodePNG(fitted); err != nil {
						respondError(c, http.StatusInternalServerError, "failed to downscale image", err)
						return
					}
				}
			}
		}

		img, err := segmenter.Segment(c.Request.Context(), data, model)
		if err != nil {
			respondError(c, determineStatusCode(err), "segmentation failed", err)
			return
		}

		cleaned, err := cleaner.CleanWithOptions(img, cleanOpts)
		if err != nil {
			respondError(c, determineStatusCode(err), "edge cleanup failed", err)
			return
		}

		encoded, err := imaging.EncodePNG(cleaned)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to encode result", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"url":                req.URL,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
			"bytes":              len(encoded),
		}).Info("Removal request completed")

		c.Data(http.StatusOK, "image/png", encoded)
	}
}

func validateImageURL(imageURL string) error {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	return nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "available",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
