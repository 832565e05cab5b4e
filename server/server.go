// Package server is the HTTP tier: job submission, status queries, and
// the subdomain-keyed content server fronting published build output.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/franksops/goship/provider"
	"github.com/franksops/goship/status"
	"github.com/franksops/goship/submit"
)

// Submitter accepts a repository URL and returns a submission receipt.
type Submitter interface {
	Submit(ctx context.Context, repoURL string) (submit.Receipt, error)
}

// StatusGetter reads a job's recorded label.
type StatusGetter interface {
	Get(jobID string) (string, error)
}

// Options holds the server's collaborators.
type Options struct {
	Submitter Submitter
	Statuses  StatusGetter
	// Remote is the object store the content handler streams from.
	Remote provider.Provider
	Port   int
	Log    *slog.Logger
}

type uploadRequest struct {
	RepoURL string `json:"repoUrl" binding:"required"`
}

// NewRouter builds the gin router; exposed separately from Start so
// tests can drive it with httptest.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/upload", func(c *gin.Context) {
		start := time.Now()

		var req uploadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":            "invalid request",
				"message":          err.Error(),
				"processingTimeMs": time.Since(start).Milliseconds(),
			})
			return
		}

		receipt, err := opts.Submitter.Submit(c.Request.Context(), req.RepoURL)
		if err != nil {
			log.Error("submission failed",
				slog.String("repo", req.RepoURL),
				slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":            "submission failed",
				"message":          err.Error(),
				"processingTimeMs": time.Since(start).Milliseconds(),
			})
			return
		}

		c.JSON(http.StatusOK, receipt)
	})

	router.GET("/status", func(c *gin.Context) {
		jobID := c.Query("id")
		if jobID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		label, err := opts.Statuses.Get(jobID)
		if errors.Is(err, status.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no status for " + jobID})
			return
		}
		if err != nil {
			log.Error("status lookup failed", slog.String("job", jobID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "status lookup failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": label})
	})

	// Everything else is content, resolved from the request's
	// hostname: the first label names the deployed site.
	router.NoRoute(func(c *gin.Context) {
		serveContent(c, opts.Remote, log)
	})

	return router
}

func serveContent(c *gin.Context, remote provider.Provider, log *slog.Logger) {
	host := c.Request.Host
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	id, _, _ := strings.Cut(host, ".")
	if id == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown site"})
		return
	}

	reqPath := c.Request.URL.Path
	if reqPath == "" || strings.HasSuffix(reqPath, "/") {
		reqPath += "index.html"
	}
	key := path.Join("dist", id, strings.TrimPrefix(reqPath, "/"))

	rc, err := remote.OpenRead(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not found",
			"message": fmt.Sprintf("no object for %s", reqPath),
		})
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(reqPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Warn("content stream interrupted", slog.String("key", key), slog.String("error", err.Error()))
	}
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func Start(ctx context.Context, opts Options) error {
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
