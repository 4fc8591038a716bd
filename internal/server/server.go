// Package server is the web front: the public registration and status
// pages, the operator dashboard, a small JSON API and the metrics endpoint.
package server

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"event-registration/internal/auth"
	"event-registration/internal/config"
	"event-registration/internal/registration"
	"event-registration/internal/review"
)

type Options struct {
	AudioDir      string
	MaxAudioBytes int64
	SecureCookies bool
}

type handlers struct {
	regs    *registration.Service
	reviews *review.Service
	auth    *auth.Authenticator
	opts    Options
	logger  *slog.Logger
}

func New(cfg config.Config, regs *registration.Service, reviews *review.Service, authn *auth.Authenticator, logger *slog.Logger) *http.Server {
	opts := Options{
		AudioDir:      cfg.AudioDir,
		MaxAudioBytes: cfg.MaxAudioBytes,
		SecureCookies: strings.HasPrefix(cfg.BasePublicURL, "https://"),
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Router(regs, reviews, authn, opts, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Router builds the gin engine with every route mounted.
func Router(regs *registration.Service, reviews *review.Service, authn *auth.Authenticator, opts Options, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAudioBytes <= 0 {
		opts.MaxAudioBytes = registration.DefaultMaxAudioBytes
	}
	logger = logger.With("component", "http")
	h := &handlers{regs: regs, reviews: reviews, auth: authn, opts: opts, logger: logger}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.SetHTMLTemplate(loadTemplates())
	r.Use(requestLogger(logger), recovery(logger), metricsMiddleware(), session(authn, opts.SecureCookies))

	r.GET("/", h.home)
	r.GET("/register", h.registerForm)
	r.POST("/register", h.register)
	r.GET("/status", h.status)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/admin")
	admin.GET("", h.dashboard)
	admin.POST("/login", h.login)
	admin.POST("/logout", h.logout)
	admin.POST("/results/approve", h.approve)
	admin.POST("/results/reject", h.reject)
	admin.GET("/audio", h.audio)
	admin.GET("/export.csv", h.export)

	v1 := r.Group("/api/v1")
	v1.POST("/registrations", h.apiRegister)
	v1.GET("/status/:reg_no", h.apiStatus)

	return r
}
