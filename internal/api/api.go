package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bjaergning/rapport/internal/api/auth"
	"github.com/bjaergning/rapport/internal/api/handler"
	"github.com/bjaergning/rapport/internal/api/models"
	"github.com/bjaergning/rapport/internal/config"
	"github.com/bjaergning/rapport/internal/engine"
	"github.com/bjaergning/rapport/internal/static"
	"github.com/bjaergning/rapport/web/templates"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionName = "rapport_session"

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	engine    *engine.Engine
	gate      *auth.Gate
}

// New creates the HTTP server and registers all routes.
func New(cfg *config.Config, e *engine.Engine, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if e == nil {
		return nil, fmt.Errorf("engine is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	tmpl, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), requestLogger())
	ginEngine.SetHTMLTemplate(tmpl)
	if cfg.Attachments != nil && cfg.Attachments.MaxUploadSize > 0 {
		ginEngine.Use(maxBodySize(cfg.Attachments.MaxUploadSize))
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: ginEngine,
		engine:    e,
		gate:      auth.NewGate(e, cfg.SessionIdleTimeout),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(s.gate.IdleTimeout().Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(sessionName, store))
}

func (s *Server) setupRoutes() error {
	s.setupSession()
	s.ginEngine.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedExtensions([]string{".png", ".jpg", ".jpeg", ".gif", ".pdf"}),
		gzip.WithExcludedPaths([]string{models.UploadsPath}),
	))

	assets, err := static.Assets()
	if err != nil {
		return err
	}
	s.ginEngine.StaticFS(static.AssetsPath, http.FS(assets))

	h := handler.New(s.engine, s.gate)

	s.ginEngine.GET("/login", h.LoginForm)
	s.ginEngine.POST("/login", h.Login)
	s.ginEngine.GET("/logout", h.Logout)

	protected := s.ginEngine.Group("/")
	protected.Use(s.gate.RequireAuth())

	protected.GET("/", h.Index)
	protected.POST("/", h.SubmitReport)
	protected.GET("/tak", h.Thanks)
	protected.GET("/rapporter", h.Reports)
	protected.GET("/rapport/:id", h.Report)
	protected.POST("/rapport/:id", h.EmailReport)
	protected.GET("/rapport/:id/pdf", h.DownloadPDF)
	protected.POST("/rapport/:id/slet/:entryId", h.DeleteEntry)
	protected.Static(models.UploadsPath, s.engine.Attachments().Dir())

	s.setupAdminRoutes(h)
	return nil
}

func (s *Server) setupAdminRoutes(h *handler.Handler) {
	admin := handler.NewAdmin(h)

	adminGroup := s.ginEngine.Group("/admin")
	adminGroup.Use(s.gate.RequireAuth(), s.gate.RequireAdmin())
	adminGroup.GET("", admin.AdminPanel)
	adminGroup.POST("", admin.AdminAction)
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "addr", srv.Addr)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Info("Shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}

// maxBodySize caps the request body. Oversized multipart submissions fail to parse.
func maxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// requestLogger assigns a request id and logs every request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set("request_id", requestID)

		start := time.Now()
		c.Next()

		log.Debug("Request",
			"id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
