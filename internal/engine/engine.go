package engine

import (
	"errors"
	"fmt"

	"github.com/bjaergning/rapport/internal/attachment"
	"github.com/bjaergning/rapport/internal/cache"
	"github.com/bjaergning/rapport/internal/config"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/bjaergning/rapport/internal/document"
	"github.com/bjaergning/rapport/internal/notify/email"
	"github.com/bjaergning/rapport/internal/scheduler"
)

// ErrValidation indicates a rejected submission, such as a missing form field.
var ErrValidation = errors.New("validation failed")

// mailer sends a rendered document to a single recipient.
type mailer interface {
	Send(pdf []byte, recipient string) bool
}

// Engine ties the report repository, the attachment store, the document generator
// and the mail relay together. It also owns the background jobs.
type Engine struct {
	cfg         *config.Config
	db          database.DB
	attachments *attachment.Store
	documents   *document.Generator
	mailer      mailer
	cache       *cache.DocumentCache
	scheduler   *scheduler.Scheduler
}

// New creates a new Engine instance.
// The attachment directory must be configured, config.Load guarantees it.
func New(cfg *config.Config, db database.DB) (*Engine, error) {
	if cfg.Attachments == nil || cfg.Attachments.Dir == "" {
		return nil, fmt.Errorf("attachment directory is required")
	}

	sched, err := scheduler.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	store := attachment.New(cfg.Attachments.Dir)

	var docOpts []document.Option
	if cfg.PDF != nil {
		docOpts = append(docOpts,
			document.WithCompression(cfg.PDF.Compress),
			document.WithImageWidth(cfg.PDF.ImageWidth),
		)
	}

	engine := &Engine{
		cfg:         cfg,
		db:          db,
		attachments: store,
		documents:   document.New(store, docOpts...),
		mailer:      email.New(cfg.Email),
		cache:       cache.NewDocumentCache(cfg.Cache),
		scheduler:   sched,
	}

	if err := engine.setupJobs(); err != nil {
		return nil, fmt.Errorf("failed to setup jobs: %w", err)
	}

	return engine, nil
}

// Attachments returns the attachment store, used to serve stored photos.
func (e *Engine) Attachments() *attachment.Store {
	return e.attachments
}

// GetDocumentCache returns the document cache.
func (e *Engine) GetDocumentCache() *cache.DocumentCache {
	return e.cache
}

// EmailEnabled reports whether the mail relay credentials are configured.
func (e *Engine) EmailEnabled() bool {
	return e.cfg.Email.Configured()
}
