package engine

import (
	"context"
	"fmt"

	"github.com/bjaergning/rapport/internal/scheduler"
	"github.com/charmbracelet/log"
	"github.com/samber/lo"
)

const (
	defaultCacheClearSchedule      = "0 3 * * *"
	defaultAttachmentAuditSchedule = "0 4 * * 0"
)

// GetScheduler returns the scheduler instance for API access.
func (e *Engine) GetScheduler() *scheduler.Scheduler {
	return e.scheduler
}

// Run starts the engine and all its background jobs.
func (e *Engine) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.scheduler.Start()

	<-ctx.Done()
	return nil
}

// Close stops the engine and cleans up resources.
func (e *Engine) Close() error {
	return e.scheduler.Stop()
}

// setupJobs configures all scheduled jobs.
func (e *Engine) setupJobs() error {
	cacheSchedule, auditSchedule := defaultCacheClearSchedule, defaultAttachmentAuditSchedule
	if e.cfg.Jobs != nil {
		if e.cfg.Jobs.CacheClearSchedule != "" {
			cacheSchedule = e.cfg.Jobs.CacheClearSchedule
		}
		if e.cfg.Jobs.AttachmentAuditSchedule != "" {
			auditSchedule = e.cfg.Jobs.AttachmentAuditSchedule
		}
	}

	if err := e.scheduler.AddSingletonJob(
		"clear_document_cache",
		"Clear Document Cache",
		"Drops all cached report PDFs",
		cacheSchedule,
		e.clearDocumentCache,
	); err != nil {
		return fmt.Errorf("failed to add clear document cache job: %w", err)
	}

	if err := e.scheduler.AddSingletonJob(
		"attachment_audit",
		"Attachment Audit",
		"Reports stored photos no entry references",
		auditSchedule,
		func(ctx context.Context) error {
			_, err := e.auditAttachments(ctx)
			return err
		},
	); err != nil {
		return fmt.Errorf("failed to add attachment audit job: %w", err)
	}

	log.Info("Scheduled jobs configured successfully")
	return nil
}

func (e *Engine) clearDocumentCache(ctx context.Context) error {
	if err := e.cache.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear document cache: %w", err)
	}
	log.Info("Document cache cleared")
	return nil
}

// auditAttachments returns the stored files no entry references. Files are only reported, never removed.
func (e *Engine) auditAttachments(ctx context.Context) ([]string, error) {
	files, err := e.attachments.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}

	refs, err := e.db.ListAttachmentRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachment references: %w", err)
	}

	unreferenced, _ := lo.Difference(files, refs)
	for _, name := range unreferenced {
		log.Warn("Attachment is not referenced by any entry", "file", name)
	}
	log.Info("Attachment audit completed", "files", len(files), "unreferenced", len(unreferenced))
	return unreferenced, nil
}
