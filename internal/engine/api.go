package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bjaergning/rapport/internal/cache"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/charmbracelet/log"
)

// Upload is a photo received with a submission.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Submission is one entry of a report submission.
type Submission struct {
	Time        string
	Description string
	Image       *Upload
}

// ReportDetail is a report together with its entries in insertion order.
type ReportDetail struct {
	Report  *database.Report
	Entries []database.Entry
}

// ZipEntries combines the parallel time, description and image form lists into submissions.
// times and descs must have the same length. images may be shorter, a missing slot means no photo.
func ZipEntries(times, descs []string, images []*Upload) ([]Submission, error) {
	if len(times) != len(descs) {
		return nil, fmt.Errorf("%w: got %d times and %d descriptions", ErrValidation, len(times), len(descs))
	}
	if len(images) > len(times) {
		return nil, fmt.Errorf("%w: got %d images for %d entries", ErrValidation, len(images), len(times))
	}

	submissions := make([]Submission, len(times))
	for i := range times {
		submissions[i] = Submission{
			Time:        times[i],
			Description: descs[i],
		}
		if i < len(images) {
			submissions[i].Image = images[i]
		}
	}
	return submissions, nil
}

// SubmitReport stores the photos of the submission and creates the report with its entries.
// A photo that cannot be stored is dropped from its entry.
func (e *Engine) SubmitReport(ctx context.Context, location, subject string, submissions []Submission) (uint, error) {
	if strings.TrimSpace(location) == "" {
		return 0, fmt.Errorf("%w: location is required", ErrValidation)
	}
	if strings.TrimSpace(subject) == "" {
		return 0, fmt.Errorf("%w: subject is required", ErrValidation)
	}

	entries := make([]database.EntryInput, 0, len(submissions))
	for _, s := range submissions {
		entry := database.EntryInput{
			Time:        s.Time,
			Description: s.Description,
		}
		if s.Image != nil && s.Image.Content != nil {
			name, err := e.attachments.Save(s.Image.Filename, s.Image.Content)
			if err != nil {
				log.Error("Failed to store attachment, entry is saved without photo", "filename", s.Image.Filename, "error", err)
			}
			entry.Image = name
			if name != "" {
				e.invalidateDocumentsUsing(ctx, name)
			}
		}
		entries = append(entries, entry)
	}

	id, err := e.db.CreateReport(ctx, location, subject, entries)
	if err != nil {
		log.Error("Failed to create report", "error", err)
		return 0, err
	}
	log.Info("Report created", "id", id, "location", location, "entries", len(entries))
	return id, nil
}

// invalidateDocumentsUsing drops the cached documents of reports that embed the attachment.
// Same-named uploads overwrite the stored file, so those documents are stale.
func (e *Engine) invalidateDocumentsUsing(ctx context.Context, name string) {
	ids, err := e.db.ReportIDsByAttachment(ctx, name)
	if err != nil {
		log.Warn("Failed to look up reports using attachment", "file", name, "error", err)
		return
	}
	for _, id := range ids {
		if err := e.cache.Delete(ctx, id); err != nil {
			log.Warn("Failed to invalidate cached document", "report", id, "error", err)
		}
	}
}

// Reports returns all reports, most recent first.
func (e *Engine) Reports(ctx context.Context) ([]database.Report, error) {
	return e.db.ListReports(ctx)
}

// Report returns a report and its entries.
func (e *Engine) Report(ctx context.Context, id uint) (*ReportDetail, error) {
	report, err := e.db.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := e.db.ListEntries(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ReportDetail{Report: report, Entries: entries}, nil
}

// DeleteEntry removes an entry from a report. The photo file stays on disk.
func (e *Engine) DeleteEntry(ctx context.Context, reportID, entryID uint) error {
	if err := e.db.DeleteEntry(ctx, reportID, entryID); err != nil {
		log.Error("Failed to delete entry", "report", reportID, "entry", entryID, "error", err)
		return err
	}
	if err := e.cache.Delete(ctx, reportID); err != nil {
		log.Warn("Failed to invalidate cached document", "report", reportID, "error", err)
	}
	return nil
}

// ReportPDF renders a report as PDF. Rendered documents are cached by report id.
func (e *Engine) ReportPDF(ctx context.Context, id uint) ([]byte, error) {
	pdf, err := e.cache.Get(ctx, id)
	if err == nil {
		log.Debug("Serving cached document", "report", id)
		return pdf, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn("Failed to read document cache", "report", id, "error", err)
	}

	detail, err := e.Report(ctx, id)
	if err != nil {
		return nil, err
	}

	pdf, err = e.documents.Render(*detail.Report, detail.Entries)
	if err != nil {
		log.Error("Failed to render report", "report", id, "error", err)
		return nil, fmt.Errorf("failed to render report %d: %w", id, err)
	}

	if err := e.cache.Set(ctx, id, pdf); err != nil {
		log.Warn("Failed to cache rendered document", "report", id, "error", err)
	}
	return pdf, nil
}

// EmailReport renders a report and sends it to the recipient.
// The error is only set when the report cannot be rendered, a failed delivery returns false.
func (e *Engine) EmailReport(ctx context.Context, id uint, recipient string) (bool, error) {
	pdf, err := e.ReportPDF(ctx, id)
	if err != nil {
		return false, err
	}
	return e.mailer.Send(pdf, strings.TrimSpace(recipient)), nil
}
