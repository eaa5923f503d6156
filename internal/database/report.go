package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// CreateReport stores a report together with its entries in one transaction.
// Entries are inserted in the given order.
func (c *Client) CreateReport(ctx context.Context, location, subject string, entries []EntryInput) (uint, error) {
	report := Report{
		Timestamp: c.now().Format(TimestampLayout),
		Location:  location,
		Subject:   subject,
	}

	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return fmt.Errorf("failed to insert report: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		rows := make([]Entry, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, Entry{
				ReportID:    report.ID,
				Time:        e.Time,
				Description: e.Description,
				Image:       e.Image,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert entries: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create report", "error", err)
		return 0, err
	}

	log.Debug("created report", "id", report.ID, "entries", len(entries))
	return report.ID, nil
}

// ListReports returns all reports, most recent first.
func (c *Client) ListReports(ctx context.Context) ([]Report, error) {
	var reports []Report
	if err := c.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&reports).Error; err != nil {
		log.Error("failed to list reports", "error", err)
		return nil, err
	}
	return reports, nil
}

// GetReport returns the report with the given id without its entries.
func (c *Client) GetReport(ctx context.Context, id uint) (*Report, error) {
	var report Report
	if err := c.db.WithContext(ctx).First(&report, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
		}
		log.Error("failed to get report", "id", id, "error", err)
		return nil, err
	}
	return &report, nil
}

// ListEntries returns the entries of a report in insertion order.
func (c *Client) ListEntries(ctx context.Context, reportID uint) ([]Entry, error) {
	var entries []Entry
	if err := c.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("id ASC").
		Find(&entries).Error; err != nil {
		log.Error("failed to list entries", "report_id", reportID, "error", err)
		return nil, err
	}
	return entries, nil
}

// DeleteEntry removes the entry matching both ids. Deleting a missing entry is not an error.
// The entry's attachment file is not touched.
func (c *Client) DeleteEntry(ctx context.Context, reportID, entryID uint) error {
	result := c.db.WithContext(ctx).
		Where("id = ? AND report_id = ?", entryID, reportID).
		Delete(&Entry{})
	if result.Error != nil {
		log.Error("failed to delete entry", "report_id", reportID, "entry_id", entryID, "error", result.Error)
		return result.Error
	}
	log.Debug("deleted entry", "report_id", reportID, "entry_id", entryID, "rows", result.RowsAffected)
	return nil
}

// ListAttachmentRefs returns the distinct attachment filenames referenced by entries.
func (c *Client) ListAttachmentRefs(ctx context.Context) ([]string, error) {
	var refs []string
	if err := c.db.WithContext(ctx).
		Model(&Entry{}).
		Where("image <> ?", "").
		Distinct().
		Order("image").
		Pluck("image", &refs).Error; err != nil {
		log.Error("failed to list attachment references", "error", err)
		return nil, err
	}
	return refs, nil
}

// ReportIDsByAttachment returns the ids of the reports with an entry referencing the attachment file.
func (c *Client) ReportIDsByAttachment(ctx context.Context, name string) ([]uint, error) {
	var ids []uint
	if err := c.db.WithContext(ctx).
		Model(&Entry{}).
		Where("image = ?", name).
		Distinct().
		Order("report_id").
		Pluck("report_id", &ids).Error; err != nil {
		log.Error("failed to list reports by attachment", "image", name, "error", err)
		return nil, err
	}
	return ids, nil
}

// GetStats returns row counts and the timestamp of the latest report.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	db := c.db.WithContext(ctx)

	if err := db.Model(&Report{}).Count(&stats.Reports).Error; err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	if err := db.Model(&Entry{}).Count(&stats.Entries).Error; err != nil {
		return nil, fmt.Errorf("failed to count entries: %w", err)
	}
	if err := db.Model(&Entry{}).Where("image <> ?", "").Count(&stats.Attachments).Error; err != nil {
		return nil, fmt.Errorf("failed to count attachments: %w", err)
	}
	if err := db.Model(&User{}).Count(&stats.Users).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	var latest Report
	err := db.Order("timestamp DESC").Order("id DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}
	stats.LatestReport = latest.Timestamp

	return &stats, nil
}
