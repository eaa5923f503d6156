package models

import (
	"net/url"
	"time"

	"github.com/bjaergning/rapport/internal/database"
	"github.com/bjaergning/rapport/internal/document"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/samber/lo"
)

// UploadsPath is the URL prefix stored photos are served under.
const UploadsPath = "/static/uploads"

// ParseTimestamp parses a stored report timestamp in local time.
func ParseTimestamp(ts string) (time.Time, error) {
	return time.ParseInLocation(database.TimestampLayout, ts, time.Local)
}

// ToReportItem converts a database.Report to a ReportItem.
func ToReportItem(r database.Report) ReportItem {
	item := ReportItem{
		ID:       r.ID,
		Location: r.Location,
		Subject:  r.Subject,
		Date:     document.FormatDate(r.Timestamp),
	}
	if created, err := ParseTimestamp(r.Timestamp); err == nil {
		item.Created = created
	}
	return item
}

// ToReportItems converts a slice of database.Report to ReportItems.
func ToReportItems(reports []database.Report) []ReportItem {
	return lo.Map(reports, func(r database.Report, _ int) ReportItem {
		return ToReportItem(r)
	})
}

// ToEntryItem converts a database.Entry to an EntryItem.
func ToEntryItem(e database.Entry) EntryItem {
	item := EntryItem{
		ID:          e.ID,
		Time:        e.Time,
		Description: e.Description,
		Image:       e.Image,
	}
	if e.Image != "" {
		item.ImageURL = UploadsPath + "/" + url.PathEscape(e.Image)
	}
	return item
}

// ToReportView converts a report and its entries to a ReportView.
func ToReportView(r database.Report, entries []database.Entry) ReportView {
	return ReportView{
		ReportItem: ToReportItem(r),
		Entries: lo.Map(entries, func(e database.Entry, _ int) EntryItem {
			return ToEntryItem(e)
		}),
	}
}

// ToUserItems converts a slice of database.User to UserItems. Password hashes are dropped.
func ToUserItems(users []database.User) []UserItem {
	return lo.Map(users, func(u database.User, _ int) UserItem {
		return UserItem{
			ID:       u.ID,
			Username: u.Username,
			IsAdmin:  u.IsAdmin,
		}
	})
}

// ToStatsItem converts database.Stats and the attachment directory size to a StatsItem.
func ToStatsItem(s *database.Stats, attachmentBytes int64) StatsItem {
	if s == nil {
		return StatsItem{AttachmentBytes: attachmentBytes}
	}
	item := StatsItem{
		Reports:         s.Reports,
		Entries:         s.Entries,
		Users:           s.Users,
		Attachments:     s.Attachments,
		AttachmentBytes: attachmentBytes,
	}
	if latest, err := ParseTimestamp(s.LatestReport); err == nil {
		item.LatestReport = latest
	}
	return item
}

// ToCacheItem converts the document cache type and codec statistics to a CacheItem.
func ToCacheItem(cacheType string, stats *codec.Stats) CacheItem {
	item := CacheItem{Type: cacheType}
	if stats != nil {
		item.Hits = int64(stats.Hits)
		item.Misses = int64(stats.Miss)
	}
	return item
}
