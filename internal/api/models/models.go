package models

import "time"

// User is the identity carried by an authenticated session.
type User struct {
	ID       uint
	Username string
	IsAdmin  bool
}

// Session holds the values stored in the session cookie.
type Session struct {
	LoggedIn bool
	UserID   uint
	Username string
	IsAdmin  bool
	LastSeen time.Time
}

// Expired reports whether the session is absent or has been idle longer than idle.
func (s Session) Expired(now time.Time, idle time.Duration) bool {
	if !s.LoggedIn || s.UserID == 0 || s.LastSeen.IsZero() {
		return true
	}
	return now.Sub(s.LastSeen) > idle
}

// User returns the identity of the session.
func (s Session) User() *User {
	return &User{
		ID:       s.UserID,
		Username: s.Username,
		IsAdmin:  s.IsAdmin,
	}
}

// ReportItem is a report row on the report list.
type ReportItem struct {
	ID       uint
	Location string
	Subject  string
	Date     string    // minute precision, as printed on the PDF
	Created  time.Time // zero if the stored timestamp cannot be parsed
}

// ReportView is a single report with its entries.
type ReportView struct {
	ReportItem
	Entries []EntryItem
}

// EntryItem is one entry of a report page.
type EntryItem struct {
	ID          uint
	Time        string
	Description string
	Image       string
	ImageURL    string
}

// UserItem is an account row on the admin page.
type UserItem struct {
	ID       uint
	Username string
	IsAdmin  bool
}

// CacheItem describes the document cache on the admin page.
type CacheItem struct {
	Type   string
	Hits   int64
	Misses int64
}

// StatsItem summarizes the stored data on the admin page.
type StatsItem struct {
	Reports         int64
	Entries         int64
	Users           int64
	Attachments     int64
	AttachmentBytes int64
	LatestReport    time.Time
}
