package database

// TimestampLayout is the layout report timestamps are stored in.
// Lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// User is an account that can log in.
// Password holds a bcrypt hash, never the plain password.
type User struct {
	ID       uint   `gorm:"primaryKey"`
	Username string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null" json:"-"`
	IsAdmin  bool   `gorm:"not null;default:false"`
}

func (User) TableName() string { return "users" }

// Report is a salvage report. It is never modified after creation.
type Report struct {
	ID        uint   `gorm:"primaryKey"`
	Timestamp string `gorm:"index;not null"`
	Location  string
	Subject   string
	Entries   []Entry `gorm:"foreignKey:ReportID"`
}

func (Report) TableName() string { return "reports" }

// Entry is one line in the course of events of a report.
// Image is the stored attachment filename, or empty.
type Entry struct {
	ID          uint `gorm:"primaryKey"`
	ReportID    uint `gorm:"index;not null"`
	Time        string
	Description string
	Image       string
}

func (Entry) TableName() string { return "entries" }

// EntryInput is one entry of a report submission.
type EntryInput struct {
	Time        string
	Description string
	Image       string
}

// Stats holds row counts for the stats command.
type Stats struct {
	Reports      int64
	Entries      int64
	Users        int64
	Attachments  int64
	LatestReport string
}
