package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a report or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAdminProtected is returned when trying to delete an administrator account.
	ErrAdminProtected = errors.New("admin accounts cannot be deleted")
	// ErrUsernameTaken is returned when creating a user with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned when a username/password pair does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidInput is returned for empty usernames or passwords.
	ErrInvalidInput = errors.New("invalid input")
)

// DB is the storage contract of the report service.
type DB interface {
	// Report repository
	CreateReport(ctx context.Context, location, subject string, entries []EntryInput) (uint, error)
	ListReports(ctx context.Context) ([]Report, error)
	GetReport(ctx context.Context, id uint) (*Report, error)
	ListEntries(ctx context.Context, reportID uint) ([]Entry, error)
	DeleteEntry(ctx context.Context, reportID, entryID uint) error
	ListAttachmentRefs(ctx context.Context) ([]string, error)
	ReportIDsByAttachment(ctx context.Context, name string) ([]uint, error)
	GetStats(ctx context.Context) (*Stats, error)

	// Account directory
	Authenticate(ctx context.Context, username, password string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	CreateUser(ctx context.Context, username, password string, isAdmin bool) (*User, error)
	DeleteUser(ctx context.Context, id uint) error
	ResetPassword(ctx context.Context, id uint, password string) error

	Seed(ctx context.Context) error
	Close() error
}

var _ DB = (*Client)(nil) // Ensure Client implements DB

// Client wraps the gorm.DB instance.
type Client struct {
	db         *gorm.DB
	now        func() time.Time
	bcryptCost int
	dummyHash  []byte
}

// Option configures a Client.
type Option func(*Client)

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithBcryptCost overrides the bcrypt cost used for password hashes.
func WithBcryptCost(cost int) Option {
	return func(c *Client) {
		c.bcryptCost = cost
	}
}

// New creates a new database connection and performs migrations.
func New(dbpath string, opts ...Option) (*Client, error) {
	if dir := filepath.Dir(dbpath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbpath+"?_pragma=foreign_keys(1)"), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.AutoMigrate(
		&User{},
		&Report{},
		&Entry{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c := &Client{
		db:         db,
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(c)
	}

	// compared against when a username is unknown, so both paths cost one bcrypt run
	c.dummyHash, err = bcrypt.GenerateFromPassword([]byte("not-a-password"), c.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hashing: %w", err)
	}

	return c, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

const (
	seedAdminUsername = "admin"
	seedAdminPassword = "admin123"
	seedUserPassword  = "test123"
	seedUserCount     = 6
)

// Seed creates the default admin and placeholder accounts if no users exist yet.
// It is safe to call on every startup.
func (c *Client) Seed(ctx context.Context) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if count > 0 {
			log.Debug("users already present, skipping seed", "count", count)
			return nil
		}

		users := make([]User, 0, seedUserCount+1)
		adminHash, err := c.hashPassword(seedAdminPassword)
		if err != nil {
			return err
		}
		users = append(users, User{Username: seedAdminUsername, Password: adminHash, IsAdmin: true})

		for i := 1; i <= seedUserCount; i++ {
			hash, err := c.hashPassword(seedUserPassword)
			if err != nil {
				return err
			}
			users = append(users, User{Username: fmt.Sprintf("bruger%d", i), Password: hash})
		}

		if err := tx.Create(&users).Error; err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		log.Info("seeded default accounts", "admin", seedAdminUsername, "users", seedUserCount)
		return nil
	})
}

func (c *Client) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
