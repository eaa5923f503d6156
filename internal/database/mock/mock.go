package mock

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/bjaergning/rapport/internal/database"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is a mock implementation of database.DB for testing.
// Passwords are compared in the clear.
type MockDB struct {
	mu sync.RWMutex

	// Report storage
	reports      map[uint]*database.Report
	entries      []database.Entry
	nextReportID uint
	nextEntryID  uint

	// User storage
	users      map[uint]*database.User
	nextUserID uint

	// Now is used for report timestamps.
	Now func() time.Time

	// Call tracking
	DeleteEntryCalls int

	// Error simulation
	CreateReportError  error
	ListReportsError   error
	GetReportError     error
	ListEntriesError   error
	DeleteEntryError   error
	AuthenticateError  error
	CreateUserError    error
	DeleteUserError    error
	ResetPasswordError error
	SeedError          error
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	m := &MockDB{Now: time.Now}
	m.Reset()
	return m
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reports = make(map[uint]*database.Report)
	m.entries = nil
	m.nextReportID = 1
	m.nextEntryID = 1
	m.users = make(map[uint]*database.User)
	m.nextUserID = 1
	m.DeleteEntryCalls = 0

	m.CreateReportError = nil
	m.ListReportsError = nil
	m.GetReportError = nil
	m.ListEntriesError = nil
	m.DeleteEntryError = nil
	m.AuthenticateError = nil
	m.CreateUserError = nil
	m.DeleteUserError = nil
	m.ResetPasswordError = nil
	m.SeedError = nil
}

// Report operations

func (m *MockDB) CreateReport(_ context.Context, location, subject string, entries []database.EntryInput) (uint, error) {
	if m.CreateReportError != nil {
		return 0, m.CreateReportError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	report := &database.Report{
		ID:        m.nextReportID,
		Timestamp: m.Now().Format(database.TimestampLayout),
		Location:  location,
		Subject:   subject,
	}
	m.nextReportID++
	m.reports[report.ID] = report

	for _, e := range entries {
		m.entries = append(m.entries, database.Entry{
			ID:          m.nextEntryID,
			ReportID:    report.ID,
			Time:        e.Time,
			Description: e.Description,
			Image:       e.Image,
		})
		m.nextEntryID++
	}

	return report.ID, nil
}

func (m *MockDB) ListReports(_ context.Context) ([]database.Report, error) {
	if m.ListReportsError != nil {
		return nil, m.ListReportsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	reports := make([]database.Report, 0, len(m.reports))
	for _, r := range m.reports {
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Timestamp != reports[j].Timestamp {
			return reports[i].Timestamp > reports[j].Timestamp
		}
		return reports[i].ID > reports[j].ID
	})
	return reports, nil
}

func (m *MockDB) GetReport(_ context.Context, id uint) (*database.Report, error) {
	if m.GetReportError != nil {
		return nil, m.GetReportError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	report, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %d: %w", id, database.ErrNotFound)
	}
	r := *report
	return &r, nil
}

func (m *MockDB) ListEntries(_ context.Context, reportID uint) ([]database.Entry, error) {
	if m.ListEntriesError != nil {
		return nil, m.ListEntriesError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []database.Entry
	for _, e := range m.entries {
		if e.ReportID == reportID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockDB) DeleteEntry(_ context.Context, reportID, entryID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteEntryCalls++
	if m.DeleteEntryError != nil {
		return m.DeleteEntryError
	}

	m.entries = slices.DeleteFunc(m.entries, func(e database.Entry) bool {
		return e.ID == entryID && e.ReportID == reportID
	})
	return nil
}

func (m *MockDB) ListAttachmentRefs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var refs []string
	for _, e := range m.entries {
		if e.Image != "" && !slices.Contains(refs, e.Image) {
			refs = append(refs, e.Image)
		}
	}
	slices.Sort(refs)
	return refs, nil
}

func (m *MockDB) ReportIDsByAttachment(_ context.Context, name string) ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []uint
	for _, e := range m.entries {
		if name != "" && e.Image == name && !slices.Contains(ids, e.ReportID) {
			ids = append(ids, e.ReportID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MockDB) GetStats(_ context.Context) (*database.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &database.Stats{
		Reports: int64(len(m.reports)),
		Entries: int64(len(m.entries)),
		Users:   int64(len(m.users)),
	}
	for _, e := range m.entries {
		if e.Image != "" {
			stats.Attachments++
		}
	}
	for _, r := range m.reports {
		if r.Timestamp > stats.LatestReport {
			stats.LatestReport = r.Timestamp
		}
	}
	return stats, nil
}

// User operations

func (m *MockDB) Authenticate(_ context.Context, username, password string) (*database.User, error) {
	if m.AuthenticateError != nil {
		return nil, m.AuthenticateError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username && u.Password == password {
			user := *u
			return &user, nil
		}
	}
	return nil, database.ErrInvalidCredentials
}

func (m *MockDB) ListUsers(_ context.Context) ([]database.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]database.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MockDB) CreateUser(_ context.Context, username, password string, isAdmin bool) (*database.User, error) {
	if m.CreateUserError != nil {
		return nil, m.CreateUserError
	}
	if username == "" || password == "" {
		return nil, database.ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			return nil, database.ErrUsernameTaken
		}
	}

	user := &database.User{
		ID:       m.nextUserID,
		Username: username,
		Password: password,
		IsAdmin:  isAdmin,
	}
	m.nextUserID++
	m.users[user.ID] = user

	u := *user
	return &u, nil
}

func (m *MockDB) DeleteUser(_ context.Context, id uint) error {
	if m.DeleteUserError != nil {
		return m.DeleteUserError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	if user.IsAdmin {
		return database.ErrAdminProtected
	}
	delete(m.users, id)
	return nil
}

func (m *MockDB) ResetPassword(_ context.Context, id uint, password string) error {
	if m.ResetPasswordError != nil {
		return m.ResetPasswordError
	}
	if password == "" {
		return database.ErrInvalidInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	user.Password = password
	return nil
}

func (m *MockDB) Seed(ctx context.Context) error {
	if m.SeedError != nil {
		return m.SeedError
	}

	m.mu.RLock()
	empty := len(m.users) == 0
	m.mu.RUnlock()
	if !empty {
		return nil
	}

	if _, err := m.CreateUser(ctx, "admin", "admin123", true); err != nil {
		return err
	}
	for i := 1; i <= 6; i++ {
		if _, err := m.CreateUser(ctx, fmt.Sprintf("bruger%d", i), "test123", false); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockDB) Close() error {
	return nil
}
