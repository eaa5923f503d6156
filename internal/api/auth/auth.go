package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/bjaergning/rapport/internal/api/models"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys.
const (
	KeyLoggedIn = "logged_in"
	KeyUserID   = "user_id"
	KeyUsername = "username"
	KeyIsAdmin  = "is_admin"
	KeyLastSeen = "last_seen"
)

// ContextUserKey is the gin context key of the authenticated *models.User.
const ContextUserKey = "user"

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// ErrInvalidCredentials is returned when a username/password pair is rejected.
var ErrInvalidCredentials = database.ErrInvalidCredentials

// Authenticator verifies credentials against the account directory.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*database.User, error)
}

// Gate maps logins to sessions and guards the protected routes.
type Gate struct {
	accounts Authenticator
	idle     time.Duration
	now      func() time.Time
}

// NewGate creates a session gate with the given idle timeout.
func NewGate(accounts Authenticator, idle time.Duration) *Gate {
	if idle <= 0 {
		idle = 60 * time.Minute
	}
	return &Gate{
		accounts: accounts,
		idle:     idle,
		now:      time.Now,
	}
}

// IdleTimeout returns how long a session survives without requests.
func (g *Gate) IdleTimeout() time.Duration {
	return g.idle
}

// LoggedIn reports whether the request carries a valid session. The session is not refreshed.
func (g *Gate) LoggedIn(c *gin.Context) bool {
	return !LoadSession(sessions.Default(c)).Expired(g.now(), g.idle)
}

// Authenticate checks the credentials and returns the session identity.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := g.accounts.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			log.Warn("Rejected login", "username", username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	return &models.User{
		ID:       user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}, nil
}

// Login starts a fresh session for the user.
func (g *Gate) Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(KeyLoggedIn, true)
	session.Set(KeyUserID, user.ID)
	session.Set(KeyUsername, user.Username)
	session.Set(KeyIsAdmin, user.IsAdmin)
	session.Set(KeyLastSeen, g.now().Unix())
	return session.Save()
}

// Logout clears the session.
func (g *Gate) Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

// RequireAuth redirects to the login page unless the session is valid.
// A valid session gets its idle timer refreshed and the user stored in the gin context.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		current := LoadSession(session)

		now := g.now()
		if current.Expired(now, g.idle) {
			if current.LoggedIn {
				log.Debug("Session expired", "user", current.Username)
			}
			session.Clear()
			if err := session.Save(); err != nil {
				log.Error("Failed to clear session", "error", err)
			}
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}

		session.Set(KeyLastSeen, now.Unix())
		if err := session.Save(); err != nil {
			log.Error("Failed to refresh session", "error", err)
		}

		c.Set(ContextUserKey, current.User())
		c.Next()
	}
}

// RequireAdmin redirects to the login page unless the user is an administrator.
// It must run after RequireAuth.
func (g *Gate) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			c.Redirect(http.StatusFound, LoginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by RequireAuth, or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// LoadSession reads the session values.
func LoadSession(session sessions.Session) models.Session {
	s := models.Session{
		LoggedIn: getSessionBool(session, KeyLoggedIn),
		UserID:   getSessionUint(session, KeyUserID),
		Username: getSessionString(session, KeyUsername),
		IsAdmin:  getSessionBool(session, KeyIsAdmin),
	}
	if lastSeen := getSessionInt64(session, KeyLastSeen); lastSeen > 0 {
		s.LastSeen = time.Unix(lastSeen, 0)
	}
	return s
}

// Helper functions to safely get session values.
func getSessionString(session sessions.Session, key string) string {
	if val := session.Get(key); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getSessionBool(session sessions.Session, key string) bool {
	if val := session.Get(key); val != nil {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func getSessionUint(session sessions.Session, key string) uint {
	if val := session.Get(key); val != nil {
		if u, ok := val.(uint); ok {
			return u
		}
	}
	return 0
}

func getSessionInt64(session sessions.Session, key string) int64 {
	if val := session.Get(key); val != nil {
		if i, ok := val.(int64); ok {
			return i
		}
	}
	return 0
}
