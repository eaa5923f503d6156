package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bjaergning/rapport/internal/api/models"
	"github.com/bjaergning/rapport/internal/database"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type fakeAccounts struct {
	users map[string]database.User
	pw    map[string]string
	err   error
}

func (f *fakeAccounts) Authenticate(_ context.Context, username, password string) (*database.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok || f.pw[username] != password {
		return nil, database.ErrInvalidCredentials
	}
	return &u, nil
}

type GateTestSuite struct {
	suite.Suite
	router *gin.Engine
	gate   *Gate
	now    time.Time
}

func (s *GateTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	accounts := &fakeAccounts{
		users: map[string]database.User{
			"admin":   {ID: 1, Username: "admin", IsAdmin: true},
			"bruger1": {ID: 2, Username: "bruger1"},
		},
		pw: map[string]string{
			"admin":   "admin123",
			"bruger1": "test123",
		},
	}

	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	s.gate = NewGate(accounts, time.Hour)
	s.gate.now = func() time.Time { return s.now }

	s.router = gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	s.router.Use(sessions.Sessions("rapport_session", store))

	s.router.POST("/login", func(c *gin.Context) {
		user, err := s.gate.Authenticate(c.Request.Context(), c.PostForm("username"), c.PostForm("password"))
		if err != nil {
			c.String(http.StatusUnauthorized, err.Error())
			return
		}
		if err := s.gate.Login(c, user); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, "ok")
	})
	s.router.GET("/logout", func(c *gin.Context) {
		_ = s.gate.Logout(c)
		c.Redirect(http.StatusFound, LoginPath)
	})

	protected := s.router.Group("/")
	protected.Use(s.gate.RequireAuth())
	protected.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c).Username)
	})

	admin := protected.Group("/admin")
	admin.Use(s.gate.RequireAdmin())
	admin.GET("", func(c *gin.Context) {
		c.String(http.StatusOK, "admin")
	})
}

func (s *GateTestSuite) login(username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *GateTestSuite) get(path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *GateTestSuite) TestAuthenticate_SeedAdmin() {
	user, err := s.gate.Authenticate(context.Background(), "admin", "admin123")
	s.Require().NoError(err)
	s.Equal(&models.User{ID: 1, Username: "admin", IsAdmin: true}, user)

	_, err = s.gate.Authenticate(context.Background(), "admin", "wrong")
	s.ErrorIs(err, ErrInvalidCredentials)

	_, err = s.gate.Authenticate(context.Background(), "", "")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *GateTestSuite) TestAuthenticate_StorageError() {
	gate := NewGate(&fakeAccounts{err: errors.New("database is locked")}, time.Hour)
	_, err := gate.Authenticate(context.Background(), "admin", "admin123")
	s.EqualError(err, "database is locked")
	s.NotErrorIs(err, ErrInvalidCredentials)
}

func (s *GateTestSuite) TestRequireAuth_NoSession() {
	w := s.get("/", nil)
	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath, w.Header().Get("Location"))
}

func (s *GateTestSuite) TestRequireAuth_ValidSession() {
	w := s.login("bruger1", "test123")
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.get("/", w.Result().Cookies())
	s.Equal(http.StatusOK, w.Code)
	s.Equal("bruger1", w.Body.String())
}

func (s *GateTestSuite) TestRequireAuth_IdleTimeout() {
	w := s.login("bruger1", "test123")
	s.Require().Equal(http.StatusOK, w.Code)
	cookies := w.Result().Cookies()

	// each request refreshes the idle timer
	s.now = s.now.Add(50 * time.Minute)
	w = s.get("/", cookies)
	s.Require().Equal(http.StatusOK, w.Code)
	cookies = w.Result().Cookies()

	s.now = s.now.Add(50 * time.Minute)
	w = s.get("/", cookies)
	s.Require().Equal(http.StatusOK, w.Code)
	cookies = w.Result().Cookies()

	s.now = s.now.Add(61 * time.Minute)
	w = s.get("/", cookies)
	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath, w.Header().Get("Location"))
}

func (s *GateTestSuite) TestRequireAdmin() {
	w := s.login("bruger1", "test123")
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.get("/admin", w.Result().Cookies())
	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath, w.Header().Get("Location"))

	w = s.login("admin", "admin123")
	s.Require().Equal(http.StatusOK, w.Code)
	w = s.get("/admin", w.Result().Cookies())
	s.Equal(http.StatusOK, w.Code)
	s.Equal("admin", w.Body.String())
}

func (s *GateTestSuite) TestLogout() {
	w := s.login("admin", "admin123")
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.get("/logout", w.Result().Cookies())
	s.Equal(http.StatusFound, w.Code)

	w = s.get("/", w.Result().Cookies())
	s.Equal(http.StatusFound, w.Code)
	s.Equal(LoginPath, w.Header().Get("Location"))
}

func TestGateTestSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func TestLoadSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(sessions.Sessions("s", cookie.NewStore([]byte("k"))))

	var loaded models.Session
	router.GET("/", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(KeyLoggedIn, true)
		session.Set(KeyUserID, uint(5))
		session.Set(KeyUsername, "bruger5")
		session.Set(KeyIsAdmin, "not-a-bool")
		session.Set(KeyLastSeen, int64(1714557600))
		loaded = LoadSession(session)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.True(t, loaded.LoggedIn)
	assert.Equal(t, uint(5), loaded.UserID)
	assert.Equal(t, "bruger5", loaded.Username)
	assert.False(t, loaded.IsAdmin)
	assert.Equal(t, int64(1714557600), loaded.LastSeen.Unix())
}
