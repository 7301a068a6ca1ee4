package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/eduportal/internal/common"
	"github.com/dmitrijs2005/eduportal/internal/cryptox"
	"github.com/dmitrijs2005/eduportal/internal/logging"
	"github.com/dmitrijs2005/eduportal/internal/server/auth"
	"github.com/dmitrijs2005/eduportal/internal/server/models"
	"github.com/dmitrijs2005/eduportal/internal/server/notify"
	"github.com/dmitrijs2005/eduportal/internal/server/ratelimit"
	"github.com/dmitrijs2005/eduportal/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/eduportal/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testHasher = cryptox.NewHasher(bcrypt.MinCost)

type testEnv struct {
	server *HTTPServer
	repos  *repomanager.InMemoryRepositoryManager
}

func newTestEnv(t *testing.T, mutate ...func(o *Options)) *testEnv {
	t.Helper()
	repos := repomanager.NewInMemoryRepositoryManager()
	o := Options{
		Sessions:         services.NewSessionService(repos, testHasher, auth.NewJWTCodec([]byte("test-secret"), 0), logging.Nop()),
		Resets:           services.NewPasswordResetService(repos, testHasher, notify.NewLogNotifier(logging.Nop()), time.Hour, logging.Nop()),
		Gate:             testGate,
		Cookies:          CookieOptions{Secure: true},
		ExposeResetToken: true,
		Logger:           logging.Nop(),
	}
	for _, fn := range mutate {
		fn(&o)
	}
	return &testEnv{server: NewHTTPServer(o), repos: repos}
}

func (e *testEnv) seed(t *testing.T, kind models.Kind, email, password string) *models.Principal {
	t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(t, err)
	p, err := e.repos.Principals().Create(context.Background(), &models.Principal{
		Kind: kind, Email: email, PasswordHash: hash, Name: "Test", Role: kind.DefaultRole(),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// login returns the session cookie set by /auth/login.
func (e *testEnv) login(t *testing.T, email, password string) *http.Cookie {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/login", gin.H{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(common.RequestIDHeaderName))
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.KindAdmin, "boss@example.com", "admin-pass")

	t.Run("sets hardened cookie", func(t *testing.T) {
		c := env.login(t, "boss@example.com", "admin-pass")
		assert.Equal(t, common.AdminSessionCookie, c.Name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "boss@example.com", "password": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid credentials", decode(t, rec)["error"])
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("missing field", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "boss@example.com"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid", decode(t, rec)["error"])
	})
}

func TestSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.KindAdmin, "boss@example.com", "admin-pass")
	env.seed(t, models.KindUser, "student@example.com", "user-pass")

	t.Run("no cookies", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/session", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, map[string]any{"authenticated": false}, decode(t, rec))
	})

	t.Run("admin precedence", func(t *testing.T) {
		admin := env.login(t, "boss@example.com", "admin-pass")
		user := env.login(t, "student@example.com", "user-pass")

		rec := env.do(t, http.MethodGet, "/auth/session", nil, admin, user)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, true, body["authenticated"])
		u := body["user"].(map[string]any)
		assert.Equal(t, "boss@example.com", u["email"])
		assert.Equal(t, "admin", u["role"])
	})

	t.Run("tampered cookie fails closed", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/auth/session", nil,
			&http.Cookie{Name: common.AdminSessionCookie, Value: "eyJhbGciOiJIUzI1NiJ9.e30.bad"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.KindUser, "student@example.com", "user-pass")
	user := env.login(t, "student@example.com", "user-pass")

	rec := env.do(t, http.MethodPost, "/auth/logout", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	cleared := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cleared[c.Name] = c
	}
	require.Contains(t, cleared, common.AdminSessionCookie)
	require.Contains(t, cleared, common.UserSessionCookie)
	for _, c := range cleared {
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
	}

	// a browser honouring the response sends the emptied cookies back
	rec = env.do(t, http.MethodGet, "/auth/session", nil, cleared[common.AdminSessionCookie], cleared[common.UserSessionCookie])
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestResetRequest(t *testing.T) {
	t.Run("unknown email", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/auth/reset-request", gin.H{"email": "a@x.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"success": true}, decode(t, rec))
		assert.Equal(t, 0, env.repos.ResetStore().Len("a@x.com"))
	})

	t.Run("token hidden unless exposed", func(t *testing.T) {
		env := newTestEnv(t, func(o *Options) { o.ExposeResetToken = false })
		env.seed(t, models.KindUser, "student@example.com", "user-pass")

		rec := env.do(t, http.MethodPost, "/auth/reset-request", gin.H{"email": "student@example.com"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]any{"success": true}, decode(t, rec))
		assert.Equal(t, 1, env.repos.ResetStore().Len("student@example.com"))
	})

	t.Run("missing email", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(t, http.MethodPost, "/auth/reset-request", gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestReset_Flow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.KindAdmin, "boss@example.com", "pw1")

	rec := env.do(t, http.MethodPost, "/auth/reset-request", gin.H{"email": "boss@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decode(t, rec)["token"].(string)
	require.NotEmpty(t, token)

	rec = env.do(t, http.MethodPost, "/auth/reset", gin.H{"token": token, "email": "boss@example.com", "password": "pw2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	env.login(t, "boss@example.com", "pw2")
	rec = env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "boss@example.com", "password": "pw1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/reset", gin.H{"token": token, "email": "boss@example.com", "password": "pw3"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rec)["error"])
}

func TestReset_Validation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/auth/reset", gin.H{"token": "t", "email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/auth/reset", gin.H{"token": "t", "password": "long-enough"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid", decode(t, rec)["error"])

	rec = env.do(t, http.MethodPost, "/auth/reset", gin.H{"token": "t", "email": "a@x.com", "password": "long-enough"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", decode(t, rec)["error"])
}

func TestReset_Force(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.KindAdmin, "boss@example.com", "admin-pass")
	env.seed(t, models.KindUser, "student@example.com", "user-pass")
	admin := env.login(t, "boss@example.com", "admin-pass")
	user := env.login(t, "student@example.com", "user-pass")

	body := gin.H{"email": "student@example.com", "password": "forced-pass", "force": true}

	rec := env.do(t, http.MethodPost, "/auth/reset", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "no session")

	rec = env.do(t, http.MethodPost, "/auth/reset", body, user)
	assert.Equal(t, http.StatusForbidden, rec.Code, "user session")

	rec = env.do(t, http.MethodPost, "/auth/reset", body, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.login(t, "student@example.com", "forced-pass")

	rec = env.do(t, http.MethodPost, "/auth/reset", gin.H{"email": "ghost@example.com", "password": "forced-pass", "force": true}, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, models.KindUser, "student@example.com", "user-pass")
	user := env.login(t, "student@example.com", "user-pass")

	rec := env.do(t, http.MethodPost, "/auth/change-password", gin.H{"currentPassword": "user-pass", "newPassword": "new-user-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/auth/change-password", gin.H{"currentPassword": "user-pass", "newPassword": strings.Repeat("x", 73)}, user)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "at most 72")

	rec = env.do(t, http.MethodPost, "/auth/change-password", gin.H{"currentPassword": "user-pass", "newPassword": "new-user-pass"}, user)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.login(t, "student@example.com", "new-user-pass")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.LoginLimiter = ratelimit.NewMemoryLimiter(2, time.Hour)
	})

	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "whatever"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "whatever"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", decode(t, rec)["error"])

	// other endpoints keep working
	rec = env.do(t, http.MethodPost, "/auth/reset-request", gin.H{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_RedisKeyLayout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	env := newTestEnv(t, func(o *Options) {
		o.LoginLimiter = ratelimit.NewRedisLimiter(db, ratelimit.KeyPrefix, 5, time.Minute)
	})

	key := "eduportal:rl:login:192.0.2.1"
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpireNX(key, time.Minute).SetVal(true)
	mock.ExpectTxPipelineExec()

	rec := env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "a@x.com", "password": "whatever"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.ResetLimiter = failingLimiter{} })
	rec := env.do(t, http.MethodPost, "/auth/reset-request", gin.H{"email": "a@x.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

type brokenSessions struct{ SessionService }

func (brokenSessions) Resolve(context.Context, services.SessionCookies) (*models.Principal, error) {
	return nil, errors.New("connection reset by peer")
}

func TestInternalErrorsAreGeneric(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Sessions = brokenSessions{} })

	rec := env.do(t, http.MethodGet, "/auth/session", nil, &http.Cookie{Name: common.UserSessionCookie, Value: "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "Internal server error"}, decode(t, rec))
}

func TestRequestID_Propagated(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(common.RequestIDHeaderName, "req-123")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(common.RequestIDHeaderName))
}

func TestGateRunsBeforeRoutes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir+"/admin", 0o755))
	require.NoError(t, os.WriteFile(dir+"/admin/index.html", []byte("secret dashboard"), 0o600))

	env := newTestEnv(t, func(o *Options) { o.AssetsDir = dir })

	rec := env.do(t, http.MethodGet, "/admin/", nil)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret dashboard")
}
