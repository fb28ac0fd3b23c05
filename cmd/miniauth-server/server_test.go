package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	"github.com/MrEthical07/goMiniAuth/initdata"
	"github.com/MrEthical07/goMiniAuth/middleware"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testBotToken = "123456:SERVER-TEST-TOKEN"
	testInternal = "internal-signing-key"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, goMiniAuth.AutoMigrate(db))

	cfg := goMiniAuth.DefaultConfig()
	cfg.Platform.BotToken = testBotToken
	cfg.JWT.AccessSecret = []byte("server-access-secret-0123456789abcdef")
	cfg.JWT.RefreshSecret = []byte("server-refresh-secret-0123456789abcdef")
	cfg.Metrics.Enabled = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := goMiniAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDB(db).
		WithLogger(logger).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(newRouter(engine, logger, []byte(testInternal)))
	t.Cleanup(srv.Close)
	return srv
}

func initDataFor(userID int64) string {
	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Test"}`)
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("hash", initdata.Sign(values, testBotToken))
	return values.Encode()
}

func do(t *testing.T, method, target, bearer string, body []byte, header map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, target, bytes.NewReader(body))
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServerLoginSessionRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", initDataFor(777), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pair := decode[goMiniAuth.TokenPair](t, resp)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	resp = do(t, http.MethodGet, srv.URL+"/api/auth/session", pair.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[goMiniAuth.SessionView](t, resp)
	require.Equal(t, int64(777), view.UserID)
	require.Equal(t, float64(15), view.CreditsRemaining)
	require.False(t, view.SubscriptionStatus)

	body := []byte(`{"user_id":777,"subscription_status":true,"credits_remaining":40}`)
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/session", "", body, map[string]string{
		middleware.SignatureHeader: middleware.SignBody([]byte(testInternal), body),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[goMiniAuth.SessionView](t, resp)
	require.True(t, view.SubscriptionStatus)
	require.Equal(t, float64(40), view.CreditsRemaining)

	resp = do(t, http.MethodGet, srv.URL+"/api/auth/session", pair.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[goMiniAuth.SessionView](t, resp)
	require.Equal(t, float64(40), view.CreditsRemaining)
}

func TestServerRefresh(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", initDataFor(9), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pair := decode[goMiniAuth.TokenPair](t, resp)

	body, err := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/refresh", initDataFor(9), body, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	next := decode[goMiniAuth.TokenPair](t, resp)
	require.NotEmpty(t, next.AccessToken)

	// A refresh token presented by another registered user is rejected.
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/login", initDataFor(10), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/refresh", initDataFor(10), body, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/auth/refresh", initDataFor(9), []byte("{"), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerRejections(t *testing.T) {
	srv := newTestServer(t)

	tampered := strings.Replace(initDataFor(5), "Test", "Evil", 1)
	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", tampered, nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/auth/login", "", nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/auth/session", "not-a-jwt", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := []byte(`{"user_id":5,"credits_remaining":1}`)
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/session", "", body, map[string]string{
		middleware.SignatureHeader: middleware.SignBody([]byte("wrong"), body),
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/auth/session", "", body, map[string]string{
		middleware.SignatureHeader: middleware.SignBody([]byte(testInternal), body),
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServerLogoutInvalidatesRefresh(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", initDataFor(31), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pair := decode[goMiniAuth.TokenPair](t, resp)

	resp = do(t, http.MethodPost, srv.URL+"/api/auth/logout", pair.AccessToken, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	body, err := json.Marshal(refreshRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	resp = do(t, http.MethodPost, srv.URL+"/api/auth/refresh", initDataFor(31), body, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServerMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/auth/login", initDataFor(3), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(out), "miniauth_login_success_total 1")
	require.Contains(t, string(out), "miniauth_user_registered_total 1")
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		goMiniAuth.ErrSignatureInvalid:   http.StatusForbidden,
		goMiniAuth.ErrIdentityInvalid:    http.StatusBadRequest,
		goMiniAuth.ErrValidation:         http.StatusBadRequest,
		goMiniAuth.ErrLoginRateLimited:   http.StatusTooManyRequests,
		goMiniAuth.ErrSessionMismatch:    http.StatusUnauthorized,
		goMiniAuth.ErrSessionNotFound:    http.StatusNotFound,
		goMiniAuth.ErrSessionConflict:    http.StatusConflict,
		goMiniAuth.ErrStore:              http.StatusInternalServerError,
		goMiniAuth.ErrRefreshRateLimited: http.StatusTooManyRequests,
	}
	for err, want := range cases {
		require.Equal(t, want, statusOf(err), err.Error())
	}
}
