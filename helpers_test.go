package goMiniAuth

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/goMiniAuth/initdata"
	"github.com/MrEthical07/goMiniAuth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBotToken = "123456:TEST-BOT-TOKEN"

var (
	testAccessSecret  = []byte("access-secret-0123456789abcdef-xyz")
	testRefreshSecret = []byte("refresh-secret-0123456789abcdef-xyz")
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Platform.BotToken = testBotToken
	cfg.JWT.AccessSecret = append([]byte(nil), testAccessSecret...)
	cfg.JWT.RefreshSecret = append([]byte(nil), testRefreshSecret...)
	cfg.Metrics.Enabled = true
	return cfg
}

type testEnv struct {
	engine  *Engine
	mr      *miniredis.Miniredis
	rdb     *redis.Client
	db      *gorm.DB
	queries *atomic.Int64
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

// newTestDB opens a private in-memory database and counts SELECT queries.
func newTestDB(t *testing.T) (*gorm.DB, *atomic.Int64) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB failed: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	queries := &atomic.Int64{}
	if err := db.Callback().Query().After("gorm:query").Register("miniauth_test:count", func(*gorm.DB) {
		queries.Add(1)
	}); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return db, queries
}

func newTestEnv(t *testing.T, cfg Config, configure ...func(*Builder)) *testEnv {
	t.Helper()

	mr, rdb := newTestRedis(t)
	db, queries := newTestDB(t)

	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDB(db).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	for _, fn := range configure {
		fn(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, mr: mr, rdb: rdb, db: db, queries: queries}
}

func signedInitData(t *testing.T, userID int64) string {
	t.Helper()

	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Test","language_code":"en"}`)
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("hash", initdata.Sign(values, testBotToken))
	return values.Encode()
}

func loadSession(t *testing.T, db *gorm.DB, userID int64) session.Session {
	t.Helper()

	var sess session.Session
	if err := db.Where("user_id = ?", userID).Take(&sess).Error; err != nil {
		t.Fatalf("load session %d: %v", userID, err)
	}
	return sess
}

func loadUser(t *testing.T, db *gorm.DB, userID int64) session.User {
	t.Helper()

	var user session.User
	if err := db.Where("user_id = ?", userID).Take(&user).Error; err != nil {
		t.Fatalf("load user %d: %v", userID, err)
	}
	return user
}

func mustLogin(t *testing.T, e *Engine, userID int64) *TokenPair {
	t.Helper()

	pair, err := e.Login(context.Background(), signedInitData(t, userID))
	if err != nil {
		t.Fatalf("Login(%d) failed: %v", userID, err)
	}
	return pair
}

func ptr[T any](v T) *T {
	return &v
}
