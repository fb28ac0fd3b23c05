//go:build integration
// +build integration

package test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	goMiniAuth "github.com/MrEthical07/goMiniAuth"
	"github.com/MrEthical07/goMiniAuth/initdata"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const botToken = "424242:INTEGRATION-TOKEN"

// cmdCounter is a go-redis hook that counts commands and pipeline round trips.
type cmdCounter struct {
	commands  atomic.Int64
	pipelines atomic.Int64
}

func (h *cmdCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *cmdCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.commands.Add(1)
		return next(ctx, cmd)
	}
}

func (h *cmdCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.pipelines.Add(1)
		h.commands.Add(int64(len(cmds)))
		return next(ctx, cmds)
	}
}

func (h *cmdCounter) Reset() {
	h.commands.Store(0)
	h.pipelines.Store(0)
}

func (h *cmdCounter) Commands() int64 { return h.commands.Load() }

type integrationEnv struct {
	engine  *goMiniAuth.Engine
	db      *gorm.DB
	counter *cmdCounter
}

func newIntegrationEnv(t *testing.T, mutate func(*goMiniAuth.Config)) *integrationEnv {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// go-redis may send handshake commands on first use; warm up before
	// installing the counter.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("warmup ping: %v", err)
	}
	counter := &cmdCounter{}
	rdb.AddHook(counter)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := goMiniAuth.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	cfg := goMiniAuth.DefaultConfig()
	cfg.Platform.BotToken = botToken
	cfg.JWT.AccessSecret = []byte("integration-access-secret-0123456789")
	cfg.JWT.RefreshSecret = []byte("integration-refresh-secret-0123456789")
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := goMiniAuth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithDB(db).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		_ = sqlDB.Close()
		_ = rdb.Close()
		mr.Close()
	})
	counter.Reset()
	return &integrationEnv{engine: engine, db: db, counter: counter}
}

func initData(userID int64) string {
	values := url.Values{}
	values.Set("query_id", "AAHdF6IQAAAAAN0XohDhrOrc")
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`,"first_name":"Integration"}`)
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("hash", initdata.Sign(values, botToken))
	return values.Encode()
}
