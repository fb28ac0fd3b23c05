package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

func newSessionStoreTest(t *testing.T) (*Store[Session], *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	store, err := NewStore(rdb, SessionFamily(DefaultSessionPrefix, DefaultSessionTTL))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, mr, rdb
}

func testSession() *Session {
	return &Session{
		ID:                  "7f7a1c9e-4d3b-4a57-9a0b-5f7c6d0e1a2b",
		UserID:              42,
		CreditsRemaining:    15,
		LastActiveTimestamp: 1_700_000_000,
		Preferences:         datatypes.JSON(`{"default_mode":"GPT-4o","notifications":true}`),
		SessionMetadata:     datatypes.JSON(`{"last_mode_used":"GPT-4o","recent_actions":["request_made"]}`),
		Version:             1,
	}
}

func TestStoreSetGetUsesSessionKeyAndTTL(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()
	sess := testSession()

	if err := store.Set(ctx, UserKey(sess.UserID), sess); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("SESSION_KEY_42") {
		t.Fatal("expected SESSION_KEY_42 to be written")
	}
	if ttl := mr.TTL("SESSION_KEY_42"); ttl != 600*time.Second {
		t.Fatalf("expected 600s ttl, got %s", ttl)
	}

	got, found, err := store.Get(ctx, "42")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.ID != sess.ID || got.CreditsRemaining != 15 || string(got.Preferences) != string(sess.Preferences) {
		t.Fatalf("unexpected session: %+v", got)
	}

	secs, err := store.TTL(ctx, "42")
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if secs != 600 {
		t.Fatalf("expected ttl 600, got %d", secs)
	}
}

func TestStoreMissIsNotAnError(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	got, found, err := store.Get(context.Background(), "404")
	if err != nil || found || got != nil {
		t.Fatalf("expected clean miss, got %v %v %v", got, found, err)
	}
	secs, err := store.TTL(context.Background(), "404")
	if err != nil || secs != -2 {
		t.Fatalf("expected -2 for missing key, got %d %v", secs, err)
	}
}

func TestStoreCorruptEntryIsHardError(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	if err := mr.Set("SESSION_KEY_9", "{not-json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, found, err := store.Get(context.Background(), "9")
	if !errors.Is(err, ErrCorruptEntry) {
		t.Fatalf("expected ErrCorruptEntry, got %v", err)
	}
	if found {
		t.Fatal("corrupt entry must not be reported as found")
	}
}

func TestStoreDeleteExistsIdempotent(t *testing.T) {
	store, _, _ := newSessionStoreTest(t)
	ctx := context.Background()
	if err := store.Set(ctx, "42", testSession()); err != nil {
		t.Fatalf("set: %v", err)
	}

	ok, err := store.Exists(ctx, "42")
	if err != nil || !ok {
		t.Fatalf("exists: %v %v", ok, err)
	}
	deleted, err := store.Delete(ctx, "42")
	if err != nil || !deleted {
		t.Fatalf("first delete: %v %v", deleted, err)
	}
	deleted, err = store.Delete(ctx, "42")
	if err != nil || deleted {
		t.Fatalf("second delete: %v %v", deleted, err)
	}
	ok, err = store.Exists(ctx, "42")
	if err != nil || ok {
		t.Fatalf("exists after delete: %v %v", ok, err)
	}
}

func TestStoreTTLWithoutExpiry(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	if err := mr.Set("SESSION_KEY_1", "{}"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	secs, err := store.TTL(context.Background(), "1")
	if err != nil || secs != -1 {
		t.Fatalf("expected -1 for persistent key, got %d %v", secs, err)
	}
}

func TestStoreWrapsTransportErrors(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	mr.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "42", testSession()); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("set: expected ErrRedisUnavailable, got %v", err)
	}
	if _, _, err := store.Get(ctx, "42"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("get: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Delete(ctx, "42"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("delete: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.Exists(ctx, "42"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("exists: expected ErrRedisUnavailable, got %v", err)
	}
	if _, err := store.TTL(ctx, "42"); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("ttl: expected ErrRedisUnavailable, got %v", err)
	}
}

func TestNewStoreRejectsBadFamily(t *testing.T) {
	_, _, rdb := newSessionStoreTest(t)
	if _, err := NewStore(rdb, SessionFamily("", time.Minute)); err == nil {
		t.Fatal("expected empty prefix to fail")
	}
	if _, err := NewStore(rdb, SessionFamily("P_", 0)); err == nil {
		t.Fatal("expected zero ttl to fail")
	}
	if _, err := NewStore[Session](nil, SessionFamily("P_", time.Minute)); err == nil {
		t.Fatal("expected nil client to fail")
	}
}

func TestDenylist(t *testing.T) {
	_, mr, rdb := newSessionStoreTest(t)
	ctx := context.Background()
	d, err := NewDenylist(rdb, DefaultRevokedPrefix, 5*time.Minute)
	if err != nil {
		t.Fatalf("new denylist: %v", err)
	}

	revoked, err := d.IsRevoked(ctx, "sid-1")
	if err != nil || revoked {
		t.Fatalf("expected not revoked, got %v %v", revoked, err)
	}
	if err := d.Revoke(ctx, "sid-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = d.IsRevoked(ctx, "sid-1")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}

	mr.FastForward(6 * time.Minute)
	revoked, err = d.IsRevoked(ctx, "sid-1")
	if err != nil || revoked {
		t.Fatalf("expected revocation to expire, got %v %v", revoked, err)
	}
}

func TestSessionCloneIsDeep(t *testing.T) {
	sess := testSession()
	clone := sess.Clone()
	clone.Preferences[0] = '['
	if sess.Preferences[0] != '{' {
		t.Fatal("clone shares preferences buffer")
	}
}

func TestStoreSetIfAbsentKeepsExistingEntry(t *testing.T) {
	store, mr, _ := newSessionStoreTest(t)
	ctx := context.Background()

	first := testSession()
	stored, err := store.SetIfAbsent(ctx, "42", first)
	if err != nil || !stored {
		t.Fatalf("first populate: stored=%v err=%v", stored, err)
	}
	if ttl := mr.TTL("SESSION_KEY_42"); ttl != 600*time.Second {
		t.Fatalf("expected 600s ttl, got %s", ttl)
	}

	older := testSession()
	older.CreditsRemaining = 1
	stored, err = store.SetIfAbsent(ctx, "42", older)
	if err != nil || stored {
		t.Fatalf("second populate must not overwrite: stored=%v err=%v", stored, err)
	}

	got, found, err := store.Get(ctx, "42")
	if err != nil || !found || got.CreditsRemaining != 15 {
		t.Fatalf("unexpected entry %+v found=%v err=%v", got, found, err)
	}

	mr.SetError("simulated outage")
	if _, err := store.SetIfAbsent(ctx, "43", first); !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
	mr.SetError("")
}
