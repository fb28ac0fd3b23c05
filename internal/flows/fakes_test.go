package flows

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/MrEthical07/goMiniAuth/internal/stores"
	"github.com/MrEthical07/goMiniAuth/jwt"
	"github.com/MrEthical07/goMiniAuth/session"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

type fakeDB struct {
	users    map[int64]session.User
	sessions map[int64]session.Session
	nextID   int

	txCalls     int
	findCalls   int
	updateCalls int
	commitErr   error
	updateErr   error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:    map[int64]session.User{},
		sessions: map[int64]session.Session{},
	}
}

func (db *fakeDB) seed(userID int64, credits float64) session.Session {
	db.users[userID] = session.User{ID: fmt.Sprintf("u-%d", userID), UserID: userID, TotalCredits: 15, CreditsRemaining: 15}
	sess := session.Session{
		ID:               fmt.Sprintf("s-%d", userID),
		UserID:           userID,
		CreditsRemaining: credits,
		Preferences:      datatypes.JSON(`{"default_mode":"GPT-4o"}`),
		SessionMetadata:  datatypes.JSON(`{"recent_actions":[]}`),
		Version:          1,
	}
	db.sessions[userID] = sess
	return sess
}

func (db *fakeDB) transact(_ context.Context, fn func(tx *gorm.DB) error) error {
	db.txCalls++
	users := make(map[int64]session.User, len(db.users))
	for k, v := range db.users {
		users[k] = v
	}
	sessions := make(map[int64]session.Session, len(db.sessions))
	for k, v := range db.sessions {
		sessions[k] = *v.Clone()
	}

	err := fn(nil)
	if err == nil {
		err = db.commitErr
	}
	if err != nil {
		db.users = users
		db.sessions = sessions
		return err
	}
	return nil
}

type fakeUsers struct{ db *fakeDB }

func (r fakeUsers) FindByUserID(_ context.Context, _ *gorm.DB, userID int64) (*session.User, error) {
	user, ok := r.db.users[userID]
	if !ok {
		return nil, stores.ErrNotFound
	}
	return &user, nil
}

func (r fakeUsers) ExistsByUserID(_ context.Context, _ *gorm.DB, userID int64) (bool, error) {
	_, ok := r.db.users[userID]
	return ok, nil
}

func (r fakeUsers) Save(_ context.Context, _ *gorm.DB, userID int64) (string, error) {
	if _, ok := r.db.users[userID]; ok {
		return "", errors.New("duplicate user")
	}
	r.db.nextID++
	id := fmt.Sprintf("u-new-%d", r.db.nextID)
	r.db.users[userID] = session.User{ID: id, UserID: userID, TotalCredits: 15, CreditsRemaining: 15}
	return id, nil
}

func (r fakeUsers) Update(_ context.Context, _ *gorm.DB, user *session.User) error {
	if _, ok := r.db.users[user.UserID]; !ok {
		return stores.ErrNotFound
	}
	r.db.users[user.UserID] = *user
	return nil
}

type fakeSessions struct{ db *fakeDB }

func (r fakeSessions) FindByUserID(_ context.Context, _ *gorm.DB, userID int64) (*session.Session, error) {
	r.db.findCalls++
	sess, ok := r.db.sessions[userID]
	if !ok {
		return nil, stores.ErrNotFound
	}
	return sess.Clone(), nil
}

func (r fakeSessions) FindByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*session.Session, error) {
	return r.FindByUserID(ctx, tx, userID)
}

func (r fakeSessions) Save(_ context.Context, _ *gorm.DB, userID int64) (string, error) {
	if _, ok := r.db.sessions[userID]; ok {
		return "", errors.New("duplicate session")
	}
	r.db.nextID++
	id := fmt.Sprintf("s-new-%d", r.db.nextID)
	r.db.sessions[userID] = session.Session{
		ID:               id,
		UserID:           userID,
		CreditsRemaining: 15,
		Version:          1,
	}
	return id, nil
}

func (r fakeSessions) Update(_ context.Context, _ *gorm.DB, sess *session.Session) error {
	r.db.updateCalls++
	if r.db.updateErr != nil {
		return r.db.updateErr
	}
	stored, ok := r.db.sessions[sess.UserID]
	if !ok || stored.Version != sess.Version {
		return stores.ErrVersionConflict
	}
	sess.Version++
	r.db.sessions[sess.UserID] = *sess.Clone()
	return nil
}

func (r fakeSessions) Rotate(_ context.Context, _ *gorm.DB, sess *session.Session) (string, error) {
	stored, ok := r.db.sessions[sess.UserID]
	if !ok || stored.Version != sess.Version {
		return "", stores.ErrVersionConflict
	}
	r.db.nextID++
	stored.ID = fmt.Sprintf("s-rot-%d", r.db.nextID)
	stored.Version++
	r.db.sessions[sess.UserID] = stored
	return stored.ID, nil
}

type fakeCache struct {
	entries map[string]*session.Session

	getCalls    int
	setCalls    int
	deleteCalls int
	getErr      error
	setErr      error
	deleteErr   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*session.Session{}}
}

func (c *fakeCache) Get(_ context.Context, id string) (*session.Session, bool, error) {
	c.getCalls++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	sess, ok := c.entries[id]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

func (c *fakeCache) Set(_ context.Context, id string, value *session.Session) error {
	c.setCalls++
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[id] = value.Clone()
	return nil
}

func (c *fakeCache) SetIfAbsent(_ context.Context, id string, value *session.Session) (bool, error) {
	c.setCalls++
	if c.setErr != nil {
		return false, c.setErr
	}
	if _, ok := c.entries[id]; ok {
		return false, nil
	}
	c.entries[id] = value.Clone()
	return true, nil
}

func (c *fakeCache) Delete(_ context.Context, id string) (bool, error) {
	c.deleteCalls++
	if c.deleteErr != nil {
		return false, c.deleteErr
	}
	_, ok := c.entries[id]
	delete(c.entries, id)
	return ok, nil
}

type fakeLimiter struct {
	loginErr   error
	refreshErr error
	keys       []string
}

func (l *fakeLimiter) CheckLogin(_ context.Context, userKey string) error {
	l.keys = append(l.keys, userKey)
	return l.loginErr
}

func (l *fakeLimiter) CheckRefresh(_ context.Context, userKey string) error {
	l.keys = append(l.keys, userKey)
	return l.refreshErr
}

// payloadFor builds a parsed payload for userID; the signature check is
// represented by checkOK.
func payloadFor(userID int64) string {
	values := url.Values{}
	values.Set("query_id", "Q")
	values.Set("user", `{"id":`+strconv.FormatInt(userID, 10)+`}`)
	values.Set("hash", "00")
	return values.Encode()
}

func checkOK(payload string) (url.Values, error) {
	return url.ParseQuery(payload)
}

func checkFail(string) (url.Values, error) {
	return nil, errors.New("signature mismatch")
}

func issuePair(uid int64, sid string) (jwt.Pair, error) {
	return jwt.Pair{
		AccessToken:  fmt.Sprintf("access:%d:%s", uid, sid),
		RefreshToken: fmt.Sprintf("refresh:%d:%s", uid, sid),
	}, nil
}

func parseRefresh(token string) (*jwt.Claims, error) {
	var uid int64
	var sid string
	if _, err := fmt.Sscanf(token, "refresh:%d:%s", &uid, &sid); err != nil {
		return nil, jwt.ErrTokenInvalid
	}
	return &jwt.Claims{UID: uid, SID: sid}, nil
}
