package stores

import (
	"context"
	"time"

	"github.com/MrEthical07/goMiniAuth/session"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionDefaults are the values a newly created Session starts with.
type SessionDefaults struct {
	SeedCredits float64
	Preferences []byte
	Metadata    []byte
}

// SessionRepo reads and writes Session rows inside a caller transaction.
type SessionRepo struct {
	defaults SessionDefaults
	now      func() time.Time
	newID    func() string
}

// NewSessionRepo returns a repository creating sessions from defaults.
func NewSessionRepo(defaults SessionDefaults, now func() time.Time) *SessionRepo {
	if now == nil {
		now = time.Now
	}
	return &SessionRepo{
		defaults: defaults,
		now:      now,
		newID:    uuid.NewString,
	}
}

// FindByUserID loads the session owned by userID.
func (r *SessionRepo) FindByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*session.Session, error) {
	var sess session.Session
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Take(&sess).Error; err != nil {
		return nil, wrap("find session by user_id", err)
	}
	return &sess, nil
}

// FindByUserIDForUpdate loads the session owned by userID holding a row
// lock until the transaction ends. Dialects without row locks (SQLite)
// drop the locking clause.
func (r *SessionRepo) FindByUserIDForUpdate(ctx context.Context, tx *gorm.DB, userID int64) (*session.Session, error) {
	var sess session.Session
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		Take(&sess).Error
	if err != nil {
		return nil, wrap("lock session by user_id", err)
	}
	return &sess, nil
}

// FindByID loads a session by its id.
func (r *SessionRepo) FindByID(ctx context.Context, tx *gorm.DB, id string) (*session.Session, error) {
	var sess session.Session
	if err := tx.WithContext(ctx).Where("id = ?", id).Take(&sess).Error; err != nil {
		return nil, wrap("find session by id", err)
	}
	return &sess, nil
}

// ExistsByUserID reports whether userID owns a session row.
func (r *SessionRepo) ExistsByUserID(ctx context.Context, tx *gorm.DB, userID int64) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&session.Session{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, wrap("count sessions", err)
	}
	return count > 0, nil
}

// Save creates the session for userID from the configured defaults and
// returns the new session id.
func (r *SessionRepo) Save(ctx context.Context, tx *gorm.DB, userID int64) (string, error) {
	sess := session.Session{
		ID:                  r.newID(),
		UserID:              userID,
		SubscriptionStatus:  false,
		CreditsRemaining:    r.defaults.SeedCredits,
		LastActiveTimestamp: r.now().Unix(),
		Preferences:         datatypes.JSON(append([]byte(nil), r.defaults.Preferences...)),
		SessionMetadata:     datatypes.JSON(append([]byte(nil), r.defaults.Metadata...)),
		Version:             1,
	}
	if err := tx.WithContext(ctx).Create(&sess).Error; err != nil {
		return "", wrap("insert session", err)
	}
	return sess.ID, nil
}

// Update persists the mutable fields of sess if the stored version still
// equals sess.Version. On success sess.Version is advanced.
func (r *SessionRepo) Update(ctx context.Context, tx *gorm.DB, sess *session.Session) error {
	res := tx.WithContext(ctx).Model(&session.Session{}).
		Where("id = ? AND version = ?", sess.ID, sess.Version).
		Updates(map[string]any{
			"subscription_status":   sess.SubscriptionStatus,
			"credits_remaining":     sess.CreditsRemaining,
			"last_active_timestamp": sess.LastActiveTimestamp,
			"preferences":           sess.Preferences,
			"session_metadata":      sess.SessionMetadata,
			"version":               gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return wrap("update session", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update session", ErrVersionConflict)
	}
	sess.Version++
	return nil
}

// Rotate replaces the id of sess, invalidating every credential bound to
// the old id, and returns the new id.
func (r *SessionRepo) Rotate(ctx context.Context, tx *gorm.DB, sess *session.Session) (string, error) {
	nextID := r.newID()
	res := tx.WithContext(ctx).Model(&session.Session{}).
		Where("id = ? AND version = ?", sess.ID, sess.Version).
		Updates(map[string]any{
			"id":      nextID,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return "", wrap("rotate session", res.Error)
	}
	if res.RowsAffected == 0 {
		return "", wrap("rotate session", ErrVersionConflict)
	}
	sess.ID = nextID
	sess.Version++
	return nextID, nil
}

// AutoMigrate creates or updates the users and sessions tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&session.User{}, &session.Session{})
}
