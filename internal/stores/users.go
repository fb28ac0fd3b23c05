package stores

import (
	"context"

	"github.com/MrEthical07/goMiniAuth/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepo reads and writes User rows inside a caller transaction.
type UserRepo struct {
	seedCredits int64
}

// NewUserRepo returns a repository that seeds new users with seedCredits.
func NewUserRepo(seedCredits int64) *UserRepo {
	return &UserRepo{seedCredits: seedCredits}
}

// FindByUserID loads the user with the given platform id.
func (r *UserRepo) FindByUserID(ctx context.Context, tx *gorm.DB, userID int64) (*session.User, error) {
	var user session.User
	if err := tx.WithContext(ctx).Where("user_id = ?", userID).Take(&user).Error; err != nil {
		return nil, wrap("find user by user_id", err)
	}
	return &user, nil
}

// FindByID loads the user with the given primary key.
func (r *UserRepo) FindByID(ctx context.Context, tx *gorm.DB, id string) (*session.User, error) {
	var user session.User
	if err := tx.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, wrap("find user by id", err)
	}
	return &user, nil
}

// ExistsByUserID reports whether a user row exists for userID.
func (r *UserRepo) ExistsByUserID(ctx context.Context, tx *gorm.DB, userID int64) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Model(&session.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, wrap("count users", err)
	}
	return count > 0, nil
}

// Save inserts a new user for userID and returns its primary key.
func (r *UserRepo) Save(ctx context.Context, tx *gorm.DB, userID int64) (string, error) {
	user := session.User{
		ID:                uuid.NewString(),
		UserID:            userID,
		TotalCredits:      r.seedCredits,
		CreditsRemaining:  r.seedCredits,
		IsOnTrial:         true,
		HasActiveRequests: true,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return "", wrap("insert user", err)
	}
	return user.ID, nil
}

// Update writes the aggregate columns of user.
func (r *UserRepo) Update(ctx context.Context, tx *gorm.DB, user *session.User) error {
	res := tx.WithContext(ctx).Model(&session.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"total_credits":       user.TotalCredits,
			"credits_remaining":   user.CreditsRemaining,
			"subscription_status": user.SubscriptionStatus,
		})
	if res.Error != nil {
		return wrap("update user", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("update user", ErrNotFound)
	}
	return nil
}
