package session

import (
	"time"

	"gorm.io/datatypes"
)

// User is the identity anchor for a platform user. It is created on first
// login and only mutated as a derived effect of Session changes.
type User struct {
	ID                 string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID             int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalCredits       int64     `gorm:"not null;default:0" json:"total_credits"`
	CreditsRemaining   int64     `gorm:"not null;default:0" json:"credits_remaining"`
	SubscriptionStatus bool      `gorm:"not null;default:false" json:"subscription_status"`
	IsOnTrial          bool      `gorm:"not null;default:false" json:"is_on_trial"`
	HasActiveRequests  bool      `gorm:"not null;default:false" json:"has_active_requests"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName pins the users table name.
func (User) TableName() string {
	return "users"
}

// Session is the per-user mutable state. ID doubles as the session identity
// embedded in issued credentials. Version is bumped on every write and used
// for optimistic concurrency control.
type Session struct {
	ID                  string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID              int64          `gorm:"uniqueIndex;not null" json:"user_id"`
	SubscriptionStatus  bool           `gorm:"not null;default:false" json:"subscription_status"`
	CreditsRemaining    float64        `gorm:"not null;default:0" json:"credits_remaining"`
	LastActiveTimestamp int64          `gorm:"not null" json:"last_active_timestamp"`
	Preferences         datatypes.JSON `json:"preferences"`
	SessionMetadata     datatypes.JSON `json:"session_metadata"`
	Version             int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// TableName pins the sessions table name.
func (Session) TableName() string {
	return "sessions"
}

// Clone returns a deep copy of s, including the JSON blobs.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Preferences = append(datatypes.JSON(nil), s.Preferences...)
	out.SessionMetadata = append(datatypes.JSON(nil), s.SessionMetadata...)
	return &out
}
