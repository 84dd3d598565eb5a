package domain

import "time"

// API key modes.
const (
	// KeyModePriority always routes the provider through the user's key and
	// skips the platform quota.
	KeyModePriority = "priority"
	// KeyModeFallback uses the platform key first and switches to the user's
	// key only once a platform limit is hit.
	KeyModeFallback = "fallback"
)

// UserAPIKey is a user-supplied provider credential, stored sealed.
type UserAPIKey struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_apikey_user_provider,priority:1"`
	Provider  string    `json:"provider"   gorm:"type:varchar(32);not null;uniqueIndex:ux_apikey_user_provider,priority:2"`
	SealedKey []byte    `json:"-"          gorm:"not null"`
	Last4     string    `json:"last4"      gorm:"type:varchar(4)"`
	Mode      string    `json:"mode"       gorm:"type:varchar(16);not null;default:'fallback'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserAPIKey.
func (UserAPIKey) TableName() string { return "user_api_keys" }
