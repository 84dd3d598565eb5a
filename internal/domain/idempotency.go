package domain

import "time"

// ReplayKey names one keyed POST: the caller, the chat in the path (empty
// for chat-less routes), the route template and the client's
// Idempotency-Key. Reusing a key on another chat or route is a new request.
type ReplayKey struct {
	UserID string `gorm:"type:varchar(64);not null;uniqueIndex:ux_replay_key,priority:1"`
	ChatID string `gorm:"type:varchar(36);not null;uniqueIndex:ux_replay_key,priority:2;index"`
	Route  string `gorm:"type:varchar(128);not null;uniqueIndex:ux_replay_key,priority:3"`
	Key    string `gorm:"type:varchar(200);not null;uniqueIndex:ux_replay_key,priority:4"`
}

// ReplayRecord remembers which message a keyed request produced, and with
// which status, until ExpiresAt.
type ReplayRecord struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	ReplayKey `gorm:"embedded"`
	ResultID  string    `gorm:"type:char(36);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (ReplayRecord) TableName() string { return "replay_records" }
