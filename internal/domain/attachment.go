package domain

import "time"

// ChatAttachment is a file stored in object storage and bound to a chat.
// StorageKey is the object name inside the configured bucket; it is never
// exposed to clients, who fetch content through a signed URL instead.
type ChatAttachment struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ChatID      string    `json:"chat_id"      gorm:"type:char(36);not null;index"`
	UserID      string    `json:"user_id"      gorm:"type:varchar(64);not null;index"`
	StorageKey  string    `json:"-"            gorm:"type:varchar(512);not null;uniqueIndex"`
	FileName    string    `json:"file_name"    gorm:"type:varchar(255);not null"`
	MimeType    string    `json:"mime_type"    gorm:"type:varchar(255);not null"`
	Size        int64     `json:"size"         gorm:"not null"`
	IsGenerated bool      `json:"is_generated" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatAttachment.
func (ChatAttachment) TableName() string { return "chat_attachments" }

// SharedChat is a public, read-only link to a redacted snapshot of a chat.
type SharedChat struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	ChatID    string    `json:"chat_id"    gorm:"type:char(36);not null;uniqueIndex"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"created_at"`

	Chat Chat `json:"-" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for SharedChat.
func (SharedChat) TableName() string { return "shared_chats" }
