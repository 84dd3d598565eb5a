package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// ErrNotFound is the missing-row sentinel. A chat owned by someone else is
// reported the same way.
var ErrNotFound = gorm.ErrRecordNotFound

// sidebar orders chats pinned first (latest pin on top), then by activity.
func sidebar(db *gorm.DB) *gorm.DB {
	return db.Order("is_pinned DESC, pinned_at DESC, updated_at DESC, id DESC")
}

func ownedBy(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", userID) }
}

func chatOf(id, userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB { return db.Where("id = ? AND user_id = ?", id, userID) }
}

// CreateChat inserts an empty chat titled title for userID.
func CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	c := &domain.Chat{UserID: userID, Title: title}
	if err := InsertChat(ctx, db, c); err != nil {
		return nil, err
	}
	return c, nil
}

// InsertChat persists c, filling ID and UTC timestamps left zero. Branching
// and scheduled runs use it to insert fully formed chats.
func InsertChat(ctx context.Context, db *gorm.DB, c *domain.Chat) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	return db.WithContext(ctx).Create(c).Error
}

// ListChats returns every chat of userID in sidebar order.
func ListChats(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return ListChatsPage(ctx, db, userID, 0, -1)
}

// ListChatsPage returns limit chats of userID from offset, in sidebar
// order. A negative limit means no limit.
func ListChatsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Chat, error) {
	var out []domain.Chat
	err := db.WithContext(ctx).
		Scopes(ownedBy(userID), sidebar).
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountChats counts the chats of userID.
func CountChats(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.Chat{}).Scopes(ownedBy(userID)).Count(&n).Error
	return n, err
}

// GetChat loads chat id if userID owns it.
func GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Scopes(chatOf(id, userID)).Take(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChatByID loads a chat regardless of owner, for shared snapshots and
// the task runner.
func GetChatByID(ctx context.Context, db *gorm.DB, id string) (*domain.Chat, error) {
	var c domain.Chat
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateChatTitle renames an owned chat.
func UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	return UpdateChatFields(ctx, db, id, userID, map[string]any{"title": title})
}

// UpdateChatFields applies column updates to an owned chat and bumps
// updated_at unless fields sets it. No matching row is ErrNotFound.
func UpdateChatFields(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now().UTC()
	}
	res := db.WithContext(ctx).Model(&domain.Chat{}).Scopes(chatOf(id, userID)).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchChat sets updated_at to t without running hooks.
func TouchChat(ctx context.Context, db *gorm.DB, id string, t time.Time) error {
	return db.WithContext(ctx).Model(&domain.Chat{}).Where("id = ?", id).UpdateColumn("updated_at", t).Error
}

// DeleteChat removes an owned chat and everything hanging off it, and
// returns the storage keys of its attachments for the caller to delete
// after commit. It must run inside a transaction.
func DeleteChat(ctx context.Context, tx *gorm.DB, id, userID string) ([]string, error) {
	tx = tx.WithContext(ctx)
	if _, err := GetChat(ctx, tx, id, userID); err != nil {
		return nil, err
	}

	var keys []string
	if err := tx.Model(&domain.ChatAttachment{}).Where("chat_id = ?", id).Pluck("storage_key", &keys).Error; err != nil {
		return nil, err
	}

	byChat := tx.Where("chat_id = ?", id).Session(&gorm.Session{})
	msgIDs := tx.Model(&domain.Message{}).Select("id").Where("chat_id = ?", id)
	for _, del := range []func() *gorm.DB{
		func() *gorm.DB { return tx.Where("message_id IN (?)", msgIDs).Delete(&domain.Feedback{}) },
		func() *gorm.DB { return byChat.Delete(&domain.Message{}) },
		func() *gorm.DB { return byChat.Delete(&domain.ChatAttachment{}) },
		func() *gorm.DB { return byChat.Delete(&domain.SharedChat{}) },
		func() *gorm.DB { return byChat.Delete(&domain.ReplayRecord{}) },
		func() *gorm.DB { return tx.Scopes(chatOf(id, userID)).Delete(&domain.Chat{}) },
	} {
		if err := del().Error; err != nil {
			return nil, err
		}
	}
	return keys, nil
}
