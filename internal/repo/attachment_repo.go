// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for chat
// attachments and public share links.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// CreateAttachment inserts a, assigning an ID and CreatedAt when unset.
func CreateAttachment(ctx context.Context, db *gorm.DB, a *domain.ChatAttachment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(a).Error
}

// ListAttachments returns the attachments of an owned chat, newest first.
func ListAttachments(ctx context.Context, db *gorm.DB, chatID, userID string) ([]domain.ChatAttachment, error) {
	var out []domain.ChatAttachment
	err := db.WithContext(ctx).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// GetAttachment fetches an attachment by ID and owner.
func GetAttachment(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ChatAttachment, error) {
	var a domain.ChatAttachment
	if err := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// DeleteAttachment removes an owned attachment row.
func DeleteAttachment(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.ChatAttachment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CreateShare returns the share link of a chat, creating it on first use.
func CreateShare(ctx context.Context, db *gorm.DB, chatID, userID string) (*domain.SharedChat, error) {
	var s domain.SharedChat
	err := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	s = domain.SharedChat{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(&s).Error; err != nil {
		if isUniqueViolation(err) {
			// lost a race with a concurrent share of the same chat
			var existing domain.SharedChat
			if rerr := db.WithContext(ctx).Where("chat_id = ?", chatID).First(&existing).Error; rerr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &s, nil
}

// GetShare fetches a share by its public ID.
func GetShare(ctx context.Context, db *gorm.DB, id string) (*domain.SharedChat, error) {
	var s domain.SharedChat
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteShare revokes the share link of an owned chat.
func DeleteShare(ctx context.Context, db *gorm.DB, chatID, userID string) error {
	res := db.WithContext(ctx).Where("chat_id = ? AND user_id = ?", chatID, userID).Delete(&domain.SharedChat{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
