package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// CreateFeedback inserts fb, filling ID and CreatedAt when empty. A second
// rating of the same message by the same user yields ErrDuplicate.
func CreateFeedback(ctx context.Context, db *gorm.DB, fb *domain.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(fb).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetFeedback returns the rating userID left on messageID.
func GetFeedback(ctx context.Context, db *gorm.DB, messageID, userID string) (*domain.Feedback, error) {
	var fb domain.Feedback
	err := db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		First(&fb).Error
	if err != nil {
		return nil, err
	}
	return &fb, nil
}

// DeleteFeedback removes userID's rating of messageID.
func DeleteFeedback(ctx context.Context, db *gorm.DB, messageID, userID string) error {
	res := db.WithContext(ctx).
		Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&domain.Feedback{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
