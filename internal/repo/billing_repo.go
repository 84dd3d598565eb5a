package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// RecordBillingEvent stores a processed webhook event. A redelivered event
// id yields ErrDuplicate.
func RecordBillingEvent(ctx context.Context, db *gorm.DB, rec *domain.BillingEventRecord) error {
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// LatestBillingEvent returns the applied event of userID that occurred last,
// or nil when none was applied yet.
func LatestBillingEvent(ctx context.Context, db *gorm.DB, userID string) (*domain.BillingEventRecord, error) {
	var rec domain.BillingEventRecord
	err := db.WithContext(ctx).
		Where("user_id = ? AND applied = ?", userID, true).
		Order("occurred_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
