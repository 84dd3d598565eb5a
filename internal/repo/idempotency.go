package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// ErrDuplicate reports an insert rejected by a unique constraint.
var ErrDuplicate = errors.New("duplicate")

// purgeBatch bounds one DELETE so a large backlog does not hold the table.
const purgeBatch = 500

// FindReplay returns the live record stored under k. Keys without a caller
// or client key never match.
func FindReplay(ctx context.Context, db *gorm.DB, k domain.ReplayKey, now time.Time) (*domain.ReplayRecord, error) {
	if k.Key == "" || k.UserID == "" {
		return nil, ErrNotFound
	}
	var rec domain.ReplayRecord
	err := db.WithContext(ctx).
		Where(&domain.ReplayRecord{ReplayKey: k}, "UserID", "ChatID", "Route", "Key").
		Where("expires_at > ?", now).
		Take(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RecordReplay stores resultID under k for ttl. A concurrent request that
// already recorded k yields ErrDuplicate.
func RecordReplay(ctx context.Context, db *gorm.DB, k domain.ReplayKey, resultID string, status int, ttl time.Duration) (*domain.ReplayRecord, error) {
	now := time.Now().UTC()
	rec := &domain.ReplayRecord{
		ID:        uuid.NewString(),
		ReplayKey: k,
		ResultID:  resultID,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeReplays deletes records that expired at or before now, in batches,
// and returns how many went.
func PurgeReplays(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var total int64
	for {
		ids := db.WithContext(ctx).Model(&domain.ReplayRecord{}).Select("id").Where("expires_at <= ?", now).Limit(purgeBatch)
		res := db.WithContext(ctx).Where("id IN (?)", ids).Delete(&domain.ReplayRecord{})
		if res.Error != nil {
			return total, res.Error
		}
		total += res.RowsAffected
		if res.RowsAffected < purgeBatch {
			return total, nil
		}
	}
}
