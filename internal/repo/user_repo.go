// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User
// model: on-demand creation, usage counters, billing flags and account
// deletion.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// GetUser fetches a user by ID.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetOrCreateUser returns the user row for id, inserting it first when the
// identity has never been seen.
func GetOrCreateUser(ctx context.Context, db *gorm.DB, id, email string, anonymous bool) (*domain.User, error) {
	now := time.Now().UTC()
	u := domain.User{
		ID:          id,
		Email:       email,
		IsAnonymous: anonymous,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&u).Error; err != nil {
		return nil, err
	}
	return GetUser(ctx, db, id)
}

// LockUser reads a user row for update inside a transaction. SQLite ignores
// the locking clause and serialises writers on its own.
func LockUser(ctx context.Context, tx *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	q := tx.WithContext(ctx)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveUsage writes the usage counters and their reset instants.
func SaveUsage(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"daily_message_count":   u.DailyMessageCount,
			"daily_reset_at":        u.DailyResetAt,
			"monthly_message_count": u.MonthlyMessageCount,
			"monthly_reset_at":      u.MonthlyResetAt,
			"premium_credits_used":  u.PremiumCreditsUsed,
			"premium_reset_at":      u.PremiumResetAt,
			"updated_at":            time.Now().UTC(),
		}).Error
}

// SetPremium records subscription state from the payments provider.
func SetPremium(ctx context.Context, db *gorm.DB, id string, premium bool, renewsAt *time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_premium":     premium,
			"plan_renews_at": renewsAt,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePreferences replaces the stored preferences of a user.
func UpdatePreferences(ctx context.Context, db *gorm.DB, id string, p domain.Preferences) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"preferences": datatypes.NewJSONType(p),
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUserData removes every chat of the user (with the chat cascade),
// then connectors, tasks with their history, API keys, leftover feedback
// and idempotency rows, and finally the user row. Storage keys of deleted
// attachments are returned for object cleanup. Run it inside a transaction.
func DeleteUserData(ctx context.Context, tx *gorm.DB, userID string) ([]string, error) {
	tx = tx.WithContext(ctx)

	var chatIDs []string
	if err := tx.Model(&domain.Chat{}).Where("user_id = ?", userID).Pluck("id", &chatIDs).Error; err != nil {
		return nil, err
	}
	var keys []string
	for _, id := range chatIDs {
		k, err := DeleteChat(ctx, tx, id, userID)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
	}

	taskIDs := tx.Model(&domain.ScheduledTask{}).Select("id").Where("user_id = ?", userID)
	steps := []func() error{
		func() error { return tx.Where("user_id = ?", userID).Delete(&domain.Connector{}).Error },
		func() error { return tx.Where("task_id IN (?)", taskIDs).Delete(&domain.TaskHistory{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&domain.ScheduledTask{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&domain.UserAPIKey{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&domain.Feedback{}).Error },
		func() error { return tx.Where("user_id = ?", userID).Delete(&domain.ReplayRecord{}).Error },
		func() error { return tx.Where("id = ?", userID).Delete(&domain.User{}).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
