// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for user-supplied
// provider API keys.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// UpsertAPIKey stores the key for (k.UserID, k.Provider), replacing any
// earlier one.
func UpsertAPIKey(ctx context.Context, db *gorm.DB, k *domain.UserAPIKey) error {
	now := time.Now().UTC()
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	k.CreatedAt, k.UpdatedAt = now, now
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"sealed_key", "last4", "mode", "updated_at"}),
	}).Create(k).Error
}

// GetAPIKey fetches the key a user stored for provider.
func GetAPIKey(ctx context.Context, db *gorm.DB, userID, provider string) (*domain.UserAPIKey, error) {
	var k domain.UserAPIKey
	if err := db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).First(&k).Error; err != nil {
		return nil, err
	}
	return &k, nil
}

// ListAPIKeys returns every stored key of a user, ordered by provider.
func ListAPIKeys(ctx context.Context, db *gorm.DB, userID string) ([]domain.UserAPIKey, error) {
	var out []domain.UserAPIKey
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("provider ASC").Find(&out).Error
	return out, err
}

// DeleteAPIKey removes the key for (userID, provider).
func DeleteAPIKey(ctx context.Context, db *gorm.DB, userID, provider string) error {
	res := db.WithContext(ctx).Where("user_id = ? AND provider = ?", userID, provider).Delete(&domain.UserAPIKey{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
