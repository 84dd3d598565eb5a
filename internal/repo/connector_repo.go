// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for third-party
// connectors (OAuth-linked accounts).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// SaveConnectorState records a pending OAuth state issued at for
// (userID, typ), creating the connector row on first use. Connection status
// is untouched.
func SaveConnectorState(ctx context.Context, db *gorm.DB, userID, typ, state string, at time.Time) error {
	at = at.UTC()
	c := domain.Connector{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        typ,
		State:       state,
		StateIssued: &at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "type"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "state_issued", "updated_at"}),
	}).Create(&c).Error
}

// GetConnectorByState finds the connector awaiting the given OAuth state.
// States issued before notBefore are treated as unknown.
func GetConnectorByState(ctx context.Context, db *gorm.DB, state string, notBefore time.Time) (*domain.Connector, error) {
	var c domain.Connector
	if state == "" {
		return nil, gorm.ErrRecordNotFound
	}
	err := db.WithContext(ctx).
		Where("state = ? AND state_issued >= ?", state, notBefore.UTC()).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConnector fetches the connector of a user by type.
func GetConnector(ctx context.Context, db *gorm.DB, userID, typ string) (*domain.Connector, error) {
	var c domain.Connector
	if err := db.WithContext(ctx).Where("user_id = ? AND type = ?", userID, typ).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConnectors returns every connector row of a user.
func ListConnectors(ctx context.Context, db *gorm.DB, userID string) ([]domain.Connector, error) {
	var out []domain.Connector
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("type ASC").Find(&out).Error
	return out, err
}

// MarkConnectorConnected stores the sealed token and clears the OAuth state.
func MarkConnectorConnected(ctx context.Context, db *gorm.DB, id, connectionID string, sealed []byte, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Connector{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_connected":  true,
			"connection_id": connectionID,
			"sealed_token":  sealed,
			"state":         "",
			"state_issued":  nil,
			"connected_at":  at,
			"updated_at":    at,
		}).Error
}

// DisconnectConnector clears the token and connection of (userID, typ).
func DisconnectConnector(ctx context.Context, db *gorm.DB, userID, typ string) error {
	res := db.WithContext(ctx).
		Model(&domain.Connector{}).
		Where("user_id = ? AND type = ?", userID, typ).
		Updates(map[string]any{
			"is_connected":  false,
			"connection_id": "",
			"sealed_token":  nil,
			"state":         "",
			"state_issued":  nil,
			"connected_at":  nil,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
