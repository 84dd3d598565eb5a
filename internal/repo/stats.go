package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// Stats summarises a row set for conditional GETs. LastUpdated is nil when
// the set is empty.
type Stats struct {
	Count       int64
	LastUpdated *time.Time
}

// Version folds the summary into a number that changes whenever a row is
// added, removed or touched.
func (s Stats) Version() int64 {
	if s.LastUpdated == nil {
		return 0
	}
	return s.LastUpdated.UnixMilli()
}

// ChatsStats summarises the chats owned by userID.
func ChatsStats(ctx context.Context, db *gorm.DB, userID string) (Stats, error) {
	return rowStats(db.WithContext(ctx).Model(&domain.Chat{}).Where("user_id = ?", userID))
}

// MessagesStats summarises the messages of chatID.
func MessagesStats(ctx context.Context, db *gorm.DB, chatID string) (Stats, error) {
	return rowStats(db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID))
}

func rowStats(q *gorm.DB) (Stats, error) {
	var s Stats
	if err := q.Count(&s.Count).Error; err != nil || s.Count == 0 {
		return Stats{}, err
	}
	// MAX(updated_at) comes back as TEXT from SQLite, so read the newest row.
	var row struct{ UpdatedAt time.Time }
	if err := q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return Stats{}, err
	}
	s.LastUpdated = &row.UpdatedAt
	return s, nil
}
