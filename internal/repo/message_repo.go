// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model, including the parent-link traversal used for threading.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

var (
	// ErrThreadCycle is returned when parent links loop back on themselves.
	ErrThreadCycle = errors.New("message thread contains a cycle")
	// ErrCrossChatParent is returned when a parent link leaves the chat.
	ErrCrossChatParent = errors.New("message parent belongs to another chat")
)

// CreateMessage inserts m, assigning an ID and CreatedAt when unset.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) (*domain.Message, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
func ListMessages(db *gorm.DB, chatID string, limit int) ([]domain.Message, error) {
	var out []domain.Message
	q := db.Where("chat_id = ?", chatID).Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.Raw("SELECT COUNT(*) FROM messages WHERE chat_id = ?", chatID).Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered (CreatedAt ASC, ID ASC).
func ListMessagesPage(db *gorm.DB, chatID string, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := db.
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID.
func GetMessage(db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// GetChatMessage fetches a message by ID, scoped to chatID.
func GetChatMessage(ctx context.Context, db *gorm.DB, chatID, id string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).Where("id = ? AND chat_id = ?", id, chatID).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// LatestMessage returns the newest message of a chat or ErrNotFound.
func LatestMessage(ctx context.Context, db *gorm.DB, chatID string) (*domain.Message, error) {
	var m domain.Message
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AncestorChain returns the path root..messageID in order.
//
// When any message of the chat carries a parent link, the chain follows
// parent links from messageID upward. Chats written before threading existed
// have no links at all; for those the chain is every message in chat order
// up to and including messageID.
func AncestorChain(ctx context.Context, db *gorm.DB, chatID, messageID string) ([]domain.Message, error) {
	all, err := ListMessages(db.WithContext(ctx), chatID, 0)
	if err != nil {
		return nil, err
	}
	return ancestorChain(all, messageID)
}

func ancestorChain(all []domain.Message, messageID string) ([]domain.Message, error) {
	byID := make(map[string]int, len(all))
	linked := false
	for i := range all {
		byID[all[i].ID] = i
		if all[i].ParentMessageID != nil {
			linked = true
		}
	}
	pos, ok := byID[messageID]
	if !ok {
		return nil, ErrNotFound
	}

	if !linked {
		out := make([]domain.Message, pos+1)
		copy(out, all[:pos+1])
		return out, nil
	}

	var rev []domain.Message
	seen := make(map[string]struct{})
	for cur := &all[pos]; ; {
		if _, dup := seen[cur.ID]; dup {
			return nil, ErrThreadCycle
		}
		seen[cur.ID] = struct{}{}
		rev = append(rev, *cur)
		if cur.ParentMessageID == nil {
			break
		}
		next, ok := byID[*cur.ParentMessageID]
		if !ok {
			return nil, ErrCrossChatParent
		}
		cur = &all[next]
	}

	out := make([]domain.Message, len(rev))
	for i := range rev {
		out[len(rev)-1-i] = rev[i]
	}
	return out, nil
}

// DescendantIDs returns messageID followed by every message below it in
// breadth-first order.
func DescendantIDs(ctx context.Context, db *gorm.DB, chatID, messageID string) ([]string, error) {
	all, err := ListMessages(db.WithContext(ctx), chatID, 0)
	if err != nil {
		return nil, err
	}
	children := make(map[string][]string, len(all))
	found := false
	for _, m := range all {
		if m.ID == messageID {
			found = true
		}
		if m.ParentMessageID != nil {
			children[*m.ParentMessageID] = append(children[*m.ParentMessageID], m.ID)
		}
	}
	if !found {
		return nil, ErrNotFound
	}

	out := []string{messageID}
	seen := map[string]struct{}{messageID: {}}
	for i := 0; i < len(out); i++ {
		for _, c := range children[out[i]] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, nil
}

// ChildMessages returns the direct replies to parentID, oldest first.
func ChildMessages(ctx context.Context, db *gorm.DB, chatID, parentID string) ([]domain.Message, error) {
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("chat_id = ? AND parent_message_id = ?", chatID, parentID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// DeleteMessages removes the given messages of a chat and their feedback.
func DeleteMessages(ctx context.Context, tx *gorm.DB, chatID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tx = tx.WithContext(ctx)
	if err := tx.Where("message_id IN ?", ids).Delete(&domain.Feedback{}).Error; err != nil {
		return 0, err
	}
	res := tx.Where("chat_id = ? AND id IN ?", chatID, ids).Delete(&domain.Message{})
	return res.RowsAffected, res.Error
}

// CopyChain inserts copies of chain into chatID with fresh IDs. Parent links
// that point inside the chain are remapped to the copies; CreatedAt and
// content are preserved.
func CopyChain(ctx context.Context, tx *gorm.DB, chatID string, chain []domain.Message) ([]domain.Message, error) {
	if len(chain) == 0 {
		return nil, nil
	}
	remap := make(map[string]string, len(chain))
	out := make([]domain.Message, len(chain))
	for i, src := range chain {
		m := src
		m.ID = uuid.NewString()
		m.ChatID = chatID
		m.Chat = domain.Chat{}
		remap[src.ID] = m.ID
		if src.ParentMessageID != nil {
			if np, ok := remap[*src.ParentMessageID]; ok {
				m.ParentMessageID = &np
			} else {
				m.ParentMessageID = nil
			}
		}
		out[i] = m
	}
	if err := tx.WithContext(ctx).Create(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
