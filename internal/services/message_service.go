// Package services – MessageService
//
// MessageService appends user turns to the message tree, stores assistant
// replies, reads threads along parent links and removes whole subtrees.
// The first prompt of a chat with a placeholder title renames the chat.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService coordinates message persistence and thread navigation.
type MessageService struct {
	DB *gorm.DB

	// MaxPromptRunes rejects longer user turns; 0 disables the check.
	MaxPromptRunes int
	Titles         Titles
}

// NewMessage is a user message to append to a chat.
type NewMessage struct {
	Content string
	Parts   []domain.Part
	// ParentID attaches the message under an explicit parent. When nil the
	// chat's latest message is used.
	ParentID *string
}

// Append stores a user turn under in.ParentID (or the latest message),
// renames a placeholder chat after it and bumps the chat's activity time in
// one transaction. It returns the message and the chat as stored.
func (s *MessageService) Append(ctx context.Context, userID, chatID string, in NewMessage) (*domain.Message, *domain.Chat, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	prompt, err := s.checkPrompt(in.Content)
	if err != nil {
		return nil, nil, err
	}

	var (
		msg  *domain.Message
		chat *domain.Chat
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := ownedChat(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		chat = c

		parentID, err := s.resolveParent(ctx, tx, chatID, in.ParentID)
		if err != nil {
			return err
		}

		uid := userID
		m, err := repo.CreateMessage(ctx, tx, &domain.Message{
			ChatID:          chatID,
			UserID:          &uid,
			Role:            domain.RoleUser,
			Content:         prompt,
			Parts:           in.Parts,
			ParentMessageID: parentID,
		})
		if err != nil {
			return err
		}
		msg = m

		if s.Titles.IsPlaceholder(chat.Title) {
			if title := s.Titles.FromPrompt(prompt); title != "" {
				if err := repo.UpdateChatFields(ctx, tx, chatID, userID, map[string]any{"title": title}); err != nil {
					return err
				}
				chat.Title = title
			}
		}
		chat.UpdatedAt = m.CreatedAt
		return repo.TouchChat(ctx, tx, chatID, m.CreatedAt)
	})
	if err != nil {
		return nil, nil, err
	}
	return msg, chat, nil
}

// Validate reports the error Append would return for in on prompt or
// parent grounds, without writing anything.
func (s *MessageService) Validate(ctx context.Context, chatID string, in NewMessage) error {
	if _, err := s.checkPrompt(in.Content); err != nil {
		return err
	}
	_, err := s.resolveParent(ctx, s.DB.WithContext(ctx), chatID, in.ParentID)
	return err
}

func (s *MessageService) checkPrompt(content string) (string, error) {
	prompt := strings.TrimSpace(content)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return "", ErrTooLong
	}
	return prompt, nil
}

// resolveParent validates an explicit parent or falls back to the latest
// message of the chat. A chat without messages yields a nil parent.
func (s *MessageService) resolveParent(ctx context.Context, tx *gorm.DB, chatID string, parentID *string) (*string, error) {
	if parentID != nil && *parentID != "" {
		if _, err := repo.GetChatMessage(ctx, tx, chatID, *parentID); err != nil {
			if isNotFound(err) {
				return nil, ErrInvalidParent
			}
			return nil, err
		}
		p := *parentID
		return &p, nil
	}
	last, err := repo.LatestMessage(ctx, tx, chatID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &last.ID, nil
}

// AddAssistant stores an assistant reply under parentID and bumps the chat.
func (s *MessageService) AddAssistant(ctx context.Context, chatID, parentID, content string, parts []domain.Part, meta domain.MessageMetadata) (*domain.Message, error) {
	var out *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p := parentID
		m := &domain.Message{
			ChatID:          chatID,
			Role:            domain.RoleAssistant,
			Content:         content,
			Parts:           parts,
			ParentMessageID: &p,
			Metadata:        datatypes.NewJSONType(meta),
		}
		created, err := repo.CreateMessage(ctx, tx, m)
		if err != nil {
			return err
		}
		out = created
		return repo.TouchChat(ctx, tx, chatID, created.CreatedAt)
	})
	return out, err
}

// ListPage returns paginated messages for an owned chat.
func (s *MessageService) ListPage(ctx context.Context, userID, chatID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if _, err := ownedChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, 0, err
	}

	total, err := repo.CountMessages(s.DB.WithContext(ctx), chatID)
	if err != nil || total == 0 {
		return []domain.Message{}, total, err
	}
	offset, limit := pageWindow(page, pageSize)
	items, err := repo.ListMessagesPage(s.DB.WithContext(ctx), chatID, offset, limit)
	return items, total, err
}

// Thread returns the ancestor chain root..leaf of an owned chat. An empty
// leafID selects the chat's latest message; a chat without messages yields
// an empty thread.
func (s *MessageService) Thread(ctx context.Context, userID, chatID, leafID string) ([]domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Thread",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("leaf.id", leafID),
		),
	)
	defer span.End()

	if _, err := ownedChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, err
	}
	if leafID == "" {
		last, err := repo.LatestMessage(ctx, s.DB, chatID)
		if err != nil {
			if isNotFound(err) {
				return []domain.Message{}, nil
			}
			return nil, err
		}
		leafID = last.ID
	}
	chain, err := repo.AncestorChain(ctx, s.DB, chatID, leafID)
	if err != nil {
		return nil, mapThreadErr(err)
	}
	span.SetAttributes(attribute.Int("thread.len", len(chain)))
	return chain, nil
}

// DeleteSubtree removes a message of an owned chat together with every
// descendant (and their feedback). It returns the number of messages removed.
func (s *MessageService) DeleteSubtree(ctx context.Context, userID, chatID, messageID string) (int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "DeleteSubtree",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("message.id", messageID),
		),
	)
	defer span.End()

	var n int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedChat(ctx, tx, chatID, userID); err != nil {
			return err
		}
		ids, err := repo.DescendantIDs(ctx, tx, chatID, messageID)
		if err != nil {
			if isNotFound(err) {
				return ErrMessageNotFound
			}
			return err
		}
		n, err = repo.DeleteMessages(ctx, tx, chatID, ids)
		if err != nil {
			return err
		}
		return repo.TouchChat(ctx, tx, chatID, time.Now().UTC())
	})
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("messages.deleted", n))
	return n, nil
}
