// Package services – ShareService
//
// ShareService publishes read-only snapshots of chats. The public view
// replaces tool payloads and file URLs with redaction markers and reports
// how much was hidden.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ShareService manages public share links.
type ShareService struct {
	DB *gorm.DB
}

// SharedMessage is a message as shown on a public page.
type SharedMessage struct {
	ID              string        `json:"id"`
	Role            string        `json:"role"`
	Content         string        `json:"content"`
	Parts           []domain.Part `json:"parts,omitempty"`
	ParentMessageID *string       `json:"parent_message_id,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Snapshot is the public, redacted view of a shared chat.
type Snapshot struct {
	ShareID    string                  `json:"share_id"`
	Title      string                  `json:"title"`
	Model      string                  `json:"model,omitempty"`
	SharedAt   time.Time               `json:"shared_at"`
	Messages   []SharedMessage         `json:"messages"`
	Redactions domain.RedactionSummary `json:"redactions"`
	Redacted   bool                    `json:"has_redacted_content"`
}

// Share returns the share link of an owned chat, creating it on first use.
func (s *ShareService) Share(ctx context.Context, userID, chatID string) (*domain.SharedChat, error) {
	tr := otel.Tracer("services/ShareService")
	ctx, span := tr.Start(ctx, "Share", trace.WithAttributes(
		attribute.String("chat.id", chatID),
		attribute.String("user.id", userID),
	))
	defer span.End()

	if _, err := ownedChat(ctx, s.DB, chatID, userID); err != nil {
		return nil, err
	}
	return repo.CreateShare(ctx, s.DB, chatID, userID)
}

// Unshare revokes the link of an owned chat.
func (s *ShareService) Unshare(ctx context.Context, userID, chatID string) error {
	if err := repo.DeleteShare(ctx, s.DB, chatID, userID); err != nil {
		if isNotFound(err) {
			return ErrShareNotFound
		}
		return err
	}
	return nil
}

// Snapshot renders the public view of a share. System messages are left
// out. No ownership check: the share id is the capability.
func (s *ShareService) Snapshot(ctx context.Context, shareID string) (*Snapshot, error) {
	tr := otel.Tracer("services/ShareService")
	ctx, span := tr.Start(ctx, "Snapshot", trace.WithAttributes(attribute.String("share.id", shareID)))
	defer span.End()

	sh, err := repo.GetShare(ctx, s.DB, shareID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	chat, err := repo.GetChatByID(ctx, s.DB, sh.ChatID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	msgs, err := repo.ListMessages(s.DB.WithContext(ctx), chat.ID, 0)
	if err != nil {
		return nil, err
	}

	out := &Snapshot{
		ShareID:  sh.ID,
		Title:    chat.Title,
		Model:    chat.Model,
		SharedAt: sh.CreatedAt,
		Messages: make([]SharedMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		if m.Role == domain.RoleSystem {
			continue
		}
		parts := domain.RedactParts(m.Parts)
		out.Redactions.Add(domain.DetectRedactedContent(parts))
		out.Messages = append(out.Messages, SharedMessage{
			ID:              m.ID,
			Role:            m.Role,
			Content:         m.Content,
			Parts:           parts,
			ParentMessageID: m.ParentMessageID,
			CreatedAt:       m.CreatedAt,
		})
	}
	out.Redacted = out.Redactions.HasRedactedContent()
	span.SetAttributes(attribute.Int("messages", len(out.Messages)), attribute.Bool("redacted", out.Redacted))
	return out, nil
}
