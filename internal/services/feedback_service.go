package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
)

const maxFeedbackCommentRunes = 1000

// FeedbackService lets chat owners rate assistant replies.
type FeedbackService struct {
	DB *gorm.DB
}

// Leave records a +1 or -1 rating, with an optional comment, on an assistant
// message in one of userID's chats. Each user rates a message at most once;
// Retract frees the slot.
//
// Errors: ErrInvalidFeedback for a bad value or an over-long comment,
// ErrMessageNotFound for missing and foreign messages alike,
// ErrForbiddenFeedback for non-assistant messages and ErrDuplicateFeedback
// for a second rating.
func (s *FeedbackService) Leave(ctx context.Context, userID, messageID string, value int, comment string) (*domain.Feedback, error) {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Leave", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("message.id", messageID),
		attribute.Int("feedback.value", value),
	))
	defer span.End()

	if value != -1 && value != 1 {
		return nil, ErrInvalidFeedback
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > maxFeedbackCommentRunes {
		return nil, ErrInvalidFeedback
	}

	var fb *domain.Feedback
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := s.ownedMessage(ctx, tx, userID, messageID)
		if err != nil {
			return err
		}
		if msg.Role != domain.RoleAssistant {
			return ErrForbiddenFeedback
		}

		fb = &domain.Feedback{MessageID: messageID, UserID: userID, Value: value, Comment: comment}
		if err := repo.CreateFeedback(ctx, tx, fb); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return fb, nil
}

// Retract removes userID's rating of messageID. Missing feedback is
// ErrMessageNotFound.
func (s *FeedbackService) Retract(ctx context.Context, userID, messageID string) error {
	tr := otel.Tracer("services/FeedbackService")
	ctx, span := tr.Start(ctx, "Retract", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("message.id", messageID),
	))
	defer span.End()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ownedMessage(ctx, tx, userID, messageID); err != nil {
			return err
		}
		if err := repo.DeleteFeedback(ctx, tx, messageID, userID); err != nil {
			if isNotFound(err) {
				return ErrMessageNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// ownedMessage loads messageID and checks that its chat belongs to userID.
func (s *FeedbackService) ownedMessage(ctx context.Context, tx *gorm.DB, userID, messageID string) (*domain.Message, error) {
	msg, err := repo.GetMessage(tx.WithContext(ctx), messageID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	if _, err := repo.GetChat(ctx, tx, msg.ChatID, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return msg, nil
}
