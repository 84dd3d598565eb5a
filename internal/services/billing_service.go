// Package services – BillingService
//
// BillingService applies subscription events pushed by the payments
// provider. Each request body is authenticated with an HMAC-SHA256 hex
// digest sent in the X-Signature header (optionally prefixed "sha256=").
// Event ids are recorded: a redelivery is acknowledged without effect, and
// an event older than the last one applied for the user is ignored.
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Billing event types.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionRenewed   = "subscription.renewed"
	EventSubscriptionCanceled  = "subscription.canceled"
	EventSubscriptionExpired   = "subscription.expired"
)

// BillingEvent is the webhook payload. OccurredAt orders events of one
// user; when absent the time of receipt is used.
type BillingEvent struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	UserID     string     `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	RenewsAt   *time.Time `json:"renews_at,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// BillingService verifies and applies webhook events.
type BillingService struct {
	DB     *gorm.DB
	Secret []byte
}

// Sign returns the hex HMAC-SHA256 of body under the webhook secret.
func (s *BillingService) Sign(body []byte) string {
	m := hmac.New(sha256.New, s.Secret)
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

// Verify checks the X-Signature header value against body.
func (s *BillingService) Verify(body []byte, signature string) error {
	if len(s.Secret) == 0 {
		return ErrInvalidSignature
	}
	sig := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(sig)
	if err != nil || len(got) != sha256.Size {
		return ErrInvalidSignature
	}
	want, _ := hex.DecodeString(s.Sign(body))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}

// Handle verifies body and applies the event it carries.
func (s *BillingService) Handle(ctx context.Context, body []byte, signature string) (*BillingEvent, error) {
	tr := otel.Tracer("services/BillingService")
	ctx, span := tr.Start(ctx, "Handle", trace.WithAttributes(attribute.Int("body.bytes", len(body))))
	defer span.End()

	if err := s.Verify(body, signature); err != nil {
		span.RecordError(err)
		return nil, err
	}
	var ev BillingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownBillingEvent, err)
	}
	span.SetAttributes(
		attribute.String("billing.event", ev.Type),
		attribute.String("user.id", ev.UserID),
	)
	if strings.TrimSpace(ev.UserID) == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrUnknownBillingEvent)
	}
	if strings.TrimSpace(ev.ID) == "" {
		return nil, fmt.Errorf("%w: missing id", ErrUnknownBillingEvent)
	}

	var premium bool
	var renews *time.Time
	switch ev.Type {
	case EventSubscriptionActivated, EventSubscriptionRenewed:
		premium, renews = true, ev.RenewsAt
	case EventSubscriptionCanceled, EventSubscriptionExpired:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBillingEvent, ev.Type)
	}

	now := time.Now().UTC()
	rec := domain.BillingEventRecord{
		ID:         ev.ID,
		UserID:     ev.UserID,
		Type:       ev.Type,
		OccurredAt: now,
		CreatedAt:  now,
	}
	if ev.OccurredAt != nil {
		rec.OccurredAt = ev.OccurredAt.UTC()
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		last, err := repo.LatestBillingEvent(ctx, tx, ev.UserID)
		if err != nil {
			return err
		}
		rec.Applied = last == nil || !last.OccurredAt.After(rec.OccurredAt)
		if err := repo.RecordBillingEvent(ctx, tx, &rec); err != nil {
			return err
		}
		if !rec.Applied {
			return nil
		}
		if _, err := repo.GetOrCreateUser(ctx, tx, ev.UserID, ev.Email, false); err != nil {
			return err
		}
		return repo.SetPremium(ctx, tx, ev.UserID, premium, renews)
	})

	if err != nil && !errors.Is(err, repo.ErrDuplicate) {
		span.RecordError(err)
		return nil, err
	}
	log := zerolog.Ctx(ctx).Info().
		Str("event_id", ev.ID).
		Str("event", ev.Type).
		Str("user_id", ev.UserID)
	switch {
	case err != nil:
		log.Msg("billing event already processed")
	case !rec.Applied:
		log.Msg("billing event out of order, ignored")
	default:
		log.Bool("premium", premium).Msg("billing event applied")
	}
	return &ev, nil
}
