// Package services – AccountService
//
// AccountService exposes the caller's own user record: the usage view,
// preference updates and full account deletion.
package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
	"github.com/tbourn/llm-chat-backend/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxCustomInstructionRunes = 4000

var themes = map[string]bool{"": true, "light": true, "dark": true, "system": true}

// AccountService manages the caller's account.
type AccountService struct {
	DB      *gorm.DB
	Usage   *UsageService
	Models  ModelCatalog // nil accepts any model id
	Storage storage.Storage
}

// Account is the caller-facing account view.
type Account struct {
	User  *domain.User   `json:"user"`
	Usage *UsageSnapshot `json:"usage"`
}

// PreferencesPatch carries the fields to change; nil leaves a field as is.
type PreferencesPatch struct {
	DefaultModel       *string `json:"default_model"`
	Theme              *string `json:"theme"`
	CustomInstructions *string `json:"custom_instructions"`
	ShowReasoning      *bool   `json:"show_reasoning"`
}

// View returns the user row (created on first sight) and its usage.
func (s *AccountService) View(ctx context.Context, who Identity) (*Account, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "View", trace.WithAttributes(attribute.String("user.id", who.UserID)))
	defer span.End()

	u, err := repo.GetOrCreateUser(ctx, s.DB, who.UserID, who.Email, who.Anonymous)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	snap, err := s.Usage.Usage(ctx, who)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &Account{User: u, Usage: snap}, nil
}

// UpdatePreferences validates and applies a preferences patch.
func (s *AccountService) UpdatePreferences(ctx context.Context, who Identity, p PreferencesPatch) (*domain.Preferences, error) {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "UpdatePreferences", trace.WithAttributes(attribute.String("user.id", who.UserID)))
	defer span.End()

	u, err := repo.GetOrCreateUser(ctx, s.DB, who.UserID, who.Email, who.Anonymous)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	prefs := u.Preferences.Data()

	if p.DefaultModel != nil {
		m := strings.TrimSpace(*p.DefaultModel)
		if m != "" && s.Models != nil && !s.Models.Known(m) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPreferences, ErrUnknownModel)
		}
		prefs.DefaultModel = m
	}
	if p.Theme != nil {
		t := strings.ToLower(strings.TrimSpace(*p.Theme))
		if !themes[t] {
			return nil, fmt.Errorf("%w: theme %q", ErrInvalidPreferences, *p.Theme)
		}
		prefs.Theme = t
	}
	if p.CustomInstructions != nil {
		ci := strings.TrimSpace(*p.CustomInstructions)
		if utf8.RuneCountInString(ci) > maxCustomInstructionRunes {
			return nil, fmt.Errorf("%w: custom instructions exceed %d characters", ErrInvalidPreferences, maxCustomInstructionRunes)
		}
		prefs.CustomInstructions = ci
	}
	if p.ShowReasoning != nil {
		prefs.ShowReasoning = *p.ShowReasoning
	}

	if err := repo.UpdatePreferences(ctx, s.DB, who.UserID, prefs); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &prefs, nil
}

// Delete removes the account and everything it owns. Attachment objects
// are removed after the transaction commits.
func (s *AccountService) Delete(ctx context.Context, userID string) error {
	tr := otel.Tracer("services/AccountService")
	ctx, span := tr.Start(ctx, "Delete", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	var keys []string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		keys, err = repo.DeleteUserData(ctx, tx, userID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	span.SetAttributes(attribute.Int("attachments.deleted", len(keys)))
	deleteObjects(ctx, s.Storage, keys)
	return nil
}
