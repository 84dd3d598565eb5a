// Package services – APIKeyService
//
// Bring-your-own-key storage. Keys are sealed before they reach the database
// and only the last four characters are ever returned to clients.
package services

import (
	"context"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/crypto"
	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// APIKeyService manages user-supplied provider keys.
type APIKeyService struct {
	DB        *gorm.DB
	Sealer    *crypto.Sealer // nil disables BYOK
	Providers []string       // accepted provider names
}

// UserKey is a decrypted key ready for a provider call.
type UserKey struct {
	Provider string
	Key      string
	Mode     string
}

// Put stores (or replaces) the caller's key for provider. mode defaults to
// fallback.
func (s *APIKeyService) Put(ctx context.Context, userID, provider, key, mode string) (*domain.UserAPIKey, error) {
	tr := otel.Tracer("services/APIKeyService")
	ctx, span := tr.Start(ctx, "Put", trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("provider", provider),
	))
	defer span.End()

	if s.Sealer == nil {
		return nil, ErrEncryptionDisabled
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if !slices.Contains(s.Providers, provider) {
		return nil, ErrUnknownProvider
	}
	key = strings.TrimSpace(key)
	if len(key) < 8 || strings.ContainsAny(key, " \t\r\n") {
		return nil, ErrInvalidAPIKey
	}
	switch mode {
	case "":
		mode = domain.KeyModeFallback
	case domain.KeyModePriority, domain.KeyModeFallback:
	default:
		return nil, ErrInvalidAPIKey
	}

	sealed, err := s.Sealer.SealString(key)
	if err != nil {
		return nil, err
	}
	k := &domain.UserAPIKey{
		UserID:    userID,
		Provider:  provider,
		SealedKey: sealed,
		Last4:     crypto.Last4(key),
		Mode:      mode,
	}
	if err := repo.UpsertAPIKey(ctx, s.DB, k); err != nil {
		return nil, err
	}
	return repo.GetAPIKey(ctx, s.DB, userID, provider)
}

// List returns the caller's keys; sealed material is never serialised.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]domain.UserAPIKey, error) {
	return repo.ListAPIKeys(ctx, s.DB, userID)
}

// Delete removes the caller's key for provider.
func (s *APIKeyService) Delete(ctx context.Context, userID, provider string) error {
	err := repo.DeleteAPIKey(ctx, s.DB, userID, strings.ToLower(strings.TrimSpace(provider)))
	if isNotFound(err) {
		return ErrAPIKeyNotFound
	}
	return err
}

// Resolve returns the caller's decrypted key for provider, or nil when none
// is stored or BYOK is disabled.
func (s *APIKeyService) Resolve(ctx context.Context, userID, provider string) (*UserKey, error) {
	if s == nil || s.Sealer == nil {
		return nil, nil
	}
	k, err := repo.GetAPIKey(ctx, s.DB, userID, provider)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	plain, err := s.Sealer.OpenString(k.SealedKey)
	if err != nil {
		return nil, err
	}
	return &UserKey{Provider: provider, Key: plain, Mode: k.Mode}, nil
}
