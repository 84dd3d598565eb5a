// Package services defines the business logic of the chat backend: chats,
// messages, completions, usage accounting and the satellite features around them.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
)

// Chat-related errors.
var (
	// ErrChatNotFound indicates that the requested chat does not exist or is not
	// accessible to the current user.
	ErrChatNotFound = errors.New("chat not found")

	// ErrEmptyPrompt is returned when a request to create a message contains
	// an empty prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrTooLong is returned when a request to create a message exceeds the
	// maximum configured length limit.
	ErrTooLong = errors.New("prompt too long")

	// ErrInvalidFeedback is returned for a value other than -1 or 1 or an
	// over-long comment.
	ErrInvalidFeedback = errors.New("invalid feedback")

	// ErrMessageNotFound indicates that the requested message does not exist
	// or is not accessible to the current user.
	ErrMessageNotFound = errors.New("message not found")

	// ErrForbiddenFeedback is returned when a user attempts to leave feedback
	// on a message they are not permitted to rate.
	ErrForbiddenFeedback = errors.New("cannot leave feedback on this message")

	// ErrDuplicateFeedback is returned when a user attempts to leave feedback
	// on a message that they have already rated.
	ErrDuplicateFeedback = errors.New("feedback already exists")
)

// Branching and threading errors.
var (
	// ErrThreadBroken is returned when a message's parent links form a cycle
	// or cross into another chat.
	ErrThreadBroken = errors.New("message thread is inconsistent")

	// ErrNotRegenerable is returned when regeneration targets a message that
	// has no user prompt to answer.
	ErrNotRegenerable = errors.New("message cannot be regenerated")

	// ErrInvalidParent is returned when an explicit parent message does not
	// belong to the chat.
	ErrInvalidParent = errors.New("parent message not found in chat")
)

// Model and provider errors.
var (
	// ErrUnknownModel is returned for model ids missing from the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrProviderUnavailable is returned when neither a system key nor a
	// user key exists for the model's provider.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Attachment, connector, task, key and share errors.
var (
	ErrAttachmentNotFound     = errors.New("attachment not found")
	ErrFileTooLarge           = errors.New("file too large")
	ErrEmptyFile              = errors.New("file is empty")
	ErrUnknownConnector       = errors.New("unknown connector type")
	ErrConnectorNotConfigured = errors.New("connector is not configured")
	ErrInvalidOAuthState      = errors.New("invalid or expired oauth state")
	ErrConnectorNotFound      = errors.New("connector not found")
	ErrTaskNotFound           = errors.New("task not found")
	ErrInvalidTask            = errors.New("invalid task")
	ErrUnknownProvider        = errors.New("unknown provider")
	ErrInvalidAPIKey          = errors.New("invalid api key")
	ErrAPIKeyNotFound         = errors.New("api key not found")
	ErrEncryptionDisabled     = errors.New("encryption key is not configured")
	ErrShareNotFound          = errors.New("shared chat not found")
	ErrInvalidPreferences     = errors.New("invalid preferences")
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrUnknownBillingEvent    = errors.New("unknown billing event")
	ErrUserNotFound           = errors.New("user not found")
)

// Authentication errors.
var (
	// ErrInvalidToken is returned for malformed, expired or foreign tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAuthDisabled is returned when no signing secret is configured.
	ErrAuthDisabled = errors.New("token authentication is not configured")
)

// Limit codes carried by LimitError.
const (
	CodeDailyLimit     = "DAILY_LIMIT_REACHED"
	CodeMonthlyLimit   = "MONTHLY_LIMIT_REACHED"
	CodePremiumLimit   = "PREMIUM_LIMIT_REACHED"
	CodePremiumRequire = "PREMIUM_REQUIRED"
)

// ErrLimitReached matches every *LimitError via errors.Is.
var ErrLimitReached = errors.New("usage limit reached")

// LimitError reports a usage-gate rejection with a stable code. ResetAt is
// the instant the exhausted counter rolls over (zero for PREMIUM_REQUIRED).
type LimitError struct {
	Code    string
	Limit   int
	ResetAt time.Time
}

func (e *LimitError) Error() string {
	switch e.Code {
	case CodeDailyLimit:
		return "daily message limit reached"
	case CodeMonthlyLimit:
		return "monthly message limit reached"
	case CodePremiumLimit:
		return "premium model credits exhausted"
	case CodePremiumRequire:
		return "model requires a premium plan"
	}
	return ErrLimitReached.Error()
}

// Is makes errors.Is(err, ErrLimitReached) true for any LimitError.
func (e *LimitError) Is(target error) bool { return target == ErrLimitReached }

// isNotFound reports whether err is the repo's missing-row sentinel.
func isNotFound(err error) bool {
	return errors.Is(err, repo.ErrNotFound)
}

// ownedChat loads chatID for userID. Missing and foreign chats are both
// ErrChatNotFound.
func ownedChat(ctx context.Context, db *gorm.DB, chatID, userID string) (*domain.Chat, error) {
	c, err := repo.GetChat(ctx, db, chatID, userID)
	if isNotFound(err) {
		return nil, ErrChatNotFound
	}
	return c, err
}
