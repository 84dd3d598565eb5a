// Package services – UsageService
//
// UsageService is the quota gate in front of every metered operation. It
// keeps per-user daily, monthly and premium-credit counters on the users row
// and rolls them over lazily when their reset instant has passed.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/observability"
	"github.com/tbourn/llm-chat-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tiers.
const (
	TierAnonymous = "anonymous"
	TierFree      = "free"
	TierPremium   = "premium"
)

// noLimit marks a counter that is not capped for a tier.
const noLimit = -1

// Identity is the authenticated caller as resolved by the HTTP layer.
type Identity struct {
	UserID    string
	Email     string
	Anonymous bool
}

// Limits holds the per-tier quotas.
type Limits struct {
	AnonDaily      int
	AuthDaily      int
	AuthMonthly    int
	PremiumDaily   int
	PremiumMonthly int
	PremiumCredits int
}

// UsageSnapshot is the caller-facing view of the counters after rollover.
// A Limit of -1 means the tier has no cap for that counter.
type UsageSnapshot struct {
	Tier string `json:"tier"`

	DailyUsed    int       `json:"daily_used"`
	DailyLimit   int       `json:"daily_limit"`
	DailyResetAt time.Time `json:"daily_reset_at"`

	MonthlyUsed    int       `json:"monthly_used"`
	MonthlyLimit   int       `json:"monthly_limit"`
	MonthlyResetAt time.Time `json:"monthly_reset_at"`

	PremiumUsed    int       `json:"premium_credits_used"`
	PremiumLimit   int       `json:"premium_credits_limit"`
	PremiumResetAt time.Time `json:"premium_reset_at"`
}

// Remaining returns how many messages are left today, bounded by the
// monthly allowance. -1 means unlimited.
func (u UsageSnapshot) Remaining() int {
	rem := noLimit
	if u.DailyLimit != noLimit {
		rem = max(u.DailyLimit-u.DailyUsed, 0)
	}
	if u.MonthlyLimit != noLimit {
		m := max(u.MonthlyLimit-u.MonthlyUsed, 0)
		if rem == noLimit || m < rem {
			rem = m
		}
	}
	return rem
}

// UsageService implements the quota gate.
type UsageService struct {
	DB     *gorm.DB
	Limits Limits

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *UsageService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// CheckAndConsume loads (or creates) the caller, rolls expired counters,
// checks them against the tier limits and increments them, all in one
// transaction. premium tells whether the requested model spends premium
// credits. A rejection is returned as *LimitError and consumes nothing.
func (s *UsageService) CheckAndConsume(ctx context.Context, who Identity, premium bool) (*UsageSnapshot, error) {
	tr := otel.Tracer("services/UsageService")
	ctx, span := tr.Start(ctx, "CheckAndConsume",
		trace.WithAttributes(
			attribute.String("user.id", who.UserID),
			attribute.Bool("model.premium", premium),
		),
	)
	defer span.End()

	now := s.now()
	var snap UsageSnapshot
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.GetOrCreateUser(ctx, tx, who.UserID, who.Email, who.Anonymous); err != nil {
			return err
		}
		u, err := repo.LockUser(ctx, tx, who.UserID)
		if err != nil {
			return err
		}
		rollUsage(u, now)
		snap = s.snapshot(u)

		if lerr := checkLimits(u, snap, premium); lerr != nil {
			return lerr
		}

		u.DailyMessageCount++
		u.MonthlyMessageCount++
		if premium {
			u.PremiumCreditsUsed++
		}
		if err := repo.SaveUsage(ctx, tx, u); err != nil {
			return err
		}
		snap = s.snapshot(u)
		return nil
	})
	if err != nil {
		var le *LimitError
		if errors.As(err, &le) {
			span.SetAttributes(attribute.String("limit.code", le.Code))
			observability.ObserveLimitRejection(le.Code)
		}
		return nil, err
	}
	return &snap, nil
}

// Usage returns the rolled-over counters without consuming anything. Unknown
// users are reported with fresh counters for the tier implied by who.
func (s *UsageService) Usage(ctx context.Context, who Identity) (*UsageSnapshot, error) {
	tr := otel.Tracer("services/UsageService")
	ctx, span := tr.Start(ctx, "Usage", trace.WithAttributes(attribute.String("user.id", who.UserID)))
	defer span.End()

	u, err := repo.GetUser(ctx, s.DB, who.UserID)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		u = &domain.User{ID: who.UserID, IsAnonymous: who.Anonymous}
	}
	rollUsage(u, s.now())
	snap := s.snapshot(u)
	return &snap, nil
}

// Tier returns the quota tier of a user row.
func Tier(u *domain.User) string {
	switch {
	case u.IsPremium:
		return TierPremium
	case u.IsAnonymous:
		return TierAnonymous
	default:
		return TierFree
	}
}

func (s *UsageService) snapshot(u *domain.User) UsageSnapshot {
	tier := Tier(u)
	out := UsageSnapshot{
		Tier:           tier,
		DailyUsed:      u.DailyMessageCount,
		DailyResetAt:   u.DailyResetAt,
		MonthlyUsed:    u.MonthlyMessageCount,
		MonthlyResetAt: u.MonthlyResetAt,
		PremiumUsed:    u.PremiumCreditsUsed,
		PremiumResetAt: u.PremiumResetAt,
	}
	switch tier {
	case TierPremium:
		out.DailyLimit, out.MonthlyLimit, out.PremiumLimit = s.Limits.PremiumDaily, s.Limits.PremiumMonthly, s.Limits.PremiumCredits
	case TierAnonymous:
		out.DailyLimit, out.MonthlyLimit, out.PremiumLimit = s.Limits.AnonDaily, noLimit, 0
	default:
		out.DailyLimit, out.MonthlyLimit, out.PremiumLimit = s.Limits.AuthDaily, s.Limits.AuthMonthly, 0
	}
	return out
}

func checkLimits(u *domain.User, snap UsageSnapshot, premium bool) *LimitError {
	if premium && !u.IsPremium {
		return &LimitError{Code: CodePremiumRequire}
	}
	if snap.DailyLimit != noLimit && snap.DailyUsed >= snap.DailyLimit {
		return &LimitError{Code: CodeDailyLimit, Limit: snap.DailyLimit, ResetAt: snap.DailyResetAt}
	}
	if snap.MonthlyLimit != noLimit && snap.MonthlyUsed >= snap.MonthlyLimit {
		return &LimitError{Code: CodeMonthlyLimit, Limit: snap.MonthlyLimit, ResetAt: snap.MonthlyResetAt}
	}
	if premium && snap.PremiumUsed >= snap.PremiumLimit {
		return &LimitError{Code: CodePremiumLimit, Limit: snap.PremiumLimit, ResetAt: snap.PremiumResetAt}
	}
	return nil
}

// rollUsage zeroes every counter whose reset instant is due and schedules the
// next one: the following UTC midnight for the daily counter, the first of
// the following month (00:00 UTC) for the monthly and premium counters.
func rollUsage(u *domain.User, now time.Time) {
	if u.DailyResetAt.IsZero() || !now.Before(u.DailyResetAt) {
		u.DailyMessageCount = 0
		u.DailyResetAt = nextUTCMidnight(now)
	}
	if u.MonthlyResetAt.IsZero() || !now.Before(u.MonthlyResetAt) {
		u.MonthlyMessageCount = 0
		u.MonthlyResetAt = nextMonthStart(now)
	}
	if u.PremiumResetAt.IsZero() || !now.Before(u.PremiumResetAt) {
		u.PremiumCreditsUsed = 0
		u.PremiumResetAt = nextMonthStart(now)
	}
}

func nextUTCMidnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func nextMonthStart(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}
