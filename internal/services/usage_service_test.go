package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/llm-chat-backend/internal/domain"
	"github.com/tbourn/llm-chat-backend/internal/repo"
)

func newUsageService(t *testing.T, now *time.Time) *UsageService {
	t.Helper()
	return &UsageService{
		DB: newTestDB(t),
		Limits: Limits{
			AnonDaily: 2, AuthDaily: 3, AuthMonthly: 4,
			PremiumDaily: 5, PremiumMonthly: 50, PremiumCredits: 1,
		},
		Now: func() time.Time { return *now },
	}
}

func TestUsage_AnonymousDailyLimit(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	s := newUsageService(t, &now)
	ctx := context.Background()
	who := Identity{UserID: "anon-1", Anonymous: true}

	for i := 0; i < 2; i++ {
		snap, err := s.CheckAndConsume(ctx, who, false)
		if err != nil {
			t.Fatalf("consume %d: %v", i, err)
		}
		if snap.Tier != TierAnonymous || snap.DailyUsed != i+1 || snap.MonthlyLimit != noLimit {
			t.Fatalf("unexpected snapshot: %+v", snap)
		}
	}

	_, err := s.CheckAndConsume(ctx, who, false)
	var le *LimitError
	if !errors.As(err, &le) || le.Code != CodeDailyLimit || le.Limit != 2 {
		t.Fatalf("want daily LimitError, got %v", err)
	}
	if !errors.Is(err, ErrLimitReached) {
		t.Fatalf("LimitError must match ErrLimitReached")
	}
	if want := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC); !le.ResetAt.Equal(want) {
		t.Fatalf("reset at %v, want %v", le.ResetAt, want)
	}

	// The rejection did not consume.
	u, _ := repo.GetUser(ctx, s.DB, "anon-1")
	if u.DailyMessageCount != 2 {
		t.Fatalf("daily count = %d, want 2", u.DailyMessageCount)
	}

	// Next UTC day the counter rolls over.
	now = now.Add(10 * time.Hour)
	if _, err := s.CheckAndConsume(ctx, who, false); err != nil {
		t.Fatalf("after rollover: %v", err)
	}
}

func TestUsage_MonthlyLimitAcrossDays(t *testing.T) {
	now := time.Date(2025, 1, 30, 9, 0, 0, 0, time.UTC)
	s := newUsageService(t, &now)
	ctx := context.Background()
	who := Identity{UserID: "u1", Email: "u1@example.com"}

	for i := 0; i < 3; i++ {
		if _, err := s.CheckAndConsume(ctx, who, false); err != nil {
			t.Fatalf("day 1 consume %d: %v", i, err)
		}
	}
	now = now.Add(24 * time.Hour) // Jan 31
	if _, err := s.CheckAndConsume(ctx, who, false); err != nil {
		t.Fatalf("day 2 consume: %v", err)
	}
	_, err := s.CheckAndConsume(ctx, who, false)
	var le *LimitError
	if !errors.As(err, &le) || le.Code != CodeMonthlyLimit {
		t.Fatalf("want monthly limit, got %v", err)
	}
	if want := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC); !le.ResetAt.Equal(want) {
		t.Fatalf("monthly reset %v, want %v", le.ResetAt, want)
	}

	now = time.Date(2025, 2, 1, 0, 0, 1, 0, time.UTC)
	snap, err := s.CheckAndConsume(ctx, who, false)
	if err != nil {
		t.Fatalf("new month: %v", err)
	}
	if snap.MonthlyUsed != 1 || snap.DailyUsed != 1 {
		t.Fatalf("counters not rolled: %+v", snap)
	}
}

func TestUsage_PremiumModels(t *testing.T) {
	now := time.Date(2025, 5, 5, 5, 0, 0, 0, time.UTC)
	s := newUsageService(t, &now)
	ctx := context.Background()

	free := Identity{UserID: "free"}
	_, err := s.CheckAndConsume(ctx, free, true)
	var le *LimitError
	if !errors.As(err, &le) || le.Code != CodePremiumRequire {
		t.Fatalf("free user on premium model: want PREMIUM_REQUIRED, got %v", err)
	}

	pro := Identity{UserID: "pro"}
	if _, err := repo.GetOrCreateUser(ctx, s.DB, pro.UserID, "", false); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetPremium(ctx, s.DB, pro.UserID, true, nil); err != nil {
		t.Fatal(err)
	}
	snap, err := s.CheckAndConsume(ctx, pro, true)
	if err != nil {
		t.Fatalf("premium consume: %v", err)
	}
	if snap.Tier != TierPremium || snap.PremiumUsed != 1 || snap.PremiumLimit != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, err := s.CheckAndConsume(ctx, pro, true); !errors.As(err, &le) || le.Code != CodePremiumLimit {
		t.Fatalf("want premium credit limit, got %v", err)
	}
	// Non-premium models still work once credits are spent.
	if _, err := s.CheckAndConsume(ctx, pro, false); err != nil {
		t.Fatalf("standard model after credits: %v", err)
	}
}

func TestUsage_ReportsWithoutConsuming(t *testing.T) {
	now := time.Date(2025, 5, 5, 5, 0, 0, 0, time.UTC)
	s := newUsageService(t, &now)
	ctx := context.Background()

	snap, err := s.Usage(ctx, Identity{UserID: "nobody"})
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if snap.Tier != TierFree || snap.DailyUsed != 0 || snap.Remaining() != 3 {
		t.Fatalf("fresh snapshot = %+v remaining=%d", snap, snap.Remaining())
	}
	if _, err := repo.GetUser(ctx, s.DB, "nobody"); err == nil {
		t.Fatalf("Usage must not create users")
	}

	who := Identity{UserID: "u"}
	if _, err := s.CheckAndConsume(ctx, who, false); err != nil {
		t.Fatal(err)
	}
	snap, _ = s.Usage(ctx, who)
	if snap.DailyUsed != 1 || snap.Remaining() != 2 {
		t.Fatalf("after one message: %+v remaining=%d", snap, snap.Remaining())
	}
}

func TestUsageSnapshot_Remaining(t *testing.T) {
	cases := []struct {
		snap UsageSnapshot
		want int
	}{
		{UsageSnapshot{DailyLimit: 10, DailyUsed: 3, MonthlyLimit: noLimit}, 7},
		{UsageSnapshot{DailyLimit: 10, DailyUsed: 3, MonthlyLimit: 5, MonthlyUsed: 4}, 1},
		{UsageSnapshot{DailyLimit: 10, DailyUsed: 12, MonthlyLimit: noLimit}, 0},
		{UsageSnapshot{DailyLimit: noLimit, MonthlyLimit: noLimit}, noLimit},
	}
	for i, c := range cases {
		if got := c.snap.Remaining(); got != c.want {
			t.Fatalf("case %d: Remaining = %d, want %d", i, got, c.want)
		}
	}
}

func TestTier(t *testing.T) {
	if Tier(&domain.User{IsPremium: true, IsAnonymous: true}) != TierPremium {
		t.Fatal("premium wins")
	}
	if Tier(&domain.User{IsAnonymous: true}) != TierAnonymous || Tier(&domain.User{}) != TierFree {
		t.Fatal("tier mapping")
	}
}
