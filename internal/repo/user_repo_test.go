package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

func TestGetOrCreateUser_Idempotent(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()

	u, err := GetOrCreateUser(ctx, db, "u1", "a@example.com", false)
	if err != nil || u.ID != "u1" || u.Email != "a@example.com" || u.IsAnonymous {
		t.Fatalf("first GetOrCreateUser: %+v err=%v", u, err)
	}
	// Second call must not overwrite existing data.
	u2, err := GetOrCreateUser(ctx, db, "u1", "", true)
	if err != nil || u2.Email != "a@example.com" || u2.IsAnonymous {
		t.Fatalf("second GetOrCreateUser overwrote: %+v err=%v", u2, err)
	}
	if _, err := GetUser(ctx, db, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveUsage_SetPremium_Preferences(t *testing.T) {
	db := newTestDB(t, &domain.User{})
	ctx := context.Background()
	u, _ := GetOrCreateUser(ctx, db, "u1", "", false)

	reset := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	u.DailyMessageCount, u.MonthlyMessageCount, u.PremiumCreditsUsed = 3, 7, 1
	u.DailyResetAt, u.MonthlyResetAt, u.PremiumResetAt = reset, reset, reset
	if err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := LockUser(ctx, tx, "u1"); err != nil {
			return err
		}
		return SaveUsage(ctx, tx, u)
	}); err != nil {
		t.Fatalf("SaveUsage: %v", err)
	}

	renew := reset.AddDate(0, 1, 0)
	if err := SetPremium(ctx, db, "u1", true, &renew); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	if err := SetPremium(ctx, db, "ghost", true, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetPremium on missing user: %v", err)
	}
	if err := UpdatePreferences(ctx, db, "u1", domain.Preferences{Theme: "dark"}); err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}

	got, _ := GetUser(ctx, db, "u1")
	if got.DailyMessageCount != 3 || got.MonthlyMessageCount != 7 || got.PremiumCreditsUsed != 1 {
		t.Fatalf("counters not saved: %+v", got)
	}
	if !got.DailyResetAt.Equal(reset) {
		t.Fatalf("reset not saved: %v", got.DailyResetAt)
	}
	if !got.IsPremium || got.PlanRenewsAt == nil || !got.PlanRenewsAt.Equal(renew) {
		t.Fatalf("premium not saved: %+v", got)
	}
	if got.Preferences.Data().Theme != "dark" {
		t.Fatalf("preferences not saved: %+v", got.Preferences.Data())
	}
}

func TestDeleteUserData_RemovesEverything(t *testing.T) {
	db := newTestDB(t,
		&domain.User{}, &domain.Chat{}, &domain.Message{}, &domain.Feedback{}, &domain.ReplayRecord{},
		&domain.ChatAttachment{}, &domain.SharedChat{}, &domain.Connector{},
		&domain.ScheduledTask{}, &domain.TaskHistory{}, &domain.UserAPIKey{},
	)
	ctx := context.Background()
	if _, err := GetOrCreateUser(ctx, db, "u1", "", false); err != nil {
		t.Fatalf("user: %v", err)
	}
	c, _ := CreateChat(ctx, db, "u1", "t")
	other, _ := CreateChat(ctx, db, "u2", "keep")
	_ = CreateAttachment(ctx, db, &domain.ChatAttachment{ChatID: c.ID, UserID: "u1", StorageKey: "u1/a", FileName: "a", MimeType: "text/plain"})
	_ = SaveConnectorState(ctx, db, "u1", domain.ConnectorGmail, "st", time.Now())
	_ = UpsertAPIKey(ctx, db, &domain.UserAPIKey{UserID: "u1", Provider: "openai", SealedKey: []byte{1}, Mode: domain.KeyModeFallback})
	task := &domain.ScheduledTask{UserID: "u1", Title: "t", Prompt: "p", Recurrence: domain.RecurDaily, TimeOfDay: "09:00", Timezone: "UTC", IsActive: true}
	_ = CreateTask(ctx, db, task)
	_, _ = StartTaskHistory(ctx, db, task.ID, "u1", time.Now().UTC())

	var keys []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var derr error
		keys, derr = DeleteUserData(ctx, tx, "u1")
		return derr
	})
	if err != nil {
		t.Fatalf("DeleteUserData: %v", err)
	}
	if len(keys) != 1 || keys[0] != "u1/a" {
		t.Fatalf("keys = %v", keys)
	}
	for _, model := range []any{
		&domain.User{}, &domain.Chat{}, &domain.Connector{}, &domain.ScheduledTask{},
		&domain.TaskHistory{}, &domain.UserAPIKey{}, &domain.ChatAttachment{},
	} {
		var n int64
		q := db.Model(model)
		if _, isUser := model.(*domain.User); isUser {
			q = q.Where("id = ?", "u1")
		} else {
			q = q.Where("user_id = ?", "u1")
		}
		q.Count(&n)
		if n != 0 {
			t.Fatalf("%T rows left: %d", model, n)
		}
	}
	if _, err := GetChat(ctx, db, other.ID, "u2"); err != nil {
		t.Fatalf("other user's chat removed: %v", err)
	}
}
