package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

func newChatRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("chat_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateChat_Error_NoTable(t *testing.T) {
	db := newChatRepoDB(t /* no migrations */)
	chat, err := CreateChat(context.Background(), db, "u1", "t")
	if err == nil || chat != nil {
		t.Fatalf("expected error creating without table, got chat=%v err=%v", chat, err)
	}
}

func TestCreateChat_GetChat_Ownership(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()

	c, err := CreateChat(ctx, db, "u1", "Hello")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() || !c.UpdatedAt.Equal(c.CreatedAt) {
		t.Fatalf("unexpected chat: %+v", c)
	}

	if _, err := GetChat(ctx, db, c.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign owner must see ErrNotFound, got %v", err)
	}
	got, err := GetChat(ctx, db, c.ID, "u1")
	if err != nil || got.Title != "Hello" {
		t.Fatalf("GetChat: got=%+v err=%v", got, err)
	}
	if byID, err := GetChatByID(ctx, db, c.ID); err != nil || byID.UserID != "u1" {
		t.Fatalf("GetChatByID: got=%+v err=%v", byID, err)
	}
}

func TestListChatsPage_PinnedFirstThenRecent(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pinnedAt := t0.Add(time.Hour)

	seed := []domain.Chat{
		{ID: "old", UserID: "u1", Title: "old", CreatedAt: t0, UpdatedAt: t0},
		{ID: "new", UserID: "u1", Title: "new", CreatedAt: t0, UpdatedAt: t0.Add(2 * time.Hour)},
		{ID: "pin", UserID: "u1", Title: "pin", CreatedAt: t0, UpdatedAt: t0, IsPinned: true, PinnedAt: &pinnedAt},
		{ID: "other", UserID: "u2", Title: "x", CreatedAt: t0, UpdatedAt: t0},
	}
	for i := range seed {
		if err := InsertChat(ctx, db, &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	page, err := ListChatsPage(ctx, db, "u1", 0, 10)
	if err != nil {
		t.Fatalf("ListChatsPage: %v", err)
	}
	if len(page) != 3 || page[0].ID != "pin" || page[1].ID != "new" || page[2].ID != "old" {
		t.Fatalf("unexpected order: %+v", page)
	}

	page, _ = ListChatsPage(ctx, db, "u1", 1, 1)
	if len(page) != 1 || page[0].ID != "new" {
		t.Fatalf("offset/limit not applied: %+v", page)
	}
	if n, _ := CountChats(ctx, db, "u1"); n != 3 {
		t.Fatalf("CountChats = %d", n)
	}
	if all, _ := ListChats(ctx, db, "u1"); len(all) != 3 {
		t.Fatalf("ListChats = %d", len(all))
	}
}

func TestUpdateChatFields_NotFoundAndSuccess(t *testing.T) {
	db := newChatRepoDB(t, &domain.Chat{})
	ctx := context.Background()
	c, _ := CreateChat(ctx, db, "u1", "t")

	if err := UpdateChatTitle(ctx, db, c.ID, "u2", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}
	if err := UpdateChatFields(ctx, db, c.ID, "u1", map[string]any{"model": "gpt-4o", "system_prompt": "be brief"}); err != nil {
		t.Fatalf("UpdateChatFields: %v", err)
	}
	if err := UpdateChatTitle(ctx, db, c.ID, "u1", "renamed"); err != nil {
		t.Fatalf("UpdateChatTitle: %v", err)
	}
	got, _ := GetChat(ctx, db, c.ID, "u1")
	if got.Title != "renamed" || got.Model != "gpt-4o" || got.SystemPrompt != "be brief" {
		t.Fatalf("fields not updated: %+v", got)
	}

	later := time.Now().UTC().Add(time.Hour)
	if err := TouchChat(ctx, db, c.ID, later); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}
	got, _ = GetChat(ctx, db, c.ID, "u1")
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("TouchChat did not bump updated_at: %v", got.UpdatedAt)
	}
}

func TestDeleteChat_Cascades(t *testing.T) {
	db := newChatRepoDB(t,
		&domain.Chat{}, &domain.Message{}, &domain.Feedback{}, &domain.ChatAttachment{},
		&domain.SharedChat{}, &domain.ReplayRecord{},
	)
	ctx := context.Background()
	c, _ := CreateChat(ctx, db, "u1", "t")
	keep, _ := CreateChat(ctx, db, "u1", "keep")

	m, err := CreateMessage(ctx, db, &domain.Message{ChatID: c.ID, Role: domain.RoleAssistant, Content: "a"})
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := CreateMessage(ctx, db, &domain.Message{ChatID: keep.ID, Role: domain.RoleUser, Content: "b"}); err != nil {
		t.Fatalf("CreateMessage keep: %v", err)
	}
	if err := CreateFeedback(ctx, db, &domain.Feedback{MessageID: m.ID, UserID: "u1", Value: 1}); err != nil {
		t.Fatalf("CreateFeedback: %v", err)
	}
	if err := CreateAttachment(ctx, db, &domain.ChatAttachment{ChatID: c.ID, UserID: "u1", StorageKey: "u1/k1", FileName: "a.txt", MimeType: "text/plain", Size: 1}); err != nil {
		t.Fatalf("CreateAttachment: %v", err)
	}
	if _, err := CreateShare(ctx, db, c.ID, "u1"); err != nil {
		t.Fatalf("CreateShare: %v", err)
	}
	if _, err := RecordReplay(ctx, db, domain.ReplayKey{UserID: "u1", ChatID: c.ID, Route: "messages", Key: "k"}, m.ID, 201, time.Hour); err != nil {
		t.Fatalf("RecordReplay: %v", err)
	}

	if _, err := DeleteChat(ctx, db, c.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete should be ErrNotFound, got %v", err)
	}

	var keys []string
	err = db.Transaction(func(tx *gorm.DB) error {
		var derr error
		keys, derr = DeleteChat(ctx, tx, c.ID, "u1")
		return derr
	})
	if err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if len(keys) != 1 || keys[0] != "u1/k1" {
		t.Fatalf("storage keys = %v", keys)
	}

	for _, model := range []any{&domain.Message{}, &domain.ChatAttachment{}, &domain.SharedChat{}, &domain.ReplayRecord{}} {
		var n int64
		db.Model(model).Where("chat_id = ?", c.ID).Count(&n)
		if n != 0 {
			t.Fatalf("%T rows left after delete: %d", model, n)
		}
	}
	var fb int64
	db.Model(&domain.Feedback{}).Count(&fb)
	if fb != 0 {
		t.Fatalf("feedback left after delete: %d", fb)
	}
	if n, _ := CountMessages(db, keep.ID); n != 1 {
		t.Fatalf("unrelated chat lost messages: %d", n)
	}
}
