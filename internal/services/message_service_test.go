package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// newMsgDB opens a private database migrating only the given models, so
// tests can exercise missing-table error paths.
func newMsgDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:msgsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestMessageService_Append_EmptyAndTooLong(t *testing.T) {
	s := &MessageService{MaxPromptRunes: 5}
	if _, _, err := s.Append(context.Background(), "u1", "c1", NewMessage{Content: "   "}); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("want ErrEmptyPrompt, got %v", err)
	}
	if _, _, err := s.Append(context.Background(), "u1", "c1", NewMessage{Content: "123456"}); !errors.Is(err, ErrTooLong) {
		t.Fatalf("want ErrTooLong, got %v", err)
	}
}

func TestMessageService_Append_ChatNotFound(t *testing.T) {
	db := newTestDB(t)
	c := seedChat(t, db, "owner", "t")
	s := &MessageService{DB: db}
	if _, _, err := s.Append(context.Background(), "intruder", c.ID, NewMessage{Content: "hi"}); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want ErrChatNotFound, got %v", err)
	}
}

func TestMessageService_Append_ChainsToLatestAndAutoTitles(t *testing.T) {
	db := newTestDB(t)
	c := seedChat(t, db, "u1", "New chat")
	s := &MessageService{DB: db, Titles: Titles{MaxRunes: 12}}
	ctx := context.Background()

	m1, chat, err := s.Append(ctx, "u1", c.ID, NewMessage{Content: "the state of streaming in nashville"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if m1.ParentMessageID != nil {
		t.Fatalf("first message must be a root, got parent %v", *m1.ParentMessageID)
	}
	if m1.Role != domain.RoleUser || m1.UserID == nil || *m1.UserID != "u1" {
		t.Fatalf("unexpected message: %+v", m1)
	}
	if chat.Title != "State Stream" {
		t.Fatalf("expected clipped generated title, got %q", chat.Title)
	}
	var stored domain.Chat
	if err := db.Take(&stored, "id = ?", c.ID).Error; err != nil || stored.Title != chat.Title {
		t.Fatalf("stored title = %q, %v", stored.Title, err)
	}

	a, err := s.AddAssistant(ctx, c.ID, m1.ID, "answer", nil, domain.MessageMetadata{Model: "m"})
	if err != nil {
		t.Fatalf("AddAssistant: %v", err)
	}
	if a.Metadata.Data().Model != "m" {
		t.Fatalf("metadata not stored: %+v", a.Metadata.Data())
	}

	m2, chat2, err := s.Append(ctx, "u1", c.ID, NewMessage{Content: "follow up"})
	if err != nil {
		t.Fatalf("Append 2: %v", err)
	}
	if m2.ParentMessageID == nil || *m2.ParentMessageID != a.ID {
		t.Fatalf("second message should chain to latest, got %v", m2.ParentMessageID)
	}
	if chat2.Title != chat.Title {
		t.Fatalf("title must not be regenerated: %q vs %q", chat2.Title, chat.Title)
	}
}

func TestMessageService_Append_ExplicitParent(t *testing.T) {
	db := newTestDB(t)
	c := seedChat(t, db, "u1", "Custom")
	other := seedChat(t, db, "u1", "Other")
	root := seedMsg(t, db, c.ID, domain.RoleUser, "root", nil, time.Now().UTC().Add(-time.Minute))
	seedMsg(t, db, c.ID, domain.RoleAssistant, "reply", &root.ID, time.Now().UTC())
	foreign := seedMsg(t, db, other.ID, domain.RoleUser, "elsewhere", nil, time.Now().UTC())

	s := &MessageService{DB: db}
	ctx := context.Background()

	m, chat, err := s.Append(ctx, "u1", c.ID, NewMessage{Content: "edit", ParentID: &root.ID})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if *m.ParentMessageID != root.ID {
		t.Fatalf("parent = %v, want %s", *m.ParentMessageID, root.ID)
	}
	if chat.Title != "Custom" {
		t.Fatalf("custom title changed to %q", chat.Title)
	}

	if _, _, err := s.Append(ctx, "u1", c.ID, NewMessage{Content: "x", ParentID: &foreign.ID}); !errors.Is(err, ErrInvalidParent) {
		t.Fatalf("want ErrInvalidParent for cross-chat parent, got %v", err)
	}
}

func TestMessageService_Thread(t *testing.T) {
	db := newTestDB(t)
	c := seedChat(t, db, "u1", "t")
	s := &MessageService{DB: db}
	ctx := context.Background()

	empty, err := s.Thread(ctx, "u1", c.ID, "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty chat thread = %v, %v", empty, err)
	}

	t0 := time.Now().UTC().Add(-time.Hour)
	q := seedMsg(t, db, c.ID, domain.RoleUser, "q", nil, t0)
	a1 := seedMsg(t, db, c.ID, domain.RoleAssistant, "a1", &q.ID, t0.Add(time.Second))
	a2 := seedMsg(t, db, c.ID, domain.RoleAssistant, "a2", &q.ID, t0.Add(2*time.Second))

	latest, err := s.Thread(ctx, "u1", c.ID, "")
	if err != nil {
		t.Fatalf("Thread: %v", err)
	}
	if len(latest) != 2 || latest[1].ID != a2.ID {
		t.Fatalf("latest thread should end at a2: %+v", latest)
	}

	alt, err := s.Thread(ctx, "u1", c.ID, a1.ID)
	if err != nil || len(alt) != 2 || alt[0].ID != q.ID || alt[1].ID != a1.ID {
		t.Fatalf("sibling thread = %+v, %v", alt, err)
	}

	if _, err := s.Thread(ctx, "u1", c.ID, "missing"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("want ErrMessageNotFound, got %v", err)
	}
	if _, err := s.Thread(ctx, "u2", c.ID, ""); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want ErrChatNotFound, got %v", err)
	}
}

func TestMessageService_DeleteSubtree(t *testing.T) {
	db := newTestDB(t)
	c := seedChat(t, db, "u1", "t")
	t0 := time.Now().UTC().Add(-time.Hour)
	q := seedMsg(t, db, c.ID, domain.RoleUser, "q", nil, t0)
	a := seedMsg(t, db, c.ID, domain.RoleAssistant, "a", &q.ID, t0.Add(time.Second))
	seedMsg(t, db, c.ID, domain.RoleUser, "q2", &a.ID, t0.Add(2*time.Second))
	keep := seedMsg(t, db, c.ID, domain.RoleUser, "other root", nil, t0.Add(3*time.Second))

	s := &MessageService{DB: db}
	ctx := context.Background()

	if _, err := s.DeleteSubtree(ctx, "u2", c.ID, q.ID); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want ErrChatNotFound, got %v", err)
	}
	if _, err := s.DeleteSubtree(ctx, "u1", c.ID, "missing"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("want ErrMessageNotFound, got %v", err)
	}

	n, err := s.DeleteSubtree(ctx, "u1", c.ID, q.ID)
	if err != nil {
		t.Fatalf("DeleteSubtree: %v", err)
	}
	if n != 3 {
		t.Fatalf("deleted %d, want 3", n)
	}
	var left []domain.Message
	db.Where("chat_id = ?", c.ID).Find(&left)
	if len(left) != 1 || left[0].ID != keep.ID {
		t.Fatalf("remaining = %+v", left)
	}
}

func TestMessageService_ListPage(t *testing.T) {
	ctx := context.Background()

	t.Run("schema errors surface", func(t *testing.T) {
		if _, _, err := (&MessageService{DB: newMsgDB(t)}).ListPage(ctx, "u1", "c1", 1, 10); err == nil {
			t.Fatal("no chats table: expected an error")
		}
		db := newMsgDB(t, &domain.Chat{})
		db.Create(&domain.Chat{ID: "c1", UserID: "u1", Title: "t"})
		if _, _, err := (&MessageService{DB: db}).ListPage(ctx, "u1", "c1", 1, 10); err == nil || errors.Is(err, ErrChatNotFound) {
			t.Fatalf("no messages table: got %v", err)
		}
	})

	db := newMsgDB(t, &domain.Chat{}, &domain.Message{})
	db.Create(&domain.Chat{ID: "c2", UserID: "u1", Title: "t"})
	s := &MessageService{DB: db}

	items, total, err := s.ListPage(ctx, "u1", "c2", 0, 0)
	if err != nil || total != 0 || items == nil || len(items) != 0 {
		t.Fatalf("empty chat: items=%v total=%d err=%v", items, total, err)
	}

	t0 := time.Now().UTC()
	for i, content := range []string{"hi", "hey", "ok"} {
		m := domain.Message{ID: fmt.Sprintf("m%d", i+1), ChatID: "c2", Role: domain.RoleUser, Content: content, CreatedAt: t0.Add(time.Duration(i) * time.Second)}
		if err := db.Create(&m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	for _, tc := range []struct {
		page, size int
		want       []string
	}{
		{-5, -7, []string{"m1", "m2", "m3"}},
		{2, 2, []string{"m3"}},
		{3, 2, nil},
	} {
		items, total, err := s.ListPage(ctx, "u1", "c2", tc.page, tc.size)
		if err != nil || total != 3 || len(items) != len(tc.want) {
			t.Fatalf("page %d/%d: items=%+v total=%d err=%v", tc.page, tc.size, items, total, err)
		}
		for i, id := range tc.want {
			if items[i].ID != id {
				t.Fatalf("page %d/%d: item %d = %s, want %s", tc.page, tc.size, i, items[i].ID, id)
			}
		}
	}

	if _, _, err := s.ListPage(ctx, "u2", "c2", 1, 10); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("foreign chat should be not found, got %v", err)
	}
}
