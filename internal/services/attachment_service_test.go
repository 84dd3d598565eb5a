package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

func newAttachmentService(t *testing.T) (*AttachmentService, *fakeStorage, *domain.Chat) {
	t.Helper()
	db := newTestDB(t)
	st := newFakeStorage()
	return &AttachmentService{DB: db, Storage: st, MaxBytes: 64}, st, seedChat(t, db, "u1", "t")
}

func TestAttachments_CreateSanitisesAndSniffs(t *testing.T) {
	s, st, chat := newAttachmentService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "u1", chat.ID, Upload{
		FileName: " con.txt ",
		Size:     -1,
		Body:     strings.NewReader("plain words"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.FileName != "con-file.txt" {
		t.Fatalf("file name = %q", a.FileName)
	}
	if a.MimeType != "text/plain" || a.Size != int64(len("plain words")) {
		t.Fatalf("attachment = %+v", a)
	}
	if !strings.HasPrefix(a.StorageKey, "u1/") || string(st.objects[a.StorageKey]) != "plain words" {
		t.Fatalf("object not stored under owner prefix: %q", a.StorageKey)
	}

	png := "\x89PNG\r\n\x1a\n" + strings.Repeat("\x00", 8)
	b, err := s.Create(ctx, "u1", chat.ID, Upload{FileName: "noext", ContentType: "application/octet-stream", Size: int64(len(png)), Body: strings.NewReader(png)})
	if err != nil {
		t.Fatalf("Create png: %v", err)
	}
	if b.MimeType != "image/png" {
		t.Fatalf("sniffed type = %q", b.MimeType)
	}
}

func TestAttachments_Limits(t *testing.T) {
	s, st, chat := newAttachmentService(t)
	ctx := context.Background()

	if _, err := s.Create(ctx, "u1", chat.ID, Upload{FileName: "a", Size: 65, Body: strings.NewReader("x")}); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("declared size: want ErrFileTooLarge, got %v", err)
	}
	big := strings.Repeat("y", 100)
	if _, err := s.Create(ctx, "u1", chat.ID, Upload{FileName: "a", Size: -1, Body: strings.NewReader(big)}); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("streamed size: want ErrFileTooLarge, got %v", err)
	}
	if len(st.objects) != 0 {
		t.Fatalf("oversized object left behind: %v", st.objects)
	}
	if _, err := s.Create(ctx, "u1", chat.ID, Upload{FileName: "a", Size: -1, Body: strings.NewReader("")}); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("want ErrEmptyFile, got %v", err)
	}
	if _, err := s.Create(ctx, "u2", chat.ID, Upload{FileName: "a", Size: 1, Body: strings.NewReader("x")}); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want ErrChatNotFound, got %v", err)
	}
}

func TestAttachments_GetListDelete(t *testing.T) {
	s, st, chat := newAttachmentService(t)
	ctx := context.Background()

	a, err := s.Create(ctx, "u1", chat.ID, Upload{FileName: "notes.md", Size: 5, Body: strings.NewReader("hello")})
	if err != nil {
		t.Fatal(err)
	}

	// No direct URLs: Get falls back to streaming.
	d, err := s.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.URL != "" || d.Body == nil {
		t.Fatalf("expected stream, got %+v", d)
	}
	b, _ := io.ReadAll(d.Body)
	d.Body.Close()
	if string(b) != "hello" {
		t.Fatalf("body = %q", b)
	}

	st.url = "https://objects.example"
	d, err = s.Get(ctx, "u1", a.ID)
	if err != nil || d.URL != "https://objects.example/"+a.StorageKey || d.ExpiresAt.IsZero() {
		t.Fatalf("signed URL = %+v, %v", d, err)
	}

	if _, err := s.Get(ctx, "u2", a.ID); !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("want ErrAttachmentNotFound, got %v", err)
	}
	list, err := s.List(ctx, "u1", chat.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}
	if _, err := s.List(ctx, "u2", chat.ID); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want ErrChatNotFound, got %v", err)
	}

	if err := s.Delete(ctx, "u1", a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := st.objects[a.StorageKey]; ok {
		t.Fatalf("object not deleted")
	}
	if err := s.Delete(ctx, "u1", a.ID); !errors.Is(err, ErrAttachmentNotFound) {
		t.Fatalf("second delete: want ErrAttachmentNotFound, got %v", err)
	}
}
